package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/leaflens/leaflens-host/internal/models"
)

const DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

var ErrNotConfigured = errors.New("weather API key is not configured")

// Reading is the provider's answer to a current-conditions query.
type Reading struct {
	Condition   string
	Description string
	Temperature float64
	Humidity    int
	WindSpeed   float64
	IconCode    string
	Location    string
	Country     string
}

type Provider interface {
	Current(ctx context.Context, c models.Coordinate) (Reading, error)
}

// OpenWeatherMap queries the "current weather by coordinate" endpoint in
// metric units.
type OpenWeatherMap struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewOpenWeatherMap(apiKey, baseURL string, timeout time.Duration) *OpenWeatherMap {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := &http.Client{}
	if timeout > 0 {
		client.Timeout = timeout
	}
	return &OpenWeatherMap{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

type owmResponse struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
}

func (o *OpenWeatherMap) Current(ctx context.Context, c models.Coordinate) (Reading, error) {
	if o.apiKey == "" {
		return Reading{}, ErrNotConfigured
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(c.Lon, 'f', -1, 64))
	q.Set("units", "metric")
	q.Set("appid", o.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/weather?"+q.Encode(), nil)
	if err != nil {
		return Reading{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return Reading{}, fmt.Errorf("calling weather API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Reading{}, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Reading{}, fmt.Errorf("weather API request failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload owmResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return Reading{}, fmt.Errorf("decoding response: %w", err)
	}
	if len(payload.Weather) == 0 {
		return Reading{}, errors.New("weather API response has no conditions")
	}

	return Reading{
		Condition:   payload.Weather[0].Main,
		Description: payload.Weather[0].Description,
		Temperature: payload.Main.Temp,
		Humidity:    payload.Main.Humidity,
		WindSpeed:   payload.Wind.Speed,
		IconCode:    payload.Weather[0].Icon,
		Location:    payload.Name,
		Country:     payload.Sys.Country,
	}, nil
}

// snapshotFrom maps a reading taken at the given coordinate and time.
func snapshotFrom(r Reading, c models.Coordinate, isDefault bool, at time.Time) models.WeatherSnapshot {
	return models.WeatherSnapshot{
		Condition:         r.Condition,
		Description:       r.Description,
		Temperature:       roundHalfUp(r.Temperature),
		Humidity:          r.Humidity,
		WindSpeed:         r.WindSpeed,
		Icon:              IconGlyph(r.IconCode),
		Location:          r.Location,
		Country:           r.Country,
		IsDefaultLocation: isDefault,
		DedupeKey:         DedupeKey(at, c),
		FetchedAt:         at,
	}
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
