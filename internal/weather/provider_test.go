package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leaflens/leaflens-host/internal/models"
)

const owmBody = `{
	"weather": [{"main": "Clouds", "description": "broken clouds", "icon": "04d"}],
	"main": {"temp": 18.6, "humidity": 71},
	"wind": {"speed": 4.1},
	"name": "Brooklyn",
	"sys": {"country": "US"}
}`

func TestOpenWeatherMapCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "40.7128", q.Get("lat"))
		assert.Equal(t, "-74.006", q.Get("lon"))
		assert.Equal(t, "metric", q.Get("units"))
		assert.Equal(t, "secret", q.Get("appid"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(owmBody))
	}))
	defer srv.Close()

	owm := NewOpenWeatherMap("secret", srv.URL+"/", time.Second)
	reading, err := owm.Current(context.Background(), DefaultLocation)
	require.NoError(t, err)

	assert.Equal(t, Reading{
		Condition:   "Clouds",
		Description: "broken clouds",
		Temperature: 18.6,
		Humidity:    71,
		WindSpeed:   4.1,
		IconCode:    "04d",
		Location:    "Brooklyn",
		Country:     "US",
	}, reading)
}

func TestOpenWeatherMapErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"cod":401,"message":"Invalid API key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewOpenWeatherMap("bad", srv.URL, time.Second).Current(context.Background(), models.Coordinate{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestOpenWeatherMapEmptyConditions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"weather": [], "main": {"temp": 1}}`))
	}))
	defer srv.Close()

	_, err := NewOpenWeatherMap("k", srv.URL, time.Second).Current(context.Background(), models.Coordinate{})
	assert.Error(t, err)
}

func TestOpenWeatherMapNotConfigured(t *testing.T) {
	_, err := NewOpenWeatherMap("", "", 0).Current(context.Background(), DefaultLocation)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
