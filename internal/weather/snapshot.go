// Package weather turns periodic current-conditions readings into weather
// notifications and keeps a short per-user remote history of them.
package weather

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/leaflens/leaflens-host/internal/models"
)

// DefaultLocation is used when the device location is unknown.
var DefaultLocation = models.Coordinate{Lat: 40.7128, Lon: -74.0060}

const notificationTitle = "Weather Update"

// DedupeKey bounds weather notifications to one per UTC hour and location
// rounded to two decimals.
func DedupeKey(at time.Time, c models.Coordinate) string {
	return fmt.Sprintf("weather-%s-%s-%s",
		at.UTC().Format("2006-01-02T15"),
		fixed2(c.Lat),
		fixed2(c.Lon),
	)
}

// fixed2 formats v with two decimals, rounding exact ties away from zero.
// FormatFloat alone rounds them to even. Only multiples of 1/8 with an odd
// numerator are exact ties at two decimals.
func fixed2(v float64) string {
	if v == 0 {
		v = 0 // drop the sign of -0
	}
	abs := math.Abs(v)
	if eighths := abs * 8; eighths == math.Trunc(eighths) && math.Mod(eighths, 2) == 1 {
		return strconv.FormatFloat(math.Copysign(math.Ceil(abs*100)/100, v), 'f', 2, 64)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

var iconGlyphs = map[string]string{
	"01d": "☀️",
	"01n": "🌙",
	"02d": "⛅",
	"02n": "☁️",
	"03d": "☁️",
	"03n": "☁️",
	"04d": "☁️",
	"04n": "☁️",
	"09d": "🌧️",
	"09n": "🌧️",
	"10d": "🌦️",
	"10n": "🌧️",
	"11d": "⛈️",
	"11n": "⛈️",
	"13d": "🌨️",
	"13n": "🌨️",
	"50d": "🌫️",
	"50n": "🌫️",
}

// IconGlyph maps an OpenWeatherMap icon code to a display glyph.
func IconGlyph(code string) string {
	if g, ok := iconGlyphs[code]; ok {
		return g
	}
	return "🌡️"
}

// Message is the body of a weather notification. Live readings and replayed
// history produce the same text for the same snapshot, so both de-duplicate
// against each other.
func Message(s models.WeatherSnapshot) string {
	where := ""
	switch {
	case s.IsDefaultLocation:
		where = " (Default Location)"
	case s.Location != "":
		where = " in " + s.Location
	}
	return fmt.Sprintf("Current weather%s: %s, %d°C", where, s.Condition, s.Temperature)
}

// NotificationFor builds the in-app notification for a snapshot.
func NotificationFor(s models.WeatherSnapshot) models.NotificationInput {
	data, _ := json.Marshal(s)
	return models.NotificationInput{
		Type:     models.NotificationTypeInApp,
		Category: models.NotificationCategoryWeather,
		Title:    notificationTitle,
		Message:  Message(s),
		Icon:     "🌤️",
		Key:      s.DedupeKey,
		Data:     data,
	}
}
