package weather

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leaflens/leaflens-host/internal/models"
)

func TestDedupeKey(t *testing.T) {
	at := time.Date(2024, 1, 1, 10, 15, 0, 0, time.UTC)
	nyc := models.Coordinate{Lat: 40.7128, Lon: -74.0060}

	assert.Equal(t, "weather-2024-01-01T10-40.71--74.01", DedupeKey(at, nyc))
	assert.Equal(t, DedupeKey(at, nyc), DedupeKey(at.Add(30*time.Minute), nyc), "same hour")
	assert.NotEqual(t, DedupeKey(at, nyc), DedupeKey(at.Add(time.Hour), nyc), "next hour")
	assert.Equal(t, DedupeKey(at, nyc), DedupeKey(at, models.Coordinate{Lat: 40.7149, Lon: -74.0051}), "two decimal rounding")
}

func TestDedupeKeyRoundsTiesAwayFromZero(t *testing.T) {
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, "weather-2024-01-01T10-51.13-0.38", DedupeKey(at, models.Coordinate{Lat: 51.125, Lon: 0.375}))
	assert.Equal(t, "weather-2024-01-01T10-12.63-3.88", DedupeKey(at, models.Coordinate{Lat: 12.625, Lon: 3.875}))
	assert.Equal(t, "weather-2024-01-01T10--33.88--0.13", DedupeKey(at, models.Coordinate{Lat: -33.875, Lon: -0.125}))
	// 1.005 is stored just below the tie
	assert.Equal(t, "weather-2024-01-01T10-1.00-2.50", DedupeKey(at, models.Coordinate{Lat: 1.005, Lon: 2.5}))
	assert.Equal(t, "weather-2024-01-01T10-0.00--0.00", DedupeKey(at, models.Coordinate{Lat: math.Copysign(0, -1), Lon: -0.001}))
}

func TestDedupeKeyUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	local := time.Date(2024, 1, 1, 5, 15, 0, 0, loc)
	assert.Equal(t, "weather-2024-01-01T10-0.00-0.00", DedupeKey(local, models.Coordinate{}))
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name     string
		snapshot models.WeatherSnapshot
		want     string
	}{
		{
			name:     "default location",
			snapshot: models.WeatherSnapshot{Condition: "Clear", Temperature: 20, Location: "New York", IsDefaultLocation: true},
			want:     "Current weather (Default Location): Clear, 20°C",
		},
		{
			name:     "named location",
			snapshot: models.WeatherSnapshot{Condition: "Rain", Temperature: -3, Location: "Oslo"},
			want:     "Current weather in Oslo: Rain, -3°C",
		},
		{
			name:     "unnamed location",
			snapshot: models.WeatherSnapshot{Condition: "Clouds", Temperature: 12},
			want:     "Current weather: Clouds, 12°C",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Message(tt.snapshot))
		})
	}
}

func TestNotificationFor(t *testing.T) {
	s := models.WeatherSnapshot{Condition: "Clear", Temperature: 20, Location: "Paris", DedupeKey: "weather-k"}
	in := NotificationFor(s)

	assert.Equal(t, models.NotificationTypeInApp, in.Type)
	assert.Equal(t, models.NotificationCategoryWeather, in.Category)
	assert.Equal(t, "Weather Update", in.Title)
	assert.Equal(t, "weather-k", in.Key)
	assert.Equal(t, "🌤️", in.Icon)

	var decoded models.WeatherSnapshot
	require.NoError(t, json.Unmarshal(in.Data, &decoded))
	assert.Equal(t, "Paris", decoded.Location)
}

func TestIconGlyph(t *testing.T) {
	assert.Equal(t, "☀️", IconGlyph("01d"))
	assert.Equal(t, "🌙", IconGlyph("01n"))
	assert.Equal(t, "🌡️", IconGlyph("99x"))
}

func TestSnapshotFromRoundsTemperature(t *testing.T) {
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, 21, snapshotFrom(Reading{Temperature: 20.5}, DefaultLocation, true, at).Temperature)
	assert.Equal(t, 20, snapshotFrom(Reading{Temperature: 20.49}, DefaultLocation, true, at).Temperature)
	assert.Equal(t, -2, snapshotFrom(Reading{Temperature: -2.5}, DefaultLocation, true, at).Temperature)
}
