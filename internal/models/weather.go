package models

import "time"

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// WeatherSnapshot is a single reading mapped for display and notification.
type WeatherSnapshot struct {
	Condition         string    `json:"condition"`
	Description       string    `json:"description,omitempty"`
	Temperature       int       `json:"temperature"`
	Humidity          int       `json:"humidity"`
	WindSpeed         float64   `json:"wind_speed"`
	Icon              string    `json:"icon,omitempty"`
	Location          string    `json:"location,omitempty"`
	Country           string    `json:"country,omitempty"`
	IsDefaultLocation bool      `json:"is_default_location"`
	DedupeKey         string    `json:"dedupe_key"`
	FetchedAt         time.Time `json:"fetched_at"`
}

// WeatherHistoryEntry is the compact per-user record kept in the document store.
type WeatherHistoryEntry struct {
	ID                string    `json:"id" db:"id"`
	UserID            string    `json:"user_id" db:"user_id"`
	DedupeKey         string    `json:"dedupe_key" db:"dedupe_key"`
	Condition         string    `json:"condition" db:"condition"`
	Temperature       int       `json:"temperature" db:"temperature"`
	Humidity          int       `json:"humidity" db:"humidity"`
	WindSpeed         float64   `json:"wind_speed" db:"wind_speed"`
	Location          string    `json:"location" db:"location"`
	IsDefaultLocation bool      `json:"is_default_location" db:"is_default_location"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

func (e WeatherHistoryEntry) Snapshot() WeatherSnapshot {
	return WeatherSnapshot{
		Condition:         e.Condition,
		Temperature:       e.Temperature,
		Humidity:          e.Humidity,
		WindSpeed:         e.WindSpeed,
		Location:          e.Location,
		IsDefaultLocation: e.IsDefaultLocation,
		DedupeKey:         e.DedupeKey,
		FetchedAt:         e.CreatedAt,
	}
}

func HistoryEntryFromSnapshot(userID string, s WeatherSnapshot) WeatherHistoryEntry {
	return WeatherHistoryEntry{
		UserID:            userID,
		DedupeKey:         s.DedupeKey,
		Condition:         s.Condition,
		Temperature:       s.Temperature,
		Humidity:          s.Humidity,
		WindSpeed:         s.WindSpeed,
		Location:          s.Location,
		IsDefaultLocation: s.IsDefaultLocation,
	}
}
