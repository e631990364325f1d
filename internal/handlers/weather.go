package handlers

import (
	"errors"
	"math"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/leaflens/leaflens-host/internal/models"
	"github.com/leaflens/leaflens-host/internal/weather"
)

type WeatherHandler struct {
	sessions Sessions
	logger   zerolog.Logger
}

type coordinateRequest struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

func (c coordinateRequest) coordinate() (models.Coordinate, bool) {
	if c.Lat == nil || c.Lon == nil {
		return models.Coordinate{}, false
	}
	lat, lon := *c.Lat, *c.Lon
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return models.Coordinate{}, false
	}
	return models.Coordinate{Lat: lat, Lon: lon}, true
}

type weatherStatus struct {
	State             string             `json:"state"`
	Location          *models.Coordinate `json:"location,omitempty"`
	IsDefaultLocation bool               `json:"is_default_location"`
}

func NewWeatherHandler(sessions Sessions, logger zerolog.Logger) *WeatherHandler {
	return &WeatherHandler{
		sessions: sessions,
		logger:   logger.With().Str("handler", "weather").Logger(),
	}
}

func (h *WeatherHandler) Status(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFor(h.sessions, w, r)
	if !ok {
		return
	}
	status := weatherStatus{State: sess.Poller.State().String()}
	if loc, isDefault, known := sess.Poller.Location(); known {
		status.Location = &loc
		status.IsDefaultLocation = isDefault
	}
	writeJSON(w, http.StatusOK, status)
}

// ReportLocation answers the poller's pending position request with the
// device geolocation.
func (h *WeatherHandler) ReportLocation(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFor(h.sessions, w, r)
	if !ok {
		return
	}
	var req coordinateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	coord, valid := req.coordinate()
	if !valid {
		http.Error(w, "lat and lon are required and must be in range", http.StatusBadRequest)
		return
	}
	sess.Locator.Report(coord)
	w.WriteHeader(http.StatusNoContent)
}

// DenyLocation records that the device refused geolocation; the poller falls
// back to the default location.
func (h *WeatherHandler) DenyLocation(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFor(h.sessions, w, r)
	if !ok {
		return
	}
	sess.Locator.Deny()
	w.WriteHeader(http.StatusNoContent)
}

// SetLocation pins a manual location from the settings screen.
func (h *WeatherHandler) SetLocation(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFor(h.sessions, w, r)
	if !ok {
		return
	}
	var req coordinateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	coord, valid := req.coordinate()
	if !valid {
		http.Error(w, "lat and lon are required and must be in range", http.StatusBadRequest)
		return
	}
	sess.Poller.SetLocation(r.Context(), coord.Lat, coord.Lon)
	w.WriteHeader(http.StatusNoContent)
}

// Refresh runs one weather cycle now and returns the reading.
func (h *WeatherHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFor(h.sessions, w, r)
	if !ok {
		return
	}
	snapshot, err := sess.Poller.Refresh(r.Context())
	if err != nil {
		if errors.Is(err, weather.ErrNotConfigured) {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		h.logger.Error().Err(err).Str("user_id", sess.UserID).Msg("weather refresh failed")
		http.Error(w, "Failed to fetch weather", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}
