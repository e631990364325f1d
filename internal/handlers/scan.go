package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/leaflens/leaflens-host/internal/authz"
	"github.com/leaflens/leaflens-host/internal/capture"
	"github.com/leaflens/leaflens-host/internal/models"
	"github.com/leaflens/leaflens-host/internal/plant"
)

type ScanHandler struct {
	scanner plant.Scanner
	logger  zerolog.Logger
}

func NewScanHandler(scanner plant.Scanner, logger zerolog.Logger) *ScanHandler {
	return &ScanHandler{
		scanner: scanner,
		logger:  logger.With().Str("handler", "scan").Logger(),
	}
}

// Capture identifies a still frame. The capture variant follows the client:
// the native shell sends the camera plugin's base64, browsers a video frame.
func (h *ScanHandler) Capture(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 2*capture.MaxImageBytes)
	var frame capture.Frame
	if !decodeJSON(w, r, &frame) {
		return
	}

	capturer := capture.ForRequest(r)
	img, err := capturer.Decode(frame)
	if err != nil {
		h.captureError(w, err)
		return
	}
	h.identify(w, r, img)
}

// Upload identifies an image file sent as the multipart field "image".
func (h *ScanHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, capture.MaxImageBytes+(1<<20))
	file, _, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "image file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	img, err := capture.FromUpload(file)
	if err != nil {
		h.captureError(w, err)
		return
	}
	h.identify(w, r, img)
}

func (h *ScanHandler) identify(w http.ResponseWriter, r *http.Request, img models.Capture) {
	userID, _ := authz.UserIDFromRequest(r)
	result, err := h.scanner.Scan(r.Context(), userID, img)
	if err != nil {
		h.logger.Error().Err(err).Str("source", img.Source).Msg("plant identification failed")
		http.Error(w, "Failed to identify plant. Please try again.", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ScanHandler) captureError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, capture.ErrTooLarge):
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
	case errors.Is(err, capture.ErrUnsupportedImage):
		http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
	case errors.Is(err, capture.ErrCameraUnavailable), errors.Is(err, capture.ErrDeviceCapture), errors.Is(err, capture.ErrNoImage):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		h.logger.Error().Err(err).Msg("failed to read capture")
		http.Error(w, "Failed to read image", http.StatusBadRequest)
	}
}
