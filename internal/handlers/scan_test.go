package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leaflens/leaflens-host/internal/models"
	"github.com/leaflens/leaflens-host/internal/plant"
	"github.com/leaflens/leaflens-host/internal/storage"
)

// A 1x1 PNG.
var pixelPNG, _ = base64.StdEncoding.DecodeString("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")

func newScanHandler() *ScanHandler {
	scanner := plant.NewInlineScanner(storage.NewInlineStore(), plant.NewMockIdentifier(0), zerolog.Nop())
	return NewScanHandler(scanner, zerolog.Nop())
}

func TestScanCaptureBrowserFrame(t *testing.T) {
	h := newScanHandler()
	frame := `{"data":"data:image/png;base64,` + base64.StdEncoding.EncodeToString(pixelPNG) + `"}`

	rec := serve(h.Capture, httptest.NewRequest(http.MethodPost, "/api/scan/capture", strings.NewReader(frame)))
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.ScanResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, plant.SamplePlant().Name, result.Plant.Name)
	assert.Equal(t, "image/png", result.Image.ContentType)
}

func TestScanCaptureNativeVariant(t *testing.T) {
	h := newScanHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/scan/capture", strings.NewReader(`{"error":"User cancelled photos app"}`))
	req.Header.Set("User-Agent", "Mozilla/5.0 Median")
	rec := serve(h.Capture, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to capture photo on device")

	req = httptest.NewRequest(http.MethodPost, "/api/scan/capture", strings.NewReader(`{"data":"`+base64.StdEncoding.EncodeToString(pixelPNG)+`"}`))
	req.Header.Set("User-Agent", "Mozilla/5.0 Median")
	assert.Equal(t, http.StatusOK, serve(h.Capture, req).Code)
}

func TestScanCaptureRejectsNonImage(t *testing.T) {
	h := newScanHandler()
	frame := `{"data":"` + base64.StdEncoding.EncodeToString([]byte("hello, not an image")) + `"}`
	rec := serve(h.Capture, httptest.NewRequest(http.MethodPost, "/api/scan/capture", strings.NewReader(frame)))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestScanUpload(t *testing.T) {
	h := newScanHandler()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "leaf.png")
	require.NoError(t, err)
	_, err = part.Write(pixelPNG)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/scan/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := serve(h.Upload, asUser(req, "user-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"content_type":"image/png"`)

	rec = serve(h.Upload, httptest.NewRequest(http.MethodPost, "/api/scan/upload", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
