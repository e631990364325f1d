// Package capture turns camera frames and uploaded files into still images.
package capture

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/leaflens/leaflens-host/internal/models"
)

// MaxImageBytes bounds a single capture or upload.
const MaxImageBytes = 10 << 20

var (
	ErrNoImage           = errors.New("no image data")
	ErrUnsupportedImage  = errors.New("unsupported image type")
	ErrTooLarge          = errors.New("image is too large")
	ErrCameraUnavailable = errors.New("camera not available in this environment")
	ErrDeviceCapture     = errors.New("failed to capture photo on device")
)

type Variant string

const (
	VariantBrowser Variant = "browser"
	VariantNative  Variant = "native"
	VariantUpload  Variant = "upload"
)

// Frame is what a device sends for one still capture.
type Frame struct {
	Data  string `json:"data"`
	Error string `json:"error,omitempty"`
}

type Capturer interface {
	Variant() Variant
	Decode(frame Frame) (models.Capture, error)
}

// Probe picks the capture variant for a client by its user agent. The native
// shell identifies itself with "Median".
func Probe(userAgent string) Variant {
	if strings.Contains(userAgent, "Median") {
		return VariantNative
	}
	return VariantBrowser
}

func ForRequest(r *http.Request) Capturer {
	if Probe(r.UserAgent()) == VariantNative {
		return NativeCapturer{}
	}
	return BrowserCapturer{}
}

// BrowserCapturer accepts a frame grabbed from a live video stream, either as
// a data URL or as bare base64.
type BrowserCapturer struct{}

func (BrowserCapturer) Variant() Variant { return VariantBrowser }

func (BrowserCapturer) Decode(frame Frame) (models.Capture, error) {
	if frame.Error != "" {
		return models.Capture{}, fmt.Errorf("%w: %s", ErrCameraUnavailable, frame.Error)
	}
	payload := strings.TrimSpace(frame.Data)
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 || !strings.HasSuffix(payload[:comma], ";base64") {
			return models.Capture{}, fmt.Errorf("%w: malformed data URL", ErrUnsupportedImage)
		}
		payload = payload[comma+1:]
	}
	return decode(payload, VariantBrowser)
}

// NativeCapturer accepts the base64 string returned by the device camera
// plugin.
type NativeCapturer struct{}

func (NativeCapturer) Variant() Variant { return VariantNative }

func (NativeCapturer) Decode(frame Frame) (models.Capture, error) {
	if frame.Error != "" {
		return models.Capture{}, fmt.Errorf("%w: %s", ErrDeviceCapture, frame.Error)
	}
	return decode(strings.TrimSpace(frame.Data), VariantNative)
}

// FromUpload reads a user-selected image file.
func FromUpload(r io.Reader) (models.Capture, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return models.Capture{}, fmt.Errorf("reading upload: %w", err)
	}
	return fromBytes(data, VariantUpload)
}

func decode(payload string, variant Variant) (models.Capture, error) {
	if payload == "" {
		return models.Capture{}, ErrNoImage
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageBytes+3 {
		return models.Capture{}, ErrTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return models.Capture{}, fmt.Errorf("%w: invalid base64", ErrUnsupportedImage)
		}
	}
	return fromBytes(data, variant)
}

func fromBytes(data []byte, variant Variant) (models.Capture, error) {
	if len(data) == 0 {
		return models.Capture{}, ErrNoImage
	}
	if len(data) > MaxImageBytes {
		return models.Capture{}, ErrTooLarge
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return models.Capture{}, fmt.Errorf("%w: %s", ErrUnsupportedImage, contentType)
	}
	return models.Capture{Data: data, ContentType: contentType, Source: string(variant)}, nil
}
