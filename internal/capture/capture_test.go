package capture

import (
	"bytes"
	"encoding/base64"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jpegHeader is enough for content sniffing.
var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

var pngHeader = []byte("\x89PNG\x0D\x0A\x1A\x0A\x00\x00\x00\x0DIHDR")

func TestProbe(t *testing.T) {
	assert.Equal(t, VariantNative, Probe("Mozilla/5.0 (Linux; Android 14) Median/2.0"))
	assert.Equal(t, VariantBrowser, Probe("Mozilla/5.0 (Macintosh) Safari/605.1.15"))
	assert.Equal(t, VariantBrowser, Probe(""))
}

func TestForRequest(t *testing.T) {
	r := httptest.NewRequest("POST", "/scan/capture", nil)
	r.Header.Set("User-Agent", "LeafLens Median")
	assert.Equal(t, VariantNative, ForRequest(r).Variant())

	r.Header.Set("User-Agent", "Chrome")
	assert.Equal(t, VariantBrowser, ForRequest(r).Variant())
}

func TestBrowserDecodeDataURL(t *testing.T) {
	frame := Frame{Data: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpegHeader)}

	c, err := BrowserCapturer{}.Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", c.ContentType)
	assert.Equal(t, "browser", c.Source)
	assert.Equal(t, jpegHeader, c.Data)
}

func TestBrowserDecodeBareBase64(t *testing.T) {
	c, err := BrowserCapturer{}.Decode(Frame{Data: base64.StdEncoding.EncodeToString(pngHeader)})
	require.NoError(t, err)
	assert.Equal(t, "image/png", c.ContentType)
}

func TestBrowserDecodeErrors(t *testing.T) {
	_, err := BrowserCapturer{}.Decode(Frame{})
	assert.ErrorIs(t, err, ErrNoImage)

	_, err = BrowserCapturer{}.Decode(Frame{Data: "data:image/jpeg,rawbytes"})
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = BrowserCapturer{}.Decode(Frame{Data: "!!not base64!!"})
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = BrowserCapturer{}.Decode(Frame{Data: base64.StdEncoding.EncodeToString([]byte("plain text"))})
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = BrowserCapturer{}.Decode(Frame{Error: "NotAllowedError"})
	assert.ErrorIs(t, err, ErrCameraUnavailable)
}

func TestNativeDecode(t *testing.T) {
	c, err := NativeCapturer{}.Decode(Frame{Data: base64.RawStdEncoding.EncodeToString(jpegHeader)})
	require.NoError(t, err)
	assert.Equal(t, "native", c.Source)
	assert.Equal(t, "image/jpeg", c.ContentType)

	_, err = NativeCapturer{}.Decode(Frame{Error: "User cancelled photos app"})
	assert.ErrorIs(t, err, ErrDeviceCapture)
}

func TestFromUpload(t *testing.T) {
	c, err := FromUpload(bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "upload", c.Source)
	assert.Equal(t, "image/png", c.ContentType)

	big := append(append([]byte{}, jpegHeader...), make([]byte, MaxImageBytes)...)
	_, err = FromUpload(bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = FromUpload(bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrNoImage)
}
