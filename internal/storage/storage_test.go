package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leaflens/leaflens-host/internal/models"
)

func TestObjectKey(t *testing.T) {
	at := time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC)

	key := objectKey("user-1", "image/png", at)
	assert.True(t, strings.HasPrefix(key, "scans/user-1/2024/03/"), key)
	assert.True(t, strings.HasSuffix(key, ".png"), key)

	assert.True(t, strings.HasSuffix(objectKey("", "image/jpeg", at), ".jpg"))
	assert.True(t, strings.HasPrefix(objectKey("", "image/jpeg", at), "scans/guest/"))
	assert.NotEqual(t, objectKey("u", "image/jpeg", at), objectKey("u", "image/jpeg", at))
}

func TestPublicURL(t *testing.T) {
	cfg := MinIOConfig{PublicEndpoint: "cdn.leaflens.test", Bucket: "scans", PublicUseSSL: true}
	assert.Equal(t, "https://cdn.leaflens.test/scans/scans%2Fu%2Fa.jpg", publicURL(cfg, "scans/u/a.jpg"))

	cfg.PublicUseSSL = false
	assert.True(t, strings.HasPrefix(publicURL(cfg, "k"), "http://"))
}

func TestInlineStore(t *testing.T) {
	s := NewInlineStore()
	img, err := s.Put(context.Background(), "user-1", models.Capture{Data: []byte("abc"), ContentType: "image/jpeg"})
	require.NoError(t, err)

	assert.Equal(t, "data:image/jpeg;base64,YWJj", img.URL)
	assert.Equal(t, int64(3), img.Size)
	assert.NoError(t, s.Delete(context.Background(), img.Key))
}

func TestPublicReadPolicy(t *testing.T) {
	assert.Contains(t, publicReadPolicy("scans"), `"arn:aws:s3:::scans/*"`)
}
