// Package storage keeps captured plant images.
package storage

import (
	"context"
	"fmt"
	"mime"
	"time"

	"github.com/google/uuid"

	"github.com/leaflens/leaflens-host/internal/models"
)

type ImageStore interface {
	Put(ctx context.Context, userID string, capture models.Capture) (models.StoredImage, error)
	Delete(ctx context.Context, key string) error
}

// objectKey lays captures out as scans/<user>/<yyyy/mm>/<uuid><ext>.
func objectKey(userID string, contentType string, at time.Time) string {
	if userID == "" {
		userID = "guest"
	}
	ext := ".jpg"
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		ext = preferredExtension(contentType, exts)
	}
	return fmt.Sprintf("scans/%s/%s/%s%s", userID, at.UTC().Format("2006/01"), uuid.NewString(), ext)
}

func preferredExtension(contentType string, exts []string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	}
	return exts[0]
}
