package storage

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/leaflens/leaflens-host/internal/models"
)

// InlineStore keeps nothing server side: the image travels as a data URL,
// which is how favorites store their picture when object storage is off.
type InlineStore struct {
	now func() time.Time
}

func NewInlineStore() *InlineStore {
	return &InlineStore{now: time.Now}
}

func (s *InlineStore) Put(_ context.Context, userID string, capture models.Capture) (models.StoredImage, error) {
	return models.StoredImage{
		Key:         objectKey(userID, capture.ContentType, s.now()),
		URL:         DataURL(capture),
		ContentType: capture.ContentType,
		Size:        int64(len(capture.Data)),
	}, nil
}

func (s *InlineStore) Delete(context.Context, string) error {
	return nil
}

func DataURL(capture models.Capture) string {
	return "data:" + capture.ContentType + ";base64," + base64.StdEncoding.EncodeToString(capture.Data)
}
