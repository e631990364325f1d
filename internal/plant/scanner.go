package plant

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/leaflens/leaflens-host/internal/models"
)

// ImageStore is the subset of image storage the scanner writes to.
type ImageStore interface {
	Put(ctx context.Context, userID string, capture models.Capture) (models.StoredImage, error)
	Delete(ctx context.Context, key string) error
}

// Scanner stores a capture and identifies the plant in it.
type Scanner interface {
	Scan(ctx context.Context, userID string, capture models.Capture) (models.ScanResult, error)
}

// InlineScanner runs both steps in the calling goroutine.
type InlineScanner struct {
	images     ImageStore
	identifier Identifier
	logger     zerolog.Logger
}

func NewInlineScanner(images ImageStore, identifier Identifier, logger zerolog.Logger) *InlineScanner {
	return &InlineScanner{
		images:     images,
		identifier: identifier,
		logger:     logger.With().Str("component", "scanner").Logger(),
	}
}

func (s *InlineScanner) Scan(ctx context.Context, userID string, capture models.Capture) (models.ScanResult, error) {
	image, err := s.images.Put(ctx, userID, capture)
	if err != nil {
		return models.ScanResult{}, errors.Wrap(err, "storing capture")
	}

	info, err := s.identifier.Identify(ctx, capture)
	if err != nil {
		if derr := s.images.Delete(context.WithoutCancel(ctx), image.Key); derr != nil {
			s.logger.Warn().Err(derr).Str("key", image.Key).Msg("failed to remove capture after identification error")
		}
		return models.ScanResult{}, errors.Wrap(err, "identifying plant")
	}

	return models.ScanResult{Image: image, Plant: info}, nil
}
