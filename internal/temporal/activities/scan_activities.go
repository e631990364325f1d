package activities

import (
	"context"

	"github.com/pkg/errors"
	"go.temporal.io/sdk/activity"

	"github.com/leaflens/leaflens-host/internal/models"
	"github.com/leaflens/leaflens-host/internal/plant"
	"github.com/leaflens/leaflens-host/internal/temporal"
)

type Activities struct {
	Images     plant.ImageStore
	Identifier plant.Identifier
}

func captureOf(params temporal.ScanParams) models.Capture {
	return models.Capture{Data: params.Image, ContentType: params.ContentType, Source: params.Source}
}

func (a *Activities) StoreCaptureActivity(ctx context.Context, params temporal.ScanParams) (models.StoredImage, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Storing capture", "scanID", params.ScanID, "userID", params.UserID, "size", len(params.Image))

	image, err := a.Images.Put(ctx, params.UserID, captureOf(params))
	if err != nil {
		return models.StoredImage{}, errors.Wrap(err, "failed to store capture")
	}
	return image, nil
}

func (a *Activities) IdentifyActivity(ctx context.Context, params temporal.ScanParams) (models.PlantInfo, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Identifying plant", "scanID", params.ScanID)

	info, err := a.Identifier.Identify(ctx, captureOf(params))
	if err != nil {
		return models.PlantInfo{}, errors.Wrap(err, "failed to identify plant")
	}
	return info, nil
}

func (a *Activities) DiscardCaptureActivity(ctx context.Context, key string) error {
	activity.GetLogger(ctx).Info("Discarding capture", "key", key)
	return a.Images.Delete(ctx, key)
}
