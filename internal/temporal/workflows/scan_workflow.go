package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/leaflens/leaflens-host/internal/models"
	lt "github.com/leaflens/leaflens-host/internal/temporal"
	"github.com/leaflens/leaflens-host/internal/temporal/activities"
)

// ScanWorkflow stores the capture, then identifies it. The stored image is
// discarded when identification fails.
func ScanWorkflow(ctx workflow.Context, params lt.ScanParams) (models.ScanResult, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: lt.DefaultActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	logger := workflow.GetLogger(ctx)
	logger.Info("Starting scan workflow", "ScanID", params.ScanID, "UserID", params.UserID)

	var a *activities.Activities

	var image models.StoredImage
	if err := workflow.ExecuteActivity(ctx, a.StoreCaptureActivity, params).Get(ctx, &image); err != nil {
		logger.Error("Failed to store capture.", "error", err)
		return models.ScanResult{}, err
	}

	var info models.PlantInfo
	if err := workflow.ExecuteActivity(ctx, a.IdentifyActivity, params).Get(ctx, &info); err != nil {
		logger.Error("Failed to identify plant.", "error", err)
		cleanupCtx, _ := workflow.NewDisconnectedContext(ctx)
		if derr := workflow.ExecuteActivity(cleanupCtx, a.DiscardCaptureActivity, image.Key).Get(cleanupCtx, nil); derr != nil {
			logger.Error("Failed to discard capture.", "key", image.Key, "error", derr)
		}
		return models.ScanResult{}, err
	}

	logger.Info("Scan workflow completed.", "ScanID", params.ScanID, "Plant", info.Name)
	return models.ScanResult{Image: image, Plant: info}, nil
}
