package temporal

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.temporal.io/sdk/client"

	"github.com/leaflens/leaflens-host/internal/models"
)

// WorkflowScanner runs each scan as a Temporal workflow and waits for its
// result.
type WorkflowScanner struct {
	client client.Client
}

func NewWorkflowScanner(c client.Client) *WorkflowScanner {
	return &WorkflowScanner{client: c}
}

func (s *WorkflowScanner) Scan(ctx context.Context, userID string, capture models.Capture) (models.ScanResult, error) {
	params := ScanParams{
		ScanID:      uuid.NewString(),
		UserID:      userID,
		Image:       capture.Data,
		ContentType: capture.ContentType,
		Source:      capture.Source,
	}

	run, err := s.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        ScanWorkflowIDPrefix + params.ScanID,
		TaskQueue: TaskQueueName,
	}, ScanWorkflowName, params)
	if err != nil {
		return models.ScanResult{}, errors.Wrap(err, "starting scan workflow")
	}

	var result models.ScanResult
	if err := run.Get(ctx, &result); err != nil {
		return models.ScanResult{}, errors.Wrapf(err, "scan workflow %s", run.GetID())
	}
	return result, nil
}
