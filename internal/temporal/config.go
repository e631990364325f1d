package temporal

import "time"

// TaskQueueName is the Temporal task queue that plant scans run on.
const TaskQueueName = "LEAFLENS_SCAN"

// ScanWorkflowIDPrefix prefixes every scan workflow ID.
const ScanWorkflowIDPrefix = "leaflens-scan-"

// ScanWorkflowName is the registered name of the scan workflow.
const ScanWorkflowName = "ScanWorkflow"

// DefaultActivityTimeout bounds a single scan activity.
const DefaultActivityTimeout = time.Minute

// ScanParams is the input of the scan workflow.
type ScanParams struct {
	ScanID      string
	UserID      string
	Image       []byte
	ContentType string
	Source      string
}
