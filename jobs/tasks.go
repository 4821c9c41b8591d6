package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportWarmup pre-computes the report caches after invalidation.
	TaskReportWarmup = "reports:warmup"
	// TaskLowStockScan flags products whose stock fell below the threshold.
	TaskLowStockScan = "stock:lowscan"
	// TaskIdempotencyCleanup evicts expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// ReportWarmupPayload bounds the history window the warmup computes.
type ReportWarmupPayload struct {
	Days int `json:"days"`
}

// NewReportWarmupTask constructs a report warmup task.
func NewReportWarmupTask(days int) (*asynq.Task, error) {
	body, err := json.Marshal(ReportWarmupPayload{Days: days})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportWarmup, body, asynq.Queue(QueueDefault)), nil
}

// LowStockScanPayload carries the threshold below which products are flagged.
type LowStockScanPayload struct {
	Threshold int64 `json:"threshold"`
}

// NewLowStockScanTask constructs a low-stock scan task.
func NewLowStockScanTask(threshold int64) (*asynq.Task, error) {
	body, err := json.Marshal(LowStockScanPayload{Threshold: threshold})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, body, asynq.Queue(QueueDefault)), nil
}

// IdempotencyCleanupPayload carries the retention window.
type IdempotencyCleanupPayload struct {
	OlderThan time.Duration `json:"older_than"`
}

// NewIdempotencyCleanupTask constructs an idempotency cleanup task.
func NewIdempotencyCleanupTask(olderThan time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(IdempotencyCleanupPayload{OlderThan: olderThan})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}
