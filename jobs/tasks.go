package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStockAlertScan walks every store's batches and raises low-stock
	// and expiry alerts.
	TaskStockAlertScan = "inventory:stock_alert_scan"
)

// StockAlertScanPayload tunes one scan run.
type StockAlertScanPayload struct {
	// DryRun logs what would be alerted without touching counters.
	DryRun bool `json:"dryRun,omitempty"`
}

// NewStockAlertScanTask constructs an Asynq task.
func NewStockAlertScanTask(payload StockAlertScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockAlertScan, data), nil
}
