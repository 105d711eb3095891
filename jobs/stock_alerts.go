package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/pharmanet/pharmanet/internal/inventory"
	jobmetrics "github.com/pharmanet/pharmanet/internal/jobs"
	"github.com/pharmanet/pharmanet/internal/observability"
)

// AlertScanner aggregates per-store alert counts.
type AlertScanner interface {
	ScanAlerts(ctx context.Context) ([]inventory.StoreAlertSummary, error)
}

// StockAlertScanJob walks every store's batches and logs batches that fell
// under their minimum stock threshold or approach expiry.
type StockAlertScanJob struct {
	Scanner AlertScanner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Gauges  *observability.Metrics
	clock   func() time.Time
}

// NewStockAlertScanJob initialises the scan handler.
func NewStockAlertScanJob(scanner AlertScanner, logger *slog.Logger, metrics *jobmetrics.Metrics, gauges *observability.Metrics) *StockAlertScanJob {
	return &StockAlertScanJob{
		Scanner: scanner,
		Logger:  logger,
		Metrics: metrics,
		Gauges:  gauges,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one scan.
func (j *StockAlertScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Scanner == nil {
		return errors.New("stock alert scan: handler not configured")
	}
	var payload StockAlertScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	start := j.now()
	tracker := j.Metrics.Track(TaskStockAlertScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	logger.Info("starting stock alert scan")

	summaries, err := j.Scanner.ScanAlerts(ctx)
	if err != nil {
		resultErr = err
		logger.Error("scan failed", slog.Any("error", err))
		return resultErr
	}

	var lowStock, expiringSoon, expired int
	for _, summary := range summaries {
		if summary.LowStock == 0 && summary.ExpiringSoon == 0 && summary.Expired == 0 {
			continue
		}
		logger.Warn("stock alerts for store",
			slog.Int64("store_id", summary.StoreID),
			slog.String("store_name", summary.StoreName),
			slog.Int("low_stock", summary.LowStock),
			slog.Int("expiring_soon", summary.ExpiringSoon),
			slog.Int("expired", summary.Expired),
		)
		lowStock += summary.LowStock
		expiringSoon += summary.ExpiringSoon
		expired += summary.Expired
		if !payload.DryRun {
			j.Metrics.AddAlerts("low_stock", summary.StoreID, summary.LowStock)
			j.Metrics.AddAlerts("expiring_soon", summary.StoreID, summary.ExpiringSoon)
			j.Metrics.AddAlerts("expired", summary.StoreID, summary.Expired)
		}
	}
	if j.Gauges != nil && !payload.DryRun {
		j.Gauges.SetStockAlerts(lowStock, expiringSoon, expired)
	}

	logger.Info("completed stock alert scan",
		slog.Int("stores", len(summaries)),
		slog.Int("low_stock", lowStock),
		slog.Int("expiring_soon", expiringSoon),
		slog.Int("expired", expired),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *StockAlertScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskStockAlertScan))
	}
	return slog.Default().With(slog.String("job", TaskStockAlertScan))
}

func (j *StockAlertScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
