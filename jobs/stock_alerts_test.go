package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/pharmanet/pharmanet/internal/inventory"
	jobmetrics "github.com/pharmanet/pharmanet/internal/jobs"
)

type fakeScanner struct {
	summaries []inventory.StoreAlertSummary
	err       error
}

func (f *fakeScanner) ScanAlerts(ctx context.Context) ([]inventory.StoreAlertSummary, error) {
	return f.summaries, f.err
}

func scanTask(t *testing.T, payload StockAlertScanPayload) *asynq.Task {
	t.Helper()
	task, err := NewStockAlertScanTask(payload)
	require.NoError(t, err)
	return task
}

func alertCount(t *testing.T, registry *prometheus.Registry, kind, store string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "pharmanet_stock_alerts_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			if labels["kind"] == kind && labels["store"] == store {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestStockAlertScanCountsAlerts(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	scanner := &fakeScanner{summaries: []inventory.StoreAlertSummary{
		{StoreID: 1, StoreName: "City Pharmacy", LowStock: 2, ExpiringSoon: 1},
		{StoreID: 2, StoreName: "HealthPlus", Expired: 3},
		{StoreID: 3, StoreName: "Quiet Store"},
	}}

	job := NewStockAlertScanJob(scanner, nil, metrics, nil)
	require.NoError(t, job.Handle(context.Background(), scanTask(t, StockAlertScanPayload{})))

	require.InDelta(t, 2, alertCount(t, registry, "low_stock", "1"), 0.001)
	require.InDelta(t, 1, alertCount(t, registry, "expiring_soon", "1"), 0.001)
	require.InDelta(t, 3, alertCount(t, registry, "expired", "2"), 0.001)
	require.Zero(t, alertCount(t, registry, "low_stock", "3"))
}

func TestStockAlertScanDryRunSkipsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	scanner := &fakeScanner{summaries: []inventory.StoreAlertSummary{
		{StoreID: 1, StoreName: "City Pharmacy", LowStock: 5},
	}}

	job := NewStockAlertScanJob(scanner, nil, metrics, nil)
	require.NoError(t, job.Handle(context.Background(), scanTask(t, StockAlertScanPayload{DryRun: true})))

	count, err := testutil.GatherAndCount(registry, "pharmanet_stock_alerts_total")
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestStockAlertScanPropagatesScanError(t *testing.T) {
	scanner := &fakeScanner{err: errors.New("db unreachable")}
	job := NewStockAlertScanJob(scanner, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()), nil)

	err := job.Handle(context.Background(), scanTask(t, StockAlertScanPayload{}))
	require.Error(t, err)
}
