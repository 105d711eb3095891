package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/pharmanet/pharmanet/internal/app"
	"github.com/pharmanet/pharmanet/internal/catalog"
	"github.com/pharmanet/pharmanet/internal/inventory"
	jobmetrics "github.com/pharmanet/pharmanet/internal/jobs"
	"github.com/pharmanet/pharmanet/internal/observability"
	"github.com/pharmanet/pharmanet/internal/platform/db"
	"github.com/pharmanet/pharmanet/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()
	scanMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	inventoryService := inventory.NewService(inventory.NewRepository(pool), catalog.NewRepository(pool))
	scanJob := jobs.NewStockAlertScanJob(inventoryService, logger, scanMetrics, metrics)

	scanTask, err := jobs.NewStockAlertScanTask(jobs.StockAlertScanPayload{})
	if err != nil {
		logger.Error("build scan task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskStockAlertScan, Handler: scanJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 * * * *", Task: scanTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
