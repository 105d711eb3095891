package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pharmanet/pharmanet/internal/app"
	"github.com/pharmanet/pharmanet/internal/auth"
	"github.com/pharmanet/pharmanet/internal/billing"
	"github.com/pharmanet/pharmanet/internal/catalog"
	"github.com/pharmanet/pharmanet/internal/inventory"
	"github.com/pharmanet/pharmanet/internal/observability"
	"github.com/pharmanet/pharmanet/internal/platform/cache"
	"github.com/pharmanet/pharmanet/internal/platform/db"
	"github.com/pharmanet/pharmanet/internal/search"
	"github.com/pharmanet/pharmanet/internal/stores"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool); err != nil {
		logger.Error("run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// Caching is an optimization; the API serves without it.
		logger.Warn("redis unavailable, caching disabled", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()

	storesRepo := stores.NewRepository(pool)
	authMiddleware := auth.NewMiddleware(logger, storesRepo)

	catalogLookup := catalog.NewCachedLookup(catalog.NewRepository(pool), redisClient, cfg.CatalogCacheTTL)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, catalogLookup)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	billingRepo := billing.NewRepository(pool)
	billingService := billing.NewService(billingRepo, logger)
	billingHandler := billing.NewHandler(logger, billingService)

	searchService := search.NewService(search.NewRepository(pool), redisClient, cfg.SearchCacheTTL, logger)
	searchHandler := search.NewHandler(logger, searchService)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Auth:             authMiddleware,
		InventoryHandler: inventoryHandler,
		BillingHandler:   billingHandler,
		SearchHandler:    searchHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
