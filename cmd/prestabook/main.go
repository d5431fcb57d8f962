package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prestabook/prestabook/internal/config"
	"github.com/prestabook/prestabook/internal/handler"
	"github.com/prestabook/prestabook/internal/infra/memory"
	"github.com/prestabook/prestabook/internal/infra/observability"
	"github.com/prestabook/prestabook/internal/infra/postgres"
	"github.com/prestabook/prestabook/internal/infra/resilience"
	"github.com/prestabook/prestabook/internal/port"
	"github.com/prestabook/prestabook/internal/scheduler"
	"github.com/prestabook/prestabook/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("use_postgres", cfg.DatabaseURL != ""),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.String("daily_overdue_rate", cfg.DailyOverdueRate.String()),
		zap.Int("accrual_hour_utc", cfg.AccrualHourUTC),
	)

	// --- Tracing ---
	if cfg.EnableTraces {
		shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "prestabook")
		if err != nil {
			logger.Fatal("failed to init tracer", zap.Error(err))
		}
		defer shutdown(context.Background())
	}

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Store ---
	var store port.Store
	if cfg.DatabaseURL != "" {
		logger.Info("using Postgres as data backend")
		resilienceCfg := resilience.Config{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
		}
		cb := resilience.NewCircuitBreaker("postgres")

		pg, err := postgres.New(context.Background(), cfg.DatabaseURL, cb, resilienceCfg, logger)
		if err != nil {
			logger.Fatal("failed to connect to Postgres", zap.Error(err))
		}
		defer pg.Close()
		store = pg
	} else {
		logger.Info("using in-memory store, data will not survive restarts")
		store = memory.New()
	}

	// --- Services ---
	svc := service.NewLendingService(store, metrics, logger)
	engine := service.NewAccrualEngine(store, cfg.DailyOverdueRate, metrics, logger)

	// --- Daily accrual scheduler ---
	schedCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	go scheduler.NewDaily(engine, cfg.AccrualHourUTC, logger).Start(schedCtx)

	// --- Router ---
	router := handler.NewRouter(svc, engine, store, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	stopScheduler()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
