package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tradesdesk/tradesdesk/internal/app"
	"github.com/tradesdesk/tradesdesk/internal/documents"
	jobmetrics "github.com/tradesdesk/tradesdesk/internal/jobs"
	"github.com/tradesdesk/tradesdesk/internal/observability"
	"github.com/tradesdesk/tradesdesk/internal/platform/cache"
	"github.com/tradesdesk/tradesdesk/internal/platform/db"
	"github.com/tradesdesk/tradesdesk/jobs"
)

var version = "dev"

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

	logger := app.NewLogger(cfg).With(slog.String("component", "worker"))

	_, shutdownTracing, err := observability.NewTracerProvider(ctx, cfg.Tracing("tradesdesk-worker", version), logger)
	if err != nil {
		logger.Error("init tracing", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown", slog.Any("error", err))
		}
	}()

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	service, err := cfg.NewDocumentService(pool, redisClient, metrics, logger)
	if err != nil {
		logger.Error("init document service", slog.Any("error", err))
		os.Exit(1)
	}
	documentJob := documents.NewJob(service, jobmetrics.NewMetrics(metrics.Registerer()), logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.QueueConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskDocumentGenerate, Handler: documentJob.Handle},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker started", slog.Int("concurrency", cfg.QueueConcurrency), slog.String("sink", cfg.RenderSink))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
