package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// TaskHandler binds a task type to its handler.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts       asynq.RedisClientOpt
	Logger          *slog.Logger
	Concurrency     int
	ShutdownTimeout time.Duration
	Handlers        []TaskHandler
}

// Worker consumes the document queue.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewWorker registers cfg.Handlers on a fresh server. At least one handler is required.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := asynq.NewServeMux()
	registered := 0
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			continue
		}
		mux.HandleFunc(h.Type, h.Handler)
		registered++
	}
	if registered == 0 {
		return nil, errors.New("worker: no task handlers registered")
	}
	mux.Use(logTasks(logger))

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	shutdown := cfg.ShutdownTimeout
	if shutdown <= 0 {
		shutdown = 30 * time.Second
	}
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency:     concurrency,
		Queues:          map[string]int{QueueDefault: 1},
		RetryDelayFunc:  RetryDelay,
		ShutdownTimeout: shutdown,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Warn("task failed",
				slog.String("type", task.Type()),
				slog.Int("retried", retried),
				slog.Int("max_retry", maxRetry),
				slog.Any("error", err))
		}),
	})
	return &Worker{server: srv, mux: mux}, nil
}

// RetryDelay backs off exponentially from 10s, capped at 10 minutes.
func RetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	const base, ceiling = 10 * time.Second, 10 * time.Minute
	if n < 0 {
		n = 0
	}
	if n >= 6 {
		return ceiling
	}
	return min(base<<n, ceiling)
}

func logTasks(logger *slog.Logger) asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			start := time.Now()
			id, _ := asynq.GetTaskID(ctx)
			err := next.ProcessTask(ctx, task)
			logger.Debug("task processed",
				slog.String("type", task.Type()),
				slog.String("id", id),
				slog.Duration("took", time.Since(start)),
				slog.Bool("ok", err == nil))
			return err
		})
	}
}

// Run processes tasks until ctx is cancelled, then drains in-flight work.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	<-ctx.Done()
	w.server.Shutdown()
	return ctx.Err()
}
