package documents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/tradesdesk/tradesdesk/internal/invoicing"
	jobmetrics "github.com/tradesdesk/tradesdesk/internal/jobs"
	"github.com/tradesdesk/tradesdesk/jobs"
)

// Publisher is the part of Service the queue job needs.
type Publisher interface {
	Publish(ctx context.Context, in PublishInput) (Published, error)
}

// Job processes documents:generate tasks coming from the queue.
type Job struct {
	publisher Publisher
	metrics   *jobmetrics.Metrics
	logger    *slog.Logger
}

// NewJob constructs a Job handler.
func NewJob(publisher Publisher, metrics *jobmetrics.Metrics, logger *slog.Logger) *Job {
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{publisher: publisher, metrics: metrics, logger: logger}
}

// Handle fulfils the asynq.HandlerFunc contract. Requests that can never
// succeed are not retried; everything else is returned to the queue.
func (j *Job) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.publisher == nil {
		return fmt.Errorf("documents job not configured")
	}
	tracker := j.metrics.Track(ctx, task.Type())
	payload, err := jobs.DecodeDocumentGenerate(task)
	if err != nil {
		j.logger.Warn("discard malformed document task", slog.Any("error", err))
		return tracker.End(fmt.Errorf("%v: %w", err, asynq.SkipRetry))
	}
	published, err := j.publisher.Publish(ctx, PublishInput{
		OwnerID: payload.OwnerID,
		JobID:   payload.JobID,
		Request: payload.Request,
	})
	if err != nil {
		if permanent(err) {
			j.logger.Warn("discard document task", slog.String("job_id", payload.JobID), slog.Any("error", err))
			return tracker.End(fmt.Errorf("%v: %w", err, asynq.SkipRetry))
		}
		return tracker.End(err)
	}
	if w := task.ResultWriter(); w != nil {
		_, _ = w.Write([]byte(published.Record.ID.String()))
	}
	j.logger.Info("document task done",
		slog.String("job_id", payload.JobID),
		slog.String("record_id", published.Record.ID.String()))
	return tracker.End(nil)
}

func permanent(err error) bool {
	return errors.Is(err, invoicing.ErrInvalidRequest) ||
		errors.Is(err, invoicing.ErrSettingsIncomplete) ||
		errors.Is(err, invoicing.ErrPageLimit) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrDuplicate)
}
