package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hibiken/asynq"

	documentshttp "github.com/tradesdesk/tradesdesk/internal/documents/http"
	"github.com/tradesdesk/tradesdesk/jobs"
)

// Inspector is the part of asynq.Inspector the CLI reads from.
type Inspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	Close() error
}

// JobsCLI wraps manual management helpers for queued document tasks.
type JobsCLI struct {
	client    documentshttp.Enqueuer
	inspector Inspector
	closers   []io.Closer
}

// NewJobsCLI initialises the helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) (*JobsCLI, error) {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	client, err := jobs.NewClient(opts)
	if err != nil {
		return nil, err
	}
	inspector := asynq.NewInspector(opts)
	return &JobsCLI{client: client, inspector: inspector, closers: []io.Closer{client, inspector}}, nil
}

// NewJobsCLIWith wires explicit collaborators.
func NewJobsCLIWith(client documentshttp.Enqueuer, inspector Inspector) *JobsCLI {
	return &JobsCLI{client: client, inspector: inspector}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var errs []error
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// EnqueueFile queues the request stored in path for background publishing.
func (c *JobsCLI) EnqueueFile(ctx context.Context, path, owner, job string, dueDays int) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	req, err := LoadRequest(f, documentshttp.Defaults{Now: time.Now(), DueDays: dueDays})
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueDocumentGenerate(ctx, jobs.DocumentGeneratePayload{OwnerID: owner, JobID: job, Request: req})
}

// InspectQueue reports the state of the default queue.
func (c *JobsCLI) InspectQueue(_ context.Context) (jobs.QueueStats, error) {
	if c == nil || c.inspector == nil {
		return jobs.QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return jobs.QueueStats{}, fmt.Errorf("jobs cli: queue info: %w", err)
	}
	return jobs.StatsFromInfo(info), nil
}
