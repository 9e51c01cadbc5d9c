package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
)

// Client submits document tasks.
type Client struct {
	client *asynq.Client
}

// NewClient constructs a queue client for redisOpts.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	if redisOpts.Addr == "" {
		return nil, errors.New("jobs: redis address required")
	}
	return &Client{client: asynq.NewClient(redisOpts)}, nil
}

// EnqueueDocumentGenerate enqueues a generation task. Retries are capped and
// finished tasks are retained for a day so their status can be inspected.
func (c *Client) EnqueueDocumentGenerate(ctx context.Context, payload DocumentGeneratePayload) (*asynq.TaskInfo, error) {
	task, err := NewDocumentGenerateTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(5),
		asynq.Timeout(2*time.Minute),
		asynq.Retention(24*time.Hour),
	)
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
