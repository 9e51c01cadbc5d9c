package documents

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/tradesdesk/tradesdesk/internal/invoicing"
	jobmetrics "github.com/tradesdesk/tradesdesk/internal/jobs"
	"github.com/tradesdesk/tradesdesk/jobs"
)

type stubPublisher struct {
	got PublishInput
	err error
}

func (s *stubPublisher) Publish(_ context.Context, in PublishInput) (Published, error) {
	s.got = in
	if s.err != nil {
		return Published{}, s.err
	}
	return Published{Record: Record{ID: uuid.New(), JobID: in.JobID}}, nil
}

func generateTask(t *testing.T) *asynq.Task {
	t.Helper()
	task, err := jobs.NewDocumentGenerateTask(jobs.DocumentGeneratePayload{OwnerID: "o", JobID: "j", Request: sampleRequest()})
	require.NoError(t, err)
	return task
}

func TestJobPublishesPayload(t *testing.T) {
	pub := &stubPublisher{}
	reg := prometheus.NewRegistry()
	job := NewJob(pub, jobmetrics.NewMetrics(reg), nil)

	require.NoError(t, job.Handle(context.Background(), generateTask(t)))
	require.Equal(t, "o", pub.got.OwnerID)
	require.Equal(t, "j", pub.got.JobID)
	require.Equal(t, invoicing.DocumentQuote, pub.got.Request.Type)
	require.Len(t, pub.got.Request.WorkItems, 1)
}

func TestJobSkipsRetryForPermanentFailures(t *testing.T) {
	cases := []error{
		invoicing.ErrSettingsIncomplete,
		invoicing.ErrPageLimit,
		ErrDuplicate,
		ErrInvalidInput,
	}
	for _, cause := range cases {
		t.Run(cause.Error(), func(t *testing.T) {
			job := NewJob(&stubPublisher{err: cause}, nil, nil)
			err := job.Handle(context.Background(), generateTask(t))
			require.ErrorIs(t, err, asynq.SkipRetry)
		})
	}
}

func TestJobRetriesTransientFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	job := NewJob(&stubPublisher{err: errors.Join(ErrStoreFailed, errors.New("bucket unreachable"))}, metrics, nil)

	err := job.Handle(context.Background(), generateTask(t))
	require.ErrorIs(t, err, ErrStoreFailed)
	require.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestJobDiscardsMalformedPayload(t *testing.T) {
	pub := &stubPublisher{}
	job := NewJob(pub, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(jobs.TaskDocumentGenerate, []byte("{not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), asynq.NewTask(jobs.TaskDocumentGenerate, []byte(`{"job_id":"j"}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Empty(t, pub.got.JobID)
}

func TestJobCountsSkippedRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	job := NewJob(&stubPublisher{err: invoicing.ErrSettingsIncomplete}, metrics, nil)

	_ = job.Handle(context.Background(), generateTask(t))
	runs, err := testutil.GatherAndCount(reg, "tradesdesk_jobs_total")
	require.NoError(t, err)
	require.Equal(t, 1, runs)
	failures, err := testutil.GatherAndCount(reg, "tradesdesk_jobs_failures_total")
	require.NoError(t, err)
	require.Zero(t, failures)
}
