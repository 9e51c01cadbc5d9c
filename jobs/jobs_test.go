package jobs

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/tradesdesk/tradesdesk/internal/invoicing"
)

func TestDocumentGenerateTaskRoundTrip(t *testing.T) {
	payload := DocumentGeneratePayload{
		OwnerID: "owner-1",
		JobID:   "job-7",
		Request: invoicing.DocumentRequest{Type: invoicing.DocumentInvoice, DocumentNumber: "INV-7-1", JobNumber: 7},
	}
	task, err := NewDocumentGenerateTask(payload)
	require.NoError(t, err)
	require.Equal(t, TaskDocumentGenerate, task.Type())

	got, err := DecodeDocumentGenerate(task)
	require.NoError(t, err)
	require.Equal(t, "INV-7-1", got.Request.DocumentNumber)
	require.Equal(t, invoicing.DocumentInvoice, got.Request.Type)

	_, err = NewDocumentGenerateTask(DocumentGeneratePayload{JobID: "job-7"})
	require.Error(t, err)

	_, err = DecodeDocumentGenerate(asynq.NewTask(TaskDocumentGenerate, []byte("{")))
	require.Error(t, err)
}

func TestNewWorkerRequiresHandlers(t *testing.T) {
	_, err := NewWorker(WorkerConfig{})
	require.Error(t, err)
}

func TestNewWorkerIgnoresIncompleteHandlers(t *testing.T) {
	_, err := NewWorker(WorkerConfig{Handlers: []TaskHandler{{Type: TaskDocumentGenerate}}})
	require.Error(t, err)
}

func TestRetryDelayBacksOffToCeiling(t *testing.T) {
	require.Equal(t, 10*time.Second, RetryDelay(0, nil, nil))
	require.Equal(t, 20*time.Second, RetryDelay(1, nil, nil))
	require.Equal(t, 160*time.Second, RetryDelay(4, nil, nil))
	require.Equal(t, 320*time.Second, RetryDelay(5, nil, nil))
	require.Equal(t, 10*time.Minute, RetryDelay(6, nil, nil))
	require.Equal(t, 10*time.Minute, RetryDelay(64, nil, nil))
	require.Equal(t, 10*time.Second, RetryDelay(-1, nil, nil))
}

func TestNewClientRequiresAddress(t *testing.T) {
	_, err := NewClient(asynq.RedisClientOpt{})
	require.Error(t, err)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return s.info, s.err }

func serveHealth(t *testing.T, h *Handler) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	return rr
}

func TestHealthReportsQueueStats(t *testing.T) {
	rr := serveHealth(t, NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 3, Retry: 1}}, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var stats QueueStats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	require.Equal(t, QueueStats{Queue: "default", Pending: 3, Retry: 1}, stats)

	rr = serveHealth(t, NewHandler(nil, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = serveHealth(t, NewHandler(stubInspector{err: errors.New("redis down")}, nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
