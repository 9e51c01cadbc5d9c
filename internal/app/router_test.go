package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/tradesdesk/tradesdesk/internal/observability"
	"github.com/tradesdesk/tradesdesk/jobs"
)

type stubInspector struct{}

func (stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return &asynq.QueueInfo{Queue: queue, Pending: 3}, nil
}

func testRouter(t *testing.T, ready map[string]Checker) http.Handler {
	t.Helper()
	return NewRouter(RouterParams{
		Config:     &Config{AppEnv: "development"},
		Metrics:    observability.NewMetrics(),
		JobHandler: jobs.NewHandler(stubInspector{}, nil),
		Ready:      ready,
	})
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzAndSecurityHeaders(t *testing.T) {
	rec := get(testRouter(t, nil), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestReadyzReportsFailingDependency(t *testing.T) {
	router := testRouter(t, map[string]Checker{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})
	rec := get(router, "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["postgres"])
	require.Equal(t, "connection refused", body["redis"])
}

func TestJobsHealthAndMetrics(t *testing.T) {
	router := testRouter(t, nil)

	rec := get(router, "/jobs/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats jobs.QueueStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Equal(t, 3, stats.Pending)

	rec = get(router, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "tradesdesk_http_requests_total"))
}
