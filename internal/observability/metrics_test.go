package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()
	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/documents/preview")
	req := httptest.NewRequest(http.MethodPost, "/documents/preview", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	require.Contains(t, body, `tradesdesk_http_requests_total{code="418",route="/documents/preview"} 1`)
	require.Contains(t, body, `tradesdesk_http_request_duration_seconds_bucket{route="/documents/preview"`)
}

func TestDocumentMetrics(t *testing.T) {
	metrics := NewMetrics()
	metrics.DocumentGenerated("invoice", OutcomeOK)
	metrics.DocumentGenerated("invoice", OutcomeOK)
	metrics.ObservePages(3)
	metrics.ObserveRender("gofpdf", 20*time.Millisecond)

	body := scrape(t, metrics)
	require.Contains(t, body, `tradesdesk_documents_generated_total{outcome="ok",type="invoice"} 2`)
	require.Contains(t, body, "tradesdesk_document_pages_count 1")
	require.Contains(t, body, `tradesdesk_render_duration_seconds_count{sink="gofpdf"} 1`)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.DocumentGenerated("quote", OutcomeFailed)
	m.ObservePages(1)
	m.ObserveRender("gofpdf", time.Second)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestDisabledTracingInstallsNoop(t *testing.T) {
	provider, shutdown, err := NewTracerProvider(context.Background(), TracingConfig{}, nil)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, span := otel.Tracer("test").Start(context.Background(), "noop")
	defer span.End()
	require.False(t, span.SpanContext().IsValid())
	require.NotNil(t, provider)
}

func TestClampRatio(t *testing.T) {
	require.Equal(t, 0.1, clampRatio(0))
	require.Equal(t, 1.0, clampRatio(4))
	require.Equal(t, 0.5, clampRatio(0.5))
}
