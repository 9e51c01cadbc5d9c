package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for generated documents.
const (
	OutcomeOK       = "ok"
	OutcomeInvalid  = "invalid"
	OutcomeFailed   = "failed"
	OutcomePreview  = "preview"
	OutcomeCacheHit = "cache_hit"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	documents       *prometheus.CounterVec
	pages           prometheus.Histogram
	renderDuration  *prometheus.HistogramVec
}

// NewMetrics initialises the registry with HTTP and document metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tradesdesk_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tradesdesk_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	documents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tradesdesk_documents_generated_total",
		Help: "Generation runs by document type and outcome.",
	}, []string{"type", "outcome"})
	pages := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tradesdesk_document_pages",
		Help:    "Page count of published documents.",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 50},
	})
	render := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tradesdesk_render_duration_seconds",
		Help:    "Time spent turning a layout plan into bytes.",
		Buckets: prometheus.DefBuckets,
	}, []string{"sink"})
	registry.MustRegister(requests, duration, documents, pages, render)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		documents:       documents,
		pages:           pages,
		renderDuration:  render,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// DocumentGenerated counts one generation run.
func (m *Metrics) DocumentGenerated(docType, outcome string) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(docType, outcome).Inc()
}

// ObservePages records the page count of a published document.
func (m *Metrics) ObservePages(n int) {
	if m == nil {
		return
	}
	m.pages.Observe(float64(n))
}

// ObserveRender records how long sink took.
func (m *Metrics) ObserveRender(sink string, d time.Duration) {
	if m == nil {
		return
	}
	m.renderDuration.WithLabelValues(sink).Observe(d.Seconds())
}

// Registerer exposes the registry for custom metrics.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
