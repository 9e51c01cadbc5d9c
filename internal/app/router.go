package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"

	documentshttp "github.com/tradesdesk/tradesdesk/internal/documents/http"
	"github.com/tradesdesk/tradesdesk/internal/observability"
	"github.com/tradesdesk/tradesdesk/internal/platform/httpx"
	"github.com/tradesdesk/tradesdesk/jobs"
	"github.com/tradesdesk/tradesdesk/report"
)

// Checker reports whether a backing service is usable.
type Checker func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Metrics          *observability.Metrics
	Tracer           trace.TracerProvider
	DocumentsHandler *documentshttp.Handler
	ReportHandler    *report.Handler
	JobHandler       *jobs.Handler
	// Ready maps a dependency name to its health check for /readyz.
	Ready map[string]Checker
}

// NewRouter constructs the chi.Router with the service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
		Tracer:  params.Tracer,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(params.Ready))

	if params.DocumentsHandler != nil {
		r.Route("/documents", params.DocumentsHandler.MountRoutes)
	}
	if params.ReportHandler != nil {
		r.Route("/report", params.ReportHandler.MountRoutes)
	}
	r.Route("/jobs", func(r chi.Router) {
		if params.JobHandler != nil {
			params.JobHandler.MountRoutes(r)
		}
		if params.DocumentsHandler != nil {
			params.DocumentsHandler.MountJobRoutes(r)
		}
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	return r
}

func readiness(checks map[string]Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := http.StatusOK
		result := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				result[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			result[name] = "ok"
		}
		httpx.JSON(w, status, result)
	}
}
