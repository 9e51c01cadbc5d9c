package report

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tradesdesk/tradesdesk/internal/platform/httpx"
)

// Pinger reports whether the PDF converter is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler exposes the converter health check.
type Handler struct {
	client Pinger
	logger *slog.Logger
}

// NewHandler creates a report handler.
func NewHandler(client Pinger, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{client: client, logger: logger}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ping", h.ping)
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if h.client == nil {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	if err := h.client.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
