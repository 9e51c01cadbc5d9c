package jobs

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/tradesdesk/tradesdesk/internal/platform/httpx"
)

// QueueInspector is the subset of asynq.Inspector the health endpoint reads.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// QueueStats is the JSON body of the health endpoint.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
	Completed int    `json:"completed"`
	Paused    bool   `json:"paused"`
}

// StatsFromInfo converts asynq queue info into QueueStats.
func StatsFromInfo(info *asynq.QueueInfo) QueueStats {
	if info == nil {
		return QueueStats{Queue: QueueDefault}
	}
	return QueueStats{
		Queue:     info.Queue,
		Pending:   info.Pending,
		Active:    info.Active,
		Retry:     info.Retry,
		Archived:  info.Archived,
		Completed: info.Completed,
		Paused:    info.Paused,
	}
}

// Handler serves queue health. A nil inspector reports an empty queue.
type Handler struct {
	inspector QueueInspector
	logger    *slog.Logger
}

func NewHandler(inspector QueueInspector, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{inspector: inspector, logger: logger}
}

// MountRoutes attaches GET /health.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	if h.inspector == nil {
		httpx.JSON(w, http.StatusOK, StatsFromInfo(nil))
		return
	}
	info, err := h.inspector.GetQueueInfo(QueueDefault)
	if err != nil {
		h.logger.Warn("jobs health", slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	httpx.JSON(w, http.StatusOK, StatsFromInfo(info))
}
