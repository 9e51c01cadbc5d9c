package documentshttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/tradesdesk/tradesdesk/internal/documents"
	"github.com/tradesdesk/tradesdesk/internal/export"
	"github.com/tradesdesk/tradesdesk/internal/invoicing"
	"github.com/tradesdesk/tradesdesk/internal/platform/httpx"
	"github.com/tradesdesk/tradesdesk/jobs"
)

// OwnerHeader names the caller on publishing endpoints.
const OwnerHeader = "X-Owner-ID"

const maxBodyBytes = 1 << 20

// Enqueuer submits generation tasks.
type Enqueuer interface {
	EnqueueDocumentGenerate(ctx context.Context, payload jobs.DocumentGeneratePayload) (*asynq.TaskInfo, error)
}

// Config wires the handler.
type Config struct {
	Service        *documents.Service
	Enqueuer       Enqueuer
	Logger         *slog.Logger
	DefaultDueDays int
	Now            func() time.Time
}

// Handler exposes document generation over HTTP.
type Handler struct {
	service  *documents.Service
	enqueuer Enqueuer
	logger   *slog.Logger
	validate *validator.Validate
	dueDays  int
	now      func() time.Time
}

// NewHandler constructs a Handler value.
func NewHandler(cfg Config) *Handler {
	h := &Handler{
		service:  cfg.Service,
		enqueuer: cfg.Enqueuer,
		logger:   cfg.Logger,
		validate: NewValidator(),
		dueDays:  cfg.DefaultDueDays,
		now:      cfg.Now,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// MountRoutes registers the /documents routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/preview", h.preview)
	r.Post("/breakdown.xlsx", h.breakdown)
	r.Get("/{id}/file", h.file)
}

// MountJobRoutes registers the per-job routes below /jobs.
func (h *Handler) MountJobRoutes(r chi.Router) {
	r.Route("/{jobID}/documents", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.publish)
		r.Post("/async", h.enqueue)
		r.Get("/latest", h.latest)
	})
}

// PreviewResponse is the body of POST /documents/preview.
type PreviewResponse struct {
	Totals   invoicing.TotalsBreakdown `json:"totals"`
	Document invoicing.Document        `json:"document"`
	Plan     invoicing.LayoutPlan      `json:"plan"`
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	res, err := h.service.Preview(r.Context(), req)
	if err != nil {
		h.fail(w, "preview document", err)
		return
	}
	httpx.JSON(w, http.StatusOK, PreviewResponse{Totals: res.Totals, Document: res.Document, Plan: res.Plan})
}

func (h *Handler) breakdown(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	res, err := h.service.Preview(r.Context(), req)
	if err != nil {
		h.fail(w, "preview breakdown", err)
		return
	}
	book, err := export.WriteBreakdown(res, req)
	if err != nil {
		h.fail(w, "write breakdown", err)
		return
	}
	name := fmt.Sprintf("%s_%d_breakdown.xlsx", req.Type.Title(), req.JobNumber)
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(book)
}

func (h *Handler) publish(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	out, err := h.service.Publish(r.Context(), documents.PublishInput{
		OwnerID: owner,
		JobID:   chi.URLParam(r, "jobID"),
		Request: req,
	})
	if err != nil {
		h.fail(w, "publish document", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, out.Record)
}

// EnqueueResponse is the body of POST /jobs/{jobID}/documents/async.
type EnqueueResponse struct {
	TaskID string `json:"task_id"`
	Queue  string `json:"queue"`
}

func (h *Handler) enqueue(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer == nil {
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	if err := h.service.Check(req); err != nil {
		h.fail(w, "enqueue document", err)
		return
	}
	info, err := h.enqueuer.EnqueueDocumentGenerate(r.Context(), jobs.DocumentGeneratePayload{
		OwnerID: owner,
		JobID:   chi.URLParam(r, "jobID"),
		Request: req,
	})
	if err != nil {
		h.logger.Error("enqueue document", slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	httpx.JSON(w, http.StatusAccepted, EnqueueResponse{TaskID: info.ID, Queue: info.Queue})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.List(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		h.fail(w, "list documents", err)
		return
	}
	if records == nil {
		records = []documents.Record{}
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) latest(w http.ResponseWriter, r *http.Request) {
	docType, err := invoicing.ParseDocumentType(r.URL.Query().Get("type"))
	if err != nil {
		h.fail(w, "latest document", err)
		return
	}
	rec, err := h.service.Latest(r.Context(), chi.URLParam(r, "jobID"), docType)
	if err != nil {
		h.fail(w, "latest document", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) file(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed document id", httpx.ErrNotFound))
		return
	}
	rec, body, err := h.service.Open(r.Context(), id)
	if err != nil {
		h.fail(w, "open document", err)
		return
	}
	w.Header().Set("Content-Type", rec.FileType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", rec.FileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (invoicing.DocumentRequest, bool) {
	var dto GenerateDTO
	if err := httpx.DecodeJSON(w, r, maxBodyBytes, &dto); err != nil {
		httpx.RespondError(w, err)
		return invoicing.DocumentRequest{}, false
	}
	if err := h.validate.Struct(dto); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, describe(err)))
		return invoicing.DocumentRequest{}, false
	}
	req, err := dto.ToRequest(Defaults{Now: h.now(), DueDays: h.dueDays})
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return invoicing.DocumentRequest{}, false
	}
	return req, true
}

func (h *Handler) fail(w http.ResponseWriter, action string, err error) {
	mapped := translate(err)
	if !isClientError(mapped) {
		h.logger.Error(action, slog.Any("error", err))
	}
	httpx.RespondError(w, mapped)
}

// translate maps domain errors onto the httpx sentinels.
func translate(err error) error {
	switch {
	case errors.Is(err, invoicing.ErrSettingsIncomplete):
		return fmt.Errorf("%w: business settings must include a business name", httpx.ErrConfigIncomplete)
	case errors.Is(err, invoicing.ErrInvalidRequest), errors.Is(err, documents.ErrInvalidInput), errors.Is(err, invoicing.ErrPageLimit):
		return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	case errors.Is(err, documents.ErrNotFound):
		return fmt.Errorf("%w: %v", httpx.ErrNotFound, err)
	case errors.Is(err, documents.ErrDuplicate):
		return fmt.Errorf("%w: %v", httpx.ErrDuplicate, err)
	case errors.Is(err, documents.ErrRenderFailed), errors.Is(err, documents.ErrStoreFailed):
		return fmt.Errorf("%w: %v", httpx.ErrUpstream, err)
	default:
		return err
	}
}

func isClientError(err error) bool {
	return errors.Is(err, httpx.ErrValidation) || errors.Is(err, httpx.ErrConfigIncomplete) ||
		errors.Is(err, httpx.ErrNotFound) || errors.Is(err, httpx.ErrDuplicate)
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "GenerateDTO.")
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

func ownerFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner := strings.TrimSpace(r.Header.Get(OwnerHeader))
	if owner == "" {
		httpx.RespondError(w, fmt.Errorf("%w: %s header required", httpx.ErrValidation, OwnerHeader))
		return "", false
	}
	return owner, true
}
