package documents

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tradesdesk/tradesdesk/internal/invoicing"
	"github.com/tradesdesk/tradesdesk/internal/observability"
	"github.com/tradesdesk/tradesdesk/internal/storage"
)

// PreviewNumberID stands in for the id of a document that has not been published yet.
const PreviewNumberID = "DRAFT"

// ServiceConfig wires the collaborators of Service.
type ServiceConfig struct {
	Generator *invoicing.Generator
	Renderer  Renderer
	Store     storage.ObjectStore
	Records   RecordStore
	Cache     *PlanCache
	Node      *snowflake.Node
	Metrics   *observability.Metrics
	Logger    *slog.Logger
}

// Service runs the generation engine and publishes its output.
type Service struct {
	gen      *invoicing.Generator
	renderer Renderer
	store    storage.ObjectStore
	records  RecordStore
	cache    *PlanCache
	node     *snowflake.Node
	metrics  *observability.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewService constructs a Service. Generator, Renderer, Store and Records are required.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Generator == nil || cfg.Renderer == nil || cfg.Store == nil || cfg.Records == nil {
		return nil, errors.New("documents: generator, renderer, store and records required")
	}
	node := cfg.Node
	if node == nil {
		var err error
		if node, err = snowflake.NewNode(1); err != nil {
			return nil, err
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		gen:      cfg.Generator,
		renderer: cfg.Renderer,
		store:    cfg.Store,
		records:  cfg.Records,
		cache:    cfg.Cache,
		node:     node,
		metrics:  cfg.Metrics,
		logger:   logger,
		tracer:   otel.Tracer("github.com/tradesdesk/tradesdesk/internal/documents"),
		now:      time.Now,
	}, nil
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Renderer exposes the configured sink.
func (s *Service) Renderer() Renderer { return s.renderer }

// Preview runs the engine without rendering or storing anything. A request
// without a document number is numbered with PreviewNumberID.
func (s *Service) Preview(ctx context.Context, req invoicing.DocumentRequest) (invoicing.Result, error) {
	ctx, span := s.tracer.Start(ctx, "documents.preview", trace.WithAttributes(
		attribute.String("document.type", string(req.Type)),
		attribute.Int("document.work_items", len(req.WorkItems)),
	))
	defer span.End()

	if strings.TrimSpace(req.DocumentNumber) == "" {
		req.DocumentNumber = invoicing.DocumentNumber(req.Type, req.JobNumber, PreviewNumberID)
	}
	if err := req.Validate(); err != nil {
		s.metrics.DocumentGenerated(string(req.Type), observability.OutcomeInvalid)
		return invoicing.Result{}, spanError(span, err)
	}
	key, err := s.previewKey(ctx, req)
	if err != nil {
		return invoicing.Result{}, spanError(span, err)
	}

	var result invoicing.Result
	hit, err := s.cache.FetchJSON(ctx, key, &result, func(context.Context) (any, error) {
		return s.gen.Generate(req)
	})
	if err != nil {
		s.metrics.DocumentGenerated(string(req.Type), outcomeFor(err))
		return invoicing.Result{}, spanError(span, err)
	}
	outcome := observability.OutcomePreview
	if hit {
		outcome = observability.OutcomeCacheHit
	}
	s.metrics.DocumentGenerated(string(req.Type), outcome)
	span.SetAttributes(attribute.Bool("cache.hit", hit), attribute.Int("document.pages", result.Plan.PageCount()))
	return result, nil
}

// Check validates req the way Publish will without generating anything.
func (s *Service) Check(req invoicing.DocumentRequest) error {
	if strings.TrimSpace(req.DocumentNumber) == "" {
		req.DocumentNumber = invoicing.DocumentNumber(req.Type, req.JobNumber, PreviewNumberID)
	}
	return req.Validate()
}

// Publish generates, renders and stores the document, then records it. Nothing
// is recorded unless every step succeeds; a stored object whose record cannot
// be written is deleted again.
func (s *Service) Publish(ctx context.Context, in PublishInput) (Published, error) {
	req := in.Request
	ctx, span := s.tracer.Start(ctx, "documents.publish", trace.WithAttributes(
		attribute.String("document.type", string(req.Type)),
		attribute.String("job.id", in.JobID),
	))
	defer span.End()

	if strings.TrimSpace(in.OwnerID) == "" || strings.TrimSpace(in.JobID) == "" {
		return Published{}, spanError(span, fmt.Errorf("%w: owner and job required", ErrInvalidInput))
	}
	if strings.TrimSpace(req.DocumentNumber) == "" {
		req.DocumentNumber = invoicing.DocumentNumber(req.Type, req.JobNumber, s.node.Generate().String())
	}
	span.SetAttributes(attribute.String("document.number", req.DocumentNumber))
	logger := s.logger.With(
		slog.String("job_id", in.JobID),
		slog.String("document_number", req.DocumentNumber),
		slog.String("type", string(req.Type)),
	)

	result, err := s.gen.Generate(req)
	if err != nil {
		s.metrics.DocumentGenerated(string(req.Type), outcomeFor(err))
		logger.Warn("document generation rejected", slog.Any("error", err))
		return Published{}, spanError(span, err)
	}

	start := time.Now()
	body, err := s.renderer.Render(ctx, result.Plan)
	s.metrics.ObserveRender(s.renderer.Name(), time.Since(start))
	if err != nil {
		s.metrics.DocumentGenerated(string(req.Type), observability.OutcomeFailed)
		logger.Error("render document", slog.String("sink", s.renderer.Name()), slog.Any("error", err))
		return Published{}, spanError(span, fmt.Errorf("%w: %w", ErrRenderFailed, err))
	}

	at := s.now().UTC()
	fileName := invoicing.FileName(req.Type, req.JobNumber, at, s.renderer.Extension())
	obj, err := s.store.Put(ctx, storage.ObjectKey(in.OwnerID, in.JobID, fileName), s.renderer.ContentType(), body)
	if err != nil {
		s.metrics.DocumentGenerated(string(req.Type), observability.OutcomeFailed)
		logger.Error("store document", slog.Any("error", err))
		return Published{}, spanError(span, fmt.Errorf("%w: %w", ErrStoreFailed, err))
	}

	rec, err := s.records.Insert(ctx, Record{
		ID:             uuid.New(),
		OwnerID:        in.OwnerID,
		JobID:          in.JobID,
		Type:           req.Type,
		DocumentNumber: req.DocumentNumber,
		ObjectKey:      obj.Key,
		FileName:       fileName,
		FileType:       s.renderer.ContentType(),
		GrandTotal:     result.Totals.GrandTotal,
		PageCount:      result.Plan.PageCount(),
		CreatedAt:      at,
	})
	if err != nil {
		if delErr := s.store.Delete(ctx, obj.Key); delErr != nil {
			logger.Error("remove orphaned object", slog.String("key", obj.Key), slog.Any("error", delErr))
		}
		s.metrics.DocumentGenerated(string(req.Type), outcomeFor(err))
		logger.Error("record document", slog.Any("error", err))
		return Published{}, spanError(span, err)
	}

	s.metrics.DocumentGenerated(string(req.Type), observability.OutcomeOK)
	s.metrics.ObservePages(rec.PageCount)
	span.SetAttributes(attribute.Int("document.pages", rec.PageCount), attribute.Int("document.bytes", len(body)))
	logger.Info("document published",
		slog.String("record_id", rec.ID.String()),
		slog.String("object_key", rec.ObjectKey),
		slog.Int("pages", rec.PageCount),
		slog.String("grand_total", rec.GrandTotal.StringFixed(2)),
	)
	return Published{Record: rec, Result: result}, nil
}

// List returns every document of a job, newest first.
func (s *Service) List(ctx context.Context, jobID string) ([]Record, error) {
	return s.records.ListByJob(ctx, jobID)
}

// Latest returns the newest document of docType for the job.
func (s *Service) Latest(ctx context.Context, jobID string, docType invoicing.DocumentType) (Record, error) {
	if !docType.Valid() {
		return Record{}, fmt.Errorf("%w: unknown document type %q", ErrInvalidInput, docType)
	}
	return s.records.Latest(ctx, jobID, docType)
}

// Open returns a record together with its stored bytes.
func (s *Service) Open(ctx context.Context, id uuid.UUID) (Record, []byte, error) {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return Record{}, nil, err
	}
	body, err := s.store.Get(ctx, rec.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return Record{}, nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return Record{}, nil, err
	}
	return rec, body, nil
}

// InvalidatePreviews drops every cached preview.
func (s *Service) InvalidatePreviews(ctx context.Context) (int64, error) {
	return s.cache.Bump(ctx)
}

func (s *Service) previewKey(ctx context.Context, req invoicing.DocumentRequest) (string, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return s.cache.BuildKey(ctx, s.gen.Fingerprint(), hex.EncodeToString(sum[:]))
}

func outcomeFor(err error) string {
	if errors.Is(err, invoicing.ErrInvalidRequest) || errors.Is(err, invoicing.ErrSettingsIncomplete) || errors.Is(err, ErrDuplicate) {
		return observability.OutcomeInvalid
	}
	return observability.OutcomeFailed
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
