// Package documents publishes generated quotes and invoices: it renders the
// engine's layout plan, stores the bytes and records the upload.
package documents

import (
	"context"
	"embed"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradesdesk/tradesdesk/internal/invoicing"
)

// Migrations holds the schema of the uploaded documents table.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations.
const MigrationsDir = "migrations"

var (
	// ErrNotFound means no record or stored object matched.
	ErrNotFound = errors.New("documents: not found")
	// ErrDuplicate means the job already has a document with this number.
	ErrDuplicate = errors.New("documents: document number already used for job")
	// ErrRenderFailed wraps sink failures.
	ErrRenderFailed = errors.New("documents: render failed")
	// ErrStoreFailed wraps object store failures.
	ErrStoreFailed = errors.New("documents: store failed")
	// ErrInvalidInput marks missing owner or job identifiers.
	ErrInvalidInput = errors.New("documents: invalid input")
)

// Record is one published document.
type Record struct {
	ID             uuid.UUID              `json:"id"`
	OwnerID        string                 `json:"owner_id"`
	JobID          string                 `json:"job_id"`
	Type           invoicing.DocumentType `json:"type"`
	DocumentNumber string                 `json:"document_number"`
	ObjectKey      string                 `json:"object_key"`
	FileName       string                 `json:"file_name"`
	FileType       string                 `json:"file_type"`
	GrandTotal     decimal.Decimal        `json:"grand_total"`
	PageCount      int                    `json:"page_count"`
	CreatedAt      time.Time              `json:"created_at"`
}

// PublishInput scopes a generation request to its owner and job.
type PublishInput struct {
	OwnerID string
	JobID   string
	Request invoicing.DocumentRequest
}

// Published is the outcome of a successful Publish.
type Published struct {
	Record Record           `json:"record"`
	Result invoicing.Result `json:"-"`
}

// RecordStore persists document records.
type RecordStore interface {
	Insert(ctx context.Context, rec Record) (Record, error)
	ListByJob(ctx context.Context, jobID string) ([]Record, error)
	Latest(ctx context.Context, jobID string, docType invoicing.DocumentType) (Record, error)
	Get(ctx context.Context, id uuid.UUID) (Record, error)
}

// Renderer turns a layout plan into file bytes.
type Renderer interface {
	Name() string
	ContentType() string
	Extension() string
	Render(ctx context.Context, plan invoicing.LayoutPlan) ([]byte, error)
}
