package documents

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradesdesk/tradesdesk/internal/invoicing"
)

const uniqueViolation = "23505"

const recordColumns = `id, owner_id, job_id, type, document_number, object_key, file_name, file_type, grand_total, page_count, created_at`

// Repository persists records in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

var _ RecordStore = (*Repository)(nil)

// NewRepository constructs a repository wrapper.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores rec. A second document with the same number for the job fails with ErrDuplicate.
func (r *Repository) Insert(ctx context.Context, rec Record) (Record, error) {
	if r == nil || r.pool == nil {
		return Record{}, fmt.Errorf("documents: repository not initialised")
	}
	const insert = `INSERT INTO uploaded_documents (` + recordColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
RETURNING ` + recordColumns
	row := r.pool.QueryRow(ctx, insert,
		rec.ID, rec.OwnerID, rec.JobID, string(rec.Type), rec.DocumentNumber,
		rec.ObjectKey, rec.FileName, rec.FileType, rec.GrandTotal, rec.PageCount, rec.CreatedAt)
	out, err := scanRecord(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Record{}, fmt.Errorf("%w: %s", ErrDuplicate, rec.DocumentNumber)
		}
		return Record{}, err
	}
	return out, nil
}

// ListByJob returns the job's documents, newest first.
func (r *Repository) ListByJob(ctx context.Context, jobID string) ([]Record, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("documents: repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT `+recordColumns+`
FROM uploaded_documents WHERE job_id = $1
ORDER BY created_at DESC, document_number DESC`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Latest returns the most recent document of docType for the job.
func (r *Repository) Latest(ctx context.Context, jobID string, docType invoicing.DocumentType) (Record, error) {
	if r == nil || r.pool == nil {
		return Record{}, fmt.Errorf("documents: repository not initialised")
	}
	row := r.pool.QueryRow(ctx, `SELECT `+recordColumns+`
FROM uploaded_documents WHERE job_id = $1 AND type = $2
ORDER BY created_at DESC LIMIT 1`, jobID, string(docType))
	return oneRecord(row)
}

// Get loads a record by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	if r == nil || r.pool == nil {
		return Record{}, fmt.Errorf("documents: repository not initialised")
	}
	row := r.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM uploaded_documents WHERE id = $1`, id)
	return oneRecord(row)
}

func oneRecord(row pgx.Row) (Record, error) {
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec     Record
		docType string
	)
	if err := row.Scan(&rec.ID, &rec.OwnerID, &rec.JobID, &docType, &rec.DocumentNumber,
		&rec.ObjectKey, &rec.FileName, &rec.FileType, &rec.GrandTotal, &rec.PageCount, &rec.CreatedAt); err != nil {
		return Record{}, err
	}
	rec.Type = invoicing.DocumentType(docType)
	return rec, nil
}
