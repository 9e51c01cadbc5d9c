package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// migrationLock is the advisory lock key serialising concurrent Migrate calls.
const migrationLock int64 = 0x7472616465

// applyMigration runs body and records name in one transaction. The advisory
// lock is released on commit or rollback.
func applyMigration(ctx context.Context, pool *pgxpool.Pool, name, body string) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("platform/db: begin %s: %w", name, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLock); err != nil {
		return fmt.Errorf("platform/db: lock %s: %w", name, err)
	}
	var done bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`, name).Scan(&done); err != nil {
		return fmt.Errorf("platform/db: check %s: %w", name, err)
	}
	if done {
		return nil
	}
	if _, err := tx.Exec(ctx, body); err != nil {
		return fmt.Errorf("platform/db: apply %s: %w", name, err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
		return fmt.Errorf("platform/db: record %s: %w", name, err)
	}
	return tx.Commit(ctx)
}
