package store

import (
	"context"
	"database/sql"
	"fmt"

	"scholarhub/internal/verification/models"
	txcontext "scholarhub/pkg/platform/tx"
)

// Postgres persists verification records. The table has no UPDATE path; the
// ledger is append-only by construction.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Append(ctx context.Context, record *models.Record) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO verification_records
			(id, account_id, handle, external_id, eligible, reason, verifier, verified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, record.ID, record.AccountID, record.Handle, int64(record.ExternalID),
		record.Eligible, record.Reason, record.Verifier, record.VerifiedAt)
	if err != nil {
		return fmt.Errorf("insert verification record: %w", err)
	}
	return nil
}

func (s *Postgres) ListByHandle(ctx context.Context, handle string) ([]models.Record, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, account_id, handle, external_id, eligible, reason, verifier, verified_at
		FROM verification_records
		WHERE handle = $1
		ORDER BY verified_at ASC, id ASC
	`, handle)
	if err != nil {
		return nil, fmt.Errorf("list verification records: %w", err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		var (
			r          models.Record
			externalID int64
		)
		if err := rows.Scan(&r.ID, &r.AccountID, &r.Handle, &externalID,
			&r.Eligible, &r.Reason, &r.Verifier, &r.VerifiedAt); err != nil {
			return nil, fmt.Errorf("scan verification record: %w", err)
		}
		r.ExternalID = uint64(externalID)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Postgres) Count(ctx context.Context) (int, error) {
	var count int
	err := s.execer(ctx).QueryRowContext(ctx, `SELECT count(*) FROM verification_records`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count verification records: %w", err)
	}
	return count, nil
}
