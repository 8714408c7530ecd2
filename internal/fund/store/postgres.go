package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"scholarhub/internal/fund/models"
	"scholarhub/pkg/platform/sentinel"
	txcontext "scholarhub/pkg/platform/tx"
)

// Postgres persists pools in PostgreSQL. Pool ids come from the table's
// bigserial sequence; Execute relies on the caller running inside a
// transaction (pkg/platform/tx) so FOR UPDATE pins the row.
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

const poolColumns = `id, title, total_amount, share_amount, capacity,
	claims_processed, remaining_amount, withdrawn_amount,
	creator, sponsor, beneficiary, active, frozen, created_at`

func (s *Postgres) Create(ctx context.Context, pool *models.Pool) error {
	err := s.execer(ctx).QueryRowContext(ctx, `
		INSERT INTO pools (title, total_amount, share_amount, capacity,
			claims_processed, remaining_amount, withdrawn_amount,
			creator, sponsor, beneficiary, active, frozen, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`, pool.Title, pool.TotalAmount, pool.ShareAmount, pool.Capacity,
		pool.ClaimsProcessed, pool.RemainingAmount, pool.WithdrawnAmount,
		pool.Creator, pool.Sponsor, pool.Beneficiary, pool.Active, pool.Frozen,
		pool.CreatedAt).Scan(&pool.ID)
	if err != nil {
		return fmt.Errorf("insert pool: %w", err)
	}
	return nil
}

// Delete removes a pool. Only the creation path uses this, to compensate a
// failed funding transfer.
func (s *Postgres) Delete(ctx context.Context, id int64) error {
	result, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM pools WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete pool: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete pool: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id int64) (*models.Pool, error) {
	return s.findByID(ctx, id, false)
}

func (s *Postgres) findByID(ctx context.Context, id int64, forUpdate bool) (*models.Pool, error) {
	query := `SELECT ` + poolColumns + ` FROM pools WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var pool models.Pool
	err := s.execer(ctx).QueryRowContext(ctx, query, id).Scan(
		&pool.ID, &pool.Title, &pool.TotalAmount, &pool.ShareAmount, &pool.Capacity,
		&pool.ClaimsProcessed, &pool.RemainingAmount, &pool.WithdrawnAmount,
		&pool.Creator, &pool.Sponsor, &pool.Beneficiary, &pool.Active, &pool.Frozen,
		&pool.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select pool: %w", err)
	}
	return &pool, nil
}

// Execute loads the pool FOR UPDATE, runs validate then mutate, and writes
// the mutable columns back. Callers must wrap in a transaction for the row
// lock to mean anything.
func (s *Postgres) Execute(ctx context.Context, id int64,
	validate func(*models.Pool) error, mutate func(*models.Pool)) (*models.Pool, error) {

	pool, err := s.findByID(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if validate != nil {
		if err := validate(pool); err != nil {
			return nil, err
		}
	}
	if mutate == nil {
		return pool, nil
	}
	mutate(pool)

	_, err = s.execer(ctx).ExecContext(ctx, `
		UPDATE pools
		SET claims_processed = $2, remaining_amount = $3, withdrawn_amount = $4,
			active = $5, frozen = $6
		WHERE id = $1
	`, pool.ID, pool.ClaimsProcessed, pool.RemainingAmount, pool.WithdrawnAmount,
		pool.Active, pool.Frozen)
	if err != nil {
		return nil, fmt.Errorf("update pool: %w", err)
	}
	return pool, nil
}

// List returns all pools ordered by id.
func (s *Postgres) List(ctx context.Context) ([]models.Pool, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT `+poolColumns+` FROM pools ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select pools: %w", err)
	}
	defer rows.Close()

	var pools []models.Pool
	for rows.Next() {
		var pool models.Pool
		if err := rows.Scan(
			&pool.ID, &pool.Title, &pool.TotalAmount, &pool.ShareAmount, &pool.Capacity,
			&pool.ClaimsProcessed, &pool.RemainingAmount, &pool.WithdrawnAmount,
			&pool.Creator, &pool.Sponsor, &pool.Beneficiary, &pool.Active, &pool.Frozen,
			&pool.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan pool: %w", err)
		}
		pools = append(pools, pool)
	}
	return pools, rows.Err()
}

func (s *Postgres) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pools`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pools: %w", err)
	}
	return count, nil
}
