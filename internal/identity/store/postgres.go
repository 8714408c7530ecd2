package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"scholarhub/internal/identity/models"
	"scholarhub/pkg/platform/sentinel"
	txcontext "scholarhub/pkg/platform/tx"
)

// Postgres persists accounts in PostgreSQL. Uniqueness of external id and
// handle is enforced by the schema; Execute relies on the caller running
// inside a transaction (pkg/platform/tx) so FOR UPDATE pins the row.
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

const uniqueViolation = "23505"

func (s *Postgres) Create(ctx context.Context, account *models.Account) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO accounts (id, external_id, handle, integrity_proof, eligible, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, account.ID, int64(account.ExternalID), account.Handle,
		account.IntegrityProof, account.Eligible, account.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			if pqErr.Constraint == "accounts_handle_key" {
				return ErrHandleTaken
			}
			return ErrExternalIDTaken
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *Postgres) FindByHandle(ctx context.Context, handle string) (*models.Account, error) {
	return s.findBy(ctx, "handle = $1", handle, false)
}

func (s *Postgres) FindByExternalID(ctx context.Context, externalID uint64) (*models.Account, error) {
	return s.findBy(ctx, "external_id = $1", int64(externalID), false)
}

func (s *Postgres) findBy(ctx context.Context, where string, arg any, forUpdate bool) (*models.Account, error) {
	query := `
		SELECT id, external_id, handle, integrity_proof, eligible, verified_at, created_at
		FROM accounts WHERE ` + where
	if forUpdate {
		query += " FOR UPDATE"
	}

	var (
		account    models.Account
		externalID int64
		verifiedAt sql.NullTime
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, arg).Scan(
		&account.ID, &externalID, &account.Handle, &account.IntegrityProof,
		&account.Eligible, &verifiedAt, &account.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select account: %w", err)
	}
	account.ExternalID = uint64(externalID)
	if verifiedAt.Valid {
		at := verifiedAt.Time
		account.VerifiedAt = &at
	}

	account.ClaimedPools = make(map[int64]bool)
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT pool_id FROM account_claims WHERE account_id = $1`, account.ID)
	if err != nil {
		return nil, fmt.Errorf("select account claims: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var poolID int64
		if err := rows.Scan(&poolID); err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		account.ClaimedPools[poolID] = true
	}
	return &account, rows.Err()
}

// Execute loads the account FOR UPDATE, runs validate then mutate, and writes
// the delta back. Callers must wrap in a transaction for the row lock to mean
// anything.
func (s *Postgres) Execute(ctx context.Context, handle string,
	validate func(*models.Account) error, mutate func(*models.Account)) (*models.Account, error) {

	account, err := s.findBy(ctx, "handle = $1", handle, true)
	if err != nil {
		return nil, err
	}
	if validate != nil {
		if err := validate(account); err != nil {
			return nil, err
		}
	}
	if mutate == nil {
		return account, nil
	}

	before := account.Clone()
	mutate(account)

	if account.Eligible != before.Eligible || !equalTimes(account.VerifiedAt, before.VerifiedAt) {
		_, err := s.execer(ctx).ExecContext(ctx, `
			UPDATE accounts SET eligible = $1, verified_at = $2 WHERE id = $3
		`, account.Eligible, account.VerifiedAt, account.ID)
		if err != nil {
			return nil, fmt.Errorf("update account projection: %w", err)
		}
	}
	for poolID := range account.ClaimedPools {
		if before.ClaimedPools[poolID] {
			continue
		}
		_, err := s.execer(ctx).ExecContext(ctx, `
			INSERT INTO account_claims (account_id, pool_id, claimed_at)
			VALUES ($1, $2, $3)
		`, account.ID, poolID, time.Now())
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return nil, sentinel.ErrConflict
			}
			return nil, fmt.Errorf("insert account claim: %w", err)
		}
	}
	return account, nil
}

func (s *Postgres) Count(ctx context.Context) (int, error) {
	var count int
	err := s.execer(ctx).QueryRowContext(ctx, `SELECT count(*) FROM accounts`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return count, nil
}

func equalTimes(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
