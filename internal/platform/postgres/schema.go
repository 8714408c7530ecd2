// Package postgres owns the relational schema for the engine's stores.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id              uuid PRIMARY KEY,
		external_id     bigint NOT NULL UNIQUE,
		handle          text NOT NULL UNIQUE,
		integrity_proof text NOT NULL,
		eligible        boolean NOT NULL DEFAULT false,
		verified_at     timestamptz,
		created_at      timestamptz NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS account_claims (
		account_id uuid NOT NULL REFERENCES accounts(id),
		pool_id    bigint NOT NULL,
		claimed_at timestamptz NOT NULL,
		PRIMARY KEY (account_id, pool_id)
	)`,
	`CREATE TABLE IF NOT EXISTS pools (
		id               bigserial PRIMARY KEY,
		title            text NOT NULL,
		total_amount     bigint NOT NULL,
		share_amount     bigint NOT NULL,
		capacity         integer NOT NULL,
		claims_processed integer NOT NULL DEFAULT 0,
		remaining_amount bigint NOT NULL,
		withdrawn_amount bigint NOT NULL DEFAULT 0,
		creator          text NOT NULL,
		sponsor          text NOT NULL DEFAULT '',
		beneficiary      text NOT NULL DEFAULT '',
		active           boolean NOT NULL DEFAULT true,
		frozen           boolean NOT NULL DEFAULT false,
		created_at       timestamptz NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS verification_records (
		id          uuid PRIMARY KEY,
		account_id  uuid NOT NULL REFERENCES accounts(id),
		handle      text NOT NULL,
		external_id bigint NOT NULL,
		eligible    boolean NOT NULL,
		reason      text NOT NULL,
		verifier    text NOT NULL,
		verified_at timestamptz NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS verification_records_handle_idx
		ON verification_records (handle, verified_at)`,
	`CREATE TABLE IF NOT EXISTS audit_events (
		seq             bigserial PRIMARY KEY,
		id              uuid NOT NULL,
		kind            text NOT NULL,
		actor           text NOT NULL,
		subject         text NOT NULL,
		subject_id_hash text NOT NULL DEFAULT '',
		payload         jsonb,
		request_id      text NOT NULL DEFAULT '',
		created_at      timestamptz NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS audit_outbox (
		seq          bigint PRIMARY KEY REFERENCES audit_events(seq),
		event_id     uuid NOT NULL,
		payload      jsonb NOT NULL,
		created_at   timestamptz NOT NULL,
		published_at timestamptz
	)`,
}

// EnsureSchema creates all tables the stores rely on. Idempotent; intended
// for startup and integration tests rather than a migration tool.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
