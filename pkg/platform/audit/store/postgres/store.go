package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	audit "scholarhub/pkg/platform/audit"
	txcontext "scholarhub/pkg/platform/tx"
)

// Store persists the audit feed in PostgreSQL. The bigserial seq column is
// the feed's total order. Appends also write an outbox row so the outbox
// worker can publish to Kafka without dual writes.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) Append(ctx context.Context, event *audit.Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO audit_events (id, kind, actor, subject, subject_id_hash, payload, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING seq
	`
	row := s.execer(ctx).QueryRowContext(ctx, query,
		event.ID, string(event.Kind), event.Actor, event.Subject,
		event.SubjectIDHash, payload, event.RequestID, event.Timestamp,
	)
	if err := row.Scan(&event.Seq); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}

	// Outbox row carries the fully-sequenced event for the Kafka worker.
	wire, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}
	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO audit_outbox (event_id, seq, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`, event.ID, event.Seq, wire, event.Timestamp)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, afterSeq int64, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, kind, actor, subject, subject_id_hash, payload, request_id, created_at
		FROM audit_events
		WHERE seq > $1
		ORDER BY seq ASC
		LIMIT $2
	`, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var (
			e       audit.Event
			kind    string
			payload []byte
		)
		if err := rows.Scan(&e.Seq, &e.ID, &kind, &e.Actor, &e.Subject,
			&e.SubjectIDHash, &payload, &e.RequestID, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Kind = audit.Kind(kind)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				return nil, fmt.Errorf("decode audit payload: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PendingOutbox returns unpublished outbox rows, oldest first.
func (s *Store) PendingOutbox(ctx context.Context, limit int) ([]OutboxRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, seq, payload
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY seq ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending outbox: %w", err)
	}
	defer rows.Close()

	var out []OutboxRow
	for rows.Next() {
		var r OutboxRow
		if err := rows.Scan(&r.EventID, &r.Seq, &r.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkPublished stamps an outbox row after a successful sink publish.
func (s *Store) MarkPublished(ctx context.Context, seq int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE audit_outbox SET published_at = now() WHERE seq = $1
	`, seq)
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

// OutboxRow is one pending publish.
type OutboxRow struct {
	EventID string
	Seq     int64
	Payload []byte
}
