// Package worker drains the Postgres audit outbox into the Kafka sink.
// Separating the write (outbox row in the mutation transaction) from the
// publish keeps the feed free of dual-write anomalies.
package worker

import (
	"context"
	"log/slog"
	"time"

	pgstore "scholarhub/pkg/platform/audit/store/postgres"
)

// RawSink publishes pre-encoded outbox payloads.
type RawSink interface {
	PublishRaw(ctx context.Context, seq int64, payload []byte) error
}

// Worker polls the outbox and forwards pending rows in sequence order.
// A row is only marked published after the sink accepts it, so crashes
// re-deliver; consumers must treat the seq key as the dedup handle.
type Worker struct {
	store    *pgstore.Store
	sink     RawSink
	logger   *slog.Logger
	interval time.Duration
	batch    int
}

func New(store *pgstore.Store, sink RawSink, logger *slog.Logger) *Worker {
	return &Worker{
		store:    store,
		sink:     sink,
		logger:   logger,
		interval: time.Second,
		batch:    100,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drain(ctx); err != nil {
				w.logger.WarnContext(ctx, "audit outbox drain failed", "error", err)
			}
		}
	}
}

func (w *Worker) drain(ctx context.Context) error {
	rows, err := w.store.PendingOutbox(ctx, w.batch)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.sink.PublishRaw(ctx, row.Seq, row.Payload); err != nil {
			// Stop at the first failure to preserve ordering.
			return err
		}
		if err := w.store.MarkPublished(ctx, row.Seq); err != nil {
			return err
		}
	}
	return nil
}
