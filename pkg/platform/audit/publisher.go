package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Store persists the append-only event feed and assigns the total order.
type Store interface {
	Append(ctx context.Context, event *Event) error
	List(ctx context.Context, afterSeq int64, limit int) ([]Event, error)
}

// Sink forwards events to an external transport (e.g. Kafka) after they are
// durably appended. Sink failures never fail the emitting operation.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store  Store
	sink   Sink
	logger *slog.Logger
}

type PublisherOption func(*Publisher)

// WithSink attaches an external transport for the feed.
func WithSink(sink Sink) PublisherOption {
	return func(p *Publisher) { p.sink = sink }
}

// WithLogger sets the logger used for sink failures.
func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = logger }
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit appends the event to the feed. The store assigns the sequence number;
// the sink is best-effort and must tolerate replays.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if err := p.store.Append(ctx, &event); err != nil {
		return err
	}
	if p.sink != nil {
		if err := p.sink.Publish(ctx, event); err != nil {
			p.logger.WarnContext(ctx, "audit sink publish failed",
				"kind", event.Kind, "seq", event.Seq, "error", err)
		}
	}
	return nil
}

// List returns events after the given sequence number, oldest first.
func (p *Publisher) List(ctx context.Context, afterSeq int64, limit int) ([]Event, error) {
	return p.store.List(ctx, afterSeq, limit)
}
