// Package kafka publishes the audit feed to a Kafka topic for external
// consumers. Consumers only ever read; they are never permitted to write
// back into the engine.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "scholarhub/pkg/platform/audit"
)

// Publisher produces audit events as JSON records keyed by sequence number,
// so a partition-per-topic setup preserves the feed's total order.
type Publisher struct {
	client *kgo.Client
	topic  string
}

// New connects to the cluster and ensures the audit topic exists with a
// single partition (total order requirement).
func New(ctx context.Context, seeds string, topic string) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(strings.Split(seeds, ",")...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	adm := kadm.NewClient(client)
	if _, err := adm.CreateTopic(ctx, 1, -1, nil, topic); err != nil {
		// Topic may already exist; anything else is fatal at startup.
		if !strings.Contains(err.Error(), "TOPIC_ALREADY_EXISTS") {
			client.Close()
			return nil, fmt.Errorf("ensure audit topic: %w", err)
		}
	}

	return &Publisher{client: client, topic: topic}, nil
}

// Publish produces one event synchronously.
func (p *Publisher) Publish(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(strconv.FormatInt(event.Seq, 10)),
		Value: value,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// PublishRaw produces an already-encoded event (outbox worker path).
func (p *Publisher) PublishRaw(ctx context.Context, seq int64, payload []byte) error {
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(strconv.FormatInt(seq, 10)),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes and releases the client.
func (p *Publisher) Close() {
	p.client.Close()
}
