package memory

import (
	"context"
	"sync"

	audit "scholarhub/pkg/platform/audit"
)

// InMemoryStore keeps the feed in process memory. The slice index order is
// the feed's total order.
type InMemoryStore struct {
	mu      sync.RWMutex
	events  []audit.Event
	nextSeq int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextSeq: 1}
}

func (s *InMemoryStore) Append(_ context.Context, event *audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event.Seq = s.nextSeq
	s.nextSeq++
	s.events = append(s.events, *event)
	return nil
}

func (s *InMemoryStore) List(_ context.Context, afterSeq int64, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Event
	for _, e := range s.events {
		if e.Seq <= afterSeq {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Clear resets the store. Test helper.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	s.nextSeq = 1
}
