// Package store persists the verification ledger.
package store

import (
	"context"
	"sync"

	"scholarhub/internal/verification/models"
)

// InMemory keeps the ledger in process memory, append order per handle.
type InMemory struct {
	mu       sync.RWMutex
	byHandle map[string][]models.Record
	total    int
}

func NewInMemory() *InMemory {
	return &InMemory{byHandle: make(map[string][]models.Record)}
}

func (s *InMemory) Append(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byHandle[record.Handle] = append(s.byHandle[record.Handle], *record)
	s.total++
	return nil
}

// ListByHandle returns the full history for a handle, oldest first.
func (s *InMemory) ListByHandle(_ context.Context, handle string) ([]models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Record{}, s.byHandle[handle]...), nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total, nil
}
