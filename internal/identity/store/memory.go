// Package store provides the account persistence layer: an in-memory
// implementation for tests and single-node deployments, and a PostgreSQL
// implementation behind the same surface.
package store

import (
	"context"
	"fmt"
	"sync"

	"scholarhub/internal/identity/models"
	"scholarhub/pkg/platform/sentinel"
)

// Typed duplicate errors so the service can distinguish which uniqueness
// constraint was hit. Both unwrap to sentinel.ErrConflict.
var (
	ErrExternalIDTaken = fmt.Errorf("external id already registered: %w", sentinel.ErrConflict)
	ErrHandleTaken     = fmt.Errorf("handle already bound: %w", sentinel.ErrConflict)
)

// InMemory keeps accounts in process memory, indexed by handle and external
// id. All methods hand out deep copies; mutation goes through Execute so
// validation and write happen under one lock.
type InMemory struct {
	mu         sync.RWMutex
	byHandle   map[string]*models.Account
	byExternal map[uint64]*models.Account
}

func NewInMemory() *InMemory {
	return &InMemory{
		byHandle:   make(map[string]*models.Account),
		byExternal: make(map[uint64]*models.Account),
	}
}

// Create inserts an account if neither the external id nor the handle is
// taken. The external id check runs first so a doubly-duplicate registration
// reports DuplicateIdentity, matching the registry's contract.
func (s *InMemory) Create(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byExternal[account.ExternalID]; exists {
		return ErrExternalIDTaken
	}
	if _, exists := s.byHandle[account.Handle]; exists {
		return ErrHandleTaken
	}
	stored := account.Clone()
	s.byHandle[stored.Handle] = stored
	s.byExternal[stored.ExternalID] = stored
	return nil
}

func (s *InMemory) FindByHandle(_ context.Context, handle string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.byHandle[handle]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return account.Clone(), nil
}

func (s *InMemory) FindByExternalID(_ context.Context, externalID uint64) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.byExternal[externalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return account.Clone(), nil
}

// Execute runs validate then mutate on the account under the store lock,
// so no other mutation can interleave between the check and the write.
// If validate fails the account is left untouched.
func (s *InMemory) Execute(_ context.Context, handle string,
	validate func(*models.Account) error, mutate func(*models.Account)) (*models.Account, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.byHandle[handle]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if validate != nil {
		if err := validate(account); err != nil {
			return nil, err
		}
	}
	if mutate != nil {
		mutate(account)
	}
	return account.Clone(), nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byHandle), nil
}
