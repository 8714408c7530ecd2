// Package store provides pool persistence: an in-memory implementation for
// tests and single-node deployments, and a PostgreSQL implementation behind
// the same surface. Pool ids are assigned monotonically by the store.
package store

import (
	"context"
	"sync"

	"scholarhub/internal/fund/models"
	"scholarhub/pkg/platform/sentinel"
)

// InMemory keeps pools in process memory. All methods hand out deep copies;
// mutation goes through Execute so validation and write happen under one
// lock.
type InMemory struct {
	mu     sync.RWMutex
	pools  map[int64]*models.Pool
	nextID int64
}

func NewInMemory() *InMemory {
	return &InMemory{pools: make(map[int64]*models.Pool), nextID: 1}
}

// Create inserts the pool and assigns its id.
func (s *InMemory) Create(_ context.Context, pool *models.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pool.ID = s.nextID
	s.nextID++
	s.pools[pool.ID] = pool.Clone()
	return nil
}

// Delete removes a pool. Only the creation path uses this, to compensate a
// failed funding transfer; pools visible to claimants are never deleted.
func (s *InMemory) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pools[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.pools, id)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id int64) (*models.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pool, ok := s.pools[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return pool.Clone(), nil
}

// Execute runs validate then mutate on the pool under the store lock. If
// validate fails the pool is left untouched.
func (s *InMemory) Execute(_ context.Context, id int64,
	validate func(*models.Pool) error, mutate func(*models.Pool)) (*models.Pool, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	pool, ok := s.pools[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if validate != nil {
		if err := validate(pool); err != nil {
			return nil, err
		}
	}
	if mutate != nil {
		mutate(pool)
	}
	return pool.Clone(), nil
}

// List returns all pools ordered by id.
func (s *InMemory) List(_ context.Context) ([]models.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pools := make([]models.Pool, 0, len(s.pools))
	for id := int64(1); id < s.nextID; id++ {
		if pool, ok := s.pools[id]; ok {
			pools = append(pools, *pool.Clone())
		}
	}
	return pools, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pools), nil
}
