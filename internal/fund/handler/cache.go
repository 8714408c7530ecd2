package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	platformredis "scholarhub/internal/platform/redis"
)

// PoolCache is a short-TTL read cache for pool snapshots, backed by Redis.
// Pool reads dominate the traffic on the query surface; a few seconds of
// staleness is acceptable there, and every mutating endpoint invalidates the
// snapshot so claim preconditions never run against cached state.
type PoolCache struct {
	client *platformredis.Client
	ttl    time.Duration
}

func NewPoolCache(client *platformredis.Client, ttl time.Duration) *PoolCache {
	if client == nil {
		return nil
	}
	return &PoolCache{client: client, ttl: ttl}
}

func poolKey(id int64) string {
	return fmt.Sprintf("scholarhub:pool:%d", id)
}

// Get returns the cached snapshot, or false on miss or any Redis error.
func (c *PoolCache) Get(ctx context.Context, id int64) (*PoolResponse, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, poolKey(id)).Bytes()
	if err != nil {
		return nil, false
	}
	var response PoolResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, false
	}
	return &response, true
}

// Set stores the snapshot. Best effort; a write failure just means the next
// read goes to the store.
func (c *PoolCache) Set(ctx context.Context, response PoolResponse) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(response)
	if err != nil {
		return
	}
	c.client.Set(ctx, poolKey(response.ID), raw, c.ttl)
}

// Invalidate drops the snapshot after a mutation.
func (c *PoolCache) Invalidate(ctx context.Context, id int64) {
	if c == nil {
		return
	}
	c.client.Del(ctx, poolKey(id))
}
