package paymode

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests.
type MemoryRepo struct {
	mu    sync.Mutex
	modes map[string]TenantMode
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{modes: make(map[string]TenantMode)}
}

func (r *MemoryRepo) Get(ctx context.Context, tenantID string) (TenantMode, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.modes[tenantID]
	return m, ok, nil
}

func (r *MemoryRepo) Upsert(ctx context.Context, m TenantMode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modes[m.TenantID] = m
	return nil
}

// MemoryCache is a TTL cache double for tests.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memCacheItem
	clock func() time.Time
}

type memCacheItem struct {
	mode    Mode
	expires time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]memCacheItem), clock: time.Now}
}

func (c *MemoryCache) Get(ctx context.Context, tenantID string) (Mode, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[tenantID]
	if !ok || c.clock().After(it.expires) {
		delete(c.items, tenantID)
		return "", false, nil
	}
	return it.mode, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, tenantID string, m Mode, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[tenantID] = memCacheItem{mode: m, expires: c.clock().Add(ttl)}
	return nil
}

func (c *MemoryCache) Del(ctx context.Context, tenantID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, tenantID)
	return nil
}
