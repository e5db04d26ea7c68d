package payout

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repository for tests and local runs.
type MemoryRepo struct {
	mu   sync.Mutex
	byID map[string]Request
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Request)}
}

func (r *MemoryRepo) Insert(ctx context.Context, req Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[req.ID] = req
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Request, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.byID[id]
	return req, ok, nil
}

func (r *MemoryRepo) Update(ctx context.Context, req Request, expect Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[req.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Status != expect {
		return fmt.Errorf("%w: status is %s, not %s", ErrInvalidStateTransition, cur.Status, expect)
	}
	r.byID[req.ID] = req
	return nil
}

func (r *MemoryRepo) ListByTenant(ctx context.Context, tenantID string, status Status, limit, offset int) ([]Request, error) {
	return r.list(func(req Request) bool {
		return req.TenantID == tenantID && (status == "" || req.Status == status)
	}, limit, offset)
}

func (r *MemoryRepo) ListByStatus(ctx context.Context, status Status, limit, offset int) ([]Request, error) {
	return r.list(func(req Request) bool { return req.Status == status }, limit, offset)
}

func (r *MemoryRepo) list(match func(Request) bool, limit, offset int) ([]Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Request
	for _, req := range r.byID {
		if match(req) {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}
