package paymode

import (
	"context"
	"testing"
	"time"

	"logistics-payments/internal/audit"
)

func TestResolveDefaultsToDelegue(t *testing.T) {
	s := NewService(NewMemoryRepo(), nil, 5*time.Second, nil)

	m, err := s.Resolve(context.Background(), "unknown-tenant")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if m != ModeDelegue {
		t.Fatalf("mode = %s, want delegue", m)
	}
}

func TestSetModeAndResolve(t *testing.T) {
	auditor := audit.NewService(audit.NewMemoryRepo(), nil)
	s := NewService(NewMemoryRepo(), NewMemoryCache(), 5*time.Second, auditor)
	ctx := context.Background()

	if _, err := s.SetMode(ctx, SetModeInput{TenantID: "t1", Mode: ModeAPIPropre, ActorScope: "owner", ActorID: "u1"}); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	m, err := s.Resolve(ctx, "t1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if m != ModeAPIPropre {
		t.Fatalf("mode = %s, want api_propre", m)
	}
}

func TestSetModeRejectsUnknownMode(t *testing.T) {
	s := NewService(NewMemoryRepo(), nil, 5*time.Second, nil)
	if _, err := s.SetMode(context.Background(), SetModeInput{TenantID: "t1", Mode: "hybrid", ActorID: "u1"}); err != ErrInvalidMode {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
}

func TestSetModeInvalidatesCache(t *testing.T) {
	cache := NewMemoryCache()
	s := NewService(NewMemoryRepo(), cache, 5*time.Second, nil)
	ctx := context.Background()

	if _, err := s.SetMode(ctx, SetModeInput{TenantID: "t1", Mode: ModeAPIPropre, ActorID: "u1"}); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if m, _ := s.Resolve(ctx, "t1"); m != ModeAPIPropre {
		t.Fatalf("mode = %s, want api_propre", m)
	}

	// The change must be visible on the very next resolve, not after TTL.
	if _, err := s.SetMode(ctx, SetModeInput{TenantID: "t1", Mode: ModeDelegue, ActorID: "u1"}); err != nil {
		t.Fatalf("SetMode back: %v", err)
	}
	if m, _ := s.Resolve(ctx, "t1"); m != ModeDelegue {
		t.Fatalf("stale mode after change: %s", m)
	}
}

func TestCacheExpiresByTTL(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := NewMemoryCache()
	cache.clock = func() time.Time { return now }
	ctx := context.Background()

	if err := cache.Set(ctx, "t1", ModeAPIPropre, 5*time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, _ := cache.Get(ctx, "t1"); !ok {
		t.Fatalf("expected cache hit before TTL")
	}

	now = now.Add(6 * time.Second)
	if _, ok, _ := cache.Get(ctx, "t1"); ok {
		t.Fatalf("expected cache miss after TTL")
	}
}

func TestSetModeKeepsSinceAtOnNoop(t *testing.T) {
	s := NewService(NewMemoryRepo(), nil, 5*time.Second, nil)
	ctx := context.Background()

	first, err := s.SetMode(ctx, SetModeInput{TenantID: "t1", Mode: ModeAPIPropre, ActorID: "u1"})
	if err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	second, err := s.SetMode(ctx, SetModeInput{TenantID: "t1", Mode: ModeAPIPropre, ActorID: "u1"})
	if err != nil {
		t.Fatalf("SetMode noop: %v", err)
	}
	if !second.SinceAt.Equal(first.SinceAt) {
		t.Fatalf("since_at moved on no-op change: %s -> %s", first.SinceAt, second.SinceAt)
	}
}
