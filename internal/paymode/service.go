package paymode

import (
	"context"
	"errors"
	"time"

	"logistics-payments/internal/audit"
)

// Repository is the persistence contract for tenant payment modes.
type Repository interface {
	Get(ctx context.Context, tenantID string) (TenantMode, bool, error)
	Upsert(ctx context.Context, m TenantMode) error
}

// Cache bounds mode staleness. Implementations must honor the TTL; the
// resolver never caches longer than the configured few seconds so a mode
// change cannot route more than a moment of traffic under the old mode.
type Cache interface {
	Get(ctx context.Context, tenantID string) (Mode, bool, error)
	Set(ctx context.Context, tenantID string, m Mode, ttl time.Duration) error
	Del(ctx context.Context, tenantID string) error
}

var (
	ErrInvalidMode     = errors.New("paymode: invalid mode")
	ErrInvalidArgument = errors.New("paymode: invalid argument")
)

// Service resolves and administers tenant payment modes.
//
// Resolve fails open to delegue for unconfigured tenants: platform-managed
// payments always have a defined provider path, a tenant's own credentials
// may not.
type Service struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
	audit *audit.Service
	clock func() time.Time
}

func NewService(repo Repository, cache Cache, ttl time.Duration, auditor *audit.Service) *Service {
	if ttl <= 0 || ttl > 30*time.Second {
		ttl = 5 * time.Second
	}
	return &Service{repo: repo, cache: cache, ttl: ttl, audit: auditor, clock: time.Now}
}

func (s *Service) Resolve(ctx context.Context, tenantID string) (Mode, error) {
	if tenantID == "" {
		return "", ErrInvalidArgument
	}

	if s.cache != nil {
		if m, ok, err := s.cache.Get(ctx, tenantID); err == nil && ok {
			return m, nil
		}
		// Cache trouble is not a reason to fail a payment; fall through.
	}

	m, ok, err := s.repo.Get(ctx, tenantID)
	if err != nil {
		return "", err
	}
	mode := ModeDelegue
	if ok {
		mode = m.Mode
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, tenantID, mode, s.ttl)
	}
	return mode, nil
}

// SetModeInput carries the administrative act and its audit context.
type SetModeInput struct {
	TenantID   string
	Mode       Mode
	ActorScope string
	ActorID    string
	IP         string
	UserAgent  string
}

func (s *Service) SetMode(ctx context.Context, in SetModeInput) (TenantMode, error) {
	if in.TenantID == "" || in.ActorID == "" {
		return TenantMode{}, ErrInvalidArgument
	}
	if !in.Mode.Valid() {
		return TenantMode{}, ErrInvalidMode
	}

	now := s.clock().UTC()
	rec := TenantMode{
		TenantID:  in.TenantID,
		Mode:      in.Mode,
		SinceAt:   now,
		UpdatedAt: now,
	}
	if prev, ok, err := s.repo.Get(ctx, in.TenantID); err != nil {
		return TenantMode{}, err
	} else if ok && prev.Mode == in.Mode {
		// No-op change keeps the original since_at.
		rec.SinceAt = prev.SinceAt
	}

	if err := s.repo.Upsert(ctx, rec); err != nil {
		return TenantMode{}, err
	}

	// Invalidate immediately so the next checkout sees the committed mode.
	if s.cache != nil {
		_ = s.cache.Del(ctx, in.TenantID)
	}

	if s.audit != nil {
		s.audit.Log(ctx, audit.Event{
			ActorScope: in.ActorScope,
			ActorID:    in.ActorID,
			Action:     audit.ActionPaymentModeChanged,
			Entity:     "tenant_payment_mode",
			EntityID:   in.TenantID,
			Payload:    `{"mode":"` + string(in.Mode) + `"}`,
			IPAddress:  in.IP,
			UserAgent:  in.UserAgent,
		})
	}
	return rec, nil
}
