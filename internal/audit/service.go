package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.
type Repository interface {
	Append(ctx context.Context, e Event) error
	List(ctx context.Context, entity, entityID string, limit int) ([]Event, error)
}

// Service records audit events.
//
// Callers use Record when they want the error, or Log when the business
// operation must proceed regardless. A failed audit write is still reported
// on the process log so it never disappears silently.
type Service struct {
	repo  Repository
	log   *slog.Logger
	clock func() time.Time
}

func NewService(repo Repository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, log: log, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Record(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.ActorScope == "" || e.Action == "" || e.Entity == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// Log is the best-effort variant: a failed write is logged to the process
// log (the fallback channel) and swallowed, so the caller's business
// operation is never rolled back by audit trouble.
func (s *Service) Log(ctx context.Context, e Event) {
	if err := s.Record(ctx, e); err != nil {
		s.log.Error("audit write failed",
			"action", e.Action,
			"entity", e.Entity,
			"entity_id", e.EntityID,
			"err", err,
		)
	}
}

func (s *Service) Trail(ctx context.Context, entity, entityID string, limit int) ([]Event, error) {
	if s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.List(ctx, entity, entityID, limit)
}
