package payout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"logistics-payments/internal/audit"
	"logistics-payments/internal/fx"
	"logistics-payments/internal/paymode"
	"logistics-payments/internal/wallet"
)

var (
	ErrNotFound               = errors.New("payout: not found")
	ErrInvalidArgument        = errors.New("payout: invalid argument")
	ErrPayoutsNotApplicable   = errors.New("payout: tenant settles directly with its providers")
	ErrBelowMinimum           = errors.New("payout: amount below minimum")
	ErrInvalidStateTransition = errors.New("payout: invalid state transition")
	ErrBadTarget              = errors.New("payout: invalid beneficiary details")
)

var (
	phonePattern   = regexp.MustCompile(`^\+?[0-9]{8,15}$`)
	accountPattern = regexp.MustCompile(`^[0-9A-Za-z]{6,34}$`)
)

type Repository interface {
	Insert(ctx context.Context, r Request) error
	GetByID(ctx context.Context, id string) (Request, bool, error)
	// Update writes r only while the stored status still equals expect,
	// returning ErrInvalidStateTransition otherwise. Two reviewers racing
	// the same request cannot both win.
	Update(ctx context.Context, r Request, expect Status) error
	// ListByTenant filters by status when status is non-empty.
	ListByTenant(ctx context.Context, tenantID string, status Status, limit, offset int) ([]Request, error)
	ListByStatus(ctx context.Context, status Status, limit, offset int) ([]Request, error)
}

// ModeResolver yields the tenant's operating mode; payouts only exist in
// delegated mode.
type ModeResolver interface {
	Resolve(ctx context.Context, tenantID string) (paymode.Mode, error)
}

// WalletAccess is the funds side of the pipeline. *wallet.Service
// satisfies it.
type WalletAccess interface {
	EnsureWallet(ctx context.Context, scope wallet.Scope, scopeID, currency string) (wallet.Wallet, error)
	Balance(ctx context.Context, scope wallet.Scope, scopeID string) (wallet.Balance, error)
	Lock(ctx context.Context, scope wallet.Scope, scopeID string, amountMinor int64) (wallet.Balance, error)
	Release(ctx context.Context, scope wallet.Scope, scopeID string, amountMinor int64) (wallet.Balance, error)
	DebitLocked(ctx context.Context, scope wallet.Scope, scopeID string, typ wallet.EntryType, amountMinor, feeMinor int64, externalRef, idempotencyKey string) (wallet.Balance, error)
}

type Config struct {
	Currency string

	// MinMinor is the smallest payout a tenant may request.
	MinMinor int64

	// AutoReviewMinor: requests strictly below it skip the manual
	// screening step and land in review immediately.
	AutoReviewMinor int64

	// FeeBps is charged on top of the locked amount when the payout is
	// marked paid.
	FeeBps int64
}

// Service runs the payout pipeline: request, screen, approve (lock
// funds), then settle as paid (debit) or failed (release).
type Service struct {
	repo    Repository
	modes   ModeResolver
	wallets WalletAccess
	rates   fx.Converter
	auditor *audit.Service

	cfg   Config
	log   *slog.Logger
	clock func() time.Time
}

func NewService(repo Repository, modes ModeResolver, wallets WalletAccess, rates fx.Converter, auditor *audit.Service, cfg Config, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Currency == "" {
		cfg.Currency = "XOF"
	}
	if cfg.MinMinor <= 0 {
		cfg.MinMinor = 1_000
	}
	return &Service{
		repo:    repo,
		modes:   modes,
		wallets: wallets,
		rates:   rates,
		auditor: auditor,
		cfg:     cfg,
		log:     log,
		clock:   time.Now,
	}
}

type CreateInput struct {
	TenantID    string
	AmountMinor int64

	// Currency of AmountMinor. Empty means the wallet currency; anything
	// else is converted at the rate in force when the request lands.
	Currency string

	Channel Channel
	Details TargetDetails

	ActorScope string
	ActorID    string
	IP         string
	UserAgent  string
}

// Create validates a withdrawal request against the tenant's mode, the
// beneficiary details and the available balance at request time. Funds
// are NOT reserved here; approval does that.
func (s *Service) Create(ctx context.Context, in CreateInput) (Request, error) {
	if in.TenantID == "" {
		return Request{}, ErrInvalidArgument
	}
	amount := in.AmountMinor
	if in.Currency != "" && in.Currency != s.cfg.Currency {
		if s.rates == nil {
			return Request{}, fmt.Errorf("%w: currency %q", ErrInvalidArgument, in.Currency)
		}
		conv, err := fx.ConvertMinor(ctx, s.rates, in.AmountMinor, in.Currency, s.cfg.Currency)
		if err != nil {
			return Request{}, err
		}
		amount = conv.ResultMinor
	}
	if amount < s.cfg.MinMinor {
		return Request{}, fmt.Errorf("%w: %d < %d", ErrBelowMinimum, amount, s.cfg.MinMinor)
	}
	if !in.Channel.Valid() {
		return Request{}, fmt.Errorf("%w: unknown channel %q", ErrInvalidArgument, in.Channel)
	}
	if err := validateTarget(in.Channel, in.Details); err != nil {
		return Request{}, err
	}

	mode, err := s.modes.Resolve(ctx, in.TenantID)
	if err != nil {
		return Request{}, err
	}
	if mode != paymode.ModeDelegue {
		return Request{}, ErrPayoutsNotApplicable
	}

	if _, err := s.wallets.EnsureWallet(ctx, wallet.ScopeTenant, in.TenantID, s.cfg.Currency); err != nil {
		return Request{}, err
	}
	bal, err := s.wallets.Balance(ctx, wallet.ScopeTenant, in.TenantID)
	if err != nil {
		return Request{}, err
	}
	if bal.AvailableMinor < amount {
		return Request{}, fmt.Errorf("%w: available %d < requested %d",
			wallet.ErrInsufficientFunds, bal.AvailableMinor, amount)
	}

	now := s.clock().UTC()
	r := Request{
		ID:          uuid.NewString(),
		TenantID:    in.TenantID,
		AmountMinor: amount,
		FeeMinor:    feeFor(amount, s.cfg.FeeBps),
		Currency:    s.cfg.Currency,
		Channel:     in.Channel,
		Details:     in.Details,
		Status:      StatusPending,
		RequestedBy: in.ActorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// Small requests skip manual screening and go straight to review.
	if s.cfg.AutoReviewMinor > 0 && amount < s.cfg.AutoReviewMinor {
		r.Status = StatusReview
	}

	if err := s.repo.Insert(ctx, r); err != nil {
		return Request{}, err
	}

	s.auditor.Log(ctx, audit.Event{
		ActorScope: in.ActorScope,
		ActorID:    in.ActorID,
		Action:     audit.ActionPayoutCreated,
		Entity:     "payout",
		EntityID:   r.ID,
		Payload:    detailPayload(r, ""),
		IPAddress:  in.IP,
		UserAgent:  in.UserAgent,
	})
	return r, nil
}

type ReviewInput struct {
	ID     string
	Reason string

	// EvidenceURL is only meaningful when marking a payout paid.
	EvidenceURL string

	ActorScope string
	ActorID    string
	IP         string
	UserAgent  string
}

// Screen moves a pending request into review.
func (s *Service) Screen(ctx context.Context, in ReviewInput) (Request, error) {
	return s.transition(ctx, in, StatusReview, audit.ActionPayoutScreened, nil, nil)
}

// Approve reserves the payout amount on the tenant wallet and moves the
// request to approved. If the lock fails (funds drained since request
// time), the request stays in review. If the status write loses the
// race against a concurrent reviewer, the lock is released again.
func (s *Service) Approve(ctx context.Context, in ReviewInput) (Request, error) {
	return s.transition(ctx, in, StatusApproved, audit.ActionPayoutApproved,
		func(ctx context.Context, r Request) error {
			_, err := s.wallets.Lock(ctx, wallet.ScopeTenant, r.TenantID, r.AmountMinor)
			return err
		},
		func(ctx context.Context, r Request) error {
			_, err := s.wallets.Release(ctx, wallet.ScopeTenant, r.TenantID, r.AmountMinor)
			return err
		})
}

// Reject closes a request in review without touching funds.
func (s *Service) Reject(ctx context.Context, in ReviewInput) (Request, error) {
	return s.transition(ctx, in, StatusRejected, audit.ActionPayoutRejected, nil, nil)
}

// MarkPaid settles an approved payout: the lock becomes a real debit
// (plus fee) in a single atomic wallet application keyed on the payout,
// so an operator double-click cannot debit twice. No undo: the debit is
// keyed on the payout id, and money already sent out of band cannot be
// clawed back by this service.
func (s *Service) MarkPaid(ctx context.Context, in ReviewInput) (Request, error) {
	return s.transition(ctx, in, StatusPaid, audit.ActionPayoutPaid,
		func(ctx context.Context, r Request) error {
			_, err := s.wallets.DebitLocked(ctx, wallet.ScopeTenant, r.TenantID,
				wallet.EntryTypePayoutDebit, r.AmountMinor, r.FeeMinor,
				r.ID, "payout:"+r.ID+":paid")
			return err
		}, nil)
}

// MarkFailed releases the reserved amount back to available funds. If
// the status write loses the race, the funds are locked again.
func (s *Service) MarkFailed(ctx context.Context, in ReviewInput) (Request, error) {
	return s.transition(ctx, in, StatusFailed, audit.ActionPayoutFailed,
		func(ctx context.Context, r Request) error {
			_, err := s.wallets.Release(ctx, wallet.ScopeTenant, r.TenantID, r.AmountMinor)
			return err
		},
		func(ctx context.Context, r Request) error {
			_, err := s.wallets.Lock(ctx, wallet.ScopeTenant, r.TenantID, r.AmountMinor)
			return err
		})
}

func (s *Service) Get(ctx context.Context, tenantID, id string) (Request, error) {
	r, ok, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if !ok || (tenantID != "" && r.TenantID != tenantID) {
		return Request{}, ErrNotFound
	}
	return r, nil
}

// ListByTenant pages a tenant's requests, optionally narrowed to one
// status.
func (s *Service) ListByTenant(ctx context.Context, tenantID string, status Status, limit, offset int) ([]Request, error) {
	if tenantID == "" {
		return nil, ErrInvalidArgument
	}
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, status)
	}
	limit, offset = clampPage(limit, offset)
	return s.repo.ListByTenant(ctx, tenantID, status, limit, offset)
}

// Queue lists requests awaiting action in a given status, for the back
// office.
func (s *Service) Queue(ctx context.Context, status Status, limit, offset int) ([]Request, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListByStatus(ctx, status, limit, offset)
}

// transition applies the state machine. The funds effect runs before
// the status write; if it fails the request keeps its current status.
// The write itself is conditional on the status the transition read, so
// a concurrent reviewer cannot apply the same step twice; when the
// write loses that race, undo reverses the funds effect.
func (s *Service) transition(ctx context.Context, in ReviewInput, to Status, action string, effect, undo func(context.Context, Request) error) (Request, error) {
	if in.ID == "" {
		return Request{}, ErrInvalidArgument
	}
	r, ok, err := s.repo.GetByID(ctx, in.ID)
	if err != nil {
		return Request{}, err
	}
	if !ok {
		return Request{}, ErrNotFound
	}
	from := r.Status

	if !canTransition(from, to) {
		s.auditor.Log(ctx, audit.Event{
			ActorScope: in.ActorScope,
			ActorID:    in.ActorID,
			Action:     audit.ActionPayoutBadState,
			Entity:     "payout",
			EntityID:   r.ID,
			Payload:    jsonPayload(map[string]any{"from": from, "to": to}),
			IPAddress:  in.IP,
			UserAgent:  in.UserAgent,
		})
		return Request{}, fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, from, to)
	}

	if effect != nil {
		if err := effect(ctx, r); err != nil {
			return Request{}, err
		}
	}

	r.Status = to
	if in.Reason != "" {
		r.Reason = in.Reason
	}
	if in.ActorID != "" {
		r.ReviewedBy = in.ActorID
	}
	r.UpdatedAt = s.clock().UTC()
	if to == StatusPaid {
		paidAt := r.UpdatedAt
		r.PaidAt = &paidAt
		r.EvidenceURL = in.EvidenceURL
	}
	if err := s.repo.Update(ctx, r, from); err != nil {
		if undo != nil && errors.Is(err, ErrInvalidStateTransition) {
			if uerr := undo(ctx, r); uerr != nil {
				s.log.ErrorContext(ctx, "payout transition undo failed",
					"id", r.ID, "from", from, "to", to, "err", uerr)
			}
		}
		return Request{}, err
	}

	s.auditor.Log(ctx, audit.Event{
		ActorScope: in.ActorScope,
		ActorID:    in.ActorID,
		Action:     action,
		Entity:     "payout",
		EntityID:   r.ID,
		Payload:    detailPayload(r, in.Reason),
		IPAddress:  in.IP,
		UserAgent:  in.UserAgent,
	})
	return r, nil
}

func validateTarget(ch Channel, d TargetDetails) error {
	if d.BeneficiaryName == "" {
		return fmt.Errorf("%w: beneficiary name required", ErrBadTarget)
	}
	switch ch {
	case ChannelMobileMoney:
		if !phonePattern.MatchString(d.PhoneNumber) {
			return fmt.Errorf("%w: phone number", ErrBadTarget)
		}
	case ChannelBankTransfer:
		if d.BankName == "" || !accountPattern.MatchString(d.AccountNumber) {
			return fmt.Errorf("%w: bank account", ErrBadTarget)
		}
	case ChannelCash, ChannelCheck:
		// The courier needs to know where to hand the money over.
		if strings.TrimSpace(d.PickupNote) == "" {
			return fmt.Errorf("%w: pickup location required", ErrBadTarget)
		}
	}
	return nil
}

func feeFor(amountMinor, bps int64) int64 {
	if bps <= 0 || amountMinor <= 0 {
		return 0
	}
	return (amountMinor*bps + 5_000) / 10_000
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// detailPayload never carries full beneficiary coordinates.
func detailPayload(r Request, reason string) string {
	return jsonPayload(map[string]any{
		"amount_minor": r.AmountMinor,
		"fee_minor":    r.FeeMinor,
		"channel":      r.Channel,
		"status":       r.Status,
		"details":      r.Details.Redacted(),
		"reason":       reason,
	})
}

func jsonPayload(v map[string]any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
