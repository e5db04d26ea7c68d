package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// EntrySpec describes one entry of an atomic application.
type EntrySpec struct {
	Type        EntryType
	AmountMinor int64
	ExternalRef string
	Metadata    string
}

// Apply is the atomic unit executed under the per-wallet serialization
// boundary: all entries, the lock delta and the available-funds check
// commit together or not at all.
type Apply struct {
	// IdempotencyKey guards entry-writing applications against replays.
	// Required when Entries is non-empty.
	IdempotencyKey string

	Entries []EntrySpec

	// LockDelta adjusts locked_minor (payout approve locks, paid/failed release).
	LockDelta int64

	// RequireAvailableMinor is the minimum available (balance - locked)
	// the wallet must hold before the application is attempted.
	RequireAvailableMinor int64
}

// Repository is the persistence contract for wallets and their ledger.
//
// Apply must serialize per wallet (row lock or equivalent) so two
// concurrent debits can never both pass the available check. The returned
// bool is false when the idempotency key had already been applied; the
// previously written entries are returned unchanged in that case.
type Repository interface {
	Get(ctx context.Context, scope Scope, scopeID string) (Wallet, bool, error)
	Create(ctx context.Context, w Wallet) error
	Apply(ctx context.Context, scope Scope, scopeID string, op Apply) (Wallet, []Entry, bool, error)
	SumEntries(ctx context.Context, scope Scope, scopeID string) (int64, error)
	ListEntries(ctx context.Context, scope Scope, scopeID string, limit, offset int) ([]Entry, error)
}

var (
	ErrNotFound          = errors.New("wallet: not found")
	ErrInsufficientFunds = errors.New("wallet: insufficient funds")
	ErrInvalidArgument   = errors.New("wallet: invalid argument")
)

// Service provides wallet operations.
//
// Money invariants:
// - No balance change without a ledger entry.
// - Ledger is append-only (immutable).
// - A debit never takes available below zero.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// EnsureWallet returns the wallet for (scope, scopeID), creating it empty
// on first use.
func (s *Service) EnsureWallet(ctx context.Context, scope Scope, scopeID, currency string) (Wallet, error) {
	if err := validateScope(scope, scopeID); err != nil {
		return Wallet{}, err
	}
	if currency == "" {
		return Wallet{}, ErrInvalidArgument
	}

	w, ok, err := s.repo.Get(ctx, scope, scopeID)
	if err != nil {
		return Wallet{}, err
	}
	if ok {
		return w, nil
	}

	now := s.clock().UTC()
	w = Wallet{
		ID:        uuid.NewString(),
		Scope:     scope,
		ScopeID:   scopeID,
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, w); err != nil {
		return Wallet{}, err
	}
	return w, nil
}

func (s *Service) Balance(ctx context.Context, scope Scope, scopeID string) (Balance, error) {
	if err := validateScope(scope, scopeID); err != nil {
		return Balance{}, err
	}
	w, ok, err := s.repo.Get(ctx, scope, scopeID)
	if err != nil {
		return Balance{}, err
	}
	if !ok {
		return Balance{}, ErrNotFound
	}
	return balanceOf(w), nil
}

// Credit posts a single positive entry.
func (s *Service) Credit(ctx context.Context, scope Scope, scopeID string, typ EntryType, amountMinor int64, externalRef, idempotencyKey, metadata string) (Balance, error) {
	if amountMinor <= 0 {
		return Balance{}, ErrInvalidArgument
	}
	return s.apply(ctx, scope, scopeID, Apply{
		IdempotencyKey: idempotencyKey,
		Entries: []EntrySpec{{
			Type:        typ,
			AmountMinor: amountMinor,
			ExternalRef: externalRef,
			Metadata:    metadata,
		}},
	})
}

// Debit posts a single negative entry, failing with ErrInsufficientFunds
// when the amount exceeds available funds.
func (s *Service) Debit(ctx context.Context, scope Scope, scopeID string, typ EntryType, amountMinor int64, externalRef, idempotencyKey, metadata string) (Balance, error) {
	if amountMinor <= 0 {
		return Balance{}, ErrInvalidArgument
	}
	return s.apply(ctx, scope, scopeID, Apply{
		IdempotencyKey: idempotencyKey,
		Entries: []EntrySpec{{
			Type:        typ,
			AmountMinor: -amountMinor,
			ExternalRef: externalRef,
			Metadata:    metadata,
		}},
		RequireAvailableMinor: amountMinor,
	})
}

// ApplySplit posts several entries representing one business event (e.g. a
// payment credit and its platform fee) in one atomic unit. Partial
// application is never observable.
func (s *Service) ApplySplit(ctx context.Context, scope Scope, scopeID, idempotencyKey string, specs []EntrySpec) (Balance, error) {
	if len(specs) == 0 {
		return Balance{}, ErrInvalidArgument
	}
	var net int64
	for _, sp := range specs {
		if sp.AmountMinor == 0 || sp.Type == "" {
			return Balance{}, ErrInvalidArgument
		}
		net += sp.AmountMinor
	}
	op := Apply{IdempotencyKey: idempotencyKey, Entries: specs}
	if net < 0 {
		op.RequireAvailableMinor = -net
	}
	return s.apply(ctx, scope, scopeID, op)
}

// Lock reserves amountMinor of available funds (payout approval).
func (s *Service) Lock(ctx context.Context, scope Scope, scopeID string, amountMinor int64) (Balance, error) {
	if amountMinor <= 0 {
		return Balance{}, ErrInvalidArgument
	}
	return s.apply(ctx, scope, scopeID, Apply{
		LockDelta:             amountMinor,
		RequireAvailableMinor: amountMinor,
	})
}

// Release frees a previously locked amount without debiting (payout failed).
func (s *Service) Release(ctx context.Context, scope Scope, scopeID string, amountMinor int64) (Balance, error) {
	if amountMinor <= 0 {
		return Balance{}, ErrInvalidArgument
	}
	return s.apply(ctx, scope, scopeID, Apply{LockDelta: -amountMinor})
}

// DebitLocked converts a lock into a real debit in one atomic unit (payout
// paid): the lock is released and the balance reduced together, with an
// optional fee on top of the locked amount.
func (s *Service) DebitLocked(ctx context.Context, scope Scope, scopeID string, typ EntryType, amountMinor, feeMinor int64, externalRef, idempotencyKey string) (Balance, error) {
	if amountMinor <= 0 || feeMinor < 0 {
		return Balance{}, ErrInvalidArgument
	}
	specs := []EntrySpec{{
		Type:        typ,
		AmountMinor: -amountMinor,
		ExternalRef: externalRef,
	}}
	if feeMinor > 0 {
		specs = append(specs, EntrySpec{
			Type:        EntryTypePayoutFee,
			AmountMinor: -feeMinor,
			ExternalRef: externalRef,
		})
	}
	return s.apply(ctx, scope, scopeID, Apply{
		IdempotencyKey:        idempotencyKey,
		Entries:               specs,
		LockDelta:             -amountMinor,
		RequireAvailableMinor: feeMinor, // the locked part is already reserved
	})
}

func (s *Service) Entries(ctx context.Context, scope Scope, scopeID string, limit, offset int) ([]Entry, error) {
	if err := validateScope(scope, scopeID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListEntries(ctx, scope, scopeID, limit, offset)
}

// ReconcileResult compares the cached balance column against the entry sum.
type ReconcileResult struct {
	Scope       Scope  `json:"scope"`
	ScopeID     string `json:"scope_id"`
	CachedMinor int64  `json:"cached_minor"`
	LedgerSum   int64  `json:"ledger_sum"`
	Consistent  bool   `json:"consistent"`
}

// Reconcile verifies balance_minor == sum(ledger entries).
func (s *Service) Reconcile(ctx context.Context, scope Scope, scopeID string) (ReconcileResult, error) {
	if err := validateScope(scope, scopeID); err != nil {
		return ReconcileResult{}, err
	}
	w, ok, err := s.repo.Get(ctx, scope, scopeID)
	if err != nil {
		return ReconcileResult{}, err
	}
	if !ok {
		return ReconcileResult{}, ErrNotFound
	}
	sum, err := s.repo.SumEntries(ctx, scope, scopeID)
	if err != nil {
		return ReconcileResult{}, err
	}
	return ReconcileResult{
		Scope:       scope,
		ScopeID:     scopeID,
		CachedMinor: w.BalanceMinor,
		LedgerSum:   sum,
		Consistent:  w.BalanceMinor == sum,
	}, nil
}

func (s *Service) apply(ctx context.Context, scope Scope, scopeID string, op Apply) (Balance, error) {
	if err := validateScope(scope, scopeID); err != nil {
		return Balance{}, err
	}
	if len(op.Entries) > 0 && op.IdempotencyKey == "" {
		return Balance{}, ErrInvalidArgument
	}
	w, _, _, err := s.repo.Apply(ctx, scope, scopeID, op)
	if err != nil {
		return Balance{}, err
	}
	return balanceOf(w), nil
}

func validateScope(scope Scope, scopeID string) error {
	if scopeID == "" {
		return ErrInvalidArgument
	}
	switch scope {
	case ScopeOwner, ScopeTenant:
		return nil
	default:
		return ErrInvalidArgument
	}
}
