package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is an in-memory Repository for tests. It honors the same
// serialization contract as the Postgres implementation: a per-wallet
// mutex is held across the available-funds check and the write, so
// concurrent debits cannot both pass the check.
type MemoryRepo struct {
	mu      sync.Mutex
	wallets map[string]*memWallet
}

type memWallet struct {
	mu      sync.Mutex
	wallet  Wallet
	entries []Entry
	byKey   map[string][]Entry
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{wallets: make(map[string]*memWallet)}
}

func key(scope Scope, scopeID string) string { return string(scope) + ":" + scopeID }

func (r *MemoryRepo) get(scope Scope, scopeID string) (*memWallet, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mw, ok := r.wallets[key(scope, scopeID)]
	return mw, ok
}

func (r *MemoryRepo) Get(ctx context.Context, scope Scope, scopeID string) (Wallet, bool, error) {
	mw, ok := r.get(scope, scopeID)
	if !ok {
		return Wallet{}, false, nil
	}
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.wallet, true, nil
}

func (r *MemoryRepo) Create(ctx context.Context, w Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(w.Scope, w.ScopeID)
	if _, exists := r.wallets[k]; exists {
		return ErrInvalidArgument
	}
	r.wallets[k] = &memWallet{wallet: w, byKey: make(map[string][]Entry)}
	return nil
}

func (r *MemoryRepo) Apply(ctx context.Context, scope Scope, scopeID string, op Apply) (Wallet, []Entry, bool, error) {
	mw, ok := r.get(scope, scopeID)
	if !ok {
		return Wallet{}, nil, false, ErrNotFound
	}

	mw.mu.Lock()
	defer mw.mu.Unlock()

	if op.IdempotencyKey != "" && len(op.Entries) > 0 {
		if prev, seen := mw.byKey[op.IdempotencyKey]; seen {
			return mw.wallet, prev, false, nil
		}
	}

	w := mw.wallet
	if op.RequireAvailableMinor > w.AvailableMinor() {
		return Wallet{}, nil, false, ErrInsufficientFunds
	}

	var net int64
	for _, sp := range op.Entries {
		net += sp.AmountMinor
	}
	newBalance := w.BalanceMinor + net
	newLocked := w.LockedMinor + op.LockDelta
	if newLocked < 0 || newBalance < 0 || newLocked > newBalance {
		return Wallet{}, nil, false, ErrInsufficientFunds
	}

	now := time.Now().UTC()
	written := make([]Entry, 0, len(op.Entries))
	for _, sp := range op.Entries {
		written = append(written, Entry{
			ID:             uuid.NewString(),
			Scope:          scope,
			ScopeID:        scopeID,
			Type:           sp.Type,
			AmountMinor:    sp.AmountMinor,
			Currency:       w.Currency,
			ExternalRef:    sp.ExternalRef,
			IdempotencyKey: op.IdempotencyKey,
			Metadata:       sp.Metadata,
			CreatedAt:      now,
		})
	}

	mw.entries = append(mw.entries, written...)
	if op.IdempotencyKey != "" && len(written) > 0 {
		mw.byKey[op.IdempotencyKey] = written
	}
	w.BalanceMinor = newBalance
	w.LockedMinor = newLocked
	w.UpdatedAt = now
	mw.wallet = w

	return w, written, true, nil
}

func (r *MemoryRepo) SumEntries(ctx context.Context, scope Scope, scopeID string) (int64, error) {
	mw, ok := r.get(scope, scopeID)
	if !ok {
		return 0, ErrNotFound
	}
	mw.mu.Lock()
	defer mw.mu.Unlock()
	var sum int64
	for _, e := range mw.entries {
		sum += e.AmountMinor
	}
	return sum, nil
}

func (r *MemoryRepo) ListEntries(ctx context.Context, scope Scope, scopeID string, limit, offset int) ([]Entry, error) {
	mw, ok := r.get(scope, scopeID)
	if !ok {
		return nil, ErrNotFound
	}
	mw.mu.Lock()
	defer mw.mu.Unlock()

	// Newest first.
	out := make([]Entry, 0, limit)
	for i := len(mw.entries) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, mw.entries[i])
	}
	return out, nil
}
