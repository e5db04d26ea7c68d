package wallet

import "time"

// Scope separates platform-operator money from tenant money.
type Scope string

const (
	ScopeOwner  Scope = "owner"
	ScopeTenant Scope = "tenant"
)

// Wallet holds the cached money state for one (scope, scope_id).
//
// Invariants:
// - BalanceMinor == sum of ledger entries for the wallet. The column is a
//   projection only; the ledger is the source of truth (see Reconcile).
// - LockedMinor <= BalanceMinor after every committed operation.
// - Amounts are int64 minor units; no floats anywhere near money.
type Wallet struct {
	ID       string `json:"id" db:"id"`
	Scope    Scope  `json:"scope" db:"scope"`
	ScopeID  string `json:"scope_id" db:"scope_id"`
	Currency string `json:"currency" db:"currency"`

	BalanceMinor int64 `json:"balance_minor" db:"balance_minor"`
	LockedMinor  int64 `json:"locked_minor" db:"locked_minor"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// AvailableMinor is the spendable part of the balance.
func (w Wallet) AvailableMinor() int64 { return w.BalanceMinor - w.LockedMinor }

// Entry is an immutable append-only ledger record.
// Corrections are new offsetting entries, never updates.
type Entry struct {
	ID      string `json:"id" db:"id"`
	Scope   Scope  `json:"scope" db:"scope"`
	ScopeID string `json:"scope_id" db:"scope_id"`

	Type EntryType `json:"type" db:"type"`

	// AmountMinor is signed: credits positive, debits negative.
	AmountMinor int64  `json:"amount_minor" db:"amount_minor"`
	Currency    string `json:"currency" db:"currency"`

	// ExternalRef ties the entry to the business record (payment id,
	// payout id, refund id).
	ExternalRef string `json:"external_ref,omitempty" db:"external_ref"`

	// IdempotencyKey makes money posting safe under replays. Unique per
	// wallet when present.
	IdempotencyKey string `json:"idempotency_key,omitempty" db:"idempotency_key"`

	// Metadata is optional JSON (JSONB in Postgres).
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EntryType string

const (
	EntryTypePaymentCredit EntryType = "payment_credit"
	EntryTypePlatformFee   EntryType = "platform_fee"
	EntryTypeProviderFee   EntryType = "provider_fee"
	EntryTypeRefundDebit   EntryType = "refund_debit"
	EntryTypePayoutDebit   EntryType = "payout_debit"
	EntryTypePayoutFee     EntryType = "payout_fee"
)

// Balance is the read model returned to callers.
type Balance struct {
	Scope          Scope     `json:"scope"`
	ScopeID        string    `json:"scope_id"`
	Currency       string    `json:"currency"`
	BalanceMinor   int64     `json:"balance_minor"`
	LockedMinor    int64     `json:"locked_minor"`
	AvailableMinor int64     `json:"available_minor"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func balanceOf(w Wallet) Balance {
	return Balance{
		Scope:          w.Scope,
		ScopeID:        w.ScopeID,
		Currency:       w.Currency,
		BalanceMinor:   w.BalanceMinor,
		LockedMinor:    w.LockedMinor,
		AvailableMinor: w.AvailableMinor(),
		UpdatedAt:      w.UpdatedAt,
	}
}
