package wallet

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"logistics-payments/pkg/utils"

	"github.com/google/uuid"
)

// PostgresRepo persists wallets and their ledger.
//
// Assumed tables:
// - wallets(id, scope, scope_id, currency, balance_minor, locked_minor,
//           created_at, updated_at) with UNIQUE (scope, scope_id)
// - ledger_entries(id, scope, scope_id, type, amount_minor, currency,
//                  external_ref, idempotency_key, metadata, created_at)
//   append-only, with a partial unique index on
//   (scope, scope_id, idempotency_key) WHERE idempotency_key <> ''.
//
// Serialization: the wallet row is taken FOR UPDATE for the whole
// check-then-write sequence.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Get(ctx context.Context, scope Scope, scopeID string) (Wallet, bool, error) {
	const q = `
SELECT id, scope, scope_id, currency, balance_minor, locked_minor, created_at, updated_at
FROM wallets
WHERE scope = $1 AND scope_id = $2
`
	w, err := scanWallet(r.db.QueryRowContext(ctx, q, scope, scopeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Wallet{}, false, nil
		}
		return Wallet{}, false, err
	}
	return w, true, nil
}

func (r *PostgresRepo) Create(ctx context.Context, w Wallet) error {
	const q = `
INSERT INTO wallets (id, scope, scope_id, currency, balance_minor, locked_minor, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (scope, scope_id) DO NOTHING
`
	_, err := r.db.ExecContext(ctx, q,
		w.ID, w.Scope, w.ScopeID, w.Currency, w.BalanceMinor, w.LockedMinor, w.CreatedAt, w.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) Apply(ctx context.Context, scope Scope, scopeID string, op Apply) (Wallet, []Entry, bool, error) {
	var outWallet Wallet
	var outEntries []Entry
	applied := false

	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		w, err := lockWallet(ctx, tx, scope, scopeID)
		if err != nil {
			return err
		}

		if op.IdempotencyKey != "" && len(op.Entries) > 0 {
			prev, seen, err := findEntriesByKey(ctx, tx, scope, scopeID, op.IdempotencyKey)
			if err != nil {
				return err
			}
			if seen {
				outWallet = w
				outEntries = prev
				return nil
			}
		}

		if op.RequireAvailableMinor > w.AvailableMinor() {
			return ErrInsufficientFunds
		}

		var net int64
		for _, sp := range op.Entries {
			net += sp.AmountMinor
		}
		newBalance := w.BalanceMinor + net
		newLocked := w.LockedMinor + op.LockDelta
		if newLocked < 0 || newBalance < 0 || newLocked > newBalance {
			return ErrInsufficientFunds
		}

		now := time.Now().UTC()
		written := make([]Entry, 0, len(op.Entries))
		for _, sp := range op.Entries {
			e := Entry{
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
			}
			if err := insertEntry(ctx, tx, e); err != nil {
				return err
			}
			written = append(written, e)
		}

		updated, err := updateWallet(ctx, tx, scope, scopeID, newBalance, newLocked, now)
		if err != nil {
			return err
		}

		outWallet = updated
		outEntries = written
		applied = true
		return nil
	})
	if err != nil {
		return Wallet{}, nil, false, err
	}
	return outWallet, outEntries, applied, nil
}

func (r *PostgresRepo) SumEntries(ctx context.Context, scope Scope, scopeID string) (int64, error) {
	const q = `
SELECT COALESCE(SUM(amount_minor), 0)
FROM ledger_entries
WHERE scope = $1 AND scope_id = $2
`
	var sum int64
	if err := r.db.QueryRowContext(ctx, q, scope, scopeID).Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

func (r *PostgresRepo) ListEntries(ctx context.Context, scope Scope, scopeID string, limit, offset int) ([]Entry, error) {
	const q = `
SELECT id, scope, scope_id, type, amount_minor, currency, external_ref, idempotency_key, metadata, created_at
FROM ledger_entries
WHERE scope = $1 AND scope_id = $2
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4
`
	rows, err := r.db.QueryContext(ctx, q, scope, scopeID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func lockWallet(ctx context.Context, tx *sql.Tx, scope Scope, scopeID string) (Wallet, error) {
	// Lock the wallet row to serialize concurrent money operations per wallet.
	const q = `
SELECT id, scope, scope_id, currency, balance_minor, locked_minor, created_at, updated_at
FROM wallets
WHERE scope = $1 AND scope_id = $2
FOR UPDATE
`
	w, err := scanWallet(tx.QueryRowContext(ctx, q, scope, scopeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, err
	}
	return w, nil
}

func findEntriesByKey(ctx context.Context, tx *sql.Tx, scope Scope, scopeID, key string) ([]Entry, bool, error) {
	const q = `
SELECT id, scope, scope_id, type, amount_minor, currency, external_ref, idempotency_key, metadata, created_at
FROM ledger_entries
WHERE scope = $1 AND scope_id = $2 AND idempotency_key = $3
ORDER BY created_at ASC
`
	rows, err := tx.QueryContext(ctx, q, scope, scopeID, key)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, false, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return out, len(out) > 0, nil
}

func insertEntry(ctx context.Context, tx *sql.Tx, e Entry) error {
	const q = `
INSERT INTO ledger_entries (
  id, scope, scope_id, type, amount_minor, currency, external_ref, idempotency_key, metadata, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
)
`
	_, err := tx.ExecContext(ctx, q,
		e.ID, e.Scope, e.ScopeID, e.Type, e.AmountMinor, e.Currency,
		e.ExternalRef, e.IdempotencyKey, e.Metadata, e.CreatedAt,
	)
	return err
}

func updateWallet(ctx context.Context, tx *sql.Tx, scope Scope, scopeID string, balance, locked int64, now time.Time) (Wallet, error) {
	const q = `
UPDATE wallets
SET balance_minor = $3, locked_minor = $4, updated_at = $5
WHERE scope = $1 AND scope_id = $2
RETURNING id, scope, scope_id, currency, balance_minor, locked_minor, created_at, updated_at
`
	return scanWallet(tx.QueryRowContext(ctx, q, scope, scopeID, balance, locked, now))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row rowScanner) (Wallet, error) {
	var w Wallet
	err := row.Scan(
		&w.ID, &w.Scope, &w.ScopeID, &w.Currency,
		&w.BalanceMinor, &w.LockedMinor, &w.CreatedAt, &w.UpdatedAt,
	)
	return w, err
}

func scanEntry(row rowScanner) (Entry, error) {
	var e Entry
	err := row.Scan(
		&e.ID, &e.Scope, &e.ScopeID, &e.Type, &e.AmountMinor, &e.Currency,
		&e.ExternalRef, &e.IdempotencyKey, &e.Metadata, &e.CreatedAt,
	)
	return e, err
}
