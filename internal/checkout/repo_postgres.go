package checkout

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresOrderRepo persists orders.
//
// Assumed table: orders(id, tenant_id, customer_id, reference,
// currency, amount_ccy_minor, amount_xof_minor, fx_rate_used, status,
// created_at, updated_at) with UNIQUE (reference).
type PostgresOrderRepo struct {
	db *sql.DB
}

func NewPostgresOrderRepo(db *sql.DB) *PostgresOrderRepo { return &PostgresOrderRepo{db: db} }

const orderColumns = `id, tenant_id, customer_id, reference, currency, amount_ccy_minor, amount_xof_minor, fx_rate_used, status, created_at, updated_at`

func (r *PostgresOrderRepo) Insert(ctx context.Context, o Order) error {
	const q = `
INSERT INTO orders (` + orderColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`
	_, err := r.db.ExecContext(ctx, q,
		o.ID, o.TenantID, o.CustomerID, o.Reference, o.Currency,
		o.AmountCcyMinor, o.AmountXOFMinor, o.FxRateUsed, o.Status, o.CreatedAt, o.UpdatedAt,
	)
	return err
}

func (r *PostgresOrderRepo) GetByID(ctx context.Context, id string) (Order, bool, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return r.one(ctx, q, id)
}

func (r *PostgresOrderRepo) GetByReference(ctx context.Context, reference string) (Order, bool, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE reference = $1`
	return r.one(ctx, q, reference)
}

func (r *PostgresOrderRepo) one(ctx context.Context, q string, arg any) (Order, bool, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, q, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, false, nil
		}
		return Order{}, false, err
	}
	return o, true, nil
}

func (r *PostgresOrderRepo) UpdateStatus(ctx context.Context, id string, status OrderStatus, now time.Time) error {
	const q = `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, status, now)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *PostgresOrderRepo) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]Order, error) {
	const q = `
SELECT ` + orderColumns + `
FROM orders
WHERE tenant_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`
	rows, err := r.db.QueryContext(ctx, q, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// PostgresPaymentRepo persists payment attempts.
//
// Assumed table: payments(id, order_id, tenant_id, provider, channel,
// mode, currency, amount_ccy_minor, amount_xof_minor, fx_rate_used,
// status, provider_ref, raw_payload, created_at, updated_at).
type PostgresPaymentRepo struct {
	db *sql.DB
}

func NewPostgresPaymentRepo(db *sql.DB) *PostgresPaymentRepo { return &PostgresPaymentRepo{db: db} }

const paymentColumns = `id, order_id, tenant_id, provider, channel, mode, currency, amount_ccy_minor, amount_xof_minor, fx_rate_used, status, provider_ref, raw_payload, created_at, updated_at`

func (r *PostgresPaymentRepo) Insert(ctx context.Context, p Payment) error {
	const q = `
INSERT INTO payments (` + paymentColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
`
	_, err := r.db.ExecContext(ctx, q,
		p.ID, p.OrderID, p.TenantID, p.Provider, p.Channel, p.Mode, p.Currency,
		p.AmountCcyMinor, p.AmountXOFMinor, p.FxRateUsed, p.Status,
		p.ProviderRef, p.RawPayload, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func (r *PostgresPaymentRepo) ListByOrder(ctx context.Context, orderID string) ([]Payment, error) {
	const q = `
SELECT ` + paymentColumns + `
FROM payments
WHERE order_id = $1
ORDER BY created_at ASC
`
	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresPaymentRepo) UpdateStatus(ctx context.Context, id string, status PaymentStatus, providerRef, rawPayload string, now time.Time) error {
	const q = `
UPDATE payments
SET status = $2,
    provider_ref = CASE WHEN $3 <> '' THEN $3 ELSE provider_ref END,
    raw_payload  = CASE WHEN $4 <> '' THEN $4 ELSE raw_payload END,
    updated_at   = $5
WHERE id = $1
`
	res, err := r.db.ExecContext(ctx, q, id, status, providerRef, rawPayload, now)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

// PostgresRefundRepo persists refunds.
//
// Assumed table: refunds(id, order_id, payment_id, amount_minor, reason,
// status, created_at).
type PostgresRefundRepo struct {
	db *sql.DB
}

func NewPostgresRefundRepo(db *sql.DB) *PostgresRefundRepo { return &PostgresRefundRepo{db: db} }

func (r *PostgresRefundRepo) Insert(ctx context.Context, rf Refund) error {
	const q = `
INSERT INTO refunds (id, order_id, payment_id, amount_minor, reason, status, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`
	_, err := r.db.ExecContext(ctx, q,
		rf.ID, rf.OrderID, rf.PaymentID, rf.AmountMinor, rf.Reason, rf.Status, rf.CreatedAt,
	)
	return err
}

func (r *PostgresRefundRepo) SumByOrder(ctx context.Context, orderID string) (int64, error) {
	const q = `SELECT COALESCE(SUM(amount_minor), 0) FROM refunds WHERE order_id = $1`
	var sum int64
	if err := r.db.QueryRowContext(ctx, q, orderID).Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

func (r *PostgresRefundRepo) ListByOrder(ctx context.Context, orderID string) ([]Refund, error) {
	const q = `
SELECT id, order_id, payment_id, amount_minor, reason, status, created_at
FROM refunds
WHERE order_id = $1
ORDER BY created_at ASC
`
	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Refund
	for rows.Next() {
		var rf Refund
		if err := rows.Scan(&rf.ID, &rf.OrderID, &rf.PaymentID, &rf.AmountMinor, &rf.Reason, &rf.Status, &rf.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rf)
	}
	return out, rows.Err()
}

// PostgresWebhookRepo claims webhook events exactly once.
//
// Assumed table: webhook_events(id, provider, event_type, provider_ref,
// raw_json, processed, received_at) with
// UNIQUE (provider, provider_ref, event_type).
type PostgresWebhookRepo struct {
	db *sql.DB
}

func NewPostgresWebhookRepo(db *sql.DB) *PostgresWebhookRepo { return &PostgresWebhookRepo{db: db} }

func (r *PostgresWebhookRepo) Claim(ctx context.Context, rec WebhookRecord) (ClaimResult, error) {
	// ON CONFLICT DO NOTHING makes the insert itself the claim: exactly
	// one delivery of a given event tuple ever inserts. On conflict the
	// earlier record is read back so the caller can tell a processed
	// duplicate from a claim that never finished.
	const ins = `
INSERT INTO webhook_events (id, provider, event_type, provider_ref, raw_json, processed, received_at)
VALUES ($1,$2,$3,$4,$5,false,$6)
ON CONFLICT (provider, provider_ref, event_type) DO NOTHING
`
	res, err := r.db.ExecContext(ctx, ins,
		rec.ID, rec.Provider, rec.EventType, rec.ProviderRef, rec.RawJSON, rec.ReceivedAt,
	)
	if err != nil {
		return ClaimResult{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return ClaimResult{}, err
	}
	if n == 1 {
		return ClaimResult{RecordID: rec.ID, Fresh: true}, nil
	}

	const sel = `
SELECT id, processed FROM webhook_events
WHERE provider = $1 AND provider_ref = $2 AND event_type = $3
`
	var out ClaimResult
	err = r.db.QueryRowContext(ctx, sel, rec.Provider, rec.ProviderRef, rec.EventType).
		Scan(&out.RecordID, &out.Processed)
	if err != nil {
		return ClaimResult{}, err
	}
	return out, nil
}

func (r *PostgresWebhookRepo) MarkProcessed(ctx context.Context, id string) error {
	const q = `UPDATE webhook_events SET processed = true WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.TenantID, &o.CustomerID, &o.Reference, &o.Currency,
		&o.AmountCcyMinor, &o.AmountXOFMinor, &o.FxRateUsed, &o.Status,
		&o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

func scanPayment(row rowScanner) (Payment, error) {
	var p Payment
	err := row.Scan(
		&p.ID, &p.OrderID, &p.TenantID, &p.Provider, &p.Channel, &p.Mode,
		&p.Currency, &p.AmountCcyMinor, &p.AmountXOFMinor, &p.FxRateUsed,
		&p.Status, &p.ProviderRef, &p.RawPayload, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}
