package payout

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PostgresRepo persists payout requests.
//
// Assumed table: payout_requests(id, tenant_id, amount_minor, fee_minor,
// currency, channel, details, status, reason, requested_by, reviewed_by,
// evidence_url, paid_at, created_at, updated_at) with details stored as
// JSONB.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const payoutColumns = `id, tenant_id, amount_minor, fee_minor, currency, channel, details, status, reason, requested_by, reviewed_by, evidence_url, paid_at, created_at, updated_at`

func (r *PostgresRepo) Insert(ctx context.Context, req Request) error {
	details, err := json.Marshal(req.Details)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO payout_requests (` + payoutColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
`
	_, err = r.db.ExecContext(ctx, q,
		req.ID, req.TenantID, req.AmountMinor, req.FeeMinor, req.Currency,
		req.Channel, details, req.Status, req.Reason,
		req.RequestedBy, req.ReviewedBy, req.EvidenceURL, req.PaidAt,
		req.CreatedAt, req.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (Request, bool, error) {
	const q = `SELECT ` + payoutColumns + ` FROM payout_requests WHERE id = $1`
	req, err := scanRequest(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Request{}, false, nil
		}
		return Request{}, false, err
	}
	return req, true, nil
}

func (r *PostgresRepo) Update(ctx context.Context, req Request, expect Status) error {
	// The status predicate makes the write a compare-and-set: a
	// concurrent reviewer who already moved the request off `expect`
	// turns this into a zero-row update instead of a silent overwrite.
	const q = `
UPDATE payout_requests
SET status = $2, reason = $3, reviewed_by = $4, evidence_url = $5, paid_at = $6, updated_at = $7
WHERE id = $1 AND status = $8
`
	res, err := r.db.ExecContext(ctx, q, req.ID, req.Status, req.Reason, req.ReviewedBy, req.EvidenceURL, req.PaidAt, req.UpdatedAt, expect)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var cur Status
		serr := r.db.QueryRowContext(ctx, `SELECT status FROM payout_requests WHERE id = $1`, req.ID).Scan(&cur)
		if errors.Is(serr, sql.ErrNoRows) {
			return ErrNotFound
		}
		if serr != nil {
			return serr
		}
		return fmt.Errorf("%w: status is %s, not %s", ErrInvalidStateTransition, cur, expect)
	}
	return nil
}

func (r *PostgresRepo) ListByTenant(ctx context.Context, tenantID string, status Status, limit, offset int) ([]Request, error) {
	const q = `
SELECT ` + payoutColumns + `
FROM payout_requests
WHERE tenant_id = $1 AND ($2 = '' OR status = $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4
`
	rows, err := r.db.QueryContext(ctx, q, tenantID, string(status), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListByStatus(ctx context.Context, status Status, limit, offset int) ([]Request, error) {
	const q = `
SELECT ` + payoutColumns + `
FROM payout_requests
WHERE status = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`
	return r.many(ctx, q, status, limit, offset)
}

func (r *PostgresRepo) many(ctx context.Context, q string, arg any, limit, offset int) ([]Request, error) {
	rows, err := r.db.QueryContext(ctx, q, arg, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (Request, error) {
	var req Request
	var details []byte
	var paidAt sql.NullTime
	var createdAt, updatedAt time.Time
	err := row.Scan(
		&req.ID, &req.TenantID, &req.AmountMinor, &req.FeeMinor, &req.Currency,
		&req.Channel, &details, &req.Status, &req.Reason,
		&req.RequestedBy, &req.ReviewedBy, &req.EvidenceURL, &paidAt,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return Request{}, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &req.Details); err != nil {
			return Request{}, err
		}
	}
	if paidAt.Valid {
		t := paidAt.Time
		req.PaidAt = &t
	}
	req.CreatedAt = createdAt
	req.UpdatedAt = updatedAt
	return req, nil
}
