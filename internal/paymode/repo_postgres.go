package paymode

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresRepo persists tenant payment modes.
//
// Assumed table: tenant_payment_modes(tenant_id PRIMARY KEY, mode,
// since_at, updated_at).
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Get(ctx context.Context, tenantID string) (TenantMode, bool, error) {
	const q = `
SELECT tenant_id, mode, since_at, updated_at
FROM tenant_payment_modes
WHERE tenant_id = $1
`
	var m TenantMode
	err := r.db.QueryRowContext(ctx, q, tenantID).Scan(&m.TenantID, &m.Mode, &m.SinceAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TenantMode{}, false, nil
		}
		return TenantMode{}, false, err
	}
	return m, true, nil
}

func (r *PostgresRepo) Upsert(ctx context.Context, m TenantMode) error {
	const q = `
INSERT INTO tenant_payment_modes (tenant_id, mode, since_at, updated_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (tenant_id)
DO UPDATE SET mode = EXCLUDED.mode,
              since_at = EXCLUDED.since_at,
              updated_at = EXCLUDED.updated_at
`
	_, err := r.db.ExecContext(ctx, q, m.TenantID, m.Mode, m.SinceAt, m.UpdatedAt)
	return err
}
