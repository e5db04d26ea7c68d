package provider

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresCredentialRepo persists provider credentials.
//
// Assumed table:
//   provider_credentials(id, scope, scope_id, provider, public_key, secret,
//                        active, created_at, updated_at)
// The secret column should be encrypted at rest (pgcrypto or KMS envelope);
// this repo treats it as opaque text.
type PostgresCredentialRepo struct {
	db *sql.DB
}

func NewPostgresCredentialRepo(db *sql.DB) *PostgresCredentialRepo {
	return &PostgresCredentialRepo{db: db}
}

func (r *PostgresCredentialRepo) Insert(ctx context.Context, c Credential) error {
	const q = `
INSERT INTO provider_credentials (
  id, scope, scope_id, provider, public_key, secret, active, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9
)
`
	_, err := r.db.ExecContext(ctx, q,
		c.ID, c.Scope, c.ScopeID, c.Provider, c.PublicKey, c.Secret, c.Active, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (r *PostgresCredentialRepo) GetByID(ctx context.Context, id string) (Credential, bool, error) {
	const q = `
SELECT id, scope, scope_id, provider, public_key, secret, active, created_at, updated_at
FROM provider_credentials
WHERE id = $1
`
	var c Credential
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&c.ID, &c.Scope, &c.ScopeID, &c.Provider, &c.PublicKey, &c.Secret, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Credential{}, false, nil
		}
		return Credential{}, false, err
	}
	return c, true, nil
}

func (r *PostgresCredentialRepo) SetActive(ctx context.Context, id string, active bool, now time.Time) error {
	const q = `
UPDATE provider_credentials
SET active = $2, updated_at = $3
WHERE id = $1
`
	res, err := r.db.ExecContext(ctx, q, id, active, now)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrCredentialMissing
	}
	return nil
}

func (r *PostgresCredentialRepo) ListByScope(ctx context.Context, scope CredScope, scopeID string) ([]Credential, error) {
	const q = `
SELECT id, scope, scope_id, provider, public_key, secret, active, created_at, updated_at
FROM provider_credentials
WHERE scope = $1 AND scope_id = $2
ORDER BY created_at ASC
`
	rows, err := r.db.QueryContext(ctx, q, scope, scopeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Credential
	for rows.Next() {
		var c Credential
		if err := rows.Scan(
			&c.ID, &c.Scope, &c.ScopeID, &c.Provider, &c.PublicKey, &c.Secret, &c.Active, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
