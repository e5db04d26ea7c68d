package pricing

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// PostgresCatalogRepo persists catalog items.
//
// Assumed table: catalog_items(id, kind, code, name, currency,
// base_minor, active, created_at, updated_at) with UNIQUE (kind, code).
type PostgresCatalogRepo struct {
	db *sql.DB
}

func NewPostgresCatalogRepo(db *sql.DB) *PostgresCatalogRepo { return &PostgresCatalogRepo{db: db} }

func (r *PostgresCatalogRepo) UpsertItem(ctx context.Context, it Item) error {
	const q = `
INSERT INTO catalog_items (id, kind, code, name, currency, base_minor, active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (kind, code) DO UPDATE
SET name = EXCLUDED.name, currency = EXCLUDED.currency,
    base_minor = EXCLUDED.base_minor, active = EXCLUDED.active,
    updated_at = EXCLUDED.updated_at
`
	_, err := r.db.ExecContext(ctx, q,
		it.ID, it.Kind, it.Code, it.Name, it.Currency, it.BaseMinor, it.Active, it.CreatedAt, it.UpdatedAt,
	)
	return err
}

func (r *PostgresCatalogRepo) GetItemByCode(ctx context.Context, kind ItemKind, code string) (Item, bool, error) {
	const q = `
SELECT id, kind, code, name, currency, base_minor, active, created_at, updated_at
FROM catalog_items
WHERE kind = $1 AND code = $2
`
	var it Item
	err := r.db.QueryRowContext(ctx, q, kind, code).Scan(
		&it.ID, &it.Kind, &it.Code, &it.Name, &it.Currency, &it.BaseMinor, &it.Active, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Item{}, false, nil
		}
		return Item{}, false, err
	}
	return it, true, nil
}

func (r *PostgresCatalogRepo) ListItems(ctx context.Context, kind ItemKind) ([]Item, error) {
	const q = `
SELECT id, kind, code, name, currency, base_minor, active, created_at, updated_at
FROM catalog_items
WHERE kind = $1
ORDER BY code ASC
`
	rows, err := r.db.QueryContext(ctx, q, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Kind, &it.Code, &it.Name, &it.Currency, &it.BaseMinor, &it.Active, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// PostgresTenantPriceRepo persists tenant margins.
//
// Assumed table: tenant_prices(tenant_id, item_id, margin_kind,
// margin_value, resale_minor, updated_at) with PRIMARY KEY
// (tenant_id, item_id).
type PostgresTenantPriceRepo struct {
	db *sql.DB
}

func NewPostgresTenantPriceRepo(db *sql.DB) *PostgresTenantPriceRepo {
	return &PostgresTenantPriceRepo{db: db}
}

func (r *PostgresTenantPriceRepo) Upsert(ctx context.Context, tp TenantPrice) error {
	const q = `
INSERT INTO tenant_prices (tenant_id, item_id, margin_kind, margin_value, resale_minor, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (tenant_id, item_id) DO UPDATE
SET margin_kind = EXCLUDED.margin_kind, margin_value = EXCLUDED.margin_value,
    resale_minor = EXCLUDED.resale_minor, updated_at = EXCLUDED.updated_at
`
	_, err := r.db.ExecContext(ctx, q,
		tp.TenantID, tp.ItemID, tp.Margin.Kind, tp.Margin.Value, tp.ResaleMinor, tp.UpdatedAt,
	)
	return err
}

func (r *PostgresTenantPriceRepo) Get(ctx context.Context, tenantID, itemID string) (TenantPrice, bool, error) {
	const q = `
SELECT tenant_id, item_id, margin_kind, margin_value, resale_minor, updated_at
FROM tenant_prices
WHERE tenant_id = $1 AND item_id = $2
`
	var tp TenantPrice
	err := r.db.QueryRowContext(ctx, q, tenantID, itemID).Scan(
		&tp.TenantID, &tp.ItemID, &tp.Margin.Kind, &tp.Margin.Value, &tp.ResaleMinor, &tp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TenantPrice{}, false, nil
		}
		return TenantPrice{}, false, err
	}
	return tp, true, nil
}

func (r *PostgresTenantPriceRepo) ListByTenant(ctx context.Context, tenantID string) ([]TenantPrice, error) {
	const q = `
SELECT tenant_id, item_id, margin_kind, margin_value, resale_minor, updated_at
FROM tenant_prices
WHERE tenant_id = $1
`
	rows, err := r.db.QueryContext(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TenantPrice
	for rows.Next() {
		var tp TenantPrice
		if err := rows.Scan(&tp.TenantID, &tp.ItemID, &tp.Margin.Kind, &tp.Margin.Value, &tp.ResaleMinor, &tp.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, tp)
	}
	return out, rows.Err()
}

// PostgresRateCardRepo persists rate cards with tiers as JSONB.
//
// Assumed table: rate_cards(id, tenant_id, code, currency, tiers,
// created_at, updated_at) with UNIQUE (tenant_id, code).
type PostgresRateCardRepo struct {
	db *sql.DB
}

func NewPostgresRateCardRepo(db *sql.DB) *PostgresRateCardRepo { return &PostgresRateCardRepo{db: db} }

func (r *PostgresRateCardRepo) Upsert(ctx context.Context, c RateCard) error {
	tiers, err := json.Marshal(c.Tiers)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO rate_cards (id, tenant_id, code, currency, tiers, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (tenant_id, code) DO UPDATE
SET currency = EXCLUDED.currency, tiers = EXCLUDED.tiers, updated_at = EXCLUDED.updated_at
`
	_, err = r.db.ExecContext(ctx, q, c.ID, c.TenantID, c.Code, c.Currency, tiers, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *PostgresRateCardRepo) Get(ctx context.Context, tenantID, code string) (RateCard, bool, error) {
	const q = `
SELECT id, tenant_id, code, currency, tiers, created_at, updated_at
FROM rate_cards
WHERE tenant_id = $1 AND code = $2
`
	c, err := scanRateCard(r.db.QueryRowContext(ctx, q, tenantID, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RateCard{}, false, nil
		}
		return RateCard{}, false, err
	}
	return c, true, nil
}

func (r *PostgresRateCardRepo) ListByTenant(ctx context.Context, tenantID string) ([]RateCard, error) {
	const q = `
SELECT id, tenant_id, code, currency, tiers, created_at, updated_at
FROM rate_cards
WHERE tenant_id = $1
ORDER BY code ASC
`
	rows, err := r.db.QueryContext(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RateCard
	for rows.Next() {
		c, err := scanRateCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRateCard(row rowScanner) (RateCard, error) {
	var c RateCard
	var tiers []byte
	err := row.Scan(&c.ID, &c.TenantID, &c.Code, &c.Currency, &tiers, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return RateCard{}, err
	}
	if len(tiers) > 0 {
		if err := json.Unmarshal(tiers, &c.Tiers); err != nil {
			return RateCard{}, err
		}
	}
	return c, nil
}
