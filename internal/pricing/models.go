package pricing

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrInvalidMargin = errors.New("pricing: invalid margin rule")
	ErrInvalidTiers  = errors.New("pricing: invalid rate card tiers")
	ErrNotFound      = errors.New("pricing: not found")
)

type MarginKind string

const (
	MarginPercent MarginKind = "percent"
	MarginFixed   MarginKind = "fixed"
)

// MarginRule is a tenant mark-up over a catalog base price. Value is a
// whole percent for MarginPercent and minor units for MarginFixed.
type MarginRule struct {
	Kind  MarginKind `json:"kind" db:"margin_kind"`
	Value int64      `json:"value" db:"margin_value"`
}

func (r MarginRule) Validate() error {
	if r.Value < 0 {
		return fmt.Errorf("%w: negative value", ErrInvalidMargin)
	}
	switch r.Kind {
	case MarginPercent, MarginFixed:
		return nil
	default:
		return fmt.Errorf("%w: kind %q", ErrInvalidMargin, r.Kind)
	}
}

// ComputeResalePrice applies a margin rule to a base price. All money is
// integer minor units; the percent path rounds half-up.
func ComputeResalePrice(baseMinor int64, r MarginRule) (int64, error) {
	if baseMinor < 0 {
		return 0, fmt.Errorf("%w: negative base", ErrInvalidMargin)
	}
	if err := r.Validate(); err != nil {
		return 0, err
	}
	switch r.Kind {
	case MarginPercent:
		return (baseMinor*(100+r.Value) + 50) / 100, nil
	default:
		return baseMinor + r.Value, nil
	}
}

type ItemKind string

const (
	ItemPlan  ItemKind = "plan"
	ItemAddon ItemKind = "addon"
)

// Item is a platform catalog entry (subscription plan or add-on) with
// its base price. Tenants resell items at base plus their margin.
type Item struct {
	ID        string   `json:"id" db:"id"`
	Kind      ItemKind `json:"kind" db:"kind"`
	Code      string   `json:"code" db:"code"`
	Name      string   `json:"name" db:"name"`
	Currency  string   `json:"currency" db:"currency"`
	BaseMinor int64    `json:"base_minor" db:"base_minor"`
	Active    bool     `json:"active" db:"active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TenantPrice attaches a tenant's margin to a catalog item. ResaleMinor
// is the price computed when the margin was last set; reads derive the
// current resale from the live base instead of trusting it.
type TenantPrice struct {
	TenantID    string     `json:"tenant_id" db:"tenant_id"`
	ItemID      string     `json:"item_id" db:"item_id"`
	Margin      MarginRule `json:"margin"`
	ResaleMinor int64      `json:"resale_minor" db:"resale_minor"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// RateTier prices a unit from MinQty upward. The tier with the highest
// MinQty not exceeding the quantity wins.
type RateTier struct {
	MinQty    int64 `json:"min_qty"`
	UnitMinor int64 `json:"unit_minor"`
}

// RateCard is a tenant's volume pricing for a metered service.
type RateCard struct {
	ID       string `json:"id" db:"id"`
	TenantID string `json:"tenant_id" db:"tenant_id"`
	Code     string `json:"code" db:"code"`
	Currency string `json:"currency" db:"currency"`

	// Tiers are kept sorted by MinQty ascending, starting at 0.
	Tiers []RateTier `json:"tiers"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UnitPriceFor resolves the unit price for a quantity.
func (c RateCard) UnitPriceFor(qty int64) (int64, error) {
	if qty < 0 {
		return 0, fmt.Errorf("%w: negative quantity", ErrInvalidTiers)
	}
	price := int64(-1)
	for _, t := range c.Tiers {
		if t.MinQty <= qty {
			price = t.UnitMinor
		} else {
			break
		}
	}
	if price < 0 {
		return 0, fmt.Errorf("%w: no tier covers quantity %d", ErrInvalidTiers, qty)
	}
	return price, nil
}

// normalizeTiers sorts and validates a tier list: at least one tier, a
// zero-quantity floor, strictly increasing minimums, positive prices.
func normalizeTiers(tiers []RateTier) ([]RateTier, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidTiers)
	}
	out := make([]RateTier, len(tiers))
	copy(out, tiers)
	sort.Slice(out, func(i, j int) bool { return out[i].MinQty < out[j].MinQty })

	if out[0].MinQty != 0 {
		return nil, fmt.Errorf("%w: first tier must start at 0", ErrInvalidTiers)
	}
	for i, t := range out {
		if t.UnitMinor <= 0 {
			return nil, fmt.Errorf("%w: unit price must be positive", ErrInvalidTiers)
		}
		if i > 0 && t.MinQty == out[i-1].MinQty {
			return nil, fmt.Errorf("%w: duplicate minimum %d", ErrInvalidTiers, t.MinQty)
		}
	}
	return out, nil
}
