package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"logistics-payments/internal/audit"
)

var ErrInvalidArgument = errors.New("pricing: invalid argument")

type CatalogRepository interface {
	UpsertItem(ctx context.Context, it Item) error
	GetItemByCode(ctx context.Context, kind ItemKind, code string) (Item, bool, error)
	ListItems(ctx context.Context, kind ItemKind) ([]Item, error)
}

type TenantPriceRepository interface {
	Upsert(ctx context.Context, tp TenantPrice) error
	Get(ctx context.Context, tenantID, itemID string) (TenantPrice, bool, error)
	ListByTenant(ctx context.Context, tenantID string) ([]TenantPrice, error)
}

type RateCardRepository interface {
	Upsert(ctx context.Context, c RateCard) error
	Get(ctx context.Context, tenantID, code string) (RateCard, bool, error)
	ListByTenant(ctx context.Context, tenantID string) ([]RateCard, error)
}

// Service manages the catalog, tenant margins and rate cards.
type Service struct {
	catalog CatalogRepository
	prices  TenantPriceRepository
	cards   RateCardRepository
	auditor *audit.Service
	clock   func() time.Time
}

func NewService(catalog CatalogRepository, prices TenantPriceRepository, cards RateCardRepository, auditor *audit.Service) *Service {
	return &Service{
		catalog: catalog,
		prices:  prices,
		cards:   cards,
		auditor: auditor,
		clock:   time.Now,
	}
}

type Actor struct {
	Scope     string
	ID        string
	IP        string
	UserAgent string
}

type UpsertItemInput struct {
	Kind      ItemKind
	Code      string
	Name      string
	Currency  string
	BaseMinor int64
	Active    bool
}

// UpsertItem writes a catalog entry. Tenant resale prices are derived
// from the current base at read time, so a base change surfaces on the
// next lookup without a fan-out rewrite.
func (s *Service) UpsertItem(ctx context.Context, in UpsertItemInput, actor Actor) (Item, error) {
	if in.Code == "" || in.Currency == "" {
		return Item{}, ErrInvalidArgument
	}
	if in.Kind != ItemPlan && in.Kind != ItemAddon {
		return Item{}, fmt.Errorf("%w: kind %q", ErrInvalidArgument, in.Kind)
	}
	if in.BaseMinor < 0 {
		return Item{}, fmt.Errorf("%w: negative base price", ErrInvalidArgument)
	}

	now := s.clock().UTC()
	it, ok, err := s.catalog.GetItemByCode(ctx, in.Kind, in.Code)
	if err != nil {
		return Item{}, err
	}
	if !ok {
		it = Item{ID: uuid.NewString(), Kind: in.Kind, Code: in.Code, CreatedAt: now}
	}
	it.Name = in.Name
	it.Currency = in.Currency
	it.BaseMinor = in.BaseMinor
	it.Active = in.Active
	it.UpdatedAt = now

	if err := s.catalog.UpsertItem(ctx, it); err != nil {
		return Item{}, err
	}

	s.auditor.Log(ctx, audit.Event{
		ActorScope: actor.Scope,
		ActorID:    actor.ID,
		Action:     audit.ActionPricingChanged,
		Entity:     "catalog_item",
		EntityID:   it.ID,
		Payload:    jsonPayload(map[string]any{"code": it.Code, "kind": it.Kind, "base_minor": it.BaseMinor, "active": it.Active}),
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
	})
	return it, nil
}

func (s *Service) Items(ctx context.Context, kind ItemKind) ([]Item, error) {
	return s.catalog.ListItems(ctx, kind)
}

type SetMarginInput struct {
	TenantID string
	Kind     ItemKind
	Code     string
	Margin   MarginRule
}

// SetMargin attaches a tenant margin to an item and caches the derived
// resale price alongside it.
func (s *Service) SetMargin(ctx context.Context, in SetMarginInput, actor Actor) (TenantPrice, error) {
	if in.TenantID == "" || in.Code == "" {
		return TenantPrice{}, ErrInvalidArgument
	}
	it, ok, err := s.catalog.GetItemByCode(ctx, in.Kind, in.Code)
	if err != nil {
		return TenantPrice{}, err
	}
	if !ok {
		return TenantPrice{}, fmt.Errorf("%w: %s %q", ErrNotFound, in.Kind, in.Code)
	}

	resale, err := ComputeResalePrice(it.BaseMinor, in.Margin)
	if err != nil {
		return TenantPrice{}, err
	}

	tp := TenantPrice{
		TenantID:    in.TenantID,
		ItemID:      it.ID,
		Margin:      in.Margin,
		ResaleMinor: resale,
		UpdatedAt:   s.clock().UTC(),
	}
	if err := s.prices.Upsert(ctx, tp); err != nil {
		return TenantPrice{}, err
	}

	s.auditor.Log(ctx, audit.Event{
		ActorScope: actor.Scope,
		ActorID:    actor.ID,
		Action:     audit.ActionPricingChanged,
		Entity:     "tenant_price",
		EntityID:   in.TenantID + ":" + it.ID,
		Payload:    jsonPayload(map[string]any{"code": it.Code, "margin_kind": in.Margin.Kind, "margin_value": in.Margin.Value, "resale_minor": resale}),
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
	})
	return tp, nil
}

// ResalePrice resolves what a tenant charges for an item. Without a
// margin the base price passes through unchanged.
func (s *Service) ResalePrice(ctx context.Context, tenantID string, kind ItemKind, code string) (int64, error) {
	it, ok, err := s.catalog.GetItemByCode(ctx, kind, code)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s %q", ErrNotFound, kind, code)
	}
	tp, ok, err := s.prices.Get(ctx, tenantID, it.ID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return it.BaseMinor, nil
	}
	// Recompute from the live base so a catalog repricing takes effect
	// immediately; ResaleMinor on the row is a snapshot, not the truth.
	return ComputeResalePrice(it.BaseMinor, tp.Margin)
}

type UpsertRateCardInput struct {
	TenantID string
	Code     string
	Currency string
	Tiers    []RateTier
}

func (s *Service) UpsertRateCard(ctx context.Context, in UpsertRateCardInput, actor Actor) (RateCard, error) {
	if in.TenantID == "" || in.Code == "" || in.Currency == "" {
		return RateCard{}, ErrInvalidArgument
	}
	tiers, err := normalizeTiers(in.Tiers)
	if err != nil {
		return RateCard{}, err
	}

	now := s.clock().UTC()
	c, ok, err := s.cards.Get(ctx, in.TenantID, in.Code)
	if err != nil {
		return RateCard{}, err
	}
	if !ok {
		c = RateCard{ID: uuid.NewString(), TenantID: in.TenantID, Code: in.Code, CreatedAt: now}
	}
	c.Currency = in.Currency
	c.Tiers = tiers
	c.UpdatedAt = now

	if err := s.cards.Upsert(ctx, c); err != nil {
		return RateCard{}, err
	}

	s.auditor.Log(ctx, audit.Event{
		ActorScope: actor.Scope,
		ActorID:    actor.ID,
		Action:     audit.ActionPricingChanged,
		Entity:     "rate_card",
		EntityID:   c.ID,
		Payload:    jsonPayload(map[string]any{"code": c.Code, "tiers": len(c.Tiers)}),
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
	})
	return c, nil
}

// UnitPrice resolves tiered pricing for a quantity on a tenant rate card.
func (s *Service) UnitPrice(ctx context.Context, tenantID, code string, qty int64) (int64, error) {
	c, ok, err := s.cards.Get(ctx, tenantID, code)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: rate card %q", ErrNotFound, code)
	}
	return c.UnitPriceFor(qty)
}

func (s *Service) RateCards(ctx context.Context, tenantID string) ([]RateCard, error) {
	return s.cards.ListByTenant(ctx, tenantID)
}

func (s *Service) TenantPrices(ctx context.Context, tenantID string) ([]TenantPrice, error) {
	return s.prices.ListByTenant(ctx, tenantID)
}

func jsonPayload(v map[string]any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
