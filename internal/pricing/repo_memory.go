package pricing

import (
	"context"
	"sort"
	"sync"
)

// MemoryCatalogRepo is an in-memory CatalogRepository.
type MemoryCatalogRepo struct {
	mu    sync.Mutex
	items map[string]Item // kind:code -> item
}

func NewMemoryCatalogRepo() *MemoryCatalogRepo {
	return &MemoryCatalogRepo{items: make(map[string]Item)}
}

func itemKey(kind ItemKind, code string) string { return string(kind) + ":" + code }

func (r *MemoryCatalogRepo) UpsertItem(ctx context.Context, it Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[itemKey(it.Kind, it.Code)] = it
	return nil
}

func (r *MemoryCatalogRepo) GetItemByCode(ctx context.Context, kind ItemKind, code string) (Item, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[itemKey(kind, code)]
	return it, ok, nil
}

func (r *MemoryCatalogRepo) ListItems(ctx context.Context, kind ItemKind) ([]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Item
	for _, it := range r.items {
		if it.Kind == kind {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// MemoryTenantPriceRepo is an in-memory TenantPriceRepository.
type MemoryTenantPriceRepo struct {
	mu     sync.Mutex
	prices map[string]TenantPrice // tenant:item -> price
}

func NewMemoryTenantPriceRepo() *MemoryTenantPriceRepo {
	return &MemoryTenantPriceRepo{prices: make(map[string]TenantPrice)}
}

func (r *MemoryTenantPriceRepo) Upsert(ctx context.Context, tp TenantPrice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prices[tp.TenantID+":"+tp.ItemID] = tp
	return nil
}

func (r *MemoryTenantPriceRepo) Get(ctx context.Context, tenantID, itemID string) (TenantPrice, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tp, ok := r.prices[tenantID+":"+itemID]
	return tp, ok, nil
}

func (r *MemoryTenantPriceRepo) ListByTenant(ctx context.Context, tenantID string) ([]TenantPrice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []TenantPrice
	for _, tp := range r.prices {
		if tp.TenantID == tenantID {
			out = append(out, tp)
		}
	}
	return out, nil
}

// MemoryRateCardRepo is an in-memory RateCardRepository.
type MemoryRateCardRepo struct {
	mu    sync.Mutex
	cards map[string]RateCard // tenant:code -> card
}

func NewMemoryRateCardRepo() *MemoryRateCardRepo {
	return &MemoryRateCardRepo{cards: make(map[string]RateCard)}
}

func (r *MemoryRateCardRepo) Upsert(ctx context.Context, c RateCard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cards[c.TenantID+":"+c.Code] = c
	return nil
}

func (r *MemoryRateCardRepo) Get(ctx context.Context, tenantID, code string) (RateCard, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cards[tenantID+":"+code]
	return c, ok, nil
}

func (r *MemoryRateCardRepo) ListByTenant(ctx context.Context, tenantID string) ([]RateCard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []RateCard
	for _, c := range r.cards {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}
