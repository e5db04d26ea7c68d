package checkout

import (
	"context"
	"sort"
	"sync"
	"time"

	"logistics-payments/internal/provider"
)

// MemoryOrderRepo is an in-memory OrderRepository for tests and local runs.
type MemoryOrderRepo struct {
	mu    sync.Mutex
	byID  map[string]Order
	byRef map[string]string
}

func NewMemoryOrderRepo() *MemoryOrderRepo {
	return &MemoryOrderRepo{byID: make(map[string]Order), byRef: make(map[string]string)}
}

func (r *MemoryOrderRepo) Insert(ctx context.Context, o Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[o.ID] = o
	r.byRef[o.Reference] = o.ID
	return nil
}

func (r *MemoryOrderRepo) GetByID(ctx context.Context, id string) (Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	return o, ok, nil
}

func (r *MemoryOrderRepo) GetByReference(ctx context.Context, reference string) (Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byRef[reference]
	if !ok {
		return Order{}, false, nil
	}
	o, ok := r.byID[id]
	return o, ok, nil
}

func (r *MemoryOrderRepo) UpdateStatus(ctx context.Context, id string, status OrderStatus, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.Status = status
	o.UpdatedAt = now
	r.byID[id] = o
	return nil
}

func (r *MemoryOrderRepo) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Order
	for _, o := range r.byID {
		if o.TenantID == tenantID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// MemoryPaymentRepo is an in-memory PaymentRepository.
type MemoryPaymentRepo struct {
	mu   sync.Mutex
	byID map[string]Payment
}

func NewMemoryPaymentRepo() *MemoryPaymentRepo {
	return &MemoryPaymentRepo{byID: make(map[string]Payment)}
}

func (r *MemoryPaymentRepo) Insert(ctx context.Context, p Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID] = p
	return nil
}

func (r *MemoryPaymentRepo) ListByOrder(ctx context.Context, orderID string) ([]Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Payment
	for _, p := range r.byID {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryPaymentRepo) UpdateStatus(ctx context.Context, id string, status PaymentStatus, providerRef, rawPayload string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return ErrPaymentNotFound
	}
	p.Status = status
	if providerRef != "" {
		p.ProviderRef = providerRef
	}
	if rawPayload != "" {
		p.RawPayload = rawPayload
	}
	p.UpdatedAt = now
	r.byID[id] = p
	return nil
}

// MemoryRefundRepo is an in-memory RefundRepository.
type MemoryRefundRepo struct {
	mu   sync.Mutex
	rows []Refund
}

func NewMemoryRefundRepo() *MemoryRefundRepo {
	return &MemoryRefundRepo{}
}

func (r *MemoryRefundRepo) Insert(ctx context.Context, rf Refund) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, rf)
	return nil
}

func (r *MemoryRefundRepo) SumByOrder(ctx context.Context, orderID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, rf := range r.rows {
		if rf.OrderID == orderID {
			sum += rf.AmountMinor
		}
	}
	return sum, nil
}

func (r *MemoryRefundRepo) ListByOrder(ctx context.Context, orderID string) ([]Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Refund
	for _, rf := range r.rows {
		if rf.OrderID == orderID {
			out = append(out, rf)
		}
	}
	return out, nil
}

// MemoryWebhookRepo enforces the claim uniqueness in memory.
type MemoryWebhookRepo struct {
	mu   sync.Mutex
	byID map[string]WebhookRecord
	seen map[string]string // claim tuple -> record id
}

func NewMemoryWebhookRepo() *MemoryWebhookRepo {
	return &MemoryWebhookRepo{byID: make(map[string]WebhookRecord), seen: make(map[string]string)}
}

func claimKey(p provider.Provider, providerRef, eventType string) string {
	return string(p) + "|" + providerRef + "|" + eventType
}

func (r *MemoryWebhookRepo) Claim(ctx context.Context, rec WebhookRecord) (ClaimResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := claimKey(rec.Provider, rec.ProviderRef, rec.EventType)
	if id, dup := r.seen[key]; dup {
		return ClaimResult{RecordID: id, Processed: r.byID[id].Processed}, nil
	}
	r.seen[key] = rec.ID
	r.byID[rec.ID] = rec
	return ClaimResult{RecordID: rec.ID, Fresh: true}, nil
}

func (r *MemoryWebhookRepo) MarkProcessed(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return nil
	}
	rec.Processed = true
	r.byID[id] = rec
	return nil
}
