package checkout

import (
	"time"

	"logistics-payments/internal/paymode"
	"logistics-payments/internal/provider"
)

// Order is the billable intent created by the surrounding product. Created
// once; status only moves forward, except refund paths.
type Order struct {
	ID         string `json:"id" db:"id"`
	TenantID   string `json:"tenant_id" db:"tenant_id"`
	CustomerID string `json:"customer_id,omitempty" db:"customer_id"`

	// Reference is the unique handle shared with providers.
	Reference string `json:"reference" db:"reference"`

	Currency       string `json:"currency" db:"currency"`
	AmountCcyMinor int64  `json:"amount_ccy_minor" db:"amount_ccy_minor"`

	// Settlement view, captured at creation with the rate of that moment.
	AmountXOFMinor int64  `json:"amount_xof_minor" db:"amount_xof_minor"`
	FxRateUsed     string `json:"fx_rate_used" db:"fx_rate_used"`

	Status OrderStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type OrderStatus string

const (
	OrderCreated       OrderStatus = "created"
	OrderPending       OrderStatus = "pending"
	OrderSucceeded     OrderStatus = "succeeded"
	OrderFailed        OrderStatus = "failed"
	OrderRefunded      OrderStatus = "refunded"
	OrderPartialRefund OrderStatus = "partial_refund"
)

// Payment is one checkout attempt against an order. Retries create new
// rows; at most one reaches succeeded under normal flow.
type Payment struct {
	ID       string `json:"id" db:"id"`
	OrderID  string `json:"order_id" db:"order_id"`
	TenantID string `json:"tenant_id" db:"tenant_id"`

	Provider provider.Provider `json:"provider" db:"provider"`
	Channel  provider.Channel  `json:"channel" db:"channel"`

	// Mode records the tenant's operating mode at checkout time, so a later
	// webhook settles funds the way they were routed, not the way the
	// tenant is configured today.
	Mode paymode.Mode `json:"mode" db:"mode"`

	Currency       string `json:"currency" db:"currency"`
	AmountCcyMinor int64  `json:"amount_ccy_minor" db:"amount_ccy_minor"`
	AmountXOFMinor int64  `json:"amount_xof_minor" db:"amount_xof_minor"`
	FxRateUsed     string `json:"fx_rate_used" db:"fx_rate_used"`

	Status PaymentStatus `json:"status" db:"status"`

	// ProviderRef is the provider's transaction id, set by the webhook.
	ProviderRef string `json:"provider_ref,omitempty" db:"provider_ref"`
	RawPayload  string `json:"-" db:"raw_payload"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
)

// Refund records money returned against a succeeded payment, in settlement
// currency. The sum of refunds never exceeds the payment amount.
type Refund struct {
	ID        string `json:"id" db:"id"`
	OrderID   string `json:"order_id" db:"order_id"`
	PaymentID string `json:"payment_id,omitempty" db:"payment_id"`

	AmountMinor int64  `json:"amount_minor" db:"amount_minor"`
	Reason      string `json:"reason" db:"reason"`

	Status RefundStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type RefundStatus string

const (
	RefundSucceeded RefundStatus = "succeeded"
)

// WebhookRecord is the applied-exactly-once claim for a provider event.
// Uniqueness on (provider, provider_ref, event_type) is what makes webhook
// delivery safe under at-least-once semantics.
type WebhookRecord struct {
	ID          string            `json:"id" db:"id"`
	Provider    provider.Provider `json:"provider" db:"provider"`
	EventType   string            `json:"event_type" db:"event_type"`
	ProviderRef string            `json:"provider_ref" db:"provider_ref"`
	RawJSON     string            `json:"raw_json" db:"raw_json"`
	Processed   bool              `json:"processed" db:"processed"`
	ReceivedAt  time.Time         `json:"received_at" db:"received_at"`
}
