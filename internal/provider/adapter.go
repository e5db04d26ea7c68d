package provider

import (
	"errors"
	"fmt"
	"time"
)

// CheckoutSpec is everything an adapter needs to build a redirect target.
// It deliberately carries only the shareable credential part: checkout URLs
// are handed to browsers and must never require the secret.
type CheckoutSpec struct {
	Reference   string
	AmountMinor int64
	Currency    string
	ReturnURL   string
	CancelURL   string
	PublicKey   string

	// SourceToken is an optional pre-tokenized payment source for card
	// providers; mobile-money flows leave it empty.
	SourceToken string
}

func (s CheckoutSpec) validate() error {
	if s.Reference == "" || s.Currency == "" {
		return ErrBadCheckoutSpec
	}
	if s.AmountMinor <= 0 {
		return ErrBadCheckoutSpec
	}
	return nil
}

// WebhookStatus is the normalized outcome carried by a provider event.
type WebhookStatus string

const (
	WebhookSucceeded WebhookStatus = "succeeded"
	WebhookFailed    WebhookStatus = "failed"
)

// WebhookEvent is the provider-agnostic shape every incoming webhook is
// normalized into before any business logic runs. Raw keeps the original
// payload for audit and debugging.
type WebhookEvent struct {
	Provider    Provider      `json:"provider"`
	EventType   string        `json:"event_type"`
	ProviderRef string        `json:"provider_ref"`
	Reference   string        `json:"reference"`
	AmountMinor int64         `json:"amount_minor"`
	Currency    string        `json:"currency"`
	Status      WebhookStatus `json:"status"`
	OccurredAt  time.Time     `json:"occurred_at"`
	Raw         string        `json:"raw"`
}

func (e WebhookEvent) validate() error {
	if e.ProviderRef == "" || e.Reference == "" {
		return ErrBadWebhook
	}
	if e.Status != WebhookSucceeded && e.Status != WebhookFailed {
		return ErrBadWebhook
	}
	return nil
}

// Adapter is the per-provider boundary. No provider-specific payload
// handling exists outside adapter implementations.
type Adapter interface {
	Provider() Provider
	BuildCheckoutURL(spec CheckoutSpec) (string, error)
	NormalizeWebhook(raw []byte) (WebhookEvent, error)
}

var (
	ErrBadCheckoutSpec  = errors.New("provider: invalid checkout spec")
	ErrBadWebhook       = errors.New("provider: unrecognized webhook payload")
	ErrUnknownProvider  = errors.New("provider: unknown provider")
	ErrIgnoredEventType = errors.New("provider: event type not relevant")
)

// AdapterTable maps each supported provider to its adapter.
type AdapterTable map[Provider]Adapter

// DefaultAdapters registers every supported provider.
func DefaultAdapters() AdapterTable {
	adapters := []Adapter{
		WaveAdapter{},
		OrangeMoneyAdapter{},
		MTNMoneyAdapter{},
		PaystackAdapter{},
		StripeAdapter{},
		FlutterwaveAdapter{},
	}
	t := make(AdapterTable, len(adapters))
	for _, a := range adapters {
		t[a.Provider()] = a
	}
	return t
}

// Lookup returns the adapter for p.
func (t AdapterTable) Lookup(p Provider) (Adapter, error) {
	a, ok := t[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, p)
	}
	return a, nil
}
