package provider

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// StripeAdapter drives Stripe Checkout sessions.
type StripeAdapter struct{}

func (StripeAdapter) Provider() Provider { return Stripe }

func (StripeAdapter) BuildCheckoutURL(spec CheckoutSpec) (string, error) {
	if err := spec.validate(); err != nil {
		return "", err
	}
	v := url.Values{}
	v.Set("client_reference_id", spec.Reference)
	v.Set("amount", strconv.FormatInt(spec.AmountMinor, 10))
	v.Set("currency", spec.Currency)
	if spec.ReturnURL != "" {
		v.Set("success_url", spec.ReturnURL)
	}
	if spec.CancelURL != "" {
		v.Set("cancel_url", spec.CancelURL)
	}
	if spec.SourceToken != "" {
		v.Set("source", spec.SourceToken)
	}
	if spec.PublicKey != "" {
		v.Set("key", spec.PublicKey)
	}
	return "https://checkout.stripe.com/c/pay?" + v.Encode(), nil
}

// stripeWebhook mirrors Stripe checkout.session events.
type stripeWebhook struct {
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object struct {
			ID                string `json:"id"`
			ClientReferenceID string `json:"client_reference_id"`
			AmountTotal       int64  `json:"amount_total"`
			Currency          string `json:"currency"`
			PaymentStatus     string `json:"payment_status"`
		} `json:"object"`
	} `json:"data"`
}

func (StripeAdapter) NormalizeWebhook(raw []byte) (WebhookEvent, error) {
	var p stripeWebhook
	if err := json.Unmarshal(raw, &p); err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrBadWebhook, err)
	}

	var status WebhookStatus
	switch p.Type {
	case "checkout.session.completed":
		status = WebhookSucceeded
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		status = WebhookFailed
	default:
		return WebhookEvent{}, fmt.Errorf("%w: %s", ErrIgnoredEventType, p.Type)
	}

	occurred := time.Now().UTC()
	if p.Created > 0 {
		occurred = time.Unix(p.Created, 0).UTC()
	}

	e := WebhookEvent{
		Provider:    Stripe,
		EventType:   p.Type,
		ProviderRef: p.Data.Object.ID,
		Reference:   p.Data.Object.ClientReferenceID,
		AmountMinor: p.Data.Object.AmountTotal,
		// Stripe lowercases currency codes.
		Currency:   normalizeCurrency(p.Data.Object.Currency),
		Status:     status,
		OccurredAt: occurred,
		Raw:        string(raw),
	}
	if err := e.validate(); err != nil {
		return WebhookEvent{}, err
	}
	return e, nil
}
