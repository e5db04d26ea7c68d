package provider

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// PaystackAdapter drives Paystack card checkout.
type PaystackAdapter struct{}

func (PaystackAdapter) Provider() Provider { return Paystack }

func (PaystackAdapter) BuildCheckoutURL(spec CheckoutSpec) (string, error) {
	if err := spec.validate(); err != nil {
		return "", err
	}
	v := url.Values{}
	v.Set("reference", spec.Reference)
	v.Set("amount", strconv.FormatInt(spec.AmountMinor, 10))
	v.Set("currency", spec.Currency)
	if spec.ReturnURL != "" {
		v.Set("callback_url", spec.ReturnURL)
	}
	if spec.SourceToken != "" {
		v.Set("source", spec.SourceToken)
	}
	if spec.PublicKey != "" {
		v.Set("key", spec.PublicKey)
	}
	return "https://checkout.paystack.com/pay?" + v.Encode(), nil
}

// paystackWebhook mirrors Paystack charge events.
type paystackWebhook struct {
	Event string `json:"event"`
	Data  struct {
		ID        json.Number `json:"id"`
		Reference string      `json:"reference"`
		Amount    int64       `json:"amount"`
		Currency  string      `json:"currency"`
		Status    string      `json:"status"`
		PaidAt    string      `json:"paid_at"`
	} `json:"data"`
}

func (PaystackAdapter) NormalizeWebhook(raw []byte) (WebhookEvent, error) {
	var p paystackWebhook
	if err := json.Unmarshal(raw, &p); err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrBadWebhook, err)
	}

	var status WebhookStatus
	switch p.Event {
	case "charge.success":
		status = WebhookSucceeded
	case "charge.failed":
		status = WebhookFailed
	default:
		return WebhookEvent{}, fmt.Errorf("%w: %s", ErrIgnoredEventType, p.Event)
	}

	occurred := time.Now().UTC()
	if t, err := time.Parse(time.RFC3339, p.Data.PaidAt); err == nil {
		occurred = t
	}

	e := WebhookEvent{
		Provider:    Paystack,
		EventType:   p.Event,
		ProviderRef: p.Data.ID.String(),
		Reference:   p.Data.Reference,
		AmountMinor: p.Data.Amount,
		Currency:    p.Data.Currency,
		Status:      status,
		OccurredAt:  occurred,
		Raw:         string(raw),
	}
	if err := e.validate(); err != nil {
		return WebhookEvent{}, err
	}
	return e, nil
}
