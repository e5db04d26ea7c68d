package provider

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// WaveAdapter drives Wave mobile-money checkout sessions.
type WaveAdapter struct{}

func (WaveAdapter) Provider() Provider { return Wave }

func (WaveAdapter) BuildCheckoutURL(spec CheckoutSpec) (string, error) {
	if err := spec.validate(); err != nil {
		return "", err
	}
	v := url.Values{}
	v.Set("client_reference", spec.Reference)
	v.Set("amount", strconv.FormatInt(spec.AmountMinor, 10))
	v.Set("currency", spec.Currency)
	if spec.ReturnURL != "" {
		v.Set("success_url", spec.ReturnURL)
	}
	if spec.CancelURL != "" {
		v.Set("error_url", spec.CancelURL)
	}
	if spec.PublicKey != "" {
		v.Set("api_key", spec.PublicKey)
	}
	return "https://checkout.wave.com/checkout/create?" + v.Encode(), nil
}

// waveWebhook mirrors Wave checkout session events.
type waveWebhook struct {
	Type string `json:"type"`
	Data struct {
		ID              string `json:"id"`
		ClientReference string `json:"client_reference"`
		Amount          string `json:"amount"`
		Currency        string `json:"currency"`
		PaymentStatus   string `json:"payment_status"`
		WhenCompleted   string `json:"when_completed"`
	} `json:"data"`
}

func (WaveAdapter) NormalizeWebhook(raw []byte) (WebhookEvent, error) {
	var p waveWebhook
	if err := json.Unmarshal(raw, &p); err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrBadWebhook, err)
	}

	var status WebhookStatus
	switch p.Type {
	case "checkout.session.completed":
		status = WebhookSucceeded
	case "checkout.session.payment_failed":
		status = WebhookFailed
	default:
		return WebhookEvent{}, fmt.Errorf("%w: %s", ErrIgnoredEventType, p.Type)
	}

	amount, _ := strconv.ParseInt(p.Data.Amount, 10, 64)
	occurred := time.Now().UTC()
	if t, err := time.Parse(time.RFC3339, p.Data.WhenCompleted); err == nil {
		occurred = t
	}

	e := WebhookEvent{
		Provider:    Wave,
		EventType:   p.Type,
		ProviderRef: p.Data.ID,
		Reference:   p.Data.ClientReference,
		AmountMinor: amount,
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
