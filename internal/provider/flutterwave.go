package provider

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// FlutterwaveAdapter drives Flutterwave hosted payment pages.
type FlutterwaveAdapter struct{}

func (FlutterwaveAdapter) Provider() Provider { return Flutterwave }

func (FlutterwaveAdapter) BuildCheckoutURL(spec CheckoutSpec) (string, error) {
	if err := spec.validate(); err != nil {
		return "", err
	}
	v := url.Values{}
	v.Set("tx_ref", spec.Reference)
	v.Set("amount", strconv.FormatInt(spec.AmountMinor, 10))
	v.Set("currency", spec.Currency)
	if spec.ReturnURL != "" {
		v.Set("redirect_url", spec.ReturnURL)
	}
	if spec.PublicKey != "" {
		v.Set("public_key", spec.PublicKey)
	}
	return "https://checkout.flutterwave.com/v3/hosted/pay?" + v.Encode(), nil
}

// flutterwaveWebhook mirrors Flutterwave charge events.
type flutterwaveWebhook struct {
	Event string `json:"event"`
	Data  struct {
		ID        json.Number `json:"id"`
		TxRef     string      `json:"tx_ref"`
		Amount    json.Number `json:"amount"`
		Currency  string      `json:"currency"`
		Status    string      `json:"status"`
		CreatedAt string      `json:"created_at"`
	} `json:"data"`
}

func (FlutterwaveAdapter) NormalizeWebhook(raw []byte) (WebhookEvent, error) {
	var p flutterwaveWebhook
	if err := json.Unmarshal(raw, &p); err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrBadWebhook, err)
	}

	if p.Event != "charge.completed" {
		return WebhookEvent{}, fmt.Errorf("%w: %s", ErrIgnoredEventType, p.Event)
	}

	var status WebhookStatus
	switch strings.ToLower(p.Data.Status) {
	case "successful":
		status = WebhookSucceeded
	case "failed":
		status = WebhookFailed
	default:
		return WebhookEvent{}, fmt.Errorf("%w: status %s", ErrIgnoredEventType, p.Data.Status)
	}

	amount, _ := p.Data.Amount.Int64()
	occurred := time.Now().UTC()
	if t, err := time.Parse(time.RFC3339, p.Data.CreatedAt); err == nil {
		occurred = t
	}

	e := WebhookEvent{
		Provider:    Flutterwave,
		EventType:   p.Event,
		ProviderRef: p.Data.ID.String(),
		Reference:   p.Data.TxRef,
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

func normalizeCurrency(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}
