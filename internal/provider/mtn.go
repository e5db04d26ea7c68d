package provider

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// MTNMoneyAdapter drives MTN Mobile Money (MoMo) request-to-pay flows.
type MTNMoneyAdapter struct{}

func (MTNMoneyAdapter) Provider() Provider { return MTNMoney }

func (MTNMoneyAdapter) BuildCheckoutURL(spec CheckoutSpec) (string, error) {
	if err := spec.validate(); err != nil {
		return "", err
	}
	v := url.Values{}
	v.Set("externalId", spec.Reference)
	v.Set("amount", strconv.FormatInt(spec.AmountMinor, 10))
	v.Set("currency", spec.Currency)
	if spec.ReturnURL != "" {
		v.Set("redirectUrl", spec.ReturnURL)
	}
	if spec.PublicKey != "" {
		v.Set("subscriptionKey", spec.PublicKey)
	}
	return "https://momo.mtn.com/collection/widget?" + v.Encode(), nil
}

// mtnWebhook mirrors MoMo request-to-pay callbacks.
type mtnWebhook struct {
	FinancialTransactionID string `json:"financialTransactionId"`
	ExternalID             string `json:"externalId"`
	Amount                 string `json:"amount"`
	Currency               string `json:"currency"`
	Status                 string `json:"status"`
}

func (MTNMoneyAdapter) NormalizeWebhook(raw []byte) (WebhookEvent, error) {
	var p mtnWebhook
	if err := json.Unmarshal(raw, &p); err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrBadWebhook, err)
	}

	var status WebhookStatus
	switch p.Status {
	case "SUCCESSFUL":
		status = WebhookSucceeded
	case "FAILED", "REJECTED", "TIMEOUT":
		status = WebhookFailed
	default:
		return WebhookEvent{}, fmt.Errorf("%w: %s", ErrIgnoredEventType, p.Status)
	}

	amount, _ := strconv.ParseInt(p.Amount, 10, 64)

	e := WebhookEvent{
		Provider:    MTNMoney,
		EventType:   "requesttopay." + p.Status,
		ProviderRef: p.FinancialTransactionID,
		Reference:   p.ExternalID,
		AmountMinor: amount,
		Currency:    p.Currency,
		Status:      status,
		OccurredAt:  time.Now().UTC(),
		Raw:         string(raw),
	}
	if err := e.validate(); err != nil {
		return WebhookEvent{}, err
	}
	return e, nil
}
