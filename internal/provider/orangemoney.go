package provider

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// OrangeMoneyAdapter drives Orange Money web payment sessions.
type OrangeMoneyAdapter struct{}

func (OrangeMoneyAdapter) Provider() Provider { return OrangeMoney }

func (OrangeMoneyAdapter) BuildCheckoutURL(spec CheckoutSpec) (string, error) {
	if err := spec.validate(); err != nil {
		return "", err
	}
	v := url.Values{}
	v.Set("order_id", spec.Reference)
	v.Set("amount", strconv.FormatInt(spec.AmountMinor, 10))
	v.Set("currency", spec.Currency)
	if spec.ReturnURL != "" {
		v.Set("return_url", spec.ReturnURL)
	}
	if spec.CancelURL != "" {
		v.Set("cancel_url", spec.CancelURL)
	}
	if spec.PublicKey != "" {
		v.Set("merchant_key", spec.PublicKey)
	}
	return "https://webpayment.orange-money.com/payment?" + v.Encode(), nil
}

// orangeWebhook mirrors Orange Money transaction notifications.
type orangeWebhook struct {
	Status    string `json:"status"`
	TxnID     string `json:"txnid"`
	OrderID   string `json:"order_id"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	NotifDate string `json:"notif_date"`
}

func (OrangeMoneyAdapter) NormalizeWebhook(raw []byte) (WebhookEvent, error) {
	var p orangeWebhook
	if err := json.Unmarshal(raw, &p); err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrBadWebhook, err)
	}

	var status WebhookStatus
	switch p.Status {
	case "SUCCESS", "SUCCESSFULL": // the gateway spells both
		status = WebhookSucceeded
	case "FAILED", "EXPIRED":
		status = WebhookFailed
	default:
		return WebhookEvent{}, fmt.Errorf("%w: %s", ErrIgnoredEventType, p.Status)
	}

	amount, _ := strconv.ParseInt(p.Amount, 10, 64)
	occurred := time.Now().UTC()
	if t, err := time.Parse(time.RFC3339, p.NotifDate); err == nil {
		occurred = t
	}

	e := WebhookEvent{
		Provider:    OrangeMoney,
		EventType:   "transaction." + p.Status,
		ProviderRef: p.TxnID,
		Reference:   p.OrderID,
		AmountMinor: amount,
		Currency:    p.Currency,
		Status:      status,
		OccurredAt:  occurred,
		Raw:         string(raw),
	}
	if err := e.validate(); err != nil {
		return WebhookEvent{}, err
	}
	return e, nil
}
