package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"logistics-payments/internal/audit"
	"logistics-payments/internal/fx"
	"logistics-payments/internal/paymode"
	"logistics-payments/internal/provider"
	"logistics-payments/internal/wallet"
)

// OwnerScopeID identifies the single platform aggregate for owner wallets
// and owner credentials.
const OwnerScopeID = "platform"

var (
	ErrOrderNotFound         = errors.New("checkout: order not found")
	ErrPaymentNotFound       = errors.New("checkout: no matching payment")
	ErrOrderAlreadyPaid      = errors.New("checkout: order already paid")
	ErrProviderRequired      = errors.New("checkout: provider required in own-API mode")
	ErrChannelUnsupported    = errors.New("checkout: provider does not serve this channel")
	ErrProviderNotConfigured = errors.New("checkout: no active credential for provider")
	ErrNoProviderAvailable   = errors.New("checkout: no provider available for channel")
	ErrOrderNotRefundable    = errors.New("checkout: order is not refundable")
	ErrRefundExceedsPayment  = errors.New("checkout: refund exceeds captured amount")
	ErrInvalidArgument       = errors.New("checkout: invalid argument")
)

type OrderRepository interface {
	Insert(ctx context.Context, o Order) error
	GetByID(ctx context.Context, id string) (Order, bool, error)
	GetByReference(ctx context.Context, reference string) (Order, bool, error)
	UpdateStatus(ctx context.Context, id string, status OrderStatus, now time.Time) error
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]Order, error)
}

type PaymentRepository interface {
	Insert(ctx context.Context, p Payment) error
	ListByOrder(ctx context.Context, orderID string) ([]Payment, error)
	UpdateStatus(ctx context.Context, id string, status PaymentStatus, providerRef, rawPayload string, now time.Time) error
}

type RefundRepository interface {
	Insert(ctx context.Context, r Refund) error
	SumByOrder(ctx context.Context, orderID string) (int64, error)
	ListByOrder(ctx context.Context, orderID string) ([]Refund, error)
}

// ClaimResult reports how a webhook claim resolved. Fresh means this
// delivery inserted the record; otherwise RecordID and Processed
// describe the earlier claim for the same tuple.
type ClaimResult struct {
	RecordID  string
	Fresh     bool
	Processed bool
}

// WebhookRepository must resolve concurrent claims for the same
// (provider, provider_ref, event_type) tuple atomically: exactly one
// delivery sees Fresh.
type WebhookRepository interface {
	Claim(ctx context.Context, rec WebhookRecord) (ClaimResult, error)
	MarkProcessed(ctx context.Context, id string) error
}

// ModeResolver yields the tenant's operating mode at checkout time.
type ModeResolver interface {
	Resolve(ctx context.Context, tenantID string) (paymode.Mode, error)
}

// CredentialSource picks credentials for routing. *provider.Registry
// satisfies it.
type CredentialSource interface {
	FindActive(ctx context.Context, scope provider.CredScope, scopeID string, p provider.Provider) (provider.Credential, bool, error)
	FirstActiveForChannel(ctx context.Context, scope provider.CredScope, scopeID string, ch provider.Channel) (provider.Credential, bool, error)
}

// WalletPoster settles funds movements. *wallet.Service satisfies it.
type WalletPoster interface {
	EnsureWallet(ctx context.Context, scope wallet.Scope, scopeID, currency string) (wallet.Wallet, error)
	ApplySplit(ctx context.Context, scope wallet.Scope, scopeID, idempotencyKey string, specs []wallet.EntrySpec) (wallet.Balance, error)
	Credit(ctx context.Context, scope wallet.Scope, scopeID string, typ wallet.EntryType, amountMinor int64, externalRef, idempotencyKey, metadata string) (wallet.Balance, error)
	Debit(ctx context.Context, scope wallet.Scope, scopeID string, typ wallet.EntryType, amountMinor int64, externalRef, idempotencyKey, metadata string) (wallet.Balance, error)
}

// Config carries the money policy knobs the service applies.
type Config struct {
	SettlementCurrency string
	PlatformFeeBps     int64
	PublicBaseURL      string
}

// Service drives the order lifecycle: creation, checkout routing,
// webhook settlement and refunds.
type Service struct {
	orders   OrderRepository
	payments PaymentRepository
	refunds  RefundRepository
	webhooks WebhookRepository

	modes    ModeResolver
	creds    CredentialSource
	adapters provider.AdapterTable
	wallets  WalletPoster
	rates    fx.Converter
	auditor  *audit.Service

	cfg   Config
	log   *slog.Logger
	clock func() time.Time
}

func NewService(
	orders OrderRepository,
	payments PaymentRepository,
	refunds RefundRepository,
	webhooks WebhookRepository,
	modes ModeResolver,
	creds CredentialSource,
	adapters provider.AdapterTable,
	wallets WalletPoster,
	rates fx.Converter,
	auditor *audit.Service,
	cfg Config,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	if cfg.SettlementCurrency == "" {
		cfg.SettlementCurrency = "XOF"
	}
	return &Service{
		orders:   orders,
		payments: payments,
		refunds:  refunds,
		webhooks: webhooks,
		modes:    modes,
		creds:    creds,
		adapters: adapters,
		wallets:  wallets,
		rates:    rates,
		auditor:  auditor,
		cfg:      cfg,
		log:      log,
		clock:    time.Now,
	}
}

type CreateOrderInput struct {
	TenantID       string
	CustomerID     string
	Currency       string
	AmountCcyMinor int64

	ActorScope string
	ActorID    string
	IP         string
	UserAgent  string
}

// CreateOrder records a billable intent and freezes its settlement view:
// the XOF amount and the rate used are captured now, not at payment time.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (Order, error) {
	if in.TenantID == "" || in.Currency == "" {
		return Order{}, ErrInvalidArgument
	}
	if in.AmountCcyMinor <= 0 {
		return Order{}, fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	}

	conv, err := fx.ConvertMinor(ctx, s.rates, in.AmountCcyMinor, in.Currency, s.cfg.SettlementCurrency)
	if err != nil {
		return Order{}, err
	}

	now := s.clock().UTC()
	o := Order{
		ID:             uuid.NewString(),
		TenantID:       in.TenantID,
		CustomerID:     in.CustomerID,
		Reference:      newReference(),
		Currency:       in.Currency,
		AmountCcyMinor: in.AmountCcyMinor,
		AmountXOFMinor: conv.ResultMinor,
		FxRateUsed:     conv.Rate.String(),
		Status:         OrderCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.orders.Insert(ctx, o); err != nil {
		return Order{}, err
	}

	s.auditor.Log(ctx, audit.Event{
		ActorScope: in.ActorScope,
		ActorID:    in.ActorID,
		Action:     audit.ActionOrderCreated,
		Entity:     "order",
		EntityID:   o.ID,
		Payload:    jsonPayload(map[string]any{"reference": o.Reference, "currency": o.Currency, "amount_ccy_minor": o.AmountCcyMinor, "amount_xof_minor": o.AmountXOFMinor}),
		IPAddress:  in.IP,
		UserAgent:  in.UserAgent,
	})
	return o, nil
}

func (s *Service) GetOrder(ctx context.Context, tenantID, orderID string) (Order, error) {
	o, ok, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if !ok || (tenantID != "" && o.TenantID != tenantID) {
		return Order{}, ErrOrderNotFound
	}
	return o, nil
}

func (s *Service) ListOrders(ctx context.Context, tenantID string, limit, offset int) ([]Order, error) {
	if tenantID == "" {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.orders.ListByTenant(ctx, tenantID, limit, offset)
}

type CheckoutInput struct {
	TenantID string
	OrderID  string
	Channel  provider.Channel

	// Provider is required in own-API mode, ignored in delegated mode.
	Provider provider.Provider

	ReturnURL string
	CancelURL string

	// SourceToken is forwarded to card providers that accept a
	// pre-tokenized payment source.
	SourceToken string

	ActorScope string
	ActorID    string
	IP         string
	UserAgent  string
}

type CheckoutResult struct {
	PaymentID   string            `json:"payment_id"`
	PaymentURL  string            `json:"payment_url"`
	Provider    provider.Provider `json:"provider"`
	Channel     provider.Channel  `json:"channel"`
	Mode        paymode.Mode      `json:"mode"`
	OrderRef    string            `json:"order_reference"`
	AmountMinor int64             `json:"amount_minor"`
	Currency    string            `json:"currency"`
}

// Checkout routes an order to a provider according to the tenant's mode
// and returns the redirect URL. The order itself is not mutated; only a
// pending payment row is written.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (CheckoutResult, error) {
	if in.TenantID == "" || in.OrderID == "" {
		return CheckoutResult{}, ErrInvalidArgument
	}
	if !in.Channel.Valid() {
		return CheckoutResult{}, fmt.Errorf("%w: unknown channel %q", ErrInvalidArgument, in.Channel)
	}

	o, err := s.GetOrder(ctx, in.TenantID, in.OrderID)
	if err != nil {
		return CheckoutResult{}, err
	}
	if o.Status == OrderSucceeded || o.Status == OrderRefunded || o.Status == OrderPartialRefund {
		return CheckoutResult{}, ErrOrderAlreadyPaid
	}

	mode, err := s.modes.Resolve(ctx, in.TenantID)
	if err != nil {
		return CheckoutResult{}, err
	}

	var cred provider.Credential
	var prov provider.Provider
	switch mode {
	case paymode.ModeAPIPropre:
		if in.Provider == "" {
			return CheckoutResult{}, ErrProviderRequired
		}
		if !provider.Supports(in.Provider, in.Channel) {
			return CheckoutResult{}, fmt.Errorf("%w: %s/%s", ErrChannelUnsupported, in.Provider, in.Channel)
		}
		c, ok, err := s.creds.FindActive(ctx, provider.CredScopeTenant, in.TenantID, in.Provider)
		if err != nil {
			return CheckoutResult{}, err
		}
		if !ok {
			return CheckoutResult{}, fmt.Errorf("%w: %s", ErrProviderNotConfigured, in.Provider)
		}
		cred, prov = c, in.Provider
	default:
		c, ok, err := s.creds.FirstActiveForChannel(ctx, provider.CredScopeOwner, OwnerScopeID, in.Channel)
		if err != nil {
			return CheckoutResult{}, err
		}
		if !ok {
			return CheckoutResult{}, fmt.Errorf("%w: %s", ErrNoProviderAvailable, in.Channel)
		}
		cred, prov = c, c.Provider
	}

	adapter, err := s.adapters.Lookup(prov)
	if err != nil {
		return CheckoutResult{}, err
	}

	returnURL := in.ReturnURL
	if returnURL == "" {
		returnURL = s.cfg.PublicBaseURL + "/payments/return?reference=" + o.Reference
	}
	cancelURL := in.CancelURL
	if cancelURL == "" {
		cancelURL = s.cfg.PublicBaseURL + "/payments/cancel?reference=" + o.Reference
	}

	paymentURL, err := adapter.BuildCheckoutURL(provider.CheckoutSpec{
		Reference:   o.Reference,
		AmountMinor: o.AmountCcyMinor,
		Currency:    o.Currency,
		ReturnURL:   returnURL,
		CancelURL:   cancelURL,
		PublicKey:   cred.PublicKey,
		SourceToken: in.SourceToken,
	})
	if err != nil {
		return CheckoutResult{}, err
	}

	now := s.clock().UTC()
	p := Payment{
		ID:             uuid.NewString(),
		OrderID:        o.ID,
		TenantID:       o.TenantID,
		Provider:       prov,
		Channel:        in.Channel,
		Mode:           mode,
		Currency:       o.Currency,
		AmountCcyMinor: o.AmountCcyMinor,
		AmountXOFMinor: o.AmountXOFMinor,
		FxRateUsed:     o.FxRateUsed,
		Status:         PaymentPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.payments.Insert(ctx, p); err != nil {
		return CheckoutResult{}, err
	}

	s.auditor.Log(ctx, audit.Event{
		ActorScope: in.ActorScope,
		ActorID:    in.ActorID,
		Action:     audit.ActionCheckoutCreated,
		Entity:     "payment",
		EntityID:   p.ID,
		Payload:    jsonPayload(map[string]any{"order_reference": o.Reference, "provider": prov, "channel": in.Channel, "mode": mode}),
		IPAddress:  in.IP,
		UserAgent:  in.UserAgent,
	})

	return CheckoutResult{
		PaymentID:   p.ID,
		PaymentURL:  paymentURL,
		Provider:    prov,
		Channel:     in.Channel,
		Mode:        mode,
		OrderRef:    o.Reference,
		AmountMinor: o.AmountCcyMinor,
		Currency:    o.Currency,
	}, nil
}

// WebhookOutcome summarizes how an incoming provider event was handled.
type WebhookOutcome struct {
	Duplicate bool                   `json:"duplicate"`
	Ignored   bool                   `json:"ignored"`
	OrderRef  string                 `json:"order_reference,omitempty"`
	Status    provider.WebhookStatus `json:"status,omitempty"`
}

// HandleWebhook normalizes, claims and applies one provider event.
//
// The claim on (provider, provider_ref, event_type) reserves the event
// but only MarkProcessed finalizes it. A redelivery of a processed event
// is a cheap no-op; a redelivery of a claimed-but-unprocessed event, the
// signature of a crash or transient failure mid-application, is applied
// again. Ledger idempotency keys derived from the provider reference
// make that reapplication safe.
func (s *Service) HandleWebhook(ctx context.Context, p provider.Provider, raw []byte) (WebhookOutcome, error) {
	adapter, err := s.adapters.Lookup(p)
	if err != nil {
		return WebhookOutcome{}, err
	}
	evt, err := adapter.NormalizeWebhook(raw)
	if err != nil {
		if errors.Is(err, provider.ErrIgnoredEventType) {
			return WebhookOutcome{Ignored: true}, nil
		}
		return WebhookOutcome{}, err
	}

	rec := WebhookRecord{
		ID:          uuid.NewString(),
		Provider:    p,
		EventType:   evt.EventType,
		ProviderRef: evt.ProviderRef,
		RawJSON:     evt.Raw,
		ReceivedAt:  s.clock().UTC(),
	}
	claim, err := s.webhooks.Claim(ctx, rec)
	if err != nil {
		return WebhookOutcome{}, err
	}
	if !claim.Fresh {
		if claim.Processed {
			s.log.InfoContext(ctx, "webhook replayed, skipping",
				"provider", p, "provider_ref", evt.ProviderRef, "event_type", evt.EventType)
			return WebhookOutcome{Duplicate: true, OrderRef: evt.Reference}, nil
		}
		// An earlier delivery claimed the event but never finished.
		s.log.WarnContext(ctx, "reapplying unfinished webhook",
			"provider", p, "provider_ref", evt.ProviderRef, "event_type", evt.EventType)
	}

	o, ok, err := s.orders.GetByReference(ctx, evt.Reference)
	if err != nil {
		return WebhookOutcome{}, err
	}
	if !ok {
		return WebhookOutcome{}, fmt.Errorf("%w: reference %s", ErrOrderNotFound, evt.Reference)
	}

	pay, ok, err := s.paymentFor(ctx, o.ID, p, evt.Status)
	if err != nil {
		return WebhookOutcome{}, err
	}
	if !ok {
		return WebhookOutcome{}, fmt.Errorf("%w: order %s provider %s", ErrPaymentNotFound, o.ID, p)
	}

	switch evt.Status {
	case provider.WebhookSucceeded:
		err = s.applySuccess(ctx, o, pay, evt)
	case provider.WebhookFailed:
		err = s.applyFailure(ctx, o, pay, evt)
	}
	if err != nil {
		return WebhookOutcome{}, err
	}

	if err := s.webhooks.MarkProcessed(ctx, claim.RecordID); err != nil {
		// The business effect is committed. A stale processed flag means
		// the next redelivery reapplies the event, which the ledger keys
		// absorb.
		s.log.ErrorContext(ctx, "mark webhook processed failed", "id", claim.RecordID, "err", err)
	}
	return WebhookOutcome{OrderRef: o.Reference, Status: evt.Status}, nil
}

func (s *Service) applySuccess(ctx context.Context, o Order, pay Payment, evt provider.WebhookEvent) error {
	now := s.clock().UTC()
	if err := s.payments.UpdateStatus(ctx, pay.ID, PaymentSucceeded, evt.ProviderRef, evt.Raw, now); err != nil {
		return err
	}
	if o.Status != OrderSucceeded {
		if err := s.orders.UpdateStatus(ctx, o.ID, OrderSucceeded, now); err != nil {
			return err
		}
	}

	// Only delegated-mode money flows through platform wallets. In own-API
	// mode the provider settles directly with the tenant.
	if pay.Mode == paymode.ModeDelegue {
		fee := feeFor(pay.AmountXOFMinor, s.cfg.PlatformFeeBps)
		key := fmt.Sprintf("wh:%s:%s", pay.Provider, evt.ProviderRef)
		meta := jsonPayload(map[string]any{"order_reference": o.Reference})

		if _, err := s.wallets.EnsureWallet(ctx, wallet.ScopeTenant, o.TenantID, s.cfg.SettlementCurrency); err != nil {
			return err
		}
		specs := []wallet.EntrySpec{{
			Type:        wallet.EntryTypePaymentCredit,
			AmountMinor: pay.AmountXOFMinor,
			ExternalRef: pay.ID,
			Metadata:    meta,
		}}
		if fee > 0 {
			specs = append(specs, wallet.EntrySpec{
				Type:        wallet.EntryTypePlatformFee,
				AmountMinor: -fee,
				ExternalRef: pay.ID,
				Metadata:    meta,
			})
		}
		if _, err := s.wallets.ApplySplit(ctx, wallet.ScopeTenant, o.TenantID, key, specs); err != nil {
			return err
		}

		if fee > 0 {
			if _, err := s.wallets.EnsureWallet(ctx, wallet.ScopeOwner, OwnerScopeID, s.cfg.SettlementCurrency); err != nil {
				return err
			}
			if _, err := s.wallets.Credit(ctx, wallet.ScopeOwner, OwnerScopeID, wallet.EntryTypePlatformFee, fee, pay.ID, key+":owner", meta); err != nil {
				return err
			}
		}
	}

	s.auditor.Log(ctx, audit.Event{
		ActorScope: "owner",
		ActorID:    "webhook:" + string(pay.Provider),
		Action:     audit.ActionPaymentSucceeded,
		Entity:     "payment",
		EntityID:   pay.ID,
		Payload:    jsonPayload(map[string]any{"order_reference": o.Reference, "provider_ref": evt.ProviderRef, "amount_xof_minor": pay.AmountXOFMinor, "mode": pay.Mode}),
	})
	return nil
}

func (s *Service) applyFailure(ctx context.Context, o Order, pay Payment, evt provider.WebhookEvent) error {
	now := s.clock().UTC()
	if err := s.payments.UpdateStatus(ctx, pay.ID, PaymentFailed, evt.ProviderRef, evt.Raw, now); err != nil {
		return err
	}
	// A failed attempt only fails the order while nothing has succeeded.
	if o.Status == OrderCreated || o.Status == OrderPending {
		if err := s.orders.UpdateStatus(ctx, o.ID, OrderFailed, now); err != nil {
			return err
		}
	}

	s.auditor.Log(ctx, audit.Event{
		ActorScope: "owner",
		ActorID:    "webhook:" + string(pay.Provider),
		Action:     audit.ActionPaymentFailed,
		Entity:     "payment",
		EntityID:   pay.ID,
		Payload:    jsonPayload(map[string]any{"order_reference": o.Reference, "provider_ref": evt.ProviderRef}),
	})
	return nil
}

type RefundInput struct {
	TenantID    string
	OrderID     string
	AmountMinor int64 // settlement currency
	Reason      string

	ActorScope string
	ActorID    string
	IP         string
	UserAgent  string
}

// Refund returns part or all of a captured payment. The running total of
// refunds is capped at the captured settlement amount; in delegated mode
// the tenant wallet is debited before the refund row is written.
func (s *Service) Refund(ctx context.Context, in RefundInput) (Refund, error) {
	if in.TenantID == "" || in.OrderID == "" {
		return Refund{}, ErrInvalidArgument
	}
	if in.AmountMinor <= 0 {
		return Refund{}, fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	}

	o, err := s.GetOrder(ctx, in.TenantID, in.OrderID)
	if err != nil {
		return Refund{}, err
	}
	if o.Status != OrderSucceeded && o.Status != OrderPartialRefund {
		return Refund{}, ErrOrderNotRefundable
	}

	pay, ok, err := s.succeededPaymentFor(ctx, o.ID)
	if err != nil {
		return Refund{}, err
	}
	if !ok {
		return Refund{}, ErrPaymentNotFound
	}

	refunded, err := s.refunds.SumByOrder(ctx, o.ID)
	if err != nil {
		return Refund{}, err
	}
	if refunded+in.AmountMinor > pay.AmountXOFMinor {
		return Refund{}, fmt.Errorf("%w: %d refunded + %d requested > %d captured",
			ErrRefundExceedsPayment, refunded, in.AmountMinor, pay.AmountXOFMinor)
	}

	now := s.clock().UTC()
	r := Refund{
		ID:          uuid.NewString(),
		OrderID:     o.ID,
		PaymentID:   pay.ID,
		AmountMinor: in.AmountMinor,
		Reason:      in.Reason,
		Status:      RefundSucceeded,
		CreatedAt:   now,
	}

	if pay.Mode == paymode.ModeDelegue {
		meta := jsonPayload(map[string]any{"order_reference": o.Reference, "reason": in.Reason})
		if _, err := s.wallets.Debit(ctx, wallet.ScopeTenant, o.TenantID, wallet.EntryTypeRefundDebit, in.AmountMinor, pay.ID, "refund:"+r.ID, meta); err != nil {
			return Refund{}, err
		}
	}

	if err := s.refunds.Insert(ctx, r); err != nil {
		return Refund{}, err
	}

	status := OrderPartialRefund
	if refunded+in.AmountMinor == pay.AmountXOFMinor {
		status = OrderRefunded
	}
	if err := s.orders.UpdateStatus(ctx, o.ID, status, now); err != nil {
		return Refund{}, err
	}

	s.auditor.Log(ctx, audit.Event{
		ActorScope: in.ActorScope,
		ActorID:    in.ActorID,
		Action:     audit.ActionRefundCreated,
		Entity:     "refund",
		EntityID:   r.ID,
		Payload:    jsonPayload(map[string]any{"order_reference": o.Reference, "amount_minor": in.AmountMinor, "order_status": status}),
		IPAddress:  in.IP,
		UserAgent:  in.UserAgent,
	})
	return r, nil
}

func (s *Service) Refunds(ctx context.Context, tenantID, orderID string) ([]Refund, error) {
	if _, err := s.GetOrder(ctx, tenantID, orderID); err != nil {
		return nil, err
	}
	return s.refunds.ListByOrder(ctx, orderID)
}

func (s *Service) Payments(ctx context.Context, tenantID, orderID string) ([]Payment, error) {
	if _, err := s.GetOrder(ctx, tenantID, orderID); err != nil {
		return nil, err
	}
	return s.payments.ListByOrder(ctx, orderID)
}

// paymentFor returns the most recent pending attempt for the order on
// the given provider. When none is pending it falls back to the latest
// attempt already in the terminal status the event reports, so that a
// webhook reapplied after a partial failure still finds its payment.
func (s *Service) paymentFor(ctx context.Context, orderID string, p provider.Provider, ws provider.WebhookStatus) (Payment, bool, error) {
	all, err := s.payments.ListByOrder(ctx, orderID)
	if err != nil {
		return Payment{}, false, err
	}
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Status == PaymentPending && all[i].Provider == p {
			return all[i], true, nil
		}
	}
	terminal := PaymentFailed
	if ws == provider.WebhookSucceeded {
		terminal = PaymentSucceeded
	}
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Status == terminal && all[i].Provider == p {
			return all[i], true, nil
		}
	}
	return Payment{}, false, nil
}

func (s *Service) succeededPaymentFor(ctx context.Context, orderID string) (Payment, bool, error) {
	all, err := s.payments.ListByOrder(ctx, orderID)
	if err != nil {
		return Payment{}, false, err
	}
	for _, p := range all {
		if p.Status == PaymentSucceeded {
			return p, true, nil
		}
	}
	return Payment{}, false, nil
}

// feeFor computes the platform fee in minor units, half-up.
func feeFor(amountMinor, bps int64) int64 {
	if bps <= 0 || amountMinor <= 0 {
		return 0
	}
	return (amountMinor*bps + 5_000) / 10_000
}

func newReference() string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

func jsonPayload(v map[string]any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
