package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - Every sensitive mutation of the payment engine emits one event.
// - Audit failures must never roll back the triggering business operation.
//
// Storage (Postgres): table audit_events with an INSERT-only policy.
// Retention is a compliance concern handled outside this engine.
type Event struct {
	ID string `json:"id" db:"id"`

	// ActorScope is "owner" or "tenant"; ActorID identifies the user.
	ActorScope string `json:"actor_scope" db:"actor_scope"`
	ActorID    string `json:"actor_id" db:"actor_id"`

	// Action is the business verb, e.g. "checkout.created", "payout.approved".
	Action string `json:"action" db:"action"`

	// Entity plus EntityID locate the affected record.
	Entity   string `json:"entity" db:"entity"`
	EntityID string `json:"entity_id" db:"entity_id"`

	// Payload is optional JSON detail. Never place raw credentials here.
	Payload string `json:"payload,omitempty" db:"payload"`

	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent string `json:"user_agent,omitempty" db:"user_agent"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Actions recorded by the engine. Keep stable; dashboards key on these.
const (
	ActionCheckoutCreated    = "checkout.created"
	ActionOrderCreated       = "order.created"
	ActionPaymentSucceeded   = "payment.succeeded"
	ActionPaymentFailed      = "payment.failed"
	ActionRefundCreated      = "refund.created"
	ActionPayoutCreated      = "payout.created"
	ActionPayoutScreened     = "payout.screened"
	ActionPayoutApproved     = "payout.approved"
	ActionPayoutRejected     = "payout.rejected"
	ActionPayoutPaid         = "payout.paid"
	ActionPayoutFailed       = "payout.failed"
	ActionPayoutBadState     = "payout.invalid_transition"
	ActionPaymentModeChanged = "payment_mode.changed"
	ActionCredentialStored   = "provider_credential.stored"
	ActionPricingChanged     = "pricing.changed"
)
