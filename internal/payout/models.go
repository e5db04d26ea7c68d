package payout

import (
	"strings"
	"time"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusReview   Status = "review"
	StatusApproved Status = "approved"
	StatusPaid     Status = "paid"
	StatusFailed   Status = "failed"
	StatusRejected Status = "rejected"
)

// transitions is the only legal state machine. Everything else is an
// invalid transition and gets audited as such.
var transitions = map[Status][]Status{
	StatusPending:  {StatusReview},
	StatusReview:   {StatusApproved, StatusRejected},
	StatusApproved: {StatusPaid, StatusFailed},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusReview, StatusApproved, StatusPaid, StatusFailed, StatusRejected:
		return true
	}
	return false
}

func canTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Channel string

const (
	ChannelMobileMoney  Channel = "mobile_money"
	ChannelBankTransfer Channel = "bank_transfer"
	ChannelCash         Channel = "cash"
	ChannelCheck        Channel = "check"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelMobileMoney, ChannelBankTransfer, ChannelCash, ChannelCheck:
		return true
	}
	return false
}

// TargetDetails carries the beneficiary coordinates for the chosen
// channel. Unused fields stay empty.
type TargetDetails struct {
	BeneficiaryName string `json:"beneficiary_name"`
	PhoneNumber     string `json:"phone_number,omitempty"`
	BankName        string `json:"bank_name,omitempty"`
	AccountNumber   string `json:"account_number,omitempty"`
	PickupNote      string `json:"pickup_note,omitempty"`
}

// Redacted masks the sensitive digits for listings and audit payloads.
func (d TargetDetails) Redacted() TargetDetails {
	d.PhoneNumber = maskTail(d.PhoneNumber, 2)
	d.AccountNumber = maskTail(d.AccountNumber, 4)
	return d
}

func maskTail(s string, keep int) string {
	if s == "" {
		return ""
	}
	if len(s) <= keep {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-keep) + s[len(s)-keep:]
}

// Request is one tenant withdrawal moving through the review pipeline.
type Request struct {
	ID       string `json:"id" db:"id"`
	TenantID string `json:"tenant_id" db:"tenant_id"`

	AmountMinor int64  `json:"amount_minor" db:"amount_minor"`
	FeeMinor    int64  `json:"fee_minor" db:"fee_minor"`
	Currency    string `json:"currency" db:"currency"`

	Channel Channel       `json:"channel" db:"channel"`
	Details TargetDetails `json:"details" db:"details"`

	Status Status `json:"status" db:"status"`

	// Reason holds the rejection or failure note when terminal.
	Reason string `json:"reason,omitempty" db:"reason"`

	RequestedBy string `json:"requested_by" db:"requested_by"`
	ReviewedBy  string `json:"reviewed_by,omitempty" db:"reviewed_by"`

	// EvidenceURL points at the out-of-band disbursement proof attached
	// when the payout is marked paid.
	EvidenceURL string     `json:"evidence_url,omitempty" db:"evidence_url"`
	PaidAt      *time.Time `json:"paid_at,omitempty" db:"paid_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// RedactDetails returns a copy safe for listings: beneficiary digits are
// masked, everything else is untouched.
func (r Request) RedactDetails() Request {
	r.Details = r.Details.Redacted()
	return r
}
