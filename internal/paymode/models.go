package paymode

import "time"

// Mode is a tenant's payment operating mode.
//
// api_propre: the tenant charges through its own provider credentials and
// funds never touch the platform wallet.
// delegue: the platform brokers payments with its own credentials; funds
// accrue to the tenant wallet and leave through payouts.
type Mode string

const (
	ModeAPIPropre Mode = "api_propre"
	ModeDelegue   Mode = "delegue"
)

func (m Mode) Valid() bool {
	return m == ModeAPIPropre || m == ModeDelegue
}

// TenantMode is the persisted mode record. Exactly one row per tenant;
// a mode change is an explicit administrative act and is audited.
type TenantMode struct {
	TenantID  string    `json:"tenant_id" db:"tenant_id"`
	Mode      Mode      `json:"mode" db:"mode"`
	SinceAt   time.Time `json:"since_at" db:"since_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
