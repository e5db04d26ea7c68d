package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// ActorScope distinguishes platform operators from tenant users.
type ActorScope string

const (
	ScopeOwner  ActorScope = "owner"
	ScopeTenant ActorScope = "tenant"
)

// Claims are the only supported JWT claims shape for this service.
// The identity provider is an external collaborator; this engine only
// verifies tokens and extracts {user, tenant, scope, role}.
//
// Multi-tenant invariant: TenantID must be present for tenant-scope actors.
// Owner-scope actors (platform staff) carry no tenant id.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string     `json:"user_id"`
	TenantID  string     `json:"tenant_id,omitempty"`
	Scope     ActorScope `json:"scope"`
	Role      string     `json:"role"`
	TokenType TokenType  `json:"token_type"`
}
