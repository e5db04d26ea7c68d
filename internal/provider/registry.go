package provider

import (
	"context"
	"errors"
	"time"

	"logistics-payments/internal/audit"

	"github.com/google/uuid"
)

// CredScope tells whose credential this is: the platform's or a tenant's.
type CredScope string

const (
	CredScopeOwner  CredScope = "owner"
	CredScopeTenant CredScope = "tenant"
)

// Credential stores the keys for one (scope, provider) integration.
// Secret is an opaque blob; it never leaves the registry in JSON form.
type Credential struct {
	ID       string    `json:"id" db:"id"`
	Scope    CredScope `json:"scope" db:"scope"`
	ScopeID  string    `json:"scope_id" db:"scope_id"`
	Provider Provider  `json:"provider" db:"provider"`

	PublicKey string `json:"public_key" db:"public_key"`
	Secret    string `json:"-" db:"secret"`

	Active bool `json:"active" db:"active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CredentialRepository is the persistence contract for the registry.
// ListByScope must return credentials in creation order; delegated routing
// relies on it for determinism.
type CredentialRepository interface {
	Insert(ctx context.Context, c Credential) error
	GetByID(ctx context.Context, id string) (Credential, bool, error)
	SetActive(ctx context.Context, id string, active bool, now time.Time) error
	ListByScope(ctx context.Context, scope CredScope, scopeID string) ([]Credential, error)
}

var (
	ErrInvalidCredential = errors.New("provider: invalid credential")
	ErrCredentialMissing = errors.New("provider: credential not found")
)

// Registry stores per-tenant and per-platform provider credentials and
// answers routing lookups.
type Registry struct {
	repo  CredentialRepository
	audit *audit.Service
	clock func() time.Time
}

func NewRegistry(repo CredentialRepository, auditor *audit.Service) *Registry {
	return &Registry{repo: repo, audit: auditor, clock: time.Now}
}

// StoreInput carries a new credential plus audit context.
type StoreInput struct {
	Scope     CredScope
	ScopeID   string
	Provider  Provider
	PublicKey string
	Secret    string
	Active    bool

	ActorScope string
	ActorID    string
	IP         string
	UserAgent  string
}

func (r *Registry) Store(ctx context.Context, in StoreInput) (Credential, error) {
	if in.ScopeID == "" || !in.Provider.Valid() {
		return Credential{}, ErrInvalidCredential
	}
	if in.Scope != CredScopeOwner && in.Scope != CredScopeTenant {
		return Credential{}, ErrInvalidCredential
	}
	if in.Secret == "" {
		return Credential{}, ErrInvalidCredential
	}

	now := r.clock().UTC()
	c := Credential{
		ID:        uuid.NewString(),
		Scope:     in.Scope,
		ScopeID:   in.ScopeID,
		Provider:  in.Provider,
		PublicKey: in.PublicKey,
		Secret:    in.Secret,
		Active:    in.Active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.repo.Insert(ctx, c); err != nil {
		return Credential{}, err
	}

	if r.audit != nil {
		// The audit payload names the provider, never the secret.
		r.audit.Log(ctx, audit.Event{
			ActorScope: in.ActorScope,
			ActorID:    in.ActorID,
			Action:     audit.ActionCredentialStored,
			Entity:     "provider_credential",
			EntityID:   c.ID,
			Payload:    `{"provider":"` + string(c.Provider) + `","scope":"` + string(c.Scope) + `"}`,
			IPAddress:  in.IP,
			UserAgent:  in.UserAgent,
		})
	}
	return c, nil
}

func (r *Registry) SetActive(ctx context.Context, id string, active bool) (Credential, error) {
	c, ok, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return Credential{}, err
	}
	if !ok {
		return Credential{}, ErrCredentialMissing
	}
	now := r.clock().UTC()
	if err := r.repo.SetActive(ctx, id, active, now); err != nil {
		return Credential{}, err
	}
	c.Active = active
	c.UpdatedAt = now
	return c, nil
}

// FindActive returns the first active credential for (scope, scope_id,
// provider) in creation order.
func (r *Registry) FindActive(ctx context.Context, scope CredScope, scopeID string, p Provider) (Credential, bool, error) {
	creds, err := r.repo.ListByScope(ctx, scope, scopeID)
	if err != nil {
		return Credential{}, false, err
	}
	for _, c := range creds {
		if c.Provider == p && c.Active {
			return c, true, nil
		}
	}
	return Credential{}, false, nil
}

// FirstActiveForChannel walks the channel's providers in routing order and
// returns the first one with an active credential.
func (r *Registry) FirstActiveForChannel(ctx context.Context, scope CredScope, scopeID string, ch Channel) (Credential, bool, error) {
	creds, err := r.repo.ListByScope(ctx, scope, scopeID)
	if err != nil {
		return Credential{}, false, err
	}
	for _, p := range ProvidersForChannel(ch) {
		for _, c := range creds {
			if c.Provider == p && c.Active {
				return c, true, nil
			}
		}
	}
	return Credential{}, false, nil
}

// List returns the scope's credentials with secrets withheld by the
// Credential JSON shape. Intended for admin screens.
func (r *Registry) List(ctx context.Context, scope CredScope, scopeID string) ([]Credential, error) {
	if scopeID == "" {
		return nil, ErrInvalidCredential
	}
	return r.repo.ListByScope(ctx, scope, scopeID)
}
