package provider

import (
	"context"
	"sync"
	"time"
)

// MemoryCredentialRepo is an in-memory CredentialRepository for tests.
type MemoryCredentialRepo struct {
	mu    sync.Mutex
	creds []Credential
}

func NewMemoryCredentialRepo() *MemoryCredentialRepo { return &MemoryCredentialRepo{} }

func (r *MemoryCredentialRepo) Insert(ctx context.Context, c Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creds = append(r.creds, c)
	return nil
}

func (r *MemoryCredentialRepo) GetByID(ctx context.Context, id string) (Credential, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.creds {
		if c.ID == id {
			return c, true, nil
		}
	}
	return Credential{}, false, nil
}

func (r *MemoryCredentialRepo) SetActive(ctx context.Context, id string, active bool, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.creds {
		if r.creds[i].ID == id {
			r.creds[i].Active = active
			r.creds[i].UpdatedAt = now
			return nil
		}
	}
	return ErrCredentialMissing
}

func (r *MemoryCredentialRepo) ListByScope(ctx context.Context, scope CredScope, scopeID string) ([]Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Credential
	for _, c := range r.creds {
		if c.Scope == scope && c.ScopeID == scopeID {
			out = append(out, c)
		}
	}
	return out, nil
}
