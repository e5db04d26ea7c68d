package auth

import (
	"testing"
	"time"

	"logistics-payments/internal/config"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(config.AuthConfig{
		JWTSecret:       "test-secret",
		JWTIssuer:       "payments-api",
		JWTAudience:     "payments-clients",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 30 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestNewManagerRequiresSecret(t *testing.T) {
	if _, err := NewManager(config.AuthConfig{}); err == nil {
		t.Fatalf("expected error without secret")
	}
}

func TestIssueAndVerifyRoundtrip(t *testing.T) {
	m := newManager(t)
	now := time.Now()

	pair, err := m.IssuePair(now, "u1", "t1", ScopeTenant, "admin")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	claims, err := m.Verify(pair.AccessToken, TokenTypeAccess, now)
	if err != nil {
		t.Fatalf("Verify access: %v", err)
	}
	if claims.UserID != "u1" || claims.TenantID != "t1" || claims.Scope != ScopeTenant || claims.Role != "admin" {
		t.Fatalf("claims: %+v", claims)
	}

	if _, err := m.Verify(pair.RefreshToken, TokenTypeRefresh, now); err != nil {
		t.Fatalf("Verify refresh: %v", err)
	}
}

func TestVerifyRejectsWrongTokenType(t *testing.T) {
	m := newManager(t)
	now := time.Now()

	pair, err := m.IssuePair(now, "u1", "t1", ScopeTenant, "admin")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	if _, err := m.Verify(pair.RefreshToken, TokenTypeAccess, now); err == nil {
		t.Fatalf("refresh token accepted as access token")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m := newManager(t)
	now := time.Now()

	pair, err := m.IssuePair(now, "u1", "t1", ScopeTenant, "admin")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	// Past the TTL and the 30s skew allowance.
	later := now.Add(16 * time.Minute)
	if _, err := m.Verify(pair.AccessToken, TokenTypeAccess, later); err == nil {
		t.Fatalf("expired token accepted")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	m := newManager(t)
	now := time.Now()

	pair, err := m.IssuePair(now, "u1", "t1", ScopeTenant, "admin")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	other, err := NewManager(config.AuthConfig{JWTSecret: "another-secret"})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := other.Verify(pair.AccessToken, TokenTypeAccess, now); err == nil {
		t.Fatalf("token verified with wrong secret")
	}
}

func TestTenantScopeRequiresTenantID(t *testing.T) {
	m := newManager(t)
	now := time.Now()

	pair, err := m.IssuePair(now, "u1", "", ScopeTenant, "admin")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	if _, err := m.Verify(pair.AccessToken, TokenTypeAccess, now); err == nil {
		t.Fatalf("tenant-scoped token without tenant id accepted")
	}
}

func TestOwnerScopeNeedsNoTenant(t *testing.T) {
	m := newManager(t)
	now := time.Now()

	pair, err := m.IssuePair(now, "staff1", "", ScopeOwner, "finance")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	claims, err := m.Verify(pair.AccessToken, TokenTypeAccess, now)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Scope != ScopeOwner || claims.TenantID != "" {
		t.Fatalf("claims: %+v", claims)
	}
}
