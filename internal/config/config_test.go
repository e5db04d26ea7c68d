package config

import (
	"strings"
	"testing"
	"time"
)

func setValidEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "local")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "payments")
	t.Setenv("DB_SSLMODE", "")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("JWT_ISSUER", "")
	t.Setenv("JWT_AUDIENCE", "")
	t.Setenv("JWT_ACCESS_TTL", "")
	t.Setenv("JWT_REFRESH_TTL", "")
	t.Setenv("SETTLEMENT_CURRENCY", "")
	t.Setenv("PLATFORM_FEE_BPS", "")
	t.Setenv("PAYOUT_MIN_MINOR", "")
	t.Setenv("PAYOUT_AUTO_REVIEW_MINOR", "")
	t.Setenv("PAYMENT_MODE_CACHE_TTL", "")
	t.Setenv("PUBLIC_BASE_URL", "")
}

func TestLoadAppliesDefaults(t *testing.T) {
	setValidEnv(t)

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if c.DB.SSLMode != "disable" {
		t.Fatalf("SSLMode = %q, want disable", c.DB.SSLMode)
	}
	if c.Auth.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("AccessTokenTTL = %s", c.Auth.AccessTokenTTL)
	}
	if c.Payments.SettlementCurrency != "XOF" {
		t.Fatalf("SettlementCurrency = %q", c.Payments.SettlementCurrency)
	}
	if c.Payments.PayoutMinMinor != 1_000 || c.Payments.PayoutAutoReviewMinor != 100_000 {
		t.Fatalf("payout defaults: min=%d review=%d", c.Payments.PayoutMinMinor, c.Payments.PayoutAutoReviewMinor)
	}
	if c.Payments.ModeCacheTTL != 5*time.Second {
		t.Fatalf("ModeCacheTTL = %s", c.Payments.ModeCacheTTL)
	}
	if c.Payments.PublicBaseURL != "http://localhost:8080" {
		t.Fatalf("PublicBaseURL = %q", c.Payments.PublicBaseURL)
	}
	if c.HTTPAddr() != ":8080" {
		t.Fatalf("HTTPAddr = %q", c.HTTPAddr())
	}
	if c.RedisAddr() != "localhost:6379" {
		t.Fatalf("RedisAddr = %q", c.RedisAddr())
	}
}

func TestLoadOverrides(t *testing.T) {
	setValidEnv(t)
	t.Setenv("PLATFORM_FEE_BPS", "250")
	t.Setenv("PAYMENT_MODE_CACHE_TTL", "10s")
	t.Setenv("PUBLIC_BASE_URL", "https://pay.example.com")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Payments.PlatformFeeBps != 250 {
		t.Fatalf("PlatformFeeBps = %d", c.Payments.PlatformFeeBps)
	}
	if c.Payments.ModeCacheTTL != 10*time.Second {
		t.Fatalf("ModeCacheTTL = %s", c.Payments.ModeCacheTTL)
	}
	if c.Payments.PublicBaseURL != "https://pay.example.com" {
		t.Fatalf("PublicBaseURL = %q", c.Payments.PublicBaseURL)
	}
}

func TestLoadCollectsAllErrors(t *testing.T) {
	setValidEnv(t)
	t.Setenv("APP_ENV", "qa")
	t.Setenv("DB_HOST", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error")
	}
	msg := err.Error()
	for _, want := range []string{"APP_ENV", "DB_HOST", "JWT_SECRET"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("error %q missing %s", msg, want)
		}
	}
}

func TestProductionRequiresExplicitPosture(t *testing.T) {
	setValidEnv(t)
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error")
	}
	msg := err.Error()
	for _, want := range []string{"DB_SSLMODE", "JWT_ISSUER", "JWT_AUDIENCE", "PUBLIC_BASE_URL"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("error %q missing %s", msg, want)
		}
	}
}

func TestModeCacheTTLUpperBound(t *testing.T) {
	setValidEnv(t)
	t.Setenv("PAYMENT_MODE_CACHE_TTL", "2m")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "PAYMENT_MODE_CACHE_TTL") {
		t.Fatalf("expected TTL bound error, got %v", err)
	}
}
