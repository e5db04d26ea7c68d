package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"logistics-payments/internal/checkout"
	"logistics-payments/internal/payout"
	"logistics-payments/internal/wallet"
)

func TestStatusForMapsDomainErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{checkout.ErrOrderNotFound, http.StatusNotFound},
		{wallet.ErrNotFound, http.StatusNotFound},
		{payout.ErrInvalidStateTransition, http.StatusConflict},
		{checkout.ErrOrderAlreadyPaid, http.StatusBadRequest},
		{checkout.ErrNoProviderAvailable, http.StatusBadRequest},
		{wallet.ErrInsufficientFunds, http.StatusBadRequest},
		{payout.ErrBelowMinimum, http.StatusBadRequest},
		{errors.New("database on fire"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := statusFor(c.err); got != c.want {
			t.Fatalf("statusFor(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestStatusForUnwrapsErrorChains(t *testing.T) {
	wrapped := fmt.Errorf("approve payout: %w", payout.ErrInvalidStateTransition)
	if got := statusFor(wrapped); got != http.StatusConflict {
		t.Fatalf("statusFor(wrapped) = %d, want 409", got)
	}
	deep := fmt.Errorf("checkout: %w", fmt.Errorf("route: %w", checkout.ErrProviderNotConfigured))
	if got := statusFor(deep); got != http.StatusBadRequest {
		t.Fatalf("statusFor(deep) = %d, want 400", got)
	}
}
