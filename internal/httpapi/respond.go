package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"logistics-payments/internal/checkout"
	"logistics-payments/internal/fx"
	"logistics-payments/internal/paymode"
	"logistics-payments/internal/payout"
	"logistics-payments/internal/pricing"
	"logistics-payments/internal/provider"
	"logistics-payments/internal/wallet"
	"logistics-payments/pkg/logger"
)

func ok(c *gin.Context, status int, payload gin.H) {
	out := gin.H{"success": true}
	for k, v := range payload {
		out[k] = v
	}
	c.JSON(status, out)
}

// fail maps domain errors onto the wire contract: {"error": "..."} with
// 404 for missing records, 409 for state-machine conflicts, 400 for the
// rest of the business taxonomy and 500 for everything unexpected.
func fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.FromGin(c).Error("request failed", "err", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, checkout.ErrOrderNotFound),
		errors.Is(err, checkout.ErrPaymentNotFound),
		errors.Is(err, payout.ErrNotFound),
		errors.Is(err, pricing.ErrNotFound),
		errors.Is(err, wallet.ErrNotFound),
		errors.Is(err, provider.ErrCredentialMissing):
		return http.StatusNotFound

	case errors.Is(err, payout.ErrInvalidStateTransition):
		return http.StatusConflict

	case errors.Is(err, checkout.ErrOrderAlreadyPaid),
		errors.Is(err, checkout.ErrProviderRequired),
		errors.Is(err, checkout.ErrChannelUnsupported),
		errors.Is(err, checkout.ErrProviderNotConfigured),
		errors.Is(err, checkout.ErrNoProviderAvailable),
		errors.Is(err, checkout.ErrOrderNotRefundable),
		errors.Is(err, checkout.ErrRefundExceedsPayment),
		errors.Is(err, checkout.ErrInvalidArgument),
		errors.Is(err, payout.ErrPayoutsNotApplicable),
		errors.Is(err, payout.ErrBelowMinimum),
		errors.Is(err, payout.ErrBadTarget),
		errors.Is(err, payout.ErrInvalidArgument),
		errors.Is(err, pricing.ErrInvalidMargin),
		errors.Is(err, pricing.ErrInvalidTiers),
		errors.Is(err, pricing.ErrInvalidArgument),
		errors.Is(err, wallet.ErrInsufficientFunds),
		errors.Is(err, wallet.ErrInvalidArgument),
		errors.Is(err, paymode.ErrInvalidMode),
		errors.Is(err, provider.ErrInvalidCredential),
		errors.Is(err, provider.ErrUnknownProvider),
		errors.Is(err, provider.ErrBadWebhook),
		errors.Is(err, fx.ErrUnsupportedPair):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}
