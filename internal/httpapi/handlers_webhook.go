package httpapi

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"logistics-payments/internal/provider"
	"logistics-payments/pkg/logger"
)

// maxWebhookBody caps provider callback payloads.
const maxWebhookBody = 1 << 20

// handleWebhook receives provider callbacks. Replays return 200 so the
// provider stops retrying; malformed payloads return 400 for the same
// reason in the other direction.
func (s *Server) handleWebhook(c *gin.Context) {
	p := provider.Provider(c.Param("provider"))
	if !p.Valid() {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil || len(raw) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty body"})
		return
	}

	outcome, err := s.checkout.HandleWebhook(c.Request.Context(), p, raw)
	if err != nil {
		logger.FromGin(c).Warn("webhook rejected", "provider", p, "err", err)
		fail(c, err)
		return
	}

	ok(c, http.StatusOK, gin.H{"outcome": outcome})
}
