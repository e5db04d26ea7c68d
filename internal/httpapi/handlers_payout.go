package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"logistics-payments/internal/payout"
)

type createPayoutRequest struct {
	AmountMinor int64                `json:"amount_minor" binding:"required"`
	Currency    string               `json:"currency"`
	Channel     string               `json:"channel" binding:"required"`
	Details     payout.TargetDetails `json:"details" binding:"required"`
}

func (s *Server) createPayout(c *gin.Context) {
	var req createPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	a := actorFrom(c)

	r, err := s.payouts.Create(c.Request.Context(), payout.CreateInput{
		TenantID:    a.TenantID,
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		Channel:     payout.Channel(req.Channel),
		Details:     req.Details,
		ActorScope:  a.Scope,
		ActorID:     a.UserID,
		IP:          c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"payout": r})
}

func (s *Server) listPayouts(c *gin.Context) {
	a := actorFrom(c)
	limit, offset := pageParams(c)
	status := payout.Status(c.Query("status"))
	rs, err := s.payouts.ListByTenant(c.Request.Context(), a.TenantID, status, limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"payouts": redactPayouts(rs)})
}

func (s *Server) getPayout(c *gin.Context) {
	a := actorFrom(c)
	r, err := s.payouts.Get(c.Request.Context(), a.TenantID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"payout": r})
}

func (s *Server) adminListPayouts(c *gin.Context) {
	status := payout.Status(c.DefaultQuery("status", string(payout.StatusReview)))
	limit, offset := pageParams(c)
	rs, err := s.payouts.Queue(c.Request.Context(), status, limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"payouts": redactPayouts(rs)})
}

// redactPayouts masks beneficiary digits in list responses; the detail
// endpoint keeps the full coordinates for the actor who may act on them.
func redactPayouts(rs []payout.Request) []payout.Request {
	out := make([]payout.Request, len(rs))
	for i, r := range rs {
		out[i] = r.RedactDetails()
	}
	return out
}

type payoutActionRequest struct {
	Reason      string `json:"reason"`
	EvidenceURL string `json:"evidence_url"`
}

// payoutAction adapts one state-machine step into a handler.
func (s *Server) payoutAction(step func(context.Context, payout.ReviewInput) (payout.Request, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req payoutActionRequest
		_ = c.ShouldBindJSON(&req) // body is optional
		a := actorFrom(c)

		r, err := step(c.Request.Context(), payout.ReviewInput{
			ID:          c.Param("id"),
			Reason:      req.Reason,
			EvidenceURL: req.EvidenceURL,
			ActorScope:  a.Scope,
			ActorID:     a.UserID,
			IP:          c.ClientIP(),
			UserAgent:   c.Request.UserAgent(),
		})
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, http.StatusOK, gin.H{"payout": r})
	}
}
