package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"logistics-payments/internal/checkout"
	"logistics-payments/internal/provider"
	"logistics-payments/pkg/utils"
)

// checkoutLockTTL bounds how long one checkout attempt can hold the
// per-order lock before it self-expires.
const checkoutLockTTL = 10 * time.Second

type createOrderRequest struct {
	CustomerID     string `json:"customer_id"`
	Currency       string `json:"currency" binding:"required"`
	AmountCcyMinor int64  `json:"amount_ccy_minor" binding:"required"`
}

func (s *Server) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	a := actorFrom(c)

	o, err := s.checkout.CreateOrder(c.Request.Context(), checkout.CreateOrderInput{
		TenantID:       a.TenantID,
		CustomerID:     req.CustomerID,
		Currency:       req.Currency,
		AmountCcyMinor: req.AmountCcyMinor,
		ActorScope:     a.Scope,
		ActorID:        a.UserID,
		IP:             c.ClientIP(),
		UserAgent:      c.Request.UserAgent(),
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"order": o})
}

func (s *Server) listOrders(c *gin.Context) {
	a := actorFrom(c)
	limit, offset := pageParams(c)
	orders, err := s.checkout.ListOrders(c.Request.Context(), a.TenantID, limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"orders": orders})
}

func (s *Server) getOrder(c *gin.Context) {
	a := actorFrom(c)
	o, err := s.checkout.GetOrder(c.Request.Context(), a.TenantID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"order": o})
}

func (s *Server) listPayments(c *gin.Context) {
	a := actorFrom(c)
	payments, err := s.checkout.Payments(c.Request.Context(), a.TenantID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"payments": payments})
}

type checkoutRequest struct {
	Channel     string `json:"channel" binding:"required"`
	Provider    string `json:"provider"`
	ReturnURL   string `json:"return_url"`
	CancelURL   string `json:"cancel_url"`
	SourceToken string `json:"source_token"`
}

func (s *Server) checkoutOrder(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	a := actorFrom(c)
	orderID := c.Param("id")
	ctx := c.Request.Context()

	// One checkout per order at a time: a double-submitted form must not
	// create two pending payments racing each other.
	if s.rdb != nil {
		token, acquired, err := utils.AcquireLock(ctx, s.rdb, "checkout:order:"+orderID, checkoutLockTTL)
		if err == nil && !acquired {
			c.JSON(http.StatusConflict, gin.H{"error": "checkout already in progress"})
			return
		}
		if err == nil {
			defer func() { _ = utils.ReleaseLock(ctx, s.rdb, "checkout:order:"+orderID, token) }()
		}
		// Redis trouble degrades to unguarded checkout rather than an outage.
	}

	res, err := s.checkout.Checkout(ctx, checkout.CheckoutInput{
		TenantID:    a.TenantID,
		OrderID:     orderID,
		Channel:     provider.Channel(req.Channel),
		Provider:    provider.Provider(req.Provider),
		ReturnURL:   req.ReturnURL,
		CancelURL:   req.CancelURL,
		SourceToken: req.SourceToken,
		ActorScope:  a.Scope,
		ActorID:     a.UserID,
		IP:          c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"checkout": res})
}

type refundRequest struct {
	AmountMinor int64  `json:"amount_minor" binding:"required"`
	Reason      string `json:"reason"`
}

func (s *Server) createRefund(c *gin.Context) {
	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	a := actorFrom(c)

	r, err := s.checkout.Refund(c.Request.Context(), checkout.RefundInput{
		TenantID:    a.TenantID,
		OrderID:     c.Param("id"),
		AmountMinor: req.AmountMinor,
		Reason:      req.Reason,
		ActorScope:  a.Scope,
		ActorID:     a.UserID,
		IP:          c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"refund": r})
}

func (s *Server) listRefunds(c *gin.Context) {
	a := actorFrom(c)
	refunds, err := s.checkout.Refunds(c.Request.Context(), a.TenantID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"refunds": refunds})
}

func pageParams(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}
