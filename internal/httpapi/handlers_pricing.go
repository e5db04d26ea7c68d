package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"logistics-payments/internal/pricing"
)

type setMarginRequest struct {
	Kind   string             `json:"kind" binding:"required"`
	Code   string             `json:"code" binding:"required"`
	Margin pricing.MarginRule `json:"margin" binding:"required"`
}

func (s *Server) setMargin(c *gin.Context) {
	var req setMarginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	a := actorFrom(c)

	tp, err := s.pricing.SetMargin(c.Request.Context(), pricing.SetMarginInput{
		TenantID: a.TenantID,
		Kind:     pricing.ItemKind(req.Kind),
		Code:     req.Code,
		Margin:   req.Margin,
	}, pricingActor(c, a))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"price": tp})
}

func (s *Server) listTenantPrices(c *gin.Context) {
	a := actorFrom(c)
	prices, err := s.pricing.TenantPrices(c.Request.Context(), a.TenantID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"prices": prices})
}

func (s *Server) resalePrice(c *gin.Context) {
	a := actorFrom(c)
	resale, err := s.pricing.ResalePrice(c.Request.Context(), a.TenantID, pricing.ItemKind(c.Param("kind")), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"resale_minor": resale})
}

type upsertRateCardRequest struct {
	Code     string             `json:"code" binding:"required"`
	Currency string             `json:"currency" binding:"required"`
	Tiers    []pricing.RateTier `json:"tiers" binding:"required"`
}

func (s *Server) upsertRateCard(c *gin.Context) {
	var req upsertRateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	a := actorFrom(c)

	card, err := s.pricing.UpsertRateCard(c.Request.Context(), pricing.UpsertRateCardInput{
		TenantID: a.TenantID,
		Code:     req.Code,
		Currency: req.Currency,
		Tiers:    req.Tiers,
	}, pricingActor(c, a))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"rate_card": card})
}

func (s *Server) listRateCards(c *gin.Context) {
	a := actorFrom(c)
	cards, err := s.pricing.RateCards(c.Request.Context(), a.TenantID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"rate_cards": cards})
}

func (s *Server) unitPrice(c *gin.Context) {
	a := actorFrom(c)
	qty, err := strconv.ParseInt(c.Query("qty"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "qty must be an integer"})
		return
	}
	price, err := s.pricing.UnitPrice(c.Request.Context(), a.TenantID, c.Param("code"), qty)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"unit_minor": price, "qty": qty})
}

type upsertItemRequest struct {
	Kind      string `json:"kind" binding:"required"`
	Code      string `json:"code" binding:"required"`
	Name      string `json:"name"`
	Currency  string `json:"currency" binding:"required"`
	BaseMinor int64  `json:"base_minor"`
	Active    bool   `json:"active"`
}

func (s *Server) adminUpsertItem(c *gin.Context) {
	var req upsertItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	a := actorFrom(c)

	it, err := s.pricing.UpsertItem(c.Request.Context(), pricing.UpsertItemInput{
		Kind:      pricing.ItemKind(req.Kind),
		Code:      req.Code,
		Name:      req.Name,
		Currency:  req.Currency,
		BaseMinor: req.BaseMinor,
		Active:    req.Active,
	}, pricingActor(c, a))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"item": it})
}

func (s *Server) adminListItems(c *gin.Context) {
	items, err := s.pricing.Items(c.Request.Context(), pricing.ItemKind(c.Param("kind")))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"items": items})
}

func pricingActor(c *gin.Context, a actor) pricing.Actor {
	return pricing.Actor{
		Scope:     a.Scope,
		ID:        a.UserID,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
