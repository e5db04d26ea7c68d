package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"logistics-payments/internal/checkout"
	"logistics-payments/internal/paymode"
	"logistics-payments/internal/provider"
)

func (s *Server) getOwnMode(c *gin.Context) {
	a := actorFrom(c)
	mode, err := s.modes.Resolve(c.Request.Context(), a.TenantID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"mode": mode})
}

func (s *Server) adminGetMode(c *gin.Context) {
	mode, err := s.modes.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"tenant_id": c.Param("id"), "mode": mode})
}

type setModeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

func (s *Server) adminSetMode(c *gin.Context) {
	var req setModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	a := actorFrom(c)

	rec, err := s.modes.SetMode(c.Request.Context(), paymode.SetModeInput{
		TenantID:   c.Param("id"),
		Mode:       paymode.Mode(req.Mode),
		ActorScope: a.Scope,
		ActorID:    a.UserID,
		IP:         c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"payment_mode": rec})
}

type storeCredentialRequest struct {
	Provider  string `json:"provider" binding:"required"`
	PublicKey string `json:"public_key"`
	Secret    string `json:"secret" binding:"required"`
	Active    bool   `json:"active"`
}

func (s *Server) storeTenantCredential(c *gin.Context) {
	a := actorFrom(c)
	s.storeCredential(c, provider.CredScopeTenant, a.TenantID)
}

func (s *Server) adminStoreCredential(c *gin.Context) {
	s.storeCredential(c, provider.CredScopeOwner, checkout.OwnerScopeID)
}

func (s *Server) storeCredential(c *gin.Context, scope provider.CredScope, scopeID string) {
	var req storeCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	a := actorFrom(c)

	cred, err := s.creds.Store(c.Request.Context(), provider.StoreInput{
		Scope:      scope,
		ScopeID:    scopeID,
		Provider:   provider.Provider(req.Provider),
		PublicKey:  req.PublicKey,
		Secret:     req.Secret,
		Active:     req.Active,
		ActorScope: a.Scope,
		ActorID:    a.UserID,
		IP:         c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"credential": cred})
}

func (s *Server) listTenantCredentials(c *gin.Context) {
	a := actorFrom(c)
	creds, err := s.creds.List(c.Request.Context(), provider.CredScopeTenant, a.TenantID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"credentials": creds})
}

func (s *Server) adminListCredentials(c *gin.Context) {
	creds, err := s.creds.List(c.Request.Context(), provider.CredScopeOwner, checkout.OwnerScopeID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"credentials": creds})
}

func (s *Server) adminSetCredentialActive(active bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred, err := s.creds.SetActive(c.Request.Context(), c.Param("id"), active)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, http.StatusOK, gin.H{"credential": cred})
	}
}

func (s *Server) adminAuditTrail(c *gin.Context) {
	entity := c.Query("entity")
	entityID := c.Query("entity_id")
	if entity == "" || entityID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "entity and entity_id are required"})
		return
	}
	limit, _ := pageParams(c)
	events, err := s.auditor.Trail(c.Request.Context(), entity, entityID, limit)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"events": events})
}
