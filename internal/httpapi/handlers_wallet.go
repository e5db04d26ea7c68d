package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"logistics-payments/internal/wallet"
)

func (s *Server) walletBalance(c *gin.Context) {
	a := actorFrom(c)
	ctx := c.Request.Context()

	// First read creates the wallet so a fresh tenant sees zeros, not 404.
	if _, err := s.wallets.EnsureWallet(ctx, wallet.ScopeTenant, a.TenantID, s.cfg.Payments.SettlementCurrency); err != nil {
		fail(c, err)
		return
	}
	bal, err := s.wallets.Balance(ctx, wallet.ScopeTenant, a.TenantID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"balance": bal})
}

func (s *Server) walletEntries(c *gin.Context) {
	a := actorFrom(c)
	limit, offset := pageParams(c)
	entries, err := s.wallets.Entries(c.Request.Context(), wallet.ScopeTenant, a.TenantID, limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"entries": entries})
}

func (s *Server) walletReconcile(c *gin.Context) {
	a := actorFrom(c)
	res, err := s.wallets.Reconcile(c.Request.Context(), wallet.ScopeTenant, a.TenantID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"reconciliation": res})
}

func (s *Server) adminWalletBalance(c *gin.Context) {
	scope, scopeID, err := walletPathParams(c)
	if err != nil {
		fail(c, err)
		return
	}
	bal, err := s.wallets.Balance(c.Request.Context(), scope, scopeID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"balance": bal})
}

func (s *Server) adminWalletReconcile(c *gin.Context) {
	scope, scopeID, err := walletPathParams(c)
	if err != nil {
		fail(c, err)
		return
	}
	res, err := s.wallets.Reconcile(c.Request.Context(), scope, scopeID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"reconciliation": res})
}

func walletPathParams(c *gin.Context) (wallet.Scope, string, error) {
	scope := wallet.Scope(c.Param("scope"))
	if scope != wallet.ScopeOwner && scope != wallet.ScopeTenant {
		return "", "", wallet.ErrInvalidArgument
	}
	return scope, c.Param("id"), nil
}
