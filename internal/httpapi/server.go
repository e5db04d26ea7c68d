package httpapi

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"logistics-payments/internal/audit"
	"logistics-payments/internal/auth"
	"logistics-payments/internal/checkout"
	"logistics-payments/internal/config"
	"logistics-payments/internal/paymode"
	"logistics-payments/internal/payout"
	"logistics-payments/internal/pricing"
	"logistics-payments/internal/provider"
	"logistics-payments/internal/rbac"
	"logistics-payments/internal/wallet"
	"logistics-payments/pkg/logger"
	"logistics-payments/pkg/utils"
)

// Server wires the payment engine behind the HTTP surface.
type Server struct {
	cfg config.Config
	log *slog.Logger

	db  *sql.DB
	rdb *redis.Client

	tokens   *auth.Manager
	checkout *checkout.Service
	wallets  *wallet.Service
	payouts  *payout.Service
	pricing  *pricing.Service
	modes    *paymode.Service
	creds    *provider.Registry
	auditor  *audit.Service
}

type Deps struct {
	Config config.Config
	Log    *slog.Logger

	DB  *sql.DB
	RDB *redis.Client

	Tokens   *auth.Manager
	Checkout *checkout.Service
	Wallets  *wallet.Service
	Payouts  *payout.Service
	Pricing  *pricing.Service
	Modes    *paymode.Service
	Creds    *provider.Registry
	Auditor  *audit.Service
}

func New(d Deps) *Server {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return &Server{
		cfg:      d.Config,
		log:      d.Log,
		db:       d.DB,
		rdb:      d.RDB,
		tokens:   d.Tokens,
		checkout: d.Checkout,
		wallets:  d.Wallets,
		payouts:  d.Payouts,
		pricing:  d.Pricing,
		modes:    d.Modes,
		creds:    d.Creds,
		auditor:  d.Auditor,
	}
}

// Router builds the gin engine with the full route table.
func (s *Server) Router() *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(s.log))

	r.GET("/healthz", s.health)

	// Provider callbacks authenticate via payload verification in the
	// adapters, not via bearer tokens.
	r.POST("/webhooks/:provider", s.handleWebhook)

	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(s.tokens))

	tenant := v1.Group("")
	tenant.Use(rbac.RequireTenant())
	{
		tenant.POST("/orders", s.createOrder)
		tenant.GET("/orders", s.listOrders)
		tenant.GET("/orders/:id", s.getOrder)
		tenant.GET("/orders/:id/payments", s.listPayments)
		tenant.POST("/orders/:id/checkout", s.checkoutOrder)
		tenant.GET("/orders/:id/refunds", s.listRefunds)
		tenant.POST("/orders/:id/refunds", rbac.RequireAnyRole(rbac.RoleAdmin, rbac.RoleFinance), s.createRefund)

		tenant.GET("/wallet", s.walletBalance)
		tenant.GET("/wallet/entries", s.walletEntries)
		tenant.GET("/wallet/reconcile", s.walletReconcile)

		tenant.POST("/payouts", rbac.RequireAnyRole(rbac.RoleAdmin, rbac.RoleFinance), s.createPayout)
		tenant.GET("/payouts", s.listPayouts)
		tenant.GET("/payouts/:id", s.getPayout)

		tenant.GET("/payment-mode", s.getOwnMode)

		tenant.POST("/credentials", rbac.RequireAnyRole(rbac.RoleAdmin), s.storeTenantCredential)
		tenant.GET("/credentials", s.listTenantCredentials)

		tenant.PUT("/pricing/margins", rbac.RequireAnyRole(rbac.RoleAdmin), s.setMargin)
		tenant.GET("/pricing/prices", s.listTenantPrices)
		tenant.GET("/pricing/items/:kind/:code", s.resalePrice)
		tenant.PUT("/pricing/rate-cards", rbac.RequireAnyRole(rbac.RoleAdmin), s.upsertRateCard)
		tenant.GET("/pricing/rate-cards", s.listRateCards)
		tenant.GET("/pricing/rate-cards/:code/unit-price", s.unitPrice)
	}

	admin := v1.Group("/admin")
	admin.Use(rbac.RequireOwnerScope(), rbac.RequireAnyRole(rbac.RoleAdmin, rbac.RoleFinance))
	{
		admin.GET("/tenants/:id/payment-mode", s.adminGetMode)
		admin.PUT("/tenants/:id/payment-mode", s.adminSetMode)

		admin.POST("/credentials", s.adminStoreCredential)
		admin.GET("/credentials", s.adminListCredentials)
		admin.POST("/credentials/:id/activate", s.adminSetCredentialActive(true))
		admin.POST("/credentials/:id/deactivate", s.adminSetCredentialActive(false))

		admin.GET("/payouts", s.adminListPayouts)
		admin.POST("/payouts/:id/screen", s.payoutAction(s.payouts.Screen))
		admin.POST("/payouts/:id/approve", s.payoutAction(s.payouts.Approve))
		admin.POST("/payouts/:id/reject", s.payoutAction(s.payouts.Reject))
		admin.POST("/payouts/:id/paid", s.payoutAction(s.payouts.MarkPaid))
		admin.POST("/payouts/:id/failed", s.payoutAction(s.payouts.MarkFailed))

		admin.PUT("/catalog/items", s.adminUpsertItem)
		admin.GET("/catalog/items/:kind", s.adminListItems)

		admin.GET("/wallets/:scope/:id", s.adminWalletBalance)
		admin.GET("/wallets/:scope/:id/reconcile", s.adminWalletReconcile)

		admin.GET("/audit", s.adminAuditTrail)
	}

	return r
}

func (s *Server) health(c *gin.Context) {
	ctx := c.Request.Context()
	if s.db != nil {
		if err := utils.HealthCheck(ctx, s.db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
	}
	if s.rdb != nil {
		if err := s.rdb.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// actor pulls the verified identity out of the request context for audit
// attribution. Routes behind RequireAccessToken always have it.
type actor struct {
	Scope    string
	UserID   string
	TenantID string
}

func actorFrom(c *gin.Context) actor {
	ctx := c.Request.Context()
	var a actor
	if sc, err := auth.Scope(ctx); err == nil {
		a.Scope = string(sc)
	}
	if uid, err := auth.UserID(ctx); err == nil {
		a.UserID = uid
	}
	if tid, err := auth.TenantID(ctx); err == nil {
		a.TenantID = tid
	}
	return a
}
