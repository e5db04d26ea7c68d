package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"logistics-payments/internal/audit"
	"logistics-payments/internal/auth"
	"logistics-payments/internal/checkout"
	"logistics-payments/internal/config"
	"logistics-payments/internal/fx"
	"logistics-payments/internal/httpapi"
	"logistics-payments/internal/paymode"
	"logistics-payments/internal/payout"
	"logistics-payments/internal/pricing"
	"logistics-payments/internal/provider"
	"logistics-payments/internal/wallet"
	"logistics-payments/pkg/logger"
	"logistics-payments/pkg/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger config depends on env; bootstrap failures go to stderr.
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis connect failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	auditor := audit.NewService(audit.NewPostgresRepo(db), log)
	wallets := wallet.NewService(wallet.NewPostgresRepo(db))
	modes := paymode.NewService(
		paymode.NewPostgresRepo(db),
		paymode.NewRedisCache(rdb),
		cfg.Payments.ModeCacheTTL,
		auditor,
	)
	creds := provider.NewRegistry(provider.NewPostgresCredentialRepo(db), auditor)
	adapters := provider.DefaultAdapters()
	rates := fx.NewStaticConverter()

	checkoutSvc := checkout.NewService(
		checkout.NewPostgresOrderRepo(db),
		checkout.NewPostgresPaymentRepo(db),
		checkout.NewPostgresRefundRepo(db),
		checkout.NewPostgresWebhookRepo(db),
		modes,
		creds,
		adapters,
		wallets,
		rates,
		auditor,
		checkout.Config{
			SettlementCurrency: cfg.Payments.SettlementCurrency,
			PlatformFeeBps:     cfg.Payments.PlatformFeeBps,
			PublicBaseURL:      cfg.Payments.PublicBaseURL,
		},
		log,
	)

	payouts := payout.NewService(
		payout.NewPostgresRepo(db),
		modes,
		wallets,
		rates,
		auditor,
		payout.Config{
			Currency:        cfg.Payments.SettlementCurrency,
			MinMinor:        cfg.Payments.PayoutMinMinor,
			AutoReviewMinor: cfg.Payments.PayoutAutoReviewMinor,
		},
		log,
	)

	pricingSvc := pricing.NewService(
		pricing.NewPostgresCatalogRepo(db),
		pricing.NewPostgresTenantPriceRepo(db),
		pricing.NewPostgresRateCardRepo(db),
		auditor,
	)

	tokens, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("jwt manager init failed", "err", err)
		os.Exit(1)
	}

	srv := httpapi.New(httpapi.Deps{
		Config:   cfg,
		Log:      log,
		DB:       db,
		RDB:      rdb,
		Tokens:   tokens,
		Checkout: checkoutSvc,
		Wallets:  wallets,
		Payouts:  payouts,
		Pricing:  pricingSvc,
		Modes:    modes,
		Creds:    creds,
		Auditor:  auditor,
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", httpSrv.Addr, "env", cfg.App.Env)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
	}
	log.Info("stopped")
}
