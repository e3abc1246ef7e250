package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/josh-kwaku/revenue-ledger/internal/config"
	"github.com/josh-kwaku/revenue-ledger/internal/domain"
	"github.com/josh-kwaku/revenue-ledger/internal/handler"
	"github.com/josh-kwaku/revenue-ledger/internal/logging"
	"github.com/josh-kwaku/revenue-ledger/internal/metrics"
	"github.com/josh-kwaku/revenue-ledger/internal/repository"
	"github.com/josh-kwaku/revenue-ledger/internal/service/balance"
	"github.com/josh-kwaku/revenue-ledger/internal/service/distribution"
	"github.com/josh-kwaku/revenue-ledger/internal/service/ledger"
	"github.com/josh-kwaku/revenue-ledger/internal/service/payout"
	"github.com/josh-kwaku/revenue-ledger/internal/service/registry"
	"github.com/josh-kwaku/revenue-ledger/internal/wallet"
)

var version = "dev"

const idempotencyPurgeInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("revenue-ledger", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := connectDB(ctx, cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	validator, err := wallet.NewValidator(cfg.BitcoinNet)
	if err != nil {
		slog.Error("invalid wallet configuration", "error", err)
		os.Exit(1)
	}

	var policy *payout.PolicyEnforcer
	if cfg.PayoutPoliciesPath != "" {
		policies, err := payout.LoadPolicies(cfg.PayoutPoliciesPath)
		if err != nil {
			slog.Error("failed to load payout policies", "error", err)
			os.Exit(1)
		}
		if policy, err = payout.NewPolicyEnforcer(policies); err != nil {
			slog.Error("invalid payout policies", "error", err)
			os.Exit(1)
		}
	}

	m := metrics.Default()
	txdb := repository.NewDB(db)
	resources := repository.NewResourceRepository(db)
	accounts := repository.NewAccountRepository(db)
	entries := repository.NewLedgerRepository(db)
	idempotency := repository.NewIdempotencyRepository(db)

	gateway := wallet.NewHTTPGateway(wallet.HTTPConfig{
		BaseURL:     cfg.GatewayURL,
		Timeout:     cfg.GatewayTimeout,
		MaxAttempts: cfg.GatewayMaxAttempts,
		RatePerSec:  cfg.GatewayRatePerSec,
	}, validator)

	store := ledger.NewStore(
		txdb,
		resources,
		accounts,
		entries,
		repository.NewDistributionEventRepository(db),
		repository.NewRevenueHistoryRepository(db),
		gateway,
		m,
		ledger.Config{
			Currency:       domain.Currency(cfg.SettlementCurrency).Normalize(),
			GatewayTimeout: cfg.GatewayTimeout,
		},
	)
	registrySvc := registry.NewService(resources, txdb)
	engine := distribution.NewEngine(resources, accounts, validator, store)
	reconciler := balance.NewReconciler(txdb, accounts, entries, m)
	scheduler := payout.NewScheduler(
		accounts, reconciler, store, validator, policy, m,
		logger.With("component", "payout_scheduler"),
		cfg.PayoutSweepInterval, cfg.PayoutSweepConcurrency,
	)

	h := handlers{
		health:    handler.NewHealthHandler(db, version),
		resources: handler.NewResourceHandler(registrySvc, engine, store),
		accounts:  handler.NewAccountHandler(store, reconciler),
		payouts:   handler.NewPayoutHandler(scheduler),
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(cfg, h, idempotency),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second + cfg.GatewayTimeout,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go scheduler.Start(ctx)
	go purgeIdempotency(ctx, idempotency)

	go func() {
		slog.Info("server started", "addr", addr, "version", version, "currency", cfg.SettlementCurrency)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func connectDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	pool := repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	}

	var err error
	for i := range 30 {
		var db *sql.DB
		if db, err = repository.NewPostgresDB(ctx, cfg.DatabaseURL, pool); err == nil {
			return db, nil
		}
		slog.Info("waiting for database", "attempt", i+1)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connectDB: %w", ctx.Err())
		case <-time.After(time.Second):
		}
	}
	return nil, fmt.Errorf("connectDB: gave up after 30 attempts: %w", err)
}

type idempotencyPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

func purgeIdempotency(ctx context.Context, repo idempotencyPurger) {
	ticker := time.NewTicker(idempotencyPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.PurgeExpired(ctx, time.Now().UTC())
			if err != nil {
				slog.Error("failed to purge idempotency cache", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("purged expired idempotency keys", "count", n)
			}
		}
	}
}
