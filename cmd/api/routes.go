package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/josh-kwaku/revenue-ledger/internal/config"
	"github.com/josh-kwaku/revenue-ledger/internal/handler"
	"github.com/josh-kwaku/revenue-ledger/internal/middleware"
	"github.com/josh-kwaku/revenue-ledger/internal/repository"
)

type handlers struct {
	health    *handler.HealthHandler
	resources *handler.ResourceHandler
	accounts  *handler.AccountHandler
	payouts   *handler.PayoutHandler
}

func newRouter(cfg *config.Config, h handlers, idem *repository.IdempotencyRepository) http.Handler {
	auth := middleware.Auth(cfg.JWTSecret)
	protected := func(fn http.HandlerFunc) http.Handler {
		return middleware.Chain(fn, auth, middleware.Logging, middleware.Idempotency(idem, false))
	}
	// keyed routes reject requests without an Idempotency-Key.
	keyed := func(fn http.HandlerFunc) http.Handler {
		return middleware.Chain(fn, auth, middleware.Logging, middleware.Idempotency(idem, true))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.health.Liveness)
	mux.HandleFunc("GET /health/ready", h.health.Readiness)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.Handle("POST /api/v1/resources", protected(h.resources.Create))
	mux.Handle("GET /api/v1/resources/{id}", protected(h.resources.Get))
	mux.Handle("GET /api/v1/resources/{id}/contributors", protected(h.resources.GetContributors))
	mux.Handle("PUT /api/v1/resources/{id}/contributors", protected(h.resources.SetContributors))
	mux.Handle("POST /api/v1/resources/{id}/distributions", protected(h.resources.Distribute))
	mux.Handle("GET /api/v1/resources/{id}/distributions", protected(h.resources.Distributions))

	mux.Handle("POST /api/v1/accounts/me/withdrawals", keyed(h.accounts.Withdraw))
	mux.Handle("GET /api/v1/accounts/me/balance", protected(h.accounts.Balance))
	mux.Handle("GET /api/v1/accounts/me/revenue", protected(h.accounts.Revenue))
	mux.Handle("POST /api/v1/admin/accounts/{id}/reconcile", protected(h.accounts.Reconcile))

	mux.Handle("POST /api/v1/payouts/auto", protected(h.payouts.RunAuto))

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.IdempotencyKeyHeader, "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Idempotent-Replayed"},
		AllowCredentials: true,
	})

	return middleware.Chain(mux, middleware.Recovery, middleware.Tracing, c.Handler)
}
