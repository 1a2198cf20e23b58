package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/balanceledger/internal/adapter/http/handler"
	"github.com/iho/balanceledger/internal/adapter/http/middleware"
	"github.com/iho/balanceledger/internal/domain"
	"github.com/iho/balanceledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	BalanceHandler    *handler.BalanceHandler
	OrderHandler      *handler.OrderHandler
	WithdrawalHandler *handler.WithdrawalHandler
	DepositHandler    *handler.DepositHandler
	HealthHandler     *handler.HealthHandler

	// TokenVerifier enables bearer authentication. When nil the caller is
	// taken from the identity headers set by a trusted gateway.
	TokenVerifier    middleware.TokenVerifier
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	Logger           zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Metrics)

	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.TokenVerifier != nil {
			r.Use(middleware.AuthMiddleware(cfg.TokenVerifier))
		} else {
			r.Use(middleware.HeaderIdentity)
		}

		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Limit)
		}

		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger).Wrap)
		}

		r.Get("/balance", cfg.BalanceHandler.Get)
		r.Get("/entries", cfg.BalanceHandler.ListEntries)

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", cfg.OrderHandler.Create)
			r.Get("/", cfg.OrderHandler.List)
			r.Get("/{id}", cfg.OrderHandler.Get)
		})

		r.Route("/withdrawals", func(r chi.Router) {
			r.Post("/", cfg.WithdrawalHandler.Create)
			r.Get("/", cfg.WithdrawalHandler.List)
			r.Get("/{id}", cfg.WithdrawalHandler.Get)
		})

		r.Get("/deposits", cfg.DepositHandler.List)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleAdmin))

			r.Get("/users/{id}/balance", cfg.BalanceHandler.GetForUser)
			r.Post("/adjustments", cfg.BalanceHandler.CreateAdjustment)
			r.Post("/orders/{id}/resolve", cfg.OrderHandler.Resolve)
			r.Post("/withdrawals/{id}/resolve", cfg.WithdrawalHandler.Resolve)
			r.Post("/deposits/sweep", cfg.DepositHandler.Sweep)
		})
	})

	return r
}
