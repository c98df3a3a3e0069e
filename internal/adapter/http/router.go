package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/blockpay/internal/adapter/http/handler"
	"github.com/iho/blockpay/internal/adapter/http/middleware"
	"github.com/iho/blockpay/internal/infrastructure/metrics"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AuthHandler     *handler.AuthHandler
	WalletHandler   *handler.WalletHandler
	BalanceHandler  *handler.BalanceHandler
	TransferHandler *handler.TransferHandler
	HistoryHandler  *handler.HistoryHandler
	HealthHandler   *handler.HealthHandler

	TokenVerifier middleware.TokenVerifier
	Logger        zerolog.Logger

	// Optional.
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	RateLimiter    *middleware.RateLimiter
	// TransferTimeout bounds POST /transfers; it must cover the
	// confirmation wait. Zero disables the bound.
	TransferTimeout time.Duration
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", cfg.AuthHandler.Register)
		r.Post("/auth/login", cfg.AuthHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(cfg.TokenVerifier, cfg.Metrics))

			r.Get("/me", cfg.AuthHandler.Me)

			r.Route("/wallets", func(r chi.Router) {
				r.Get("/", cfg.WalletHandler.List)
				r.Post("/", cfg.WalletHandler.Link)
				r.Get("/available", cfg.WalletHandler.Available)
				r.Delete("/{id}", cfg.WalletHandler.Unlink)
			})
			r.Put("/session/active", cfg.WalletHandler.SelectActive)

			r.Get("/balance", cfg.BalanceHandler.Get)

			r.Route("/transfers", func(r chi.Router) {
				if cfg.TransferTimeout > 0 {
					r.Use(chimiddleware.Timeout(cfg.TransferTimeout))
				}
				r.Post("/", cfg.TransferHandler.Create)
				r.Post("/reconcile", cfg.TransferHandler.Reconcile)
			})

			r.Get("/history", cfg.HistoryHandler.List)
			r.Get("/feed", cfg.HistoryHandler.Feed)
		})
	})

	return r
}
