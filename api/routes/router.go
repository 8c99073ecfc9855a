package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/captionly/captionly-backend/api/controllers"
	"github.com/captionly/captionly-backend/api/middleware"
	"github.com/captionly/captionly-backend/internal/auth"
	"github.com/captionly/captionly-backend/internal/generation"
	"github.com/captionly/captionly-backend/internal/subscriptions"
	"github.com/captionly/captionly-backend/internal/usage"
	"github.com/captionly/captionly-backend/pkg/auth/session"
	"github.com/captionly/captionly-backend/pkg/config"
	"github.com/captionly/captionly-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type rateLimiterStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Params bundles everything the router needs.
type Params struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             pinger
	Redis          pinger
	RateLimiter    rateLimiterStore
	Sessions       session.AccessSessionChecker
	AuthService    auth.Service
	UsageService   usage.Service
	Subscriptions  subscriptions.Guard
	Generation     generation.Service
	MetricsHandler http.Handler
}

// NewRouter assembles the chi router with the full middleware chain.
func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})

	metricsHandler := p.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, p.RateLimiter, logg)).
			Post("/register", controllers.AuthRegister(p.AuthService, logg))
		r.Post("/verify-email", controllers.AuthVerifyEmail(p.AuthService, logg))
		r.Post("/resend-verification", controllers.AuthResendVerification(p.AuthService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, p.RateLimiter, logg)).
			Post("/login", controllers.AuthLogin(p.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(p.AuthService, cfg.JWT, logg))
		r.Post("/forgot-password", controllers.AuthForgotPassword(p.AuthService, logg))
		r.Post("/reset-password", controllers.AuthResetPassword(p.AuthService, logg))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))

		r.Get("/api/v1/usage", controllers.UsageRemaining(p.UsageService, cfg.Quota.DailyCap, logg))
		r.Get("/api/v1/subscription", controllers.SubscriptionCurrent(p.Subscriptions, logg))
		r.Post("/api/v1/subscription/purchase", controllers.SubscriptionPurchase(p.Subscriptions, logg))

		r.With(middleware.RequireVerifiedEmail(logg)).
			Post("/api/v1/generations", controllers.Generate(p.Generation, logg))
	})

	return r
}

// NewMetricsRegistry builds the registry cmd/api shares between the
// collectors and the /metrics endpoint.
func NewMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
