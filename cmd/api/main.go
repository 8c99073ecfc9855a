package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/captionly/captionly-backend/api/routes"
	"github.com/captionly/captionly-backend/internal/auth"
	"github.com/captionly/captionly-backend/internal/generation"
	"github.com/captionly/captionly-backend/internal/subscriptions"
	"github.com/captionly/captionly-backend/internal/usage"
	"github.com/captionly/captionly-backend/internal/users"
	"github.com/captionly/captionly-backend/pkg/auth/session"
	"github.com/captionly/captionly-backend/pkg/clock"
	"github.com/captionly/captionly-backend/pkg/config"
	"github.com/captionly/captionly-backend/pkg/db"
	"github.com/captionly/captionly-backend/pkg/logger"
	"github.com/captionly/captionly-backend/pkg/mailer"
	"github.com/captionly/captionly-backend/pkg/metrics"
	"github.com/captionly/captionly-backend/pkg/migrate"
	"github.com/captionly/captionly-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	clk := clock.NewDB(dbClient)
	userRepo := users.NewRepository(dbClient.DB())

	subscriptionGuard, err := subscriptions.NewGuard(userRepo, clk)
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription guard", err)
		os.Exit(1)
	}

	usageService, err := usage.NewService(userRepo, redisClient, clk, cfg.Quota)
	if err != nil {
		logg.Error(context.Background(), "failed to create usage service", err)
		os.Exit(1)
	}

	var mail mailer.Mailer
	if cfg.Mailer.Disabled || cfg.App.IsDev() {
		mail = &mailer.LogOnly{Logg: logg}
	} else {
		ses, err := mailer.NewSES(context.Background(), cfg.Mailer)
		if err != nil {
			logg.Error(context.Background(), "failed to create ses mailer", err)
			os.Exit(1)
		}
		mail = ses
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		Entitlements:   subscriptionGuard,
		Mailer:         mail,
		Clock:          clk,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		AppBaseURL:     cfg.App.BaseURL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registry := routes.NewMetricsRegistry()
	generationMetrics := metrics.NewGenerationMetrics(registry)

	completionClient, err := generation.NewCompletionClient(cfg.Completion)
	if err != nil {
		logg.Error(context.Background(), "failed to create completion client", err)
		os.Exit(1)
	}

	generationService, err := generation.NewService(usageService, completionClient, generationMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create generation service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:         cfg,
			Logger:         logg,
			DB:             dbClient,
			Redis:          redisClient,
			RateLimiter:    redisClient,
			Sessions:       sessionManager,
			AuthService:    authService,
			UsageService:   usageService,
			Subscriptions:  subscriptionGuard,
			Generation:     generationService,
			MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
