package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/mealtrack/mealtrack/internal/analysis"
	"github.com/mealtrack/mealtrack/internal/api"
	"github.com/mealtrack/mealtrack/internal/audit"
	"github.com/mealtrack/mealtrack/internal/auth"
	"github.com/mealtrack/mealtrack/internal/config"
	"github.com/mealtrack/mealtrack/internal/database"
	"github.com/mealtrack/mealtrack/internal/meals"
	"github.com/mealtrack/mealtrack/internal/middleware"
	inats "github.com/mealtrack/mealtrack/internal/nats"
	"github.com/mealtrack/mealtrack/internal/quota"
	iredis "github.com/mealtrack/mealtrack/internal/redis"
	"github.com/mealtrack/mealtrack/internal/server"
	"github.com/mealtrack/mealtrack/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Migrations
	if err := database.RunMigrations(cfg.DB.DSN(), "migrations"); err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS (optional)
	var natsClient *inats.Client
	var publisher *inats.Publisher
	if cfg.NATS.Enabled {
		natsClient, err = inats.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to NATS", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		publisher = inats.NewPublisher(natsClient.JetStream())
	}

	// Auth
	jwtManager := auth.NewJWTManager(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)
	authSvc := auth.NewService(jwtManager, redisClient)
	userRepo := users.NewRepository(pool)
	userSvc := users.NewService(userRepo)
	authHandler := auth.NewHandler(authSvc, userSvc)

	// Quota admission control
	quotaStore := quota.NewStore(pool)
	quotaWindow := quota.NewWindow(quota.WindowSpan)
	quotaSvc := quota.NewService(quotaStore, quotaWindow, cfg.Quota)
	quotaHandler := quota.NewHandler(quotaSvc)

	// Meals
	mealRepo := meals.NewRepository(pool)
	mealSvc := meals.NewService(mealRepo, publisher)
	mealHandler := meals.NewHandler(mealSvc)

	// Analysis pipeline
	vision := analysis.NewVision(cfg.VLM)
	var transcriber analysis.Transcriber
	if cfg.Whisper.URL != "" {
		transcriber = analysis.NewTranscriber(cfg.Whisper)
	}
	analysisSvc := analysis.NewService(quotaSvc, vision, transcriber, publisher)
	analysisHandler := analysis.NewHandler(analysisSvc)

	// Audit trail
	auditRepo := audit.NewRepository(pool)
	auditHandler := audit.NewHandler(auditRepo)
	if natsClient != nil {
		consumerMgr := inats.NewConsumerManager(natsClient.JetStream())
		auditConsumer := audit.NewConsumer(auditRepo, consumerMgr)
		go func() {
			if err := auditConsumer.Start(ctx); err != nil {
				slog.Error("audit consumer stopped", "error", err)
			}
		}()
	}

	// Per-IP limiter on the public auth routes
	authLimiter := middleware.NewRateLimiter(redisClient, 10, 60)

	// Router
	router := api.NewRouter(pool, natsClient, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		AuthRateLimiter:    authLimiter.Middleware,
	}, api.HandlerSet{
		Register: authHandler.Register,
		Login:    authHandler.Login,
		Refresh:  authHandler.Refresh,
		Logout:   authHandler.Logout,

		GetMe:    authHandler.Me,
		UpdateMe: authHandler.UpdateMe,

		UpsertMeal: mealHandler.Upsert,
		GetMeal:    mealHandler.Get,
		ListMeals:  mealHandler.List,
		DeleteMeal: mealHandler.Delete,

		AnalyzeMeal: analysisHandler.Analyze,

		GetQuota:      quotaHandler.GetRemaining,
		ListAuditLogs: auditHandler.List,

		AuthMiddleware: auth.Middleware(authSvc),
	})

	// Start server
	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
