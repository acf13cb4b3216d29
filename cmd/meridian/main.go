package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-bi/meridian/internal/analytics"
	"github.com/meridian-bi/meridian/internal/app"
	"github.com/meridian-bi/meridian/internal/assistant"
	"github.com/meridian-bi/meridian/internal/auth"
	"github.com/meridian-bi/meridian/internal/catalog"
	"github.com/meridian-bi/meridian/internal/demo"
	"github.com/meridian-bi/meridian/internal/export"
	"github.com/meridian-bi/meridian/internal/ingest"
	"github.com/meridian-bi/meridian/internal/observability"
	"github.com/meridian-bi/meridian/internal/platform/cache"
	"github.com/meridian-bi/meridian/internal/platform/db"
	"github.com/meridian-bi/meridian/internal/receivables"
	"github.com/meridian-bi/meridian/internal/sales"
	"github.com/meridian-bi/meridian/internal/shared"
	"github.com/meridian-bi/meridian/internal/tenancy"
	"github.com/meridian-bi/meridian/jobs"
)

func main() {
	if app.InTestMode() {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer redisClient.Close()

	audit := shared.NewAuditLogger(pool)
	idempotency := shared.NewIdempotencyStore(pool)

	authRepo := auth.NewRepository(pool)
	tokens := auth.NewTokenStore(redisClient, cfg.TokenTTL)
	authService := auth.NewService(authRepo, tokens)
	authenticator := &auth.Middleware{Tokens: tokens, Logger: logger}
	authHandler := auth.NewHandler(logger, authService, authenticator)

	tenancyRepo := tenancy.NewRepository(pool)
	tenancyService := tenancy.NewService(tenancyRepo, authRepo, audit)
	tenancyHandler := tenancy.NewHandler(logger, tenancyService)

	catalogRepo := catalog.NewRepository(pool)
	catalogService := catalog.NewService(catalogRepo, audit)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	analyticsCache := analytics.NewCache(redisClient, 10*time.Minute)
	go func() {
		if err := analyticsCache.ListenForInvalidation(ctx, ""); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("cache invalidation listener stopped", slog.Any("error", err))
		}
	}()

	analyticsRepo := analytics.NewRepository(pool)
	analyticsService := analytics.NewService(analyticsRepo, catalogRepo, analyticsCache)
	analyticsHandler := analytics.NewHandler(logger, analyticsService, authenticator.RequireRole(shared.RoleAdmin))

	salesRepo := sales.NewRepository(pool)
	salesService := sales.NewService(salesRepo, catalogRepo, audit, analyticsCache)
	salesHandler := sales.NewHandler(logger, salesService)

	receivablesRepo := receivables.NewRepository(pool)
	receivablesService := receivables.NewService(receivablesRepo, salesRepo, audit, analyticsCache)
	receivablesHandler := receivables.NewHandler(logger, receivablesService)

	jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer jobsClient.Close()

	ingestService := ingest.NewService(logger, catalogRepo, salesRepo, idempotency, jobsClient, analyticsCache)
	ingestHandler := ingest.NewHandler(logger, ingestService, cfg.ImportMaxBytes)

	gemini := assistant.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	assistantRepo := assistant.NewRepository(pool)
	assistantService := assistant.NewService(assistantRepo, gemini, analyticsService)
	assistantHandler := assistant.NewHandler(logger, assistantService)

	exportService := export.NewService(catalogRepo, salesRepo, receivablesRepo, analyticsService, tenancyRepo)
	exportHandler := export.NewHandler(logger, exportService)

	demoGenerator := demo.NewGenerator(catalogRepo, salesRepo, analyticsCache)
	demoHandler := demo.NewHandler(logger, demoGenerator)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthHandler:        authHandler,
		TenancyHandler:     tenancyHandler,
		CatalogHandler:     catalogHandler,
		SalesHandler:       salesHandler,
		ReceivablesHandler: receivablesHandler,
		AnalyticsHandler:   analyticsHandler,
		IngestHandler:      ingestHandler,
		AssistantHandler:   assistantHandler,
		ExportHandler:      exportHandler,
		DemoHandler:        demoHandler,
		Authenticator:      authenticator,
		Metrics:            observability.NewMetrics(),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
	}
}
