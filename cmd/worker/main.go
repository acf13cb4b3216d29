package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-bi/meridian/internal/analytics"
	"github.com/meridian-bi/meridian/internal/app"
	"github.com/meridian-bi/meridian/internal/auth"
	"github.com/meridian-bi/meridian/internal/catalog"
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
	tenancyRepo := tenancy.NewRepository(pool)
	tenancyService := tenancy.NewService(tenancyRepo, authRepo, audit)

	catalogRepo := catalog.NewRepository(pool)
	analyticsCache := analytics.NewCache(redisClient, 10*time.Minute)
	analyticsRepo := analytics.NewRepository(pool)
	analyticsService := analytics.NewService(analyticsRepo, catalogRepo, analyticsCache)

	salesRepo := sales.NewRepository(pool)
	receivablesRepo := receivables.NewRepository(pool)
	receivablesService := receivables.NewService(receivablesRepo, salesRepo, audit, analyticsCache)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: &jobs.Handlers{
			Logger:      logger,
			Receivables: receivablesService,
			Analytics:   analyticsService,
			Tenancy:     tenancyService,
			Companies:   tenancyRepo,
			Idempotency: idempotency,
		},
		Cron: jobs.DefaultCron(),
	})
	if err != nil {
		logger.Error("configure worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker starting", slog.String("redis", cfg.RedisAddr))
	if err := worker.Run(ctx); err != nil {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
