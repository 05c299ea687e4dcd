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
	"github.com/redis/go-redis/v9"

	"github.com/meridian-pos/meridian-pos/internal/admin"
	"github.com/meridian-pos/meridian-pos/internal/app"
	"github.com/meridian-pos/meridian-pos/internal/audit"
	"github.com/meridian-pos/meridian-pos/internal/auth"
	"github.com/meridian-pos/meridian-pos/internal/catalog"
	"github.com/meridian-pos/meridian-pos/internal/observability"
	"github.com/meridian-pos/meridian-pos/internal/platform/db"
	"github.com/meridian-pos/meridian-pos/internal/rbac"
	"github.com/meridian-pos/meridian-pos/internal/sales"
	"github.com/meridian-pos/meridian-pos/internal/terminal"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Error("migrate schema", slog.Any("error", err))
		os.Exit(1)
	}

	rbacRepo := rbac.NewRepository(pool)
	if err := rbacRepo.SeedDefaults(ctx); err != nil {
		logger.Error("seed permissions", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	throttle := auth.NewThrottle(redisClient, cfg.LoginAttemptLimit, cfg.LoginAttemptWindow)
	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, throttle, logger)
	if err := authService.EnsureAdminUser(ctx, cfg.DefaultAdminPassword); err != nil {
		logger.Error("ensure admin user", slog.Any("error", err))
		os.Exit(1)
	}

	catalogRepo := catalog.NewRepository(pool)
	salesRepo := sales.NewRepository(pool)

	recorder := audit.NewRecorder(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, logger)
	defer func() {
		if err := recorder.Close(); err != nil {
			logger.Warn("audit recorder close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	terminalServer := terminal.NewServer(cfg.ListenAddr, terminal.Deps{
		Auth:         authService,
		Users:        authService,
		Products:     catalogRepo,
		Transactions: salesRepo,
		Audit:        recorder,
		Metrics:      metrics,
	}, logger)
	if err := terminalServer.Start(ctx); err != nil {
		logger.Error("start terminal server", slog.Any("error", err))
		os.Exit(1)
	}

	adminHandler := admin.NewHandler(authService, rbacRepo, catalogRepo, salesRepo, logger)
	router := admin.NewRouter(admin.RouterParams{
		Logger:     logger,
		Handler:    adminHandler,
		Metrics:    metrics,
		Production: cfg.IsProduction(),
	})

	adminServer := &http.Server{
		Addr:         cfg.AdminAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting admin http server", slog.String("addr", cfg.AdminAddr))
		if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("admin http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := terminalServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("terminal shutdown", slog.Any("error", err))
	}
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin shutdown", slog.Any("error", err))
	}
}
