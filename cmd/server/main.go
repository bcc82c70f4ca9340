// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"notification-service/internal/api"
	"notification-service/internal/common/config"
	"notification-service/internal/common/database"
	"notification-service/internal/common/logger"
	"notification-service/internal/common/observability"
	"notification-service/internal/repository"
	"notification-service/internal/service/dispatch"
	"notification-service/internal/service/health"
	"notification-service/internal/service/templates"
	"notification-service/internal/service/tenants"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting notification service...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "PostgreSQL initialization")
	if err != nil {
		zapLog.Fatal("postgres unavailable", zap.Error(err))
	}
	defer pg.Close()

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis initialization")
	if err != nil {
		zapLog.Fatal("redis unavailable", zap.Error(err))
	}
	defer rdb.Close()

	// --- Wire repositories and services ---
	tenantRepo := repository.NewTenantRepository(pg.DB)
	templateRepo := repository.NewTemplateRepository(pg.DB)
	tagRepo := repository.NewTagRepository(pg.DB)
	notificationRepo := repository.NewNotificationRepository(pg.DB)

	dispatchSvc := dispatch.NewService(
		tenantRepo, templateRepo, tagRepo, notificationRepo,
		dispatch.NewSimulatedSender(), log, cfg.Dispatch.MaxBulkRecipients,
	)
	tenantSvc := tenants.NewService(tenantRepo, templateRepo, log)
	templateSvc := templates.NewService(tenantRepo, templateRepo, tagRepo, log, templates.Limits{
		MaxSubjectLength: cfg.Validation.MaxSubjectLength,
		MaxBodyLength:    cfg.Validation.MaxBodyLength,
	})
	healthSvc := health.NewService(notificationRepo, rdb, log, cfg.Health.CacheTTLDuration())

	handler := api.NewHandler(dispatchSvc, tenantSvc, templateSvc, healthSvc, notificationRepo, obs, log)
	server := api.NewServer(cfg.HTTP, handler, log)

	// --- Run until signalled ---
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		zapLog.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			zapLog.Error("http server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeoutDuration())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}
	zapLog.Info("notification service stopped")
}
