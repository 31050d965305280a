package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ayo6706/payment-screening/internal/api"
	"github.com/ayo6706/payment-screening/internal/api/middleware"
	"github.com/ayo6706/payment-screening/internal/config"
	"github.com/ayo6706/payment-screening/internal/db"
	"github.com/ayo6706/payment-screening/internal/gateway"
	"github.com/ayo6706/payment-screening/internal/idempotency"
	"github.com/ayo6706/payment-screening/internal/migrate"
	"github.com/ayo6706/payment-screening/internal/observability"
	"github.com/ayo6706/payment-screening/internal/repository"
	"github.com/ayo6706/payment-screening/internal/service"
	"github.com/ayo6706/payment-screening/internal/worker"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Run bootstraps the HTTP server, settlement dispatcher and reconciliation
// worker, blocking until shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()
	middleware.SetJWTSecret(cfg.JWTSecret)
	middleware.SetJWTValidation(cfg.JWTIssuer, cfg.JWTAudience)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := migrate.Up(ctx, pool); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info("migrations applied")
	}

	redisClient, err := newRedisClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	store := repository.NewStore(pool)
	idemStore := idempotency.NewStore(redisClient, pool, cfg.IdempotencyTTL)

	blockList := service.NewBlockListService(store, redisClient, cfg.BlockListCacheTTL, cfg.ScreeningFailOpen)
	currency := service.NewCurrencyService(service.CurrencyServiceConfig{
		RateURL:      cfg.FXRateURL,
		FallbackRate: cfg.FXFallbackRate,
		FailOpen:     cfg.FXFailOpen,
		Timeout:      cfg.FXTimeout,
	})
	rail := newGateway(cfg, logger)
	screening := service.NewScreeningService(store, blockList, currency, rail)
	webhooks := service.NewWebhookService(store, cfg.WebhookHMACKey, cfg.WebhookSkipSignature)
	if cfg.WebhookSkipSignature {
		logger.Warn("webhook signature verification disabled")
	}

	dispatcher := worker.NewSettlementDispatcher(screening, cfg.SettlementQueueSize).
		WithWorkers(cfg.SettlementWorkers).
		WithSweep(cfg.SettlementSweepInterval, cfg.SettlementStaleAfter)
	stopDispatcher := dispatcher.Run(ctx)
	logger.Info("settlement dispatcher started",
		zap.Int("workers", cfg.SettlementWorkers),
		zap.Int("queue_size", cfg.SettlementQueueSize),
		zap.Duration("sweep_interval", cfg.SettlementSweepInterval))

	reconciler := worker.NewReconciliationWorker(service.NewReconciliationService(store)).
		WithInterval(cfg.ReconciliationInterval)
	stopReconciler := reconciler.Run(ctx)

	router := api.NewRouter(cfg, logger, pool, idemStore, redisClient, api.Services{
		Webhooks:   webhooks,
		Screening:  screening,
		BlockList:  blockList,
		Reversals:  service.NewReversalService(store),
		Accounts:   service.NewAccountService(store),
		Dispatcher: dispatcher,
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
		runErr = multierr.Append(runErr, fmt.Errorf("shutdown http server: %w", err))
	}

	// Drain in-flight settlements after intake has stopped.
	logger.Info("stopping workers")
	stopReconciler()
	stopDispatcher()

	logger.Info("shutdown complete")
	return runErr
}

func newGateway(cfg *config.Config, logger *zap.Logger) gateway.Gateway {
	if cfg.RailMock {
		logger.Warn("using mock rail gateway; reversals are not sent")
		return gateway.NewMockGateway()
	}
	return gateway.NewRailClient(cfg.RailBaseURL, cfg.RailAPIKey, cfg.RailTimeout)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
