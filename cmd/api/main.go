package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/botpe-relay/internal/api/router"
	"github.com/wolfman30/botpe-relay/internal/app/bootstrap"
	"github.com/wolfman30/botpe-relay/internal/archive"
	"github.com/wolfman30/botpe-relay/internal/bookings"
	appconfig "github.com/wolfman30/botpe-relay/internal/config"
	"github.com/wolfman30/botpe-relay/internal/http/handlers"
	"github.com/wolfman30/botpe-relay/internal/messaging"
	"github.com/wolfman30/botpe-relay/internal/observability/metrics"
	"github.com/wolfman30/botpe-relay/internal/relay"
	"github.com/wolfman30/botpe-relay/internal/webhook"
	"github.com/wolfman30/botpe-relay/pkg/logging"
)

func main() {
	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.NewWithFormat(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger.Info("starting botpe relay",
		"env", cfg.Env,
		"port", cfg.Port,
		"bot_account", cfg.BotAccount,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsHandler, relayMetrics := setupMetrics(cfg.MetricsEnabled)

	registry, err := bootstrap.BuildAccounts(cfg, nil, logger)
	if err != nil {
		logger.Error("failed to build accounts", "error", err)
		os.Exit(1)
	}

	storage := setupStorage(ctx, cfg, logger)
	defer storage.Close()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		storage.checks["redis"] = bootstrap.RedisCheck(redisClient)
	}

	sessions, memorySessions, err := bootstrap.BuildSessionStore(cfg, redisClient, logger)
	if err != nil {
		logger.Error("failed to build session store", "error", err)
		os.Exit(1)
	}
	if memorySessions != nil {
		go memorySessions.Run(ctx)
	}

	engine, err := bootstrap.BuildBookingEngine(cfg, sessions, logger.Component("booking"))
	if err != nil {
		logger.Error("failed to build booking engine", "error", err)
		os.Exit(1)
	}
	engine = engine.WithMetrics(relayMetrics)
	if storage.ledger != nil {
		engine = engine.WithRecorder(storage.ledger)
	}

	hub := relay.NewHub(logger.Component("relay")).WithMetrics(relayMetrics)
	observers, archiveStore := setupAWS(ctx, cfg, logger)
	observers = append([]webhook.Observer{hub}, observers...)

	webhookRouter := webhook.NewRouter(registry, storage.repo, logger.Component("webhook")).
		WithBot(engine).
		WithObservers(observers...).
		WithMetrics(relayMetrics)

	dispatcher := webhook.NewDispatcher(webhookRouter, logger.Component("dispatcher")).
		WithWorkers(cfg.WebhookWorkers).
		WithQueueSize(cfg.WebhookQueueSize).
		WithMetrics(relayMetrics)
	if archiveStore.Enabled() {
		dispatcher = dispatcher.WithArchiver(archiveStore)
	}
	// The dispatcher outlives the signal so bodies accepted during srv.Shutdown are still queued.
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Run(dispatchCtx)
	}()

	introspectionCfg := handlers.IntrospectionConfig{
		Reader:    storage.repo,
		Submitter: dispatcher,
		Checks:    storage.checks,
		Logger:    logger,
	}
	if storage.ledger != nil {
		introspectionCfg.Appointments = storage.ledger
	}
	if archiveStore.Enabled() {
		introspectionCfg.Archive = archiveStore
	}

	// Setup router
	routerCfg := &router.Config{
		Logger:             logger,
		Webhooks:           handlers.NewWebhookHandler(dispatcher, logger),
		Introspection:      handlers.NewIntrospectionHandler(introspectionCfg),
		LiveFeed:           hub.HandleWebSocket,
		MetricsHandler:     metricsHandler,
		AdminRateLimit:     cfg.AdminRateLimit,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		logger.Error("server error", "error", err)
		stop()
	}

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	stopDispatch()
	waitForDispatcher(shutdownCtx, dispatcherDone, logger)

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics builds a dedicated registry so /metrics only exposes relay and runtime collectors.
func setupMetrics(enabled bool) (http.Handler, *metrics.RelayMetrics) {
	if !enabled {
		return nil, nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	relayMetrics := metrics.NewRelayMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), relayMetrics
}

type storageDeps struct {
	repo   messaging.Repository
	ledger *bookings.Ledger
	checks map[string]handlers.CheckFunc
	pool   *pgxpool.Pool
	sqlDB  *sql.DB
}

func (s *storageDeps) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.sqlDB != nil {
		_ = s.sqlDB.Close()
	}
}

// setupStorage connects Postgres when DATABASE_URL is set and falls back to memory otherwise.
func setupStorage(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *storageDeps {
	deps := &storageDeps{checks: map[string]handlers.CheckFunc{}}

	sqlDB := connectSQL(ctx, cfg.DatabaseURL, logger)
	if sqlDB != nil && cfg.AutoMigrate {
		if err := bootstrap.MigrateUp(sqlDB, logger); err != nil {
			logger.Error("auto migration failed", "error", err)
			os.Exit(1)
		}
	}

	pool := connectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool == nil {
		logger.Warn("DATABASE_URL not reachable or unset; persisting events in memory")
		deps.repo = messaging.NewMemoryStore()
	} else {
		store := messaging.NewStore(pool)
		deps.pool = pool
		deps.repo = store
		deps.checks["postgres"] = store.Ping
	}

	if sqlDB != nil {
		deps.sqlDB = sqlDB
		deps.ledger = bookings.NewLedger(sqlDB)
		deps.checks["ledger"] = sqlDB.PingContext
	}
	return deps
}

func connectPostgresPool(ctx context.Context, url string, logger *logging.Logger) *pgxpool.Pool {
	if url == "" {
		return nil
	}
	pool, err := bootstrap.OpenPgxPool(ctx, url)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		return nil
	}
	return pool
}

func connectSQL(ctx context.Context, url string, logger *logging.Logger) *sql.DB {
	if url == "" {
		return nil
	}
	db, err := bootstrap.OpenSQL(ctx, url)
	if err != nil {
		logger.Error("failed to open appointment ledger", "error", err)
		return nil
	}
	return db
}

// setupAWS wires the SQS event publisher and the S3 webhook archive when configured.
func setupAWS(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) ([]webhook.Observer, *archive.Store) {
	if cfg.EventQueueURL == "" && cfg.WebhookArchiveBucket == "" {
		return nil, archive.NewStore(nil, "", logger)
	}
	awsCfg, err := bootstrap.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config; queue and archive disabled", "error", err)
		return nil, archive.NewStore(nil, "", logger)
	}

	var observers []webhook.Observer
	if cfg.EventQueueURL != "" {
		observers = append(observers, relay.NewSQSPublisher(sqs.NewFromConfig(awsCfg), cfg.EventQueueURL))
		logger.Info("publishing inbound events to SQS", "queue_url", cfg.EventQueueURL)
	}

	var store *archive.Store
	if cfg.WebhookArchiveBucket != "" {
		store = archive.NewStore(bootstrap.NewS3Client(awsCfg, cfg), cfg.WebhookArchiveBucket, logger)
		logger.Info("archiving raw webhooks to S3", "bucket", cfg.WebhookArchiveBucket)
	} else {
		store = archive.NewStore(nil, "", logger)
	}
	return observers, store
}

func waitForDispatcher(ctx context.Context, done <-chan struct{}, logger *logging.Logger) {
	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn("webhook dispatcher did not drain before shutdown deadline")
	}
}
