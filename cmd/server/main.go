package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	financeapp "github.com/harvestplace/backend/internal/application/finance"
	inventoryapp "github.com/harvestplace/backend/internal/application/inventory"
	tradeapp "github.com/harvestplace/backend/internal/application/trade"
	"github.com/harvestplace/backend/internal/domain/shared"
	"github.com/harvestplace/backend/internal/infrastructure/auth"
	"github.com/harvestplace/backend/internal/infrastructure/cache"
	"github.com/harvestplace/backend/internal/infrastructure/config"
	"github.com/harvestplace/backend/internal/infrastructure/event"
	"github.com/harvestplace/backend/internal/infrastructure/logger"
	"github.com/harvestplace/backend/internal/infrastructure/migration"
	"github.com/harvestplace/backend/internal/infrastructure/persistence"
	"github.com/harvestplace/backend/internal/infrastructure/scheduler"
	"github.com/harvestplace/backend/internal/infrastructure/telemetry"
	"github.com/harvestplace/backend/internal/interfaces/http/handler"
	"github.com/harvestplace/backend/internal/interfaces/http/middleware"
	"github.com/harvestplace/backend/internal/interfaces/http/router"
	"github.com/harvestplace/backend/migrations"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	_ "github.com/harvestplace/backend/docs"
)

//go:generate swag init --dir ../../ --generalInfo cmd/server/main.go --output ../../docs --outputTypes go --parseInternal --overridesFile ../../.swaggo

//	@title			Harvestplace Marketplace API
//	@version		1.0
//	@description	Order fulfillment for the farm marketplace: wallets, stock and orders

//	@contact.name	API Support

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(logger.FromAppConfig(cfg.Log))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting marketplace backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Telemetry: traces, metrics, logs, then the profiler so span profiles
	// can attach to a running profiler
	telCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Insecure:          cfg.Telemetry.Insecure,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
		ExportLogs:        cfg.Telemetry.ExportLogs,
	}
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	log = loggerProvider.Bridge(log, cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level))

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Profiling.Enabled,
		ServerAddress:   cfg.Profiling.ServerAddress,
		ApplicationName: cfg.Telemetry.ServiceName,
		ProfileTypes:    cfg.Profiling.ProfileTypes,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	// Initialize database connection with the zap-backed gorm logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
			DBSystem:        "postgresql",
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL && !cfg.App.IsProduction(),
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}, log); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}

	if err := applyMigrations(db, log); err != nil {
		log.Fatal("Failed to apply migrations", zap.Error(err))
	}

	// Events: the outbox is written inside fulfillment transactions and
	// relayed after commit
	serializer := event.NewEventSerializer()
	scope := persistence.NewGormTransactionScope(db.DB, serializer)

	idemCfg := shared.IdempotencyConfig{Enabled: cfg.Idempotency.Enabled, TTL: cfg.Idempotency.TTL}
	idemStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.Idempotency.RequireRedis),
	).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer closeStore(idemStore, log)

	// Repositories and application services
	productRepo := persistence.NewGormProductRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	walletRepo := persistence.NewGormWalletRepository(db.DB)
	txRepo := persistence.NewGormTransactionRepository(db.DB)

	lowStock, err := decimal.NewFromString(cfg.Telemetry.LowStockThreshold)
	if err != nil {
		log.Fatal("Invalid low stock threshold", zap.Error(err))
	}
	meter := meterProvider.Meter(cfg.Telemetry.ServiceName)
	fulfillmentMetrics, err := telemetry.NewFulfillmentMetrics(telemetry.FulfillmentMetricsConfig{
		Meter:             meter,
		Logger:            log,
		StockProvider:     productRepo,
		LowStockThreshold: lowStock,
	})
	if err != nil {
		log.Fatal("Failed to create fulfillment metrics", zap.Error(err))
	}

	ledger := financeapp.NewLedger(log)
	guard := inventoryapp.NewGuard(log)

	orchestrator := tradeapp.NewOrderOrchestrator(scope, orderRepo, guard, ledger, log)
	orchestrator.SetIdempotencyStore(idemStore, idemCfg)
	orchestrator.SetRecorder(fulfillmentMetrics)

	walletService := financeapp.NewWalletService(scope, walletRepo, txRepo, ledger, log)
	walletService.SetRecorder(fulfillmentMetrics)

	// In-process subscribers receive relayed events at least once; the
	// idempotent wrapper drops redeliveries
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewIdempotentHandler(event.NewOrderEventLogger(log), idemStore, idemCfg, log))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	publishers := []shared.EventPublisher{eventBus}
	var kafkaRelay *event.KafkaRelay
	if cfg.Kafka.Enabled {
		kafkaRelay = event.NewKafkaRelay(event.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		}, serializer, log)
		publishers = append(publishers, kafkaRelay)
		log.Info("Kafka relay enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	var outboxProcessor *event.OutboxProcessor
	if cfg.Outbox.Enabled {
		outboxProcessor = event.NewOutboxProcessor(
			event.NewGormOutboxRepository(db.DB),
			serializer,
			event.OutboxProcessorConfig{
				BatchSize:        cfg.Outbox.BatchSize,
				PollInterval:     cfg.Outbox.PollInterval,
				CleanupRetention: cfg.Outbox.CleanupRetention,
				CleanupInterval:  cfg.Outbox.CleanupInterval,
			},
			log,
			publishers...,
		)
		if err := outboxProcessor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
	}

	// Periodic wallet/ledger reconciliation
	var reconcileScheduler *scheduler.Scheduler
	var reconcileSweep *scheduler.ReconciliationSweep
	if cfg.Reconcile.Enabled {
		reconcileScheduler, err = scheduler.NewScheduler(scheduler.SchedulerConfig{
			Workers:    cfg.Reconcile.Workers,
			QueueSize:  cfg.Reconcile.BatchSize,
			JobTimeout: cfg.Reconcile.JobTimeout,
			RetryDelay: cfg.Reconcile.RetryDelay,
		}, scheduler.NewReconciliationExecutor(walletService, fulfillmentMetrics, log), log)
		if err != nil {
			log.Fatal("Invalid reconciliation settings", zap.Error(err))
		}
		if err := reconcileScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start reconciliation scheduler", zap.Error(err))
		}
		reconcileSweep = scheduler.NewReconciliationSweep(scheduler.SweepConfig{
			Interval:   cfg.Reconcile.Interval,
			BatchSize:  cfg.Reconcile.BatchSize,
			MaxRetries: cfg.Reconcile.RetryAttempts,
		}, reconcileScheduler, walletRepo, log)
		reconcileSweep.Start(ctx)
	}

	// HTTP
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}
	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.Secure(),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     tracerProvider.IsEnabled(),
		}),
		middleware.SpanErrorMarker(),
		middleware.HTTPMetrics(meter),
	)

	systemHandler := handler.NewSystemHandler(db, cfg.App.Version)
	engine.GET("/health", systemHandler.Health)
	engine.GET("/api/v1/health", systemHandler.Health)

	jwtService := auth.NewJWTService(cfg.JWT)
	jwtCfg := middleware.DefaultJWTConfig(jwtService)
	jwtCfg.Logger = log

	// Swagger documentation endpoint
	router.SwaggerRoutes(engine, middleware.SwaggerProtection(cfg.Swagger, middleware.JWTAuth(jwtCfg)))

	profilingCfg := middleware.DefaultProfilingConfig()
	profilingCfg.Enabled = profiler.IsEnabled()

	r := router.NewRouter(engine, router.WithAPIVersion("v1")).Use(
		middleware.JWTAuth(jwtCfg),
		middleware.TracingAttributeInjector(),
		middleware.ProfilingWithConfig(profilingCfg),
	)
	r.Register(router.OrderRoutes(handler.NewOrderHandler(orchestrator))).
		Register(router.WalletRoutes(handler.NewWalletHandler(walletService)))
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	timeout := cfg.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if reconcileSweep != nil {
		reconcileSweep.Stop()
		if err := reconcileScheduler.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping reconciliation scheduler", zap.Error(err))
		}
	}
	if outboxProcessor != nil {
		if err := outboxProcessor.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping outbox processor", zap.Error(err))
		}
	}
	if kafkaRelay != nil {
		if err := kafkaRelay.Close(); err != nil {
			log.Error("Error closing Kafka relay", zap.Error(err))
		}
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down metrics", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracing", zap.Error(err))
	}
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down log export", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// applyMigrations brings the schema up to date from the embedded migrations.
// The migrator is not closed since that would close the shared pool.
func applyMigrations(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, migrations.FS, log)
	if err != nil {
		return err
	}
	return m.Up()
}

func closeStore(store shared.IdempotencyStore, log *zap.Logger) {
	if c, ok := store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}
}

// defaultShutdownTimeout bounds cleanup when none is configured
const defaultShutdownTimeout = 30 * time.Second
