package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	allocationapp "github.com/erp/ledger/internal/application/allocation"
	auditapp "github.com/erp/ledger/internal/application/audit"
	eventapp "github.com/erp/ledger/internal/application/event"
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/application/posting"
	retentionapp "github.com/erp/ledger/internal/application/retention"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/retention"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/event"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/infrastructure/scheduler"
	"github.com/erp/ledger/internal/infrastructure/sequence"
	"github.com/erp/ledger/internal/infrastructure/storage"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/erp/ledger/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	providers, err := telemetry.Setup(context.Background(), cfg.Telemetry, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(ctx); err != nil {
			baseLog.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()

	log := telemetry.BridgeLogger(baseLog, providers, cfg.Telemetry.ServiceName, zapcore.InfoLevel)
	defer logger.Sync(log)

	log.Info("Starting ledger service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Database.Driver == "sqlite" {
		// sqlite has no migration history; the schema comes from the models
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}
	if err := telemetry.InstrumentDB(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBName:          cfg.Database.DBName,
	}, log); err != nil {
		log.Fatal("Failed to instrument database", zap.Error(err))
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	// Redis backs number sequences and event idempotency when enabled
	var redisClient redis.UniversalClient
	if cfg.Redis.Enabled {
		client, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer client.Close()
		redisClient = client
	}

	metrics, err := telemetry.NewLedgerMetrics(providers.Meter())
	if err != nil {
		log.Fatal("Failed to create ledger metrics", zap.Error(err))
	}

	serializer := event.NewLedgerSerializer()
	outboxPublisher := event.NewOutboxPublisher(serializer)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	uowOpts := []persistence.UnitOfWorkOption{persistence.WithLockTimeout(cfg.Ledger.LockTimeout)}
	if seq := newSequenceGenerator(cfg.Ledger, redisClient, log); seq != nil {
		uowOpts = append(uowOpts, persistence.WithSequenceGenerator(seq))
	}
	uow := persistence.NewGormUnitOfWork(db.DB, outboxPublisher, uowOpts...)

	settings := ledgerapp.NewSettings(cfg.Ledger)
	recorder := auditapp.NewRecorder(cfg.Ledger.AuditTimeout, log)

	// Ledger core
	accountService := ledgerapp.NewAccountService(uow, recorder, settings, log)
	journalService := ledgerapp.NewJournalService(uow, recorder, settings, log)
	journalService.SetMetrics(metrics)
	periodService := ledgerapp.NewPeriodService(uow, journalService, recorder, settings, log)
	periodService.SetMetrics(metrics)
	reportingService := ledgerapp.NewReportingService(uow, accountService, log)

	// Subledgers
	apService := posting.NewAPService(uow, journalService, recorder, settings, log)
	arService := posting.NewARService(uow, journalService, recorder, settings, log)
	cashService := posting.NewCashService(uow, journalService, recorder, settings, log)
	payrollService := posting.NewPayrollService(uow, journalService, recorder, settings, log)
	assetService := posting.NewAssetService(uow, journalService, recorder, settings, log)

	// Allocation
	ruleService := allocationapp.NewRuleService(uow, recorder, log)
	allocationEngine := allocationapp.NewEngine(uow, journalService, recorder, settings, log)
	allocationEngine.SetMetrics(metrics)

	periodService.RegisterTaskRunner(ledger.TaskRunDepreciation, assetService)
	periodService.RegisterTaskRunner(ledger.TaskRunAllocations, allocationEngine)
	periodService.RegisterTaskRunner(ledger.TaskGenerateStatements, reportingService)

	// Retention
	archiveSink, err := newArchiveSink(cfg, db, log)
	if err != nil {
		log.Fatal("Failed to create archive sink", zap.Error(err))
	}
	retentionExecutor := retentionapp.NewExecutor(uow, persistence.NewGormRecordStore(db.DB), archiveSink, cfg.Retention.BatchSize, log)
	retentionExecutor.SetMetrics(metrics)
	retentionService := retentionapp.NewService(uow, retentionExecutor, recorder, log)

	auditService := auditapp.NewService(persistence.NewGormAuditRepository(db.DB))
	outboxService := eventapp.NewOutboxService(outboxRepo, log)

	// Posted entries fan out to the allocation engine through the outbox
	eventBus := event.NewInMemoryEventBus(log)
	idempotencyStore := cache.NewIdempotencyStore(redisClient, log)
	defer idempotencyStore.Close()
	eventBus.Subscribe(event.NewIdempotentHandler(
		allocationapp.NewEntryPostedHandler(allocationEngine, log),
		idempotencyStore,
		log,
		event.WithIdempotencyConfig(shared.IdempotencyConfig{TTL: cfg.Event.IdempotencyTTL, Enabled: true}),
	))
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	if cfg.Event.ProcessorEnabled {
		processorConfig := event.DefaultOutboxProcessorConfig()
		processorConfig.BatchSize = cfg.Event.BatchSize
		processorConfig.PollInterval = cfg.Event.PollInterval
		processorConfig.CleanupEnabled = cfg.Event.CleanupEnabled
		processorConfig.CleanupRetention = cfg.Event.CleanupRetention
		outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, serializer, processorConfig, log)
		if err := outboxProcessor.Start(context.Background()); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			if err := outboxProcessor.Stop(context.Background()); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
		log.Info("Outbox processor started",
			zap.Int("batch_size", processorConfig.BatchSize),
			zap.Duration("poll_interval", processorConfig.PollInterval),
		)
	}

	if cfg.Scheduler.Enabled {
		schedulerConfig := scheduler.DefaultConfig()
		schedulerConfig.MaxConcurrentJobs = cfg.Scheduler.MaxConcurrentJobs
		schedulerConfig.JobTimeout = cfg.Scheduler.JobTimeout
		schedulerConfig.RetryAttempts = cfg.Scheduler.RetryAttempts
		schedulerConfig.RetryDelay = cfg.Scheduler.RetryDelay

		jobScheduler := scheduler.NewScheduler(schedulerConfig, log)
		jobScheduler.Register(retentionapp.JobKind, retentionExecutor)
		if err := jobScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		defer func() {
			if err := jobScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping scheduler", zap.Error(err))
			}
		}()

		retentionTrigger := scheduler.NewIntervalTrigger("retention", cfg.Scheduler.RetentionInterval, retentionExecutor.DueJobs, jobScheduler, log)
		if err := retentionTrigger.Start(context.Background()); err != nil {
			log.Fatal("Failed to start retention trigger", zap.Error(err))
		}
		defer func() {
			if err := retentionTrigger.Stop(context.Background()); err != nil {
				log.Error("Error stopping retention trigger", zap.Error(err))
			}
		}()
		log.Info("Scheduler started",
			zap.Int("max_concurrent_jobs", schedulerConfig.MaxConcurrentJobs),
			zap.Duration("retention_interval", cfg.Scheduler.RetentionInterval),
		)
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}

	httpMetrics, err := middleware.HTTPMetrics(providers.Meter())
	if err != nil {
		log.Fatal("Failed to create HTTP metrics", zap.Error(err))
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(httpMetrics)
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewMemoryLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(limiter, middleware.TenantIPKey))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}
	engine.Use(middleware.Timeout(cfg.HTTP.RequestTimeout))

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, db)
	if redisClient != nil {
		systemHandler.AddCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	systemHandler.RegisterProbes(engine)

	r := router.NewRouter(engine).
		Use(middleware.Identity(middleware.DefaultIdentityConfig()), middleware.TracingAttributes()).
		Register(
			systemHandler,
			handler.NewAccountHandler(accountService),
			handler.NewJournalHandler(journalService),
			handler.NewPeriodHandler(periodService),
			handler.NewReportHandler(reportingService),
			handler.NewSubledgerHandler(apService, arService, cashService, payrollService, assetService),
			handler.NewAllocationHandler(ruleService, allocationEngine),
			handler.NewAuditHandler(auditService),
			handler.NewRetentionHandler(retentionService),
			handler.NewOutboxHandler(outboxService),
		)
	r.Setup()
	log.Debug("Routes registered", zap.Strings("routes", r.Routes()))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// newSequenceGenerator returns the Redis generator when configured. A nil
// result keeps the table-backed sequences inside each transaction.
func newSequenceGenerator(cfg config.LedgerConfig, client redis.UniversalClient, log *zap.Logger) ledger.SequenceGenerator {
	if cfg.SequenceBackend != "redis" {
		return nil
	}
	if client == nil {
		log.Warn("redis sequence backend requested but Redis is disabled, using table sequences")
		return nil
	}
	return sequence.NewRedisGenerator(client)
}

func newArchiveSink(cfg *config.Config, db *persistence.Database, log *zap.Logger) (retention.ArchiveSink, error) {
	if cfg.Retention.ArchiveSink == "s3" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return storage.NewS3ArchiveSink(ctx, &cfg.Storage, storage.WithLogger(log))
	}
	return persistence.NewGormArchiveSink(db.DB), nil
}
