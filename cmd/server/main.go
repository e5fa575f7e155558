package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appstock "github.com/erp/backoffice/internal/application/stock"
	"github.com/erp/backoffice/internal/infrastructure/cache"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/erp/backoffice/internal/infrastructure/event"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/persistence"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/erp/backoffice/internal/infrastructure/scheduler"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/erp/backoffice/internal/interfaces/http/handler"
	"github.com/erp/backoffice/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//	@title			Backoffice Stock API
//	@version		1.0
//	@description	Multi-warehouse stock transfers, adjustments and stock alerts

//	@host		localhost:8080
//	@BasePath	/api/v1

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// pingFunc adapts a function to handler.Pinger
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	telemetry.ServiceVersion = version

	logCfg := logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	otelCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}

	// Log export is wired first so that every later record can be bridged
	logsCfg := otelCfg
	logsCfg.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled
	logProvider, err := telemetry.NewLoggerProvider(ctx, logsCfg, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	log, err := logger.New(logCfg, logProvider.ZapCore())
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting backoffice",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, otelCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingEndpoint,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsRunning() {
		tracerProvider.EnableSpanProfiles()
	}
	meter := meterProvider.Meter("github.com/erp/backoffice")

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	if err := telemetry.InstrumentDB(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBName:          cfg.Database.DBName,
	}); err != nil {
		log.Fatal("Failed to instrument database", zap.Error(err))
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to access connection pool", zap.Error(err))
	}
	if err := telemetry.RegisterDBPoolMetrics(meter, sqlDB); err != nil {
		log.Warn("Failed to register pool metrics", zap.Error(err))
	}

	// Postgres schemas are owned by cmd/migrate; SQLite is a local database
	if cfg.Database.Driver == "sqlite" {
		if err := db.DB.AutoMigrate(models.AllModels()...); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}

	stockMetrics, err := telemetry.NewStockMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create stock metrics", zap.Error(err))
	}

	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewAuditLogHandler(log))
	eventBus.Subscribe(event.NewStockAlertNotifier(log))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	runLock, closeRunLock, err := cache.NewRunLock(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	if err != nil {
		log.Fatal("Failed to create reconcile run lock", zap.Error(err))
	}
	defer func() {
		if err := closeRunLock(); err != nil {
			log.Error("Error closing redis client", zap.Error(err))
		}
	}()

	opts := []appstock.Option{
		appstock.WithLogger(log),
		appstock.WithEventPublisher(eventBus),
		appstock.WithMetrics(stockMetrics),
	}
	scope := persistence.NewGormTransactionScope(db.DB)
	catalog := persistence.NewGormCatalog(db.DB)
	allocator := appstock.NewReferenceCodeAllocator(opts...)

	transferService := appstock.NewTransferService(scope, catalog, allocator, appstock.TransferServiceConfig{
		ReferencePrefix: cfg.Reference.TransferPrefix,
		PostMovements:   cfg.Reference.PostMovements,
	}, opts...)
	adjustmentService := appstock.NewAdjustmentService(scope, catalog, allocator, appstock.AdjustmentServiceConfig{
		ReferencePrefix: cfg.Reference.AdjustmentPrefix,
		PostMovements:   cfg.Reference.PostMovements,
	}, opts...)
	alertService := appstock.NewStockAlertService(scope, persistence.NewGormInventoryLedger(db.DB), catalog, runLock,
		appstock.StockAlertConfig{
			DefaultThreshold: decimal.NewFromFloat(cfg.Reconcile.DefaultThreshold),
			Concurrency:      cfg.Reconcile.Concurrency,
			LockTTL:          cfg.Reconcile.LockTTL,
		}, opts...)

	var trigger *scheduler.ReconcileTrigger
	if cfg.Reconcile.Enabled {
		trigger, err = scheduler.NewReconcileTrigger(scheduler.ReconcileTriggerConfig{
			Interval:   cfg.Reconcile.Interval,
			RunOnStart: true,
		}, alertService, log)
		if err != nil {
			log.Fatal("Failed to create reconcile trigger", zap.Error(err))
		}
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start reconcile trigger", zap.Error(err))
		}
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine, err := router.NewEngine(router.EngineConfig{
		ServiceName:      cfg.Telemetry.ServiceName,
		TracingEnabled:   cfg.Telemetry.Enabled,
		ProfilingEnabled: profiler.IsRunning(),
		MaxBodyBytes:     cfg.HTTP.MaxBodyBytes,
		AllowOrigins:     cfg.HTTP.AllowOrigins,
		TrustedProxies:   cfg.HTTP.TrustedProxies,
		TriggerRateLimit: cfg.HTTP.TriggerRateLimit,
		Meter:            meter,
	}, router.Handlers{
		Transfers:   handler.NewTransferHandler(transferService),
		Adjustments: handler.NewAdjustmentHandler(adjustmentService),
		Alerts:      handler.NewStockAlertHandler(alertService),
		System: handler.NewSystemHandler(cfg.App.Name, version, map[string]handler.Pinger{
			"database": pingFunc(sqlDB.PingContext),
		}),
	}, log)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if trigger != nil {
		if err := trigger.Stop(shutdownCtx); err != nil {
			log.Error("Reconcile trigger did not stop cleanly", zap.Error(err))
		}
	}
	_ = eventBus.Stop(shutdownCtx)

	// Flush telemetry after the last request has been served
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer flushCancel()
	for name, shutdown := range map[string]func(context.Context) error{
		"tracer":   tracerProvider.Shutdown,
		"meter":    meterProvider.Shutdown,
		"logs":     logProvider.Shutdown,
		"profiler": profiler.Shutdown,
	} {
		if err := shutdown(flushCtx); err != nil {
			log.Warn("Telemetry shutdown failed", zap.String("component", name), zap.Error(err))
		}
	}

	log.Info("Server exited gracefully")
}
