package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	erpapp "github.com/b2x/erp-integration/internal/application/erp"
	"github.com/b2x/erp-integration/internal/domain/erp"
	"github.com/b2x/erp-integration/internal/infrastructure/cache"
	"github.com/b2x/erp-integration/internal/infrastructure/config"
	"github.com/b2x/erp-integration/internal/infrastructure/connector"
	"github.com/b2x/erp-integration/internal/infrastructure/logger"
	"github.com/b2x/erp-integration/internal/infrastructure/persistence"
	"github.com/b2x/erp-integration/internal/infrastructure/scheduler"
	"github.com/b2x/erp-integration/internal/infrastructure/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting ERP sync daemon",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	ctx := context.Background()

	// Initialize OpenTelemetry tracing
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Initialize OpenTelemetry metrics
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	// Bridge zap logs to the OTEL collector when enabled
	if cfg.Telemetry.LogsEnabled {
		logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
			Enabled:           cfg.Telemetry.LogsEnabled,
			CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
			ServiceName:       cfg.Telemetry.ServiceName,
			Insecure:          cfg.Telemetry.Insecure,
		}, log)
		if err != nil {
			log.Fatal("Failed to initialize logs provider", zap.Error(err))
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := logsProvider.Shutdown(shutdownCtx); err != nil {
				log.Error("Error shutting down logs provider", zap.Error(err))
			}
		}()

		bridged, err := telemetry.CreateBridgedLoggerFromConfig(&telemetry.BaseLoggerConfig{
			Level:      cfg.Log.Level,
			Format:     cfg.Log.Format,
			Output:     cfg.Log.Output,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		}, logsProvider, cfg.Telemetry.ServiceName)
		if err != nil {
			log.Fatal("Failed to create bridged logger", zap.Error(err))
		}
		log = bridged
		log.Info("Log bridging to OTEL collector enabled")
	}

	// Continuous profiling
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:             cfg.Profiler.Enabled,
		ServerAddress:       cfg.Profiler.ServerAddress,
		ApplicationName:     cfg.Telemetry.ServiceName,
		ProfileCPU:          true,
		ProfileAllocObjects: true,
		ProfileAllocSpace:   true,
		ProfileInuseObjects: true,
		ProfileInuseSpace:   true,
		ProfileGoroutines:   true,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()

	// Initialize database connection
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLogLevel)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	// Database query tracing
	if cfg.Telemetry.DBTraceEnabled {
		tracingPlugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}, log)
		if err := tracingPlugin.RegisterOtelGorm(db.DB); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}

	// Database pool and query metrics
	if cfg.Telemetry.Enabled {
		dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, telemetry.DefaultDBMetricsConfig(), log)
		if err != nil {
			log.Fatal("Failed to register database metrics", zap.Error(err))
		}
		defer dbMetrics.Stop()
	}

	// Sync domain metrics
	var syncMetrics *telemetry.SyncMetrics
	if cfg.Telemetry.Enabled {
		syncMetrics, err = telemetry.NewSyncMetrics(telemetry.SyncMetricsConfig{
			Meter:  meterProvider.Meter(cfg.Telemetry.ServiceName),
			Logger: log,
		})
		if err != nil {
			log.Fatal("Failed to initialize sync metrics", zap.Error(err))
		}
	}

	// Sync record reconciliation service
	syncRecordRepo := persistence.NewGormSyncRecordRepository(db.DB)
	syncService := erpapp.NewSyncService(syncRecordRepo, log,
		erpapp.WithMaxRetries(cfg.Sync.MaxRetries))
	syncService.SetSyncMetrics(syncMetrics)

	// Connector registry
	registry := erpapp.NewConnectorRegistry(log)
	connectors := []erp.Connector{
		connector.NewFashopConnector(log),
		connector.NewSAPConnector(db.DB, log),
	}
	for _, c := range connectors {
		if err := registry.Register(c); err != nil {
			log.Fatal("Failed to register connector",
				zap.String("provider_id", c.ProviderID()),
				zap.Error(err))
		}
	}

	// Idempotency store: Redis when reachable, in-memory otherwise
	storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(true))
	store, err := storeFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// One operation executor per connector
	executors := make(map[string]*erpapp.Executor, len(connectors))
	for _, c := range connectors {
		opts := []erpapp.ExecutorOption{
			erpapp.WithDefaultTimeout(cfg.Executor.DefaultTimeout),
		}
		if cfg.Executor.IdempotencyEnabled {
			opts = append(opts, erpapp.WithIdempotencyStore(store, cfg.Executor.IdempotencyTTL))
		}
		exec := erpapp.NewExecutor(c.ProviderID(), c.ScopeFactory(), log, opts...)
		exec.SetSyncMetrics(syncMetrics)
		executors[c.ProviderID()] = exec
	}

	// Delta-sync pipeline: poll for pending records and push each through a
	// transactional operation on its provider's executor.
	deltaExecutor := scheduler.NewDeltaSyncExecutor(syncService, cfg.DeltaSync.BatchSize, log)
	deltaExecutor.SetSyncMetrics(syncMetrics)
	deltaExecutor.SetOnRecordSyncCallback(func(ctx context.Context, record *erp.SyncRecord) (bool, error) {
		exec, ok := executors[record.ProviderID]
		if !ok {
			return false, fmt.Errorf("no executor for provider %q", record.ProviderID)
		}
		key := erp.SyncRecordKey{
			TenantID:   record.TenantID,
			ProviderID: record.ProviderID,
			EntityType: record.EntityType,
			InternalID: record.InternalID,
		}
		_, err := exec.Execute(ctx, record.TenantID, cfg.Executor.DefaultTimeout,
			func(ctx context.Context, scope erp.TransactionScope) (any, error) {
				// Outbound changes are staged through the scope; commit is
				// the hand-off to the external system.
				return nil, nil
			})
		if err != nil {
			escalated, handleErr := syncService.HandleSyncFailure(ctx, key, err.Error())
			if handleErr != nil {
				return false, handleErr
			}
			return escalated, err
		}
		if _, err := syncService.MarkSynced(ctx, key, record.ExternalRevision+1); err != nil {
			return false, err
		}
		return false, nil
	})

	schedulerConfig := scheduler.DeltaSyncSchedulerConfig{
		Enabled:          cfg.DeltaSync.Enabled,
		Workers:          cfg.DeltaSync.Workers,
		JobTimeout:       cfg.Executor.DefaultTimeout * 10,
		RetryAttempts:    cfg.Sync.MaxRetries,
		RetryBackoffBase: cfg.DeltaSync.RetryBackoffBase,
		RetryBackoffMax:  cfg.DeltaSync.RetryBackoffMax,
	}
	deltaScheduler, err := scheduler.NewDeltaSyncScheduler(schedulerConfig, deltaExecutor, log)
	if err != nil {
		log.Fatal("Failed to create delta-sync scheduler", zap.Error(err))
	}

	targets, err := parseSyncTargets(cfg.DeltaSync.Targets)
	if err != nil {
		log.Fatal("Invalid delta-sync targets", zap.Error(err))
	}

	if cfg.DeltaSync.Enabled {
		if err := deltaScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start delta-sync scheduler", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := deltaScheduler.Stop(stopCtx); err != nil {
				log.Error("Error stopping delta-sync scheduler", zap.Error(err))
			}
		}()

		trigger := scheduler.NewDeltaSyncTrigger(scheduler.DeltaSyncTriggerConfig{
			PollInterval: cfg.DeltaSync.PollInterval,
		}, deltaScheduler, targets, log)
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start delta-sync trigger", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := trigger.Stop(stopCtx); err != nil {
				log.Error("Error stopping delta-sync trigger", zap.Error(err))
			}
		}()

		log.Info("Delta-sync pipeline started",
			zap.Int("workers", cfg.DeltaSync.Workers),
			zap.Int("batch_size", cfg.DeltaSync.BatchSize),
			zap.Duration("poll_interval", cfg.DeltaSync.PollInterval),
			zap.Int("targets", len(targets)),
		)
	}

	// Daily retention cleanup of soft-deleted records
	if cfg.Sync.CleanupEnabled {
		cleanupScheduler := scheduler.NewCleanupScheduler(syncService, targets, log,
			scheduler.CleanupSchedulerConfig{
				Enabled:        true,
				CleanupHour:    3,
				Retention:      cfg.Sync.CleanupRetention,
				CleanupTimeout: 15 * time.Minute,
			})
		if err := cleanupScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start cleanup scheduler", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := cleanupScheduler.Stop(stopCtx); err != nil {
				log.Error("Error stopping cleanup scheduler", zap.Error(err))
			}
		}()
	}

	log.Info("ERP sync daemon ready",
		zap.Strings("providers", registry.Providers()))

	// Block until shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down ERP sync daemon...")
}

// parseSyncTargets parses "tenant-uuid:provider-id" pairs into sync targets.
func parseSyncTargets(raw []string) (scheduler.StaticSyncTargets, error) {
	targets := make(scheduler.StaticSyncTargets, 0, len(raw))
	for _, entry := range raw {
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 || parts[1] == "" {
			return nil, fmt.Errorf("malformed sync target %q, want <tenant-uuid>:<provider-id>", entry)
		}
		tenantID, err := uuid.Parse(parts[0])
		if err != nil {
			return nil, fmt.Errorf("malformed tenant ID in sync target %q: %w", entry, err)
		}
		targets = append(targets, scheduler.SyncTarget{
			TenantID:   tenantID,
			ProviderID: parts[1],
		})
	}
	return targets, nil
}
