package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecordCleaner removes old soft-deleted sync records for one tenant/provider.
// The reconciliation service satisfies this interface.
type RecordCleaner interface {
	CleanupOldRecords(ctx context.Context, tenantID uuid.UUID, providerID string, retention time.Duration) (int64, error)
}

// CleanupScheduler runs daily retention cleanup of soft-deleted sync records
type CleanupScheduler struct {
	cleaner        RecordCleaner
	targetProvider SyncTargetProvider
	logger         *zap.Logger
	config         CleanupSchedulerConfig
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	mu             sync.Mutex
	isRunning      bool
}

// CleanupSchedulerConfig holds configuration for the cleanup scheduler
type CleanupSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// CleanupHour is the hour (0-23) when cleanup runs
	CleanupHour int

	// Retention is how long soft-deleted records are kept before hard deletion
	Retention time.Duration

	// CleanupTimeout is the maximum time for a cleanup run
	CleanupTimeout time.Duration
}

// DefaultCleanupSchedulerConfig returns default configuration
func DefaultCleanupSchedulerConfig() CleanupSchedulerConfig {
	return CleanupSchedulerConfig{
		Enabled:        true,
		CleanupHour:    3, // 3 AM
		Retention:      90 * 24 * time.Hour,
		CleanupTimeout: 15 * time.Minute,
	}
}

// NewCleanupScheduler creates a new cleanup scheduler
func NewCleanupScheduler(
	cleaner RecordCleaner,
	targetProvider SyncTargetProvider,
	logger *zap.Logger,
	config CleanupSchedulerConfig,
) *CleanupScheduler {
	return &CleanupScheduler{
		cleaner:        cleaner,
		targetProvider: targetProvider,
		logger:         logger,
		config:         config,
	}
}

// Start starts the cleanup scheduler
func (s *CleanupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Cleanup scheduler is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runDailyCleanup(ctx)

	s.logger.Info("Cleanup scheduler started",
		zap.Int("cleanup_hour", s.config.CleanupHour),
		zap.Duration("retention", s.config.Retention),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *CleanupScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	// Wait for goroutines to finish with timeout
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Cleanup scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Cleanup scheduler stop timed out")
		return ctx.Err()
	}
}

// runDailyCleanup runs cleanup once per day at the configured hour
func (s *CleanupScheduler) runDailyCleanup(ctx context.Context) {
	defer s.wg.Done()

	for {
		// Calculate time until next daily run
		now := time.Now()
		nextRun := time.Date(now.Year(), now.Month(), now.Day(), s.config.CleanupHour, 0, 0, 0, now.Location())
		if now.After(nextRun) {
			// Already past today's run time, schedule for tomorrow
			nextRun = nextRun.Add(24 * time.Hour)
		}
		delay := time.Until(nextRun)

		s.logger.Info("Daily sync record cleanup scheduled",
			zap.Time("next_run", nextRun),
			zap.Duration("delay", delay),
		)

		select {
		case <-ctx.Done():
			s.logger.Debug("Daily cleanup loop stopping")
			return
		case <-time.After(delay):
			s.executeCleanup(ctx)
		}
	}
}

// executeCleanup runs retention cleanup for every target
func (s *CleanupScheduler) executeCleanup(ctx context.Context) {
	s.logger.Info("Starting sync record cleanup",
		zap.Time("started_at", time.Now()),
	)

	// Create context with timeout
	cleanupCtx, cancel := context.WithTimeout(ctx, s.config.CleanupTimeout)
	defer cancel()

	targets, err := s.targetProvider.GetEnabledTargets(cleanupCtx)
	if err != nil {
		s.logger.Error("Failed to get sync targets for cleanup", zap.Error(err))
		return
	}

	startTime := time.Now()
	var totalDeleted int64
	failed := 0

	for _, target := range targets {
		deleted, err := s.cleaner.CleanupOldRecords(cleanupCtx, target.TenantID, target.ProviderID, s.config.Retention)
		if err != nil {
			s.logger.Error("Sync record cleanup failed for target",
				zap.String("tenant_id", target.TenantID.String()),
				zap.String("provider_id", target.ProviderID),
				zap.Error(err),
			)
			failed++
			continue
		}
		totalDeleted += deleted
	}

	s.logger.Info("Sync record cleanup completed",
		zap.Duration("duration", time.Since(startTime)),
		zap.Int("targets", len(targets)),
		zap.Int("failed_targets", failed),
		zap.Int64("deleted_count", totalDeleted),
	)
}

// TriggerImmediateCleanup triggers an immediate cleanup run
func (s *CleanupScheduler) TriggerImmediateCleanup(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("Triggering immediate sync record cleanup")

	// Run in a goroutine to not block
	go func() {
		defer s.wg.Done()
		s.executeCleanup(ctx)
	}()

	return nil
}

// IsRunning returns whether the scheduler is running
func (s *CleanupScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
