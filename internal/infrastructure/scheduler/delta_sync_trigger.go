package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Sync Target Provider
// ---------------------------------------------------------------------------

// SyncTarget is one tenant/provider pair polled for pending records
type SyncTarget struct {
	TenantID   uuid.UUID
	ProviderID string
}

// SyncTargetProvider provides the tenant/provider pairs to poll
type SyncTargetProvider interface {
	// GetEnabledTargets returns all tenant/provider pairs enabled for delta sync
	GetEnabledTargets(ctx context.Context) ([]SyncTarget, error)
}

// StaticSyncTargets is a SyncTargetProvider over a fixed target list,
// for daemons whose targets come from configuration
type StaticSyncTargets []SyncTarget

// GetEnabledTargets returns the configured targets
func (s StaticSyncTargets) GetEnabledTargets(ctx context.Context) ([]SyncTarget, error) {
	return s, nil
}

// ---------------------------------------------------------------------------
// DeltaSyncTrigger
// ---------------------------------------------------------------------------

// DeltaSyncTriggerConfig holds configuration for the delta sync poll trigger
type DeltaSyncTriggerConfig struct {
	// PollInterval is how often pending records are polled per target
	PollInterval time.Duration
}

// DefaultDeltaSyncTriggerConfig returns default configuration
func DefaultDeltaSyncTriggerConfig() DeltaSyncTriggerConfig {
	return DeltaSyncTriggerConfig{
		PollInterval: 30 * time.Second,
	}
}

// DeltaSyncTrigger periodically schedules delta sync jobs for every enabled
// tenant/provider pair
type DeltaSyncTrigger struct {
	config         DeltaSyncTriggerConfig
	scheduler      *DeltaSyncScheduler
	targetProvider SyncTargetProvider
	logger         *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewDeltaSyncTrigger creates a new delta sync trigger
func NewDeltaSyncTrigger(
	config DeltaSyncTriggerConfig,
	scheduler *DeltaSyncScheduler,
	targetProvider SyncTargetProvider,
	logger *zap.Logger,
) *DeltaSyncTrigger {
	return &DeltaSyncTrigger{
		config:         config,
		scheduler:      scheduler,
		targetProvider: targetProvider,
		logger:         logger,
	}
}

// Start starts the poll loop
func (c *DeltaSyncTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Delta sync trigger started",
		zap.Duration("poll_interval", c.config.PollInterval),
	)

	return nil
}

// Stop stops the poll loop
func (c *DeltaSyncTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Delta sync trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop periodically schedules sync jobs for all targets
func (c *DeltaSyncTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	// Run immediately on start
	c.scheduleAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.scheduleAll(ctx)
		}
	}
}

// scheduleAll schedules one delta sync job per enabled target
func (c *DeltaSyncTrigger) scheduleAll(ctx context.Context) {
	targets, err := c.targetProvider.GetEnabledTargets(ctx)
	if err != nil {
		c.logger.Error("Failed to get sync targets", zap.Error(err))
		return
	}

	if len(targets) == 0 {
		c.logger.Debug("No sync targets configured")
		return
	}

	for _, target := range targets {
		if err := c.scheduler.ScheduleSync(target.TenantID, target.ProviderID); err != nil {
			c.logger.Error("Failed to schedule delta sync job",
				zap.String("tenant_id", target.TenantID.String()),
				zap.String("provider_id", target.ProviderID),
				zap.Error(err),
			)
		}
	}
}

// TriggerManualSync schedules an immediate sync for a specific tenant/provider
func (c *DeltaSyncTrigger) TriggerManualSync(tenantID uuid.UUID, providerID string) error {
	c.logger.Info("Manual delta sync triggered",
		zap.String("tenant_id", tenantID.String()),
		zap.String("provider_id", providerID),
	)
	return c.scheduler.ScheduleSync(tenantID, providerID)
}

// IsRunning returns whether the trigger is running
func (c *DeltaSyncTrigger) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isRunning
}
