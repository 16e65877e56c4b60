package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRecordCleaner implements RecordCleaner for testing
type mockRecordCleaner struct {
	cleanupFunc func(ctx context.Context, tenantID uuid.UUID, providerID string, retention time.Duration) (int64, error)
	callCount   int32
}

func (m *mockRecordCleaner) CleanupOldRecords(ctx context.Context, tenantID uuid.UUID, providerID string, retention time.Duration) (int64, error) {
	atomic.AddInt32(&m.callCount, 1)
	if m.cleanupFunc != nil {
		return m.cleanupFunc(ctx, tenantID, providerID, retention)
	}
	return 42, nil
}

func TestDefaultCleanupSchedulerConfig(t *testing.T) {
	config := DefaultCleanupSchedulerConfig()

	assert.True(t, config.Enabled)
	assert.Equal(t, 3, config.CleanupHour)
	assert.Equal(t, 90*24*time.Hour, config.Retention)
	assert.Equal(t, 15*time.Minute, config.CleanupTimeout)
}

func TestCleanupScheduler_StartStop(t *testing.T) {
	cleaner := &mockRecordCleaner{}
	logger := newTestLogger()
	config := DefaultCleanupSchedulerConfig()

	scheduler := NewCleanupScheduler(cleaner, StaticSyncTargets{}, logger, config)

	ctx := context.Background()

	err := scheduler.Start(ctx)
	require.NoError(t, err)
	assert.True(t, scheduler.IsRunning())

	// Start again should be idempotent
	err = scheduler.Start(ctx)
	require.NoError(t, err)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err = scheduler.Stop(stopCtx)
	require.NoError(t, err)
	assert.False(t, scheduler.IsRunning())

	// Stop again should be idempotent
	err = scheduler.Stop(stopCtx)
	require.NoError(t, err)
}

func TestCleanupScheduler_Disabled(t *testing.T) {
	cleaner := &mockRecordCleaner{}
	logger := newTestLogger()
	config := DefaultCleanupSchedulerConfig()
	config.Enabled = false

	scheduler := NewCleanupScheduler(cleaner, StaticSyncTargets{}, logger, config)

	err := scheduler.Start(context.Background())
	require.NoError(t, err)
	assert.False(t, scheduler.IsRunning())
}

func TestCleanupScheduler_TriggerImmediateCleanup(t *testing.T) {
	cleaner := &mockRecordCleaner{}
	logger := newTestLogger()
	config := DefaultCleanupSchedulerConfig()

	targets := StaticSyncTargets{
		{TenantID: uuid.New(), ProviderID: "fashop"},
		{TenantID: uuid.New(), ProviderID: "sap"},
	}
	scheduler := NewCleanupScheduler(cleaner, targets, logger, config)

	ctx := context.Background()
	err := scheduler.Start(ctx)
	require.NoError(t, err)

	err = scheduler.TriggerImmediateCleanup(ctx)
	require.NoError(t, err)

	// Wait for cleanup to run
	time.Sleep(200 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err = scheduler.Stop(stopCtx)
	require.NoError(t, err)

	// One cleanup call per target
	assert.Equal(t, int32(2), atomic.LoadInt32(&cleaner.callCount))
}

func TestCleanupScheduler_TriggerImmediateCleanup_NotRunning(t *testing.T) {
	cleaner := &mockRecordCleaner{}
	logger := newTestLogger()
	config := DefaultCleanupSchedulerConfig()

	scheduler := NewCleanupScheduler(cleaner, StaticSyncTargets{}, logger, config)

	err := scheduler.TriggerImmediateCleanup(context.Background())
	assert.Equal(t, ErrSchedulerNotRunning, err)
}

func TestCleanupScheduler_ContinuesAfterTargetFailure(t *testing.T) {
	cleaner := &mockRecordCleaner{
		cleanupFunc: func(ctx context.Context, tenantID uuid.UUID, providerID string, retention time.Duration) (int64, error) {
			if providerID == "fashop" {
				return 0, errors.New("database unavailable")
			}
			return 7, nil
		},
	}
	logger := newTestLogger()
	config := DefaultCleanupSchedulerConfig()

	targets := StaticSyncTargets{
		{TenantID: uuid.New(), ProviderID: "fashop"},
		{TenantID: uuid.New(), ProviderID: "sap"},
	}
	scheduler := NewCleanupScheduler(cleaner, targets, logger, config)

	ctx := context.Background()
	err := scheduler.Start(ctx)
	require.NoError(t, err)

	err = scheduler.TriggerImmediateCleanup(ctx)
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err = scheduler.Stop(stopCtx)
	require.NoError(t, err)

	// Both targets were attempted despite the first failing
	assert.Equal(t, int32(2), atomic.LoadInt32(&cleaner.callCount))
}
