package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/b2x/erp-integration/internal/domain/erp"
	"github.com/b2x/erp-integration/internal/infrastructure/telemetry"
)

// ---------------------------------------------------------------------------
// DeltaSyncExecutorImpl
// ---------------------------------------------------------------------------

// PendingRecordSource provides pending sync records for one tenant/provider.
// The reconciliation service satisfies this interface.
type PendingRecordSource interface {
	GetPendingSync(ctx context.Context, tenantID uuid.UUID, providerID string, limit int) ([]erp.SyncRecord, error)
}

// RecordSyncFunc pushes one record through the sync pipeline. It reports
// whether the failure handling escalated the record to Failed.
type RecordSyncFunc func(ctx context.Context, record *erp.SyncRecord) (escalated bool, err error)

// DeltaSyncExecutorImpl implements DeltaSyncExecutor. One Execute call drains
// a single batch; records that stay Pending are picked up by the next run.
type DeltaSyncExecutorImpl struct {
	records   PendingRecordSource
	logger    *zap.Logger
	metrics   *telemetry.SyncMetrics
	batchSize int

	// Callback handlers
	onRecordSync    RecordSyncFunc
	onSyncCompleted func(ctx context.Context, job *DeltaSyncJob) error
}

// NewDeltaSyncExecutor creates a new delta sync executor
func NewDeltaSyncExecutor(
	records PendingRecordSource,
	batchSize int,
	logger *zap.Logger,
) *DeltaSyncExecutorImpl {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &DeltaSyncExecutorImpl{
		records:   records,
		batchSize: batchSize,
		logger:    logger,
	}
}

// SetSyncMetrics wires delta-sync run metrics. Safe to leave unset.
func (e *DeltaSyncExecutorImpl) SetSyncMetrics(sm *telemetry.SyncMetrics) {
	e.metrics = sm
}

// SetOnRecordSyncCallback sets the callback that syncs a single record
func (e *DeltaSyncExecutorImpl) SetOnRecordSyncCallback(cb RecordSyncFunc) {
	e.onRecordSync = cb
}

// SetOnSyncCompletedCallback sets the callback for when a batch completes
func (e *DeltaSyncExecutorImpl) SetOnSyncCompletedCallback(cb func(ctx context.Context, job *DeltaSyncJob) error) {
	e.onSyncCompleted = cb
}

// Execute drains one batch of pending records for the job's tenant/provider
func (e *DeltaSyncExecutorImpl) Execute(ctx context.Context, job *DeltaSyncJob) error {
	records, err := e.records.GetPendingSync(ctx, job.TenantID, job.ProviderID, e.batchSize)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeltaSyncFailed, err)
	}

	e.logger.Info("Starting delta sync execution",
		zap.String("job_id", job.ID.String()),
		zap.String("tenant_id", job.TenantID.String()),
		zap.String("provider_id", job.ProviderID),
		zap.Int("batch_size", len(records)),
	)

	successCount := 0
	failedCount := 0
	escalatedCount := 0
	failedRecordIDs := make([]string, 0)

	for i := range records {
		select {
		case <-ctx.Done():
			return ErrDeltaSyncTimeout
		default:
		}

		record := &records[i]

		if e.onRecordSync == nil {
			continue
		}

		escalated, syncErr := e.onRecordSync(ctx, record)
		if syncErr != nil {
			e.logger.Error("Failed to sync record",
				zap.String("job_id", job.ID.String()),
				zap.String("record_id", record.ID.String()),
				zap.String("entity_type", record.EntityType),
				zap.Error(syncErr),
			)
			failedCount++
			failedRecordIDs = append(failedRecordIDs, record.ID.String())
			if escalated {
				escalatedCount++
			}
			continue
		}

		successCount++
	}

	// Update job with results
	job.Complete(len(records), successCount, failedCount, escalatedCount)
	job.FailedRecordIDs = failedRecordIDs

	if e.metrics != nil {
		e.metrics.RecordDeltaSyncRun(ctx, job.ProviderID, len(records))
	}

	// Call completion callback if set
	if e.onSyncCompleted != nil {
		if err := e.onSyncCompleted(ctx, job); err != nil {
			e.logger.Warn("Sync completed callback failed",
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
		}
	}

	e.logger.Info("Delta sync execution completed",
		zap.String("job_id", job.ID.String()),
		zap.String("status", string(job.Status)),
		zap.Int("total_records", job.TotalRecords),
		zap.Int("success_count", successCount),
		zap.Int("failed_count", failedCount),
		zap.Int("escalated_count", escalatedCount),
	)

	return nil
}

// Ensure DeltaSyncExecutorImpl implements DeltaSyncExecutor
var _ DeltaSyncExecutor = (*DeltaSyncExecutorImpl)(nil)
