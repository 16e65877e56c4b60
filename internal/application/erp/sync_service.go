package erp

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/b2x/erp-integration/internal/domain/erp"
	"github.com/b2x/erp-integration/internal/infrastructure/telemetry"
)

const (
	// DefaultMaxRetries is how many sync failures a record absorbs before it
	// escalates to Failed.
	DefaultMaxRetries = 3

	// concurrencyRetryAttempts bounds how often a mutation is replayed after
	// losing an optimistic-concurrency race before the conflict is surfaced.
	concurrencyRetryAttempts = 3
)

// SyncService owns the sync record lifecycle: correlation between internal
// entities and their ERP counterparts, failure bookkeeping, and delta-sync
// queries. All mutations go through optimistic concurrency control.
type SyncService struct {
	repo       erp.SyncRecordRepository
	logger     *zap.Logger
	metrics    *telemetry.SyncMetrics
	maxRetries int
}

// SyncServiceOption customizes service construction.
type SyncServiceOption func(*SyncService)

// WithMaxRetries overrides the failure escalation threshold.
func WithMaxRetries(n int) SyncServiceOption {
	return func(s *SyncService) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// NewSyncService creates a new SyncService.
func NewSyncService(repo erp.SyncRecordRepository, logger *zap.Logger, opts ...SyncServiceOption) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SyncService{
		repo:       repo,
		logger:     logger,
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetSyncMetrics attaches sync metrics to the service.
// Safe to call with nil; metrics recording is skipped when not set.
func (s *SyncService) SetSyncMetrics(sm *telemetry.SyncMetrics) {
	s.metrics = sm
}

// ---------------------------------------------------------------------------
// Get-or-create
// ---------------------------------------------------------------------------

// GetOrCreateForInternal returns the sync record tracking an internal entity,
// creating a Pending unlinked one if none exists. Losing a create race resolves
// to the winner's record, so concurrent callers converge on a single record.
func (s *SyncService) GetOrCreateForInternal(ctx context.Context, key erp.SyncRecordKey) (*erp.SyncRecord, error) {
	record, err := s.repo.FindByInternalID(ctx, key)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, erp.ErrSyncRecordNotFound) {
		return nil, err
	}

	record, err = erp.NewSyncRecordForInternal(key.InternalID, key.EntityType, key.TenantID, key.ProviderID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, record); err != nil {
		if errors.Is(err, erp.ErrSyncRecordAlreadyExists) {
			// Another writer won the race; their record is the record.
			return s.repo.FindByInternalID(ctx, key)
		}
		return nil, err
	}

	s.logger.Info("sync record created",
		zap.String("record_id", record.ID.String()),
		zap.String("tenant_id", key.TenantID.String()),
		zap.String("provider_id", key.ProviderID),
		zap.String("entity_type", key.EntityType),
		zap.String("internal_id", key.InternalID.String()))
	return record, nil
}

// GetOrCreateForExternal returns the sync record tracking an ERP-side entity,
// creating one if none exists. On an existing record the reported revision is
// compared against the stored one; a newer revision updates the record's change
// metadata without touching its status.
func (s *SyncService) GetOrCreateForExternal(ctx context.Context, key erp.SyncRecordExternalKey, revision int64) (*erp.SyncRecord, error) {
	record, err := s.repo.FindByExternalID(ctx, key)
	if err == nil {
		previousStamp := record.ConcurrencyStamp
		if record.RecordExternalRevision(revision) {
			if err := s.repo.Update(ctx, record, previousStamp); err != nil {
				return nil, err
			}
		}
		return record, nil
	}
	if !errors.Is(err, erp.ErrSyncRecordNotFound) {
		return nil, err
	}

	record, err = erp.NewSyncRecordForExternal(key.ExternalID, key.EntityType, key.TenantID, key.ProviderID, revision)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, record); err != nil {
		if errors.Is(err, erp.ErrSyncRecordAlreadyExists) {
			return s.repo.FindByExternalID(ctx, key)
		}
		return nil, err
	}

	s.logger.Info("sync record created from external entity",
		zap.String("record_id", record.ID.String()),
		zap.String("tenant_id", key.TenantID.String()),
		zap.String("provider_id", key.ProviderID),
		zap.String("entity_type", key.EntityType),
		zap.String("external_id", key.ExternalID))
	return record, nil
}

// ---------------------------------------------------------------------------
// Lifecycle transitions
// ---------------------------------------------------------------------------

// LinkEntities binds an internal entity to its ERP counterpart and activates
// the record. The record is created first if the internal side was never seen.
func (s *SyncService) LinkEntities(ctx context.Context, key erp.SyncRecordKey, externalID string, revision int64) (*erp.SyncRecord, error) {
	if _, err := s.GetOrCreateForInternal(ctx, key); err != nil {
		return nil, err
	}
	return s.mutateByInternalID(ctx, key, func(record *erp.SyncRecord) error {
		return record.Link(externalID, revision)
	})
}

// MarkSynced records a successful sync round-trip: revision advances, failure
// bookkeeping resets. Unlike failure handling this is loud about a missing
// record, because marking an untracked entity as synced is a caller bug.
func (s *SyncService) MarkSynced(ctx context.Context, key erp.SyncRecordKey, newRevision int64) (*erp.SyncRecord, error) {
	return s.mutateByInternalID(ctx, key, func(record *erp.SyncRecord) error {
		record.MarkSynced(newRevision)
		return nil
	})
}

// HandleSyncFailure records a failed sync attempt. Once the retry budget is
// exhausted the record escalates to Failed and the returned flag is true.
// A missing record is logged and swallowed: failure handling runs in error
// paths where a second loud error would drown the original one.
func (s *SyncService) HandleSyncFailure(ctx context.Context, key erp.SyncRecordKey, syncErr string) (escalated bool, err error) {
	record, err := s.mutateByInternalID(ctx, key, func(record *erp.SyncRecord) error {
		if record.RecordFailure(syncErr, s.maxRetries) {
			escalated = true
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, erp.ErrSyncRecordNotFound) {
			s.logger.Warn("sync failure for untracked entity, ignoring",
				zap.String("tenant_id", key.TenantID.String()),
				zap.String("provider_id", key.ProviderID),
				zap.String("entity_type", key.EntityType),
				zap.String("internal_id", key.InternalID.String()),
				zap.String("sync_error", syncErr))
			return false, nil
		}
		return false, err
	}

	if escalated {
		s.logger.Error("sync record escalated to failed",
			zap.String("record_id", record.ID.String()),
			zap.String("provider_id", key.ProviderID),
			zap.Int("retry_count", record.RetryCount),
			zap.String("sync_error", syncErr))
		if s.metrics != nil {
			s.metrics.RecordEscalation(ctx, key.ProviderID)
		}
	}
	return escalated, nil
}

// ResetFailed moves a Failed record back to Pending with a fresh retry budget
// so the next delta-sync run picks it up again.
func (s *SyncService) ResetFailed(ctx context.Context, id uuid.UUID) (*erp.SyncRecord, error) {
	return s.mutate(ctx,
		func(ctx context.Context) (*erp.SyncRecord, error) { return s.repo.FindByID(ctx, id) },
		func(record *erp.SyncRecord) error { return record.ResetFailed() })
}

// SoftDelete retires a record from sync consideration while keeping its
// correlation history queryable by record ID.
func (s *SyncService) SoftDelete(ctx context.Context, key erp.SyncRecordKey) (*erp.SyncRecord, error) {
	return s.mutateByInternalID(ctx, key, func(record *erp.SyncRecord) error {
		return record.SoftDelete()
	})
}

// Ignore excludes a record from sync without deleting it.
func (s *SyncService) Ignore(ctx context.Context, key erp.SyncRecordKey) (*erp.SyncRecord, error) {
	return s.mutateByInternalID(ctx, key, func(record *erp.SyncRecord) error {
		return record.Ignore()
	})
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// GetPendingSync returns up to limit records awaiting sync for one
// tenant/provider, in stable order.
func (s *SyncService) GetPendingSync(ctx context.Context, tenantID uuid.UUID, providerID string, limit int) ([]erp.SyncRecord, error) {
	if limit <= 0 {
		return nil, erp.ErrInvalidBatchLimit
	}
	return s.repo.FindPending(ctx, tenantID, providerID, limit)
}

// GetFailedSync returns up to limit escalated records for one tenant/provider.
func (s *SyncService) GetFailedSync(ctx context.Context, tenantID uuid.UUID, providerID string, limit int) ([]erp.SyncRecord, error) {
	if limit <= 0 {
		return nil, erp.ErrInvalidBatchLimit
	}
	return s.repo.FindFailed(ctx, tenantID, providerID, limit)
}

// CountByStatus counts a tenant/provider's records in one status.
func (s *SyncService) CountByStatus(ctx context.Context, tenantID uuid.UUID, providerID string, status erp.SyncStatus) (int64, error) {
	if !status.IsValid() {
		return 0, erp.ErrInvalidSyncStatus
	}
	return s.repo.CountByStatus(ctx, tenantID, providerID, status)
}

// ---------------------------------------------------------------------------
// Cleanup
// ---------------------------------------------------------------------------

// CleanupOldRecords hard-deletes soft-deleted records whose last sync activity
// is older than the retention window. Live records are never touched.
func (s *SyncService) CleanupOldRecords(ctx context.Context, tenantID uuid.UUID, providerID string, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, erp.ErrInvalidRetention
	}
	cutoff := time.Now().Add(-retention)
	removed, err := s.repo.DeleteOlderThan(ctx, tenantID, providerID, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("old sync records removed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("provider_id", providerID),
			zap.Time("cutoff", cutoff),
			zap.Int64("removed", removed))
	}
	return removed, nil
}

// ---------------------------------------------------------------------------
// Optimistic concurrency plumbing
// ---------------------------------------------------------------------------

// mutate loads a record, applies the mutation, and persists it with a stamp
// compare. A lost race reloads and replays the mutation on the fresh record; a
// bounded number of attempts keeps livelock impossible.
func (s *SyncService) mutate(ctx context.Context, load func(ctx context.Context) (*erp.SyncRecord, error), apply func(*erp.SyncRecord) error) (*erp.SyncRecord, error) {
	var lastErr error
	for attempt := 0; attempt < concurrencyRetryAttempts; attempt++ {
		record, err := load(ctx)
		if err != nil {
			return nil, err
		}
		previousStamp := record.ConcurrencyStamp
		if err := apply(record); err != nil {
			return nil, err
		}
		err = s.repo.Update(ctx, record, previousStamp)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, erp.ErrConcurrencyConflict) {
			return nil, err
		}
		lastErr = err
		s.logger.Debug("concurrency conflict, retrying mutation",
			zap.String("record_id", record.ID.String()),
			zap.Int("attempt", attempt+1))
	}
	return nil, lastErr
}

func (s *SyncService) mutateByInternalID(ctx context.Context, key erp.SyncRecordKey, apply func(*erp.SyncRecord) error) (*erp.SyncRecord, error) {
	return s.mutate(ctx,
		func(ctx context.Context) (*erp.SyncRecord, error) { return s.repo.FindByInternalID(ctx, key) },
		apply)
}
