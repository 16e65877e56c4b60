package erp

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SyncRecordKey identifies one sync record by its internal-side identity.
type SyncRecordKey struct {
	TenantID   uuid.UUID
	ProviderID string
	EntityType string
	InternalID uuid.UUID
}

// SyncRecordExternalKey identifies one sync record by its ERP-side identity.
type SyncRecordExternalKey struct {
	TenantID   uuid.UUID
	ProviderID string
	EntityType string
	ExternalID string
}

// SyncRecordReader defines the lookup side of sync record persistence.
// Deleted records are excluded from all key lookups.
type SyncRecordReader interface {
	// FindByID finds a record by its record identity
	FindByID(ctx context.Context, id uuid.UUID) (*SyncRecord, error)

	// FindByInternalID finds the non-deleted record for an internal-side key
	FindByInternalID(ctx context.Context, key SyncRecordKey) (*SyncRecord, error)

	// FindByExternalID finds the non-deleted record for an ERP-side key
	FindByExternalID(ctx context.Context, key SyncRecordExternalKey) (*SyncRecord, error)

	// FindPending returns up to limit Pending records for delta-sync batch runs.
	// Ordering is stable within a call (created_at, id) so a snapshot yields
	// no duplicates and no omissions.
	FindPending(ctx context.Context, tenantID uuid.UUID, providerID string, limit int) ([]SyncRecord, error)

	// FindFailed returns up to limit Failed records for monitoring/recovery
	FindFailed(ctx context.Context, tenantID uuid.UUID, providerID string, limit int) ([]SyncRecord, error)

	// CountByStatus counts records in the given status for a tenant/provider
	CountByStatus(ctx context.Context, tenantID uuid.UUID, providerID string, status SyncStatus) (int64, error)
}

// SyncRecordWriter defines the mutation side of sync record persistence.
// The repository, not the service, enforces the uniqueness invariant (unique
// indexes on the internal and external keys) and optimistic concurrency: Update
// compares the record's previous ConcurrencyStamp and returns
// ErrConcurrencyConflict on a mismatch.
type SyncRecordWriter interface {
	// Create inserts a new record. Returns ErrSyncRecordAlreadyExists when a
	// non-deleted record for the same key already exists, so callers can
	// refetch instead of duplicating.
	Create(ctx context.Context, record *SyncRecord) error

	// Update persists a mutated record using the stamp the record carried when
	// it was loaded. previousStamp is the stamp read before mutation.
	Update(ctx context.Context, record *SyncRecord, previousStamp uuid.UUID) error

	// DeleteOlderThan hard-deletes records already soft-deleted whose last sync
	// is before the cutoff. Returns the number of removed records. This is the
	// only physical-delete path; it backs the explicit cleanup operation.
	DeleteOlderThan(ctx context.Context, tenantID uuid.UUID, providerID string, cutoff time.Time) (int64, error)
}

// SyncRecordRepository defines the full persistence port for sync records.
type SyncRecordRepository interface {
	SyncRecordReader
	SyncRecordWriter
}
