package erp

import (
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// SyncStatus
// ---------------------------------------------------------------------------

// SyncStatus represents the lifecycle status of a sync record.
type SyncStatus string

const (
	// SyncStatusActive indicates the mapping is confirmed on both sides
	SyncStatusActive SyncStatus = "ACTIVE"
	// SyncStatusPending indicates the record exists but has not been linked yet
	SyncStatusPending SyncStatus = "PENDING"
	// SyncStatusFailed indicates retries were exhausted; manual intervention required
	SyncStatusFailed SyncStatus = "FAILED"
	// SyncStatusDeleted indicates the mapping reached end of life (soft delete)
	SyncStatusDeleted SyncStatus = "DELETED"
	// SyncStatusIgnored indicates an operator excluded the record from syncing
	SyncStatusIgnored SyncStatus = "IGNORED"
)

// IsValid returns true if the status is a known value
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusActive, SyncStatusPending, SyncStatusFailed, SyncStatusDeleted, SyncStatusIgnored:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the status is not re-enterable automatically.
// Recovery from Failed or Deleted requires an explicit reset by a caller.
func (s SyncStatus) IsTerminal() bool {
	return s == SyncStatusFailed || s == SyncStatusDeleted || s == SyncStatusIgnored
}

// String returns the string representation of SyncStatus
func (s SyncStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// SyncRecord Entity
// ---------------------------------------------------------------------------

// SyncRecord is the durable mapping between an internal entity identity and an
// external ERP entity identity for one tenant and provider. A record is created
// on first reference from either side and is never physically deleted by normal
// operation; Deleted status is a soft end-of-life marker.
type SyncRecord struct {
	// ID is the record identity, independent of both systems' entity identities
	ID uuid.UUID
	// TenantID is the tenant this record belongs to
	TenantID uuid.UUID
	// ProviderID identifies the ERP connector ("fashop", "sap", ...)
	ProviderID string
	// EntityType is the logical entity kind ("Article", "Customer", "Order", ...)
	EntityType string
	// InternalID is the platform-side entity identity
	InternalID uuid.UUID
	// InternalEntityType is the platform-side entity kind
	InternalEntityType string
	// ExternalID is the ERP-side entity identity; empty until first successful link
	ExternalID string
	// ExternalEntityType is the ERP-side entity kind
	ExternalEntityType string
	// ExternalRevision is the monotonic change token reported by the ERP side
	ExternalRevision int64
	// Status is the sync lifecycle status
	Status SyncStatus
	// ErrorMessage holds the last sync error, if any
	ErrorMessage string
	// RetryCount is the number of failed sync attempts since the last success
	RetryCount int
	// ConcurrencyStamp is regenerated on every mutation and used for
	// optimistic-concurrency writes by the repository
	ConcurrencyStamp uuid.UUID
	// CreatedAt is when the record was created
	CreatedAt time.Time
	// LastSyncAt is when the record was last successfully synced
	LastSyncAt time.Time
	// LastModifiedAt is when an external-side change was last detected
	LastModifiedAt *time.Time
}

// NewSyncRecordForInternal creates a Pending record referenced from the platform side.
func NewSyncRecordForInternal(internalID uuid.UUID, entityType string, tenantID uuid.UUID, providerID string) (*SyncRecord, error) {
	if tenantID == uuid.Nil {
		return nil, ErrInvalidTenantID
	}
	if providerID == "" {
		return nil, ErrInvalidProviderID
	}
	if entityType == "" {
		return nil, ErrInvalidEntityType
	}
	if internalID == uuid.Nil {
		return nil, ErrInvalidInternalID
	}

	now := time.Now()
	return &SyncRecord{
		ID:                 uuid.New(),
		TenantID:           tenantID,
		ProviderID:         providerID,
		EntityType:         entityType,
		InternalID:         internalID,
		InternalEntityType: entityType,
		Status:             SyncStatusPending,
		ConcurrencyStamp:   uuid.New(),
		CreatedAt:          now,
		LastSyncAt:         now,
	}, nil
}

// NewSyncRecordForExternal creates a Pending record referenced from the ERP side.
func NewSyncRecordForExternal(externalID string, entityType string, tenantID uuid.UUID, providerID string, revision int64) (*SyncRecord, error) {
	if tenantID == uuid.Nil {
		return nil, ErrInvalidTenantID
	}
	if providerID == "" {
		return nil, ErrInvalidProviderID
	}
	if entityType == "" {
		return nil, ErrInvalidEntityType
	}
	if externalID == "" {
		return nil, ErrInvalidExternalID
	}

	now := time.Now()
	return &SyncRecord{
		ID:                 uuid.New(),
		TenantID:           tenantID,
		ProviderID:         providerID,
		EntityType:         entityType,
		ExternalID:         externalID,
		ExternalEntityType: entityType,
		ExternalRevision:   revision,
		Status:             SyncStatusPending,
		ConcurrencyStamp:   uuid.New(),
		CreatedAt:          now,
		LastSyncAt:         now,
	}, nil
}

// touch regenerates the concurrency stamp. Every mutation goes through here so
// the repository's compare-and-swap always sees a fresh stamp.
func (r *SyncRecord) touch() {
	r.ConcurrencyStamp = uuid.New()
}

// Link sets the external identity and confirms the mapping.
// Pending and Active records may be (re)linked; terminal records may not.
func (r *SyncRecord) Link(externalID string, revision int64) error {
	if externalID == "" {
		return ErrInvalidExternalID
	}
	if r.Status != SyncStatusPending && r.Status != SyncStatusActive {
		return ErrInvalidStatusTransition
	}

	r.ExternalID = externalID
	if r.ExternalEntityType == "" {
		r.ExternalEntityType = r.EntityType
	}
	r.ExternalRevision = revision
	r.Status = SyncStatusActive
	r.LastSyncAt = time.Now()
	r.ErrorMessage = ""
	r.RetryCount = 0
	r.touch()
	return nil
}

// RecordExternalRevision updates the stored revision when the ERP side reports
// a change. Status is intentionally left untouched; only change detection
// metadata moves.
func (r *SyncRecord) RecordExternalRevision(revision int64) bool {
	if r.ExternalRevision == revision {
		return false
	}
	now := time.Now()
	r.ExternalRevision = revision
	r.LastModifiedAt = &now
	r.touch()
	return true
}

// MarkSynced records a successful sync with the new external revision.
func (r *SyncRecord) MarkSynced(newRevision int64) {
	r.ExternalRevision = newRevision
	r.LastSyncAt = time.Now()
	r.ErrorMessage = ""
	r.RetryCount = 0
	r.touch()
}

// RecordFailure increments the retry count and escalates to Failed once
// maxRetries is reached. Returns true if the record transitioned to Failed.
func (r *SyncRecord) RecordFailure(errMsg string, maxRetries int) bool {
	r.ErrorMessage = errMsg
	r.RetryCount++
	r.touch()

	if r.RetryCount >= maxRetries {
		r.Status = SyncStatusFailed
		return true
	}
	return false
}

// ResetFailed returns a Failed record to Pending for another sync attempt.
// This is an explicit recovery path; it is never triggered automatically.
func (r *SyncRecord) ResetFailed() error {
	if r.Status != SyncStatusFailed {
		return ErrInvalidStatusTransition
	}
	r.Status = SyncStatusPending
	r.RetryCount = 0
	r.ErrorMessage = ""
	r.touch()
	return nil
}

// SoftDelete marks the record as end-of-life without removing it.
func (r *SyncRecord) SoftDelete() error {
	if r.Status == SyncStatusDeleted {
		return ErrSyncRecordDeleted
	}
	r.Status = SyncStatusDeleted
	r.touch()
	return nil
}

// Ignore excludes the record from syncing. Operator action only.
func (r *SyncRecord) Ignore() error {
	if r.Status == SyncStatusDeleted {
		return ErrSyncRecordDeleted
	}
	r.Status = SyncStatusIgnored
	r.touch()
	return nil
}

// IsLinked returns true once the external identity has been set.
func (r *SyncRecord) IsLinked() bool {
	return r.ExternalID != ""
}
