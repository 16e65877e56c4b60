package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/b2x/erp-integration/internal/domain/erp"
)

// SyncRecordModel is the persistence model for the SyncRecord domain entity.
// The unique indexes on the internal and external keys are partial (they
// exclude DELETED rows) and therefore live in the migrations, not in tags.
type SyncRecordModel struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primary_key"`
	TenantID           uuid.UUID      `gorm:"type:uuid;not null;index:idx_sync_records_tenant_provider,priority:1"`
	ProviderID         string         `gorm:"type:varchar(50);not null;index:idx_sync_records_tenant_provider,priority:2"`
	EntityType         string         `gorm:"type:varchar(100);not null;index:idx_sync_records_tenant_provider,priority:3"`
	InternalID         uuid.UUID      `gorm:"type:uuid;not null"`
	InternalEntityType string         `gorm:"type:varchar(100);not null"`
	ExternalID         string         `gorm:"type:varchar(200)"`
	ExternalEntityType string         `gorm:"type:varchar(100)"`
	ExternalRevision   int64          `gorm:"not null;default:0"`
	Status             erp.SyncStatus `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_sync_records_status"`
	ErrorMessage       string         `gorm:"type:text"`
	RetryCount         int            `gorm:"not null;default:0"`
	ConcurrencyStamp   uuid.UUID      `gorm:"type:uuid;not null"`
	CreatedAt          time.Time      `gorm:"not null;index:idx_sync_records_created"`
	LastSyncAt         time.Time      `gorm:"not null;index"`
	LastModifiedAt     *time.Time
}

// TableName returns the table name for GORM
func (SyncRecordModel) TableName() string {
	return "erp_sync_records"
}

// ToDomain converts the persistence model to a domain SyncRecord entity.
func (m *SyncRecordModel) ToDomain() *erp.SyncRecord {
	return &erp.SyncRecord{
		ID:                 m.ID,
		TenantID:           m.TenantID,
		ProviderID:         m.ProviderID,
		EntityType:         m.EntityType,
		InternalID:         m.InternalID,
		InternalEntityType: m.InternalEntityType,
		ExternalID:         m.ExternalID,
		ExternalEntityType: m.ExternalEntityType,
		ExternalRevision:   m.ExternalRevision,
		Status:             m.Status,
		ErrorMessage:       m.ErrorMessage,
		RetryCount:         m.RetryCount,
		ConcurrencyStamp:   m.ConcurrencyStamp,
		CreatedAt:          m.CreatedAt,
		LastSyncAt:         m.LastSyncAt,
		LastModifiedAt:     m.LastModifiedAt,
	}
}

// FromDomain populates the persistence model from a domain SyncRecord entity.
func (m *SyncRecordModel) FromDomain(r *erp.SyncRecord) {
	m.ID = r.ID
	m.TenantID = r.TenantID
	m.ProviderID = r.ProviderID
	m.EntityType = r.EntityType
	m.InternalID = r.InternalID
	m.InternalEntityType = r.InternalEntityType
	m.ExternalID = r.ExternalID
	m.ExternalEntityType = r.ExternalEntityType
	m.ExternalRevision = r.ExternalRevision
	m.Status = r.Status
	m.ErrorMessage = r.ErrorMessage
	m.RetryCount = r.RetryCount
	m.ConcurrencyStamp = r.ConcurrencyStamp
	m.CreatedAt = r.CreatedAt
	m.LastSyncAt = r.LastSyncAt
	m.LastModifiedAt = r.LastModifiedAt
}

// SyncRecordModelFromDomain creates a new persistence model from a domain SyncRecord entity.
func SyncRecordModelFromDomain(r *erp.SyncRecord) *SyncRecordModel {
	m := &SyncRecordModel{}
	m.FromDomain(r)
	return m
}
