package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/b2x/erp-integration/internal/domain/erp"
	"github.com/b2x/erp-integration/internal/infrastructure/persistence/models"
)

// GormSyncRecordRepository implements SyncRecordRepository using GORM.
// Uniqueness of the internal and external keys is enforced by partial unique
// indexes that exclude DELETED rows; optimistic concurrency is enforced here
// through a compare-and-swap on the concurrency stamp.
type GormSyncRecordRepository struct {
	db *gorm.DB
}

// NewGormSyncRecordRepository creates a new GormSyncRecordRepository
func NewGormSyncRecordRepository(db *gorm.DB) *GormSyncRecordRepository {
	return &GormSyncRecordRepository{db: db}
}

var _ erp.SyncRecordRepository = (*GormSyncRecordRepository)(nil)

// ---------------------------------------------------------------------------
// SyncRecordReader implementation
// ---------------------------------------------------------------------------

// FindByID finds a record by its record identity
func (r *GormSyncRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*erp.SyncRecord, error) {
	var model models.SyncRecordModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, erp.ErrSyncRecordNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByInternalID finds the non-deleted record for an internal-side key
func (r *GormSyncRecordRepository) FindByInternalID(ctx context.Context, key erp.SyncRecordKey) (*erp.SyncRecord, error) {
	var model models.SyncRecordModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND provider_id = ? AND entity_type = ? AND internal_id = ? AND status <> ?",
			key.TenantID, key.ProviderID, key.EntityType, key.InternalID, erp.SyncStatusDeleted).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, erp.ErrSyncRecordNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByExternalID finds the non-deleted record for an ERP-side key
func (r *GormSyncRecordRepository) FindByExternalID(ctx context.Context, key erp.SyncRecordExternalKey) (*erp.SyncRecord, error) {
	var model models.SyncRecordModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND provider_id = ? AND entity_type = ? AND external_id = ? AND status <> ?",
			key.TenantID, key.ProviderID, key.EntityType, key.ExternalID, erp.SyncStatusDeleted).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, erp.ErrSyncRecordNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindPending returns up to limit Pending records in stable (created_at, id) order
func (r *GormSyncRecordRepository) FindPending(ctx context.Context, tenantID uuid.UUID, providerID string, limit int) ([]erp.SyncRecord, error) {
	return r.findByStatus(ctx, tenantID, providerID, erp.SyncStatusPending, limit)
}

// FindFailed returns up to limit Failed records in stable (created_at, id) order
func (r *GormSyncRecordRepository) FindFailed(ctx context.Context, tenantID uuid.UUID, providerID string, limit int) ([]erp.SyncRecord, error) {
	return r.findByStatus(ctx, tenantID, providerID, erp.SyncStatusFailed, limit)
}

func (r *GormSyncRecordRepository) findByStatus(ctx context.Context, tenantID uuid.UUID, providerID string, status erp.SyncStatus, limit int) ([]erp.SyncRecord, error) {
	var recordModels []models.SyncRecordModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND provider_id = ? AND status = ?", tenantID, providerID, status).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&recordModels).Error; err != nil {
		return nil, err
	}

	records := make([]erp.SyncRecord, len(recordModels))
	for i, model := range recordModels {
		records[i] = *model.ToDomain()
	}
	return records, nil
}

// CountByStatus counts records in the given status for a tenant/provider
func (r *GormSyncRecordRepository) CountByStatus(ctx context.Context, tenantID uuid.UUID, providerID string, status erp.SyncStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.SyncRecordModel{}).
		Where("tenant_id = ? AND provider_id = ? AND status = ?", tenantID, providerID, status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ---------------------------------------------------------------------------
// SyncRecordWriter implementation
// ---------------------------------------------------------------------------

// Create inserts a new record. A unique index violation on either key maps to
// ErrSyncRecordAlreadyExists so callers can refetch the winner.
func (r *GormSyncRecordRepository) Create(ctx context.Context, record *erp.SyncRecord) error {
	model := models.SyncRecordModelFromDomain(record)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return erp.ErrSyncRecordAlreadyExists
		}
		return err
	}
	return nil
}

// Update persists a mutated record guarded by a stamp compare-and-swap: the
// write only lands if the row still carries the stamp the caller loaded.
func (r *GormSyncRecordRepository) Update(ctx context.Context, record *erp.SyncRecord, previousStamp uuid.UUID) error {
	model := models.SyncRecordModelFromDomain(record)
	result := r.db.WithContext(ctx).
		Model(&models.SyncRecordModel{}).
		Where("id = ? AND concurrency_stamp = ?", record.ID, previousStamp).
		Select("*").
		Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Either the row is gone or someone else won the stamp race
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&models.SyncRecordModel{}).
			Where("id = ?", record.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return erp.ErrSyncRecordNotFound
		}
		return erp.ErrConcurrencyConflict
	}
	return nil
}

// DeleteOlderThan hard-deletes records already soft-deleted whose last sync is
// before the cutoff. Live records are never touched.
func (r *GormSyncRecordRepository) DeleteOlderThan(ctx context.Context, tenantID uuid.UUID, providerID string, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND provider_id = ? AND status = ? AND last_sync_at < ?",
			tenantID, providerID, erp.SyncStatusDeleted, cutoff).
		Delete(&models.SyncRecordModel{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
