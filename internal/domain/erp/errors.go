package erp

import "errors"

var (
	// Validation errors (rejected before any repository call)
	ErrInvalidTenantID    = errors.New("erp: invalid tenant ID")
	ErrInvalidProviderID  = errors.New("erp: invalid provider ID")
	ErrInvalidEntityType  = errors.New("erp: invalid entity type")
	ErrInvalidInternalID  = errors.New("erp: invalid internal entity ID")
	ErrInvalidExternalID  = errors.New("erp: invalid external entity ID")
	ErrInvalidRetryLimit  = errors.New("erp: retry limit must be positive")
	ErrInvalidRetention   = errors.New("erp: retention window must be positive")
	ErrInvalidBatchLimit  = errors.New("erp: batch limit must be positive")

	// Sync record errors
	ErrSyncRecordNotFound      = errors.New("erp: sync record not found")
	ErrSyncRecordAlreadyExists = errors.New("erp: sync record already exists for this key")
	ErrSyncRecordDeleted       = errors.New("erp: sync record is deleted")
	ErrConcurrencyConflict     = errors.New("erp: sync record was modified by another process")
	ErrInvalidStatusTransition = errors.New("erp: invalid sync status transition")
	ErrInvalidSyncStatus       = errors.New("erp: invalid sync status")

	// Transaction scope errors
	ErrScopeNotActive         = errors.New("erp: transaction scope is not active")
	ErrScopeAlreadyCommitted  = errors.New("erp: transaction scope already committed")
	ErrScopeAlreadyRolledBack = errors.New("erp: transaction scope already rolled back")
	ErrScopeCreationFailed    = errors.New("erp: failed to create transaction scope")

	// Connector errors
	ErrProviderNotRegistered = errors.New("erp: provider not registered")
	ErrProviderAlreadyExists = errors.New("erp: provider already registered")
	ErrOperationNotSupported = errors.New("erp: operation not supported by connector")
)
