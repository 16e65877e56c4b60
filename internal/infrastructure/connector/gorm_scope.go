package connector

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/b2x/erp-integration/internal/domain/erp"
)

// GormScope backs a transaction scope with a database transaction. Connectors
// that stage their outbound changes in local tables get atomicity from the
// database itself.
type GormScope struct {
	guard scopeGuard
	tx    *gorm.DB
}

var _ erp.TransactionScope = (*GormScope)(nil)

// Tx returns the transaction handle for repository work inside the scope.
// Returns nil once the scope has settled.
func (s *GormScope) Tx() *gorm.DB {
	if !s.guard.is(scopeActive) {
		return nil
	}
	return s.tx
}

// Commit commits the underlying database transaction.
func (s *GormScope) Commit(ctx context.Context) error {
	if err := s.guard.transition(scopeCommitted); err != nil {
		return err
	}
	if err := s.tx.Commit().Error; err != nil {
		s.guard.mu.Lock()
		s.guard.state = scopeRolledBack
		s.guard.mu.Unlock()
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Rollback rolls the underlying database transaction back.
func (s *GormScope) Rollback(ctx context.Context) error {
	if err := s.guard.transition(scopeRolledBack); err != nil {
		return err
	}
	if err := s.tx.Rollback().Error; err != nil {
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}

// IsActive reports whether the scope is still open
func (s *GormScope) IsActive() bool { return s.guard.is(scopeActive) }

// IsCommitted reports whether Commit has fired
func (s *GormScope) IsCommitted() bool { return s.guard.is(scopeCommitted) }

// IsRolledBack reports whether Rollback has fired
func (s *GormScope) IsRolledBack() bool { return s.guard.is(scopeRolledBack) }

// GormScopeFactory creates database-backed transaction scopes.
type GormScopeFactory struct {
	db *gorm.DB
}

var _ erp.ScopeFactory = (*GormScopeFactory)(nil)

// NewGormScopeFactory creates a new GormScopeFactory
func NewGormScopeFactory(db *gorm.DB) *GormScopeFactory {
	return &GormScopeFactory{db: db}
}

// CreateScope opens a new database transaction.
func (f *GormScopeFactory) CreateScope(ctx context.Context) (erp.TransactionScope, error) {
	tx := f.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("%w: %v", erp.ErrScopeCreationFailed, tx.Error)
	}
	return &GormScope{tx: tx}, nil
}
