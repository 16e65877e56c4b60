package connector

import (
	"context"

	"github.com/b2x/erp-integration/internal/domain/erp"
)

// MemoryScope is a transaction scope for external systems without a native
// transaction primitive. Work enqueues actions on the scope; Commit runs them
// in order, Rollback discards them. A failing action aborts the commit and
// leaves the scope rolled back, so partially applied batches never look
// committed.
type MemoryScope struct {
	guard   scopeGuard
	actions []func(ctx context.Context) error
}

var _ erp.TransactionScope = (*MemoryScope)(nil)

// Enqueue adds an action to run at commit time. Only valid while active.
func (s *MemoryScope) Enqueue(action func(ctx context.Context) error) error {
	if !s.guard.is(scopeActive) {
		return erp.ErrScopeNotActive
	}
	s.actions = append(s.actions, action)
	return nil
}

// Commit runs the enqueued actions in order.
func (s *MemoryScope) Commit(ctx context.Context) error {
	if err := s.guard.transition(scopeCommitted); err != nil {
		return err
	}
	for _, action := range s.actions {
		if err := action(ctx); err != nil {
			// Partial application must not read as committed
			s.guard.mu.Lock()
			s.guard.state = scopeRolledBack
			s.guard.mu.Unlock()
			return err
		}
	}
	return nil
}

// Rollback discards the enqueued actions.
func (s *MemoryScope) Rollback(ctx context.Context) error {
	if err := s.guard.transition(scopeRolledBack); err != nil {
		return err
	}
	s.actions = nil
	return nil
}

// IsActive reports whether the scope is still open
func (s *MemoryScope) IsActive() bool { return s.guard.is(scopeActive) }

// IsCommitted reports whether Commit has fired
func (s *MemoryScope) IsCommitted() bool { return s.guard.is(scopeCommitted) }

// IsRolledBack reports whether Rollback has fired
func (s *MemoryScope) IsRolledBack() bool { return s.guard.is(scopeRolledBack) }

// MemoryScopeFactory creates MemoryScopes.
type MemoryScopeFactory struct{}

var _ erp.ScopeFactory = (*MemoryScopeFactory)(nil)

// NewMemoryScopeFactory creates a new MemoryScopeFactory
func NewMemoryScopeFactory() *MemoryScopeFactory {
	return &MemoryScopeFactory{}
}

// CreateScope opens a new in-memory transaction scope
func (f *MemoryScopeFactory) CreateScope(ctx context.Context) (erp.TransactionScope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &MemoryScope{}, nil
}
