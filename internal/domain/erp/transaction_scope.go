package erp

import "context"

// TransactionScope represents one transaction opened against an external ERP
// system. The state machine is Open -> {Committed | RolledBack}: at most one of
// Commit/Rollback may ever succeed, and the scope stops being active once
// either fires. Different ERP systems back this with different native
// transaction primitives; the executor depends only on this contract.
type TransactionScope interface {
	// Commit commits the scope. Only valid while the scope is active; calling
	// it on a committed or rolled-back scope fails with an invalid-state error
	// rather than silently no-oping, since that would mask a caller bug.
	Commit(ctx context.Context) error

	// Rollback rolls the scope back. Safe to call while active; calling it on
	// an already-committed scope fails loudly.
	Rollback(ctx context.Context) error

	// IsActive reports whether the scope is still open
	IsActive() bool
	// IsCommitted reports whether Commit has fired
	IsCommitted() bool
	// IsRolledBack reports whether Rollback has fired
	IsRolledBack() bool
}

// ScopeFactory creates transaction scopes for one connector. Implementations
// are supplied per ERP system; creation fails when the external system is
// unreachable.
type ScopeFactory interface {
	// CreateScope opens a new transaction scope against the external system
	CreateScope(ctx context.Context) (TransactionScope, error)
}
