package erp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Operation state and failure kinds
// ---------------------------------------------------------------------------

// OperationState represents the lifecycle state of an executor operation.
type OperationState string

const (
	OperationStatePending   OperationState = "PENDING"
	OperationStateExecuting OperationState = "EXECUTING"
	OperationStateSucceeded OperationState = "SUCCEEDED"
	OperationStateFailed    OperationState = "FAILED"
	OperationStateCancelled OperationState = "CANCELLED"
)

// FailureKind classifies why an operation failed, so callers can apply
// different retry policies per kind.
type FailureKind string

const (
	// FailureKindTimeout means the internal timeout timer fired
	FailureKindTimeout FailureKind = "TIMEOUT"
	// FailureKindCancelled means the caller cancelled the operation
	FailureKindCancelled FailureKind = "CANCELLED"
	// FailureKindWorkFailed means the unit of work itself returned an error
	FailureKindWorkFailed FailureKind = "WORK_FAILED"
	// FailureKindScopeCreation means the connector was unreachable at scope-open time
	FailureKindScopeCreation FailureKind = "SCOPE_CREATION_FAILED"
)

var (
	// ErrResultAlreadySet is returned when an operation's result slot is
	// resolved a second time. This indicates a logic error in the executor.
	ErrResultAlreadySet = errors.New("erp: operation result already set")

	// ErrDuplicateOperation is returned when an operation key was already
	// submitted within its idempotency window.
	ErrDuplicateOperation = errors.New("erp: duplicate operation submission")
)

// OperationError wraps a failed operation's underlying error with its
// classification and the affected operation.
type OperationError struct {
	Kind        FailureKind
	OperationID uuid.UUID
	Err         error
}

// Error implements the error interface
func (e *OperationError) Error() string {
	return fmt.Sprintf("erp: operation %s failed (%s): %v", e.OperationID, e.Kind, e.Err)
}

// Unwrap returns the underlying error
func (e *OperationError) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind of err, or an empty kind if err is not an
// operation failure.
func KindOf(err error) FailureKind {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	return ""
}

// ---------------------------------------------------------------------------
// Operation
// ---------------------------------------------------------------------------

type operationResult struct {
	value any
	err   error
}

// Operation is one unit of work submitted to the executor. It is owned
// exclusively by the executor for its lifetime and exposes its outcome through
// a single-assignment result slot that callers await exactly once.
type Operation struct {
	// ID uniquely identifies this operation, generated at submission
	ID uuid.UUID
	// TenantID scopes the operation to one tenant
	TenantID uuid.UUID
	// Timeout is the execution budget for this operation
	Timeout time.Duration
	// CreatedAt is when the operation was submitted
	CreatedAt time.Time

	mu    sync.Mutex
	state OperationState

	once   sync.Once
	done   chan struct{}
	result operationResult
}

func newOperation(tenantID uuid.UUID, timeout time.Duration) *Operation {
	return &Operation{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Timeout:   timeout,
		CreatedAt: time.Now(),
		state:     OperationStatePending,
		done:      make(chan struct{}),
	}
}

// State returns the current operation state.
func (o *Operation) State() OperationState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Operation) setState(state OperationState) {
	o.mu.Lock()
	o.state = state
	o.mu.Unlock()
}

// complete resolves the result slot. The slot is single-assignment: the first
// call wins and every later call returns ErrResultAlreadySet.
func (o *Operation) complete(value any, err error) error {
	resolved := false
	o.once.Do(func() {
		o.result = operationResult{value: value, err: err}
		close(o.done)
		resolved = true
	})
	if !resolved {
		return ErrResultAlreadySet
	}
	return nil
}

// Done returns a channel closed once the operation settles.
func (o *Operation) Done() <-chan struct{} {
	return o.done
}

// Wait blocks until the operation settles or ctx is cancelled, and returns the
// operation's result. Waiting again after settlement returns the same result.
func (o *Operation) Wait(ctx context.Context) (any, error) {
	select {
	case <-o.done:
		return o.result.value, o.result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
