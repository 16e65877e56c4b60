package erp

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/b2x/erp-integration/internal/domain/erp"
	"github.com/b2x/erp-integration/internal/domain/shared"
	"github.com/b2x/erp-integration/internal/infrastructure/telemetry"
)

// DefaultOperationTimeout bounds transactional operations that do not specify
// their own budget.
const DefaultOperationTimeout = 60 * time.Second

// WorkFunc is the unit of work an operation runs inside its transaction scope.
// The work must honour ctx cancellation and must not commit or roll back the
// scope itself; the executor owns the scope lifecycle.
type WorkFunc func(ctx context.Context, scope erp.TransactionScope) (any, error)

// ExecutorStats is a point-in-time snapshot of executor counters.
type ExecutorStats struct {
	Processed int64
	Failed    int64
}

// Executor runs ERP operations one level above the raw connector: every
// transactional operation gets a fresh transaction scope, a timeout, and a
// guaranteed commit-or-rollback outcome. Callers never touch scopes directly.
type Executor struct {
	providerID     string
	scopes         erp.ScopeFactory
	defaultTimeout time.Duration
	logger         *zap.Logger
	metrics        *telemetry.SyncMetrics

	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration

	processed atomic.Int64
	failed    atomic.Int64
}

// ExecutorOption customizes executor construction.
type ExecutorOption func(*Executor)

// WithDefaultTimeout overrides the default per-operation timeout.
func WithDefaultTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.defaultTimeout = d
		}
	}
}

// WithIdempotencyStore enables duplicate-submission protection for operations
// submitted with an operation key.
func WithIdempotencyStore(store shared.IdempotencyStore, ttl time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.idempotency = store
		if ttl > 0 {
			e.idempotencyTTL = ttl
		}
	}
}

// NewExecutor creates an executor for one connector's scope factory.
func NewExecutor(providerID string, scopes erp.ScopeFactory, logger *zap.Logger, opts ...ExecutorOption) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Executor{
		providerID:     providerID,
		scopes:         scopes,
		defaultTimeout: DefaultOperationTimeout,
		logger:         logger,
		idempotencyTTL: shared.DefaultIdempotencyConfig().TTL,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetSyncMetrics attaches sync metrics to the executor.
// Safe to call with nil; metrics recording is skipped when not set.
func (e *Executor) SetSyncMetrics(sm *telemetry.SyncMetrics) {
	e.metrics = sm
}

// Stats returns a snapshot of processed/failed counters.
func (e *Executor) Stats() ExecutorStats {
	return ExecutorStats{
		Processed: e.processed.Load(),
		Failed:    e.failed.Load(),
	}
}

// Submit starts a transactional operation and returns immediately. The caller
// awaits the outcome through the returned operation. A non-positive timeout
// selects the executor default.
func (e *Executor) Submit(ctx context.Context, tenantID uuid.UUID, timeout time.Duration, work WorkFunc) *Operation {
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}
	op := newOperation(tenantID, timeout)

	e.logger.Debug("operation submitted",
		zap.String("operation_id", op.ID.String()),
		zap.String("tenant_id", tenantID.String()),
		zap.String("provider_id", e.providerID),
		zap.Duration("timeout", timeout))

	go e.run(ctx, op, work)
	return op
}

// SubmitOnce is Submit with duplicate protection: the same operation key is
// accepted at most once per idempotency window. Requires an idempotency store;
// without one the key is ignored.
func (e *Executor) SubmitOnce(ctx context.Context, tenantID uuid.UUID, operationKey string, timeout time.Duration, work WorkFunc) (*Operation, error) {
	if e.idempotency != nil && operationKey != "" {
		fresh, err := e.idempotency.MarkProcessed(ctx, e.providerID+":"+operationKey, e.idempotencyTTL)
		if err != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !fresh {
			e.logger.Warn("duplicate operation rejected",
				zap.String("operation_key", operationKey),
				zap.String("provider_id", e.providerID))
			return nil, ErrDuplicateOperation
		}
	}
	return e.Submit(ctx, tenantID, timeout, work), nil
}

// Execute submits an operation and waits for its outcome.
func (e *Executor) Execute(ctx context.Context, tenantID uuid.UUID, timeout time.Duration, work WorkFunc) (any, error) {
	op := e.Submit(ctx, tenantID, timeout, work)
	return op.Wait(ctx)
}

// run drives one operation to settlement. The result slot is resolved exactly
// once on every path out of this function.
func (e *Executor) run(parent context.Context, op *Operation, work WorkFunc) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, op.Timeout)
	defer cancel()

	op.setState(OperationStateExecuting)

	scope, err := e.scopes.CreateScope(ctx)
	if err != nil {
		e.settle(ctx, op, nil, &OperationError{
			Kind:        FailureKindScopeCreation,
			OperationID: op.ID,
			Err:         err,
		}, start)
		return
	}

	// Whatever happens below, a scope still open on the way out is rolled
	// back. Rollback uses a detached context so it still runs after the
	// operation context has expired.
	defer func() {
		if !scope.IsActive() {
			return
		}
		if rbErr := scope.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			e.logger.Error("scope rollback failed",
				zap.String("operation_id", op.ID.String()),
				zap.String("provider_id", e.providerID),
				zap.Error(rbErr))
		}
	}()

	value, workErr := work(ctx, scope)
	if workErr != nil {
		e.settle(ctx, op, nil, e.classify(ctx, op, workErr), start)
		return
	}

	if err := scope.Commit(ctx); err != nil {
		e.settle(ctx, op, nil, e.classify(ctx, op, fmt.Errorf("commit failed: %w", err)), start)
		return
	}

	e.settle(ctx, op, value, nil, start)
}

// classify maps a failure to its kind. A cancelled or expired operation
// context takes precedence over the work's own error, since the work most
// likely failed because the context fired.
func (e *Executor) classify(ctx context.Context, op *Operation, err error) *OperationError {
	kind := FailureKindWorkFailed
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		kind = FailureKindTimeout
	case errors.Is(ctx.Err(), context.Canceled):
		kind = FailureKindCancelled
	}
	return &OperationError{
		Kind:        kind,
		OperationID: op.ID,
		Err:         err,
	}
}

func (e *Executor) settle(ctx context.Context, op *Operation, value any, opErr *OperationError, start time.Time) {
	elapsed := time.Since(start)

	var state OperationState
	var err error
	if opErr == nil {
		state = OperationStateSucceeded
		e.processed.Add(1)
	} else {
		err = opErr
		e.failed.Add(1)
		if opErr.Kind == FailureKindCancelled {
			state = OperationStateCancelled
		} else {
			state = OperationStateFailed
		}
	}
	op.setState(state)

	if resolveErr := op.complete(value, err); resolveErr != nil {
		// Unreachable when run() is the only resolver; logged in case a
		// future code path breaks that invariant.
		e.logger.Error("operation result resolved twice",
			zap.String("operation_id", op.ID.String()),
			zap.Error(resolveErr))
		return
	}

	if e.metrics != nil {
		e.metrics.RecordOperation(ctx, e.providerID, string(state), elapsed)
	}

	if opErr == nil {
		e.logger.Debug("operation succeeded",
			zap.String("operation_id", op.ID.String()),
			zap.String("provider_id", e.providerID),
			zap.Duration("elapsed", elapsed))
		return
	}
	e.logger.Warn("operation failed",
		zap.String("operation_id", op.ID.String()),
		zap.String("provider_id", e.providerID),
		zap.String("kind", string(opErr.Kind)),
		zap.Duration("elapsed", elapsed),
		zap.Error(opErr.Err))
}

// ExecuteTyped submits work returning a typed value and waits for the outcome.
// It exists because methods cannot be generic; the untyped Execute remains the
// primitive underneath.
func ExecuteTyped[T any](ctx context.Context, e *Executor, tenantID uuid.UUID, timeout time.Duration, work func(ctx context.Context, scope erp.TransactionScope) (T, error)) (T, error) {
	var zero T
	value, err := e.Execute(ctx, tenantID, timeout, func(ctx context.Context, scope erp.TransactionScope) (any, error) {
		return work(ctx, scope)
	})
	if err != nil {
		return zero, err
	}
	typed, ok := value.(T)
	if !ok && value != nil {
		return zero, fmt.Errorf("erp: unexpected operation result type %T", value)
	}
	return typed, nil
}
