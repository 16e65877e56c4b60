package erp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b2x/erp-integration/internal/domain/erp"
	"github.com/b2x/erp-integration/internal/infrastructure/cache"
)

func TestExecutor_SuccessCommitsScope(t *testing.T) {
	factory := &stubScopeFactory{}
	executor := NewExecutor("fashop", factory, nil)

	value, err := executor.Execute(context.Background(), uuid.New(), time.Second,
		func(ctx context.Context, scope erp.TransactionScope) (any, error) {
			assert.True(t, scope.IsActive())
			return "synced", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "synced", value)

	scope := factory.lastScope()
	require.NotNil(t, scope)
	assert.True(t, scope.IsCommitted())
	assert.False(t, scope.IsRolledBack())

	stats := executor.Stats()
	assert.Equal(t, int64(1), stats.Processed)
	assert.Equal(t, int64(0), stats.Failed)
}

func TestExecutor_WorkFailureRollsBack(t *testing.T) {
	factory := &stubScopeFactory{}
	executor := NewExecutor("fashop", factory, nil)

	workErr := errors.New("price list rejected")
	_, err := executor.Execute(context.Background(), uuid.New(), time.Second,
		func(ctx context.Context, scope erp.TransactionScope) (any, error) {
			return nil, workErr
		})

	require.Error(t, err)
	assert.ErrorIs(t, err, workErr)
	assert.Equal(t, FailureKindWorkFailed, KindOf(err))

	scope := factory.lastScope()
	require.NotNil(t, scope)
	assert.False(t, scope.IsCommitted())
	assert.True(t, scope.IsRolledBack())

	assert.Equal(t, int64(1), executor.Stats().Failed)
}

func TestExecutor_TimeoutRollsBack(t *testing.T) {
	factory := &stubScopeFactory{}
	executor := NewExecutor("fashop", factory, nil)

	op := executor.Submit(context.Background(), uuid.New(), 20*time.Millisecond,
		func(ctx context.Context, scope erp.TransactionScope) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	_, err := op.Wait(context.Background())
	require.Error(t, err)
	assert.Equal(t, FailureKindTimeout, KindOf(err))
	assert.Equal(t, OperationStateFailed, op.State())

	scope := factory.lastScope()
	require.NotNil(t, scope)
	assert.True(t, scope.IsRolledBack())
}

func TestExecutor_CallerCancellationRollsBack(t *testing.T) {
	factory := &stubScopeFactory{}
	executor := NewExecutor("fashop", factory, nil)

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})

	op := executor.Submit(ctx, uuid.New(), time.Minute,
		func(ctx context.Context, scope erp.TransactionScope) (any, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		})

	<-started
	cancel()

	_, err := op.Wait(context.Background())
	require.Error(t, err)
	assert.Equal(t, FailureKindCancelled, KindOf(err))
	assert.Equal(t, OperationStateCancelled, op.State())

	scope := factory.lastScope()
	require.NotNil(t, scope)
	assert.True(t, scope.IsRolledBack())
}

func TestExecutor_ScopeCreationFailure(t *testing.T) {
	factory := &stubScopeFactory{createErr: erp.ErrScopeCreationFailed}
	executor := NewExecutor("fashop", factory, nil)

	_, err := executor.Execute(context.Background(), uuid.New(), time.Second,
		func(ctx context.Context, scope erp.TransactionScope) (any, error) {
			t.Fatal("work must not run without a scope")
			return nil, nil
		})

	require.Error(t, err)
	assert.Equal(t, FailureKindScopeCreation, KindOf(err))
	assert.ErrorIs(t, err, erp.ErrScopeCreationFailed)
}

func TestExecutor_CommitFailureRollsBack(t *testing.T) {
	factory := &stubScopeFactory{}
	executor := NewExecutor("fashop", factory, nil)

	commitErr := errors.New("remote commit rejected")
	_, err := executor.Execute(context.Background(), uuid.New(), time.Second,
		func(ctx context.Context, scope erp.TransactionScope) (any, error) {
			scope.(*stubScope).commitErr = commitErr
			return "ignored", nil
		})

	require.Error(t, err)
	assert.ErrorIs(t, err, commitErr)

	scope := factory.lastScope()
	require.NotNil(t, scope)
	assert.True(t, scope.IsRolledBack())
}

func TestExecutor_DefaultTimeoutApplied(t *testing.T) {
	factory := &stubScopeFactory{}
	executor := NewExecutor("fashop", factory, nil, WithDefaultTimeout(30*time.Millisecond))

	op := executor.Submit(context.Background(), uuid.New(), 0,
		func(ctx context.Context, scope erp.TransactionScope) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	assert.Equal(t, 30*time.Millisecond, op.Timeout)

	_, err := op.Wait(context.Background())
	assert.Equal(t, FailureKindTimeout, KindOf(err))
}

func TestExecutor_SubmitOnceRejectsDuplicates(t *testing.T) {
	factory := &stubScopeFactory{}
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	executor := NewExecutor("fashop", factory, nil, WithIdempotencyStore(store, time.Minute))

	work := func(ctx context.Context, scope erp.TransactionScope) (any, error) {
		return "done", nil
	}

	op, err := executor.SubmitOnce(context.Background(), uuid.New(), "order-4711", time.Second, work)
	require.NoError(t, err)
	_, err = op.Wait(context.Background())
	require.NoError(t, err)

	_, err = executor.SubmitOnce(context.Background(), uuid.New(), "order-4711", time.Second, work)
	assert.ErrorIs(t, err, ErrDuplicateOperation)

	// A different key passes
	_, err = executor.SubmitOnce(context.Background(), uuid.New(), "order-4712", time.Second, work)
	assert.NoError(t, err)
}

func TestExecuteTyped(t *testing.T) {
	factory := &stubScopeFactory{}
	executor := NewExecutor("fashop", factory, nil)

	count, err := ExecuteTyped(context.Background(), executor, uuid.New(), time.Second,
		func(ctx context.Context, scope erp.TransactionScope) (int64, error) {
			return 17, nil
		})

	require.NoError(t, err)
	assert.Equal(t, int64(17), count)
}
