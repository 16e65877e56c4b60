package erp

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/b2x/erp-integration/internal/domain/erp"
)

// MockSyncRecordRepository is a mock implementation of SyncRecordRepository
type MockSyncRecordRepository struct {
	mock.Mock
}

func (m *MockSyncRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*erp.SyncRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*erp.SyncRecord), args.Error(1)
}

func (m *MockSyncRecordRepository) FindByInternalID(ctx context.Context, key erp.SyncRecordKey) (*erp.SyncRecord, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*erp.SyncRecord), args.Error(1)
}

func (m *MockSyncRecordRepository) FindByExternalID(ctx context.Context, key erp.SyncRecordExternalKey) (*erp.SyncRecord, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*erp.SyncRecord), args.Error(1)
}

func (m *MockSyncRecordRepository) FindPending(ctx context.Context, tenantID uuid.UUID, providerID string, limit int) ([]erp.SyncRecord, error) {
	args := m.Called(ctx, tenantID, providerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]erp.SyncRecord), args.Error(1)
}

func (m *MockSyncRecordRepository) FindFailed(ctx context.Context, tenantID uuid.UUID, providerID string, limit int) ([]erp.SyncRecord, error) {
	args := m.Called(ctx, tenantID, providerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]erp.SyncRecord), args.Error(1)
}

func (m *MockSyncRecordRepository) CountByStatus(ctx context.Context, tenantID uuid.UUID, providerID string, status erp.SyncStatus) (int64, error) {
	args := m.Called(ctx, tenantID, providerID, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSyncRecordRepository) Create(ctx context.Context, record *erp.SyncRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockSyncRecordRepository) Update(ctx context.Context, record *erp.SyncRecord, previousStamp uuid.UUID) error {
	args := m.Called(ctx, record, previousStamp)
	return args.Error(0)
}

func (m *MockSyncRecordRepository) DeleteOlderThan(ctx context.Context, tenantID uuid.UUID, providerID string, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, tenantID, providerID, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// stubScope is an in-memory transaction scope tracking its own state machine,
// used to assert the executor's commit-or-rollback guarantee.
type stubScope struct {
	mu         sync.Mutex
	committed  bool
	rolledBack bool

	commitErr   error
	rollbackErr error
}

func (s *stubScope) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committed {
		return erp.ErrScopeAlreadyCommitted
	}
	if s.rolledBack {
		return erp.ErrScopeAlreadyRolledBack
	}
	if s.commitErr != nil {
		return s.commitErr
	}
	s.committed = true
	return nil
}

func (s *stubScope) Rollback(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committed {
		return erp.ErrScopeAlreadyCommitted
	}
	if s.rolledBack {
		return erp.ErrScopeAlreadyRolledBack
	}
	if s.rollbackErr != nil {
		return s.rollbackErr
	}
	s.rolledBack = true
	return nil
}

func (s *stubScope) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.committed && !s.rolledBack
}

func (s *stubScope) IsCommitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed
}

func (s *stubScope) IsRolledBack() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rolledBack
}

// stubScopeFactory hands out stubScopes and remembers them for inspection.
type stubScopeFactory struct {
	mu        sync.Mutex
	createErr error
	scopes    []*stubScope
}

func (f *stubScopeFactory) CreateScope(ctx context.Context) (erp.TransactionScope, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	scope := &stubScope{}
	f.scopes = append(f.scopes, scope)
	return scope, nil
}

func (f *stubScopeFactory) lastScope() *stubScope {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.scopes) == 0 {
		return nil
	}
	return f.scopes[len(f.scopes)-1]
}
