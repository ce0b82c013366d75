package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/erp/tuition/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockInstallmentRepository is a mock implementation of ledger.InstallmentRepository
type MockInstallmentRepository struct {
	mock.Mock
}

func (m *MockInstallmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Installment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) FindPreviousPending(ctx context.Context, payerID uuid.UUID, beforeSequence int) ([]ledger.Installment, error) {
	args := m.Called(ctx, payerID, beforeSequence)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) LockSchedule(ctx context.Context, payerID uuid.UUID, uptoSequence int) ([]*ledger.Installment, error) {
	args := m.Called(ctx, payerID, uptoSequence)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) Create(ctx context.Context, installment *ledger.Installment) error {
	args := m.Called(ctx, installment)
	return args.Error(0)
}

func (m *MockInstallmentRepository) Save(ctx context.Context, installment *ledger.Installment) error {
	args := m.Called(ctx, installment)
	return args.Error(0)
}

func (m *MockInstallmentRepository) List(ctx context.Context, filter ledger.InstallmentFilter) ([]ledger.InstallmentSummary, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]ledger.InstallmentSummary), args.Get(1).(int64), args.Error(2)
}

func (m *MockInstallmentRepository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	args := m.Called(ctx, asOf)
	return args.Get(0).(int64), args.Error(1)
}

// MockPaymentRepository is a mock implementation of ledger.PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByInstallment(ctx context.Context, installmentID uuid.UUID) ([]ledger.Payment, error) {
	args := m.Called(ctx, installmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Payment), args.Error(1)
}

func (m *MockPaymentRepository) SumByInstallment(ctx context.Context, installmentID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, installmentID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *ledger.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockIdempotencyStore is an in-memory idempotency store for tests
type MockIdempotencyStore struct {
	mu       sync.Mutex
	keys     map[string]bool
	released []string
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{keys: make(map[string]bool)}
}

func (m *MockIdempotencyStore) Claim(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *MockIdempotencyStore) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	m.released = append(m.released, key)
	return nil
}

func (m *MockIdempotencyStore) Close() error { return nil }

func (m *MockIdempotencyStore) Released() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.released...)
}
