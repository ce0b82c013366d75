package ledger

import (
	"context"

	"github.com/erp/tuition/internal/domain/ledger"
)

// TransactionScope runs ledger writes atomically.
// Every repository handed to fn shares the same database transaction; returning an
// error from fn rolls all of it back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the ledger repositories within a transaction.
//
// Installment rows are locked through InstallmentRepo().LockSchedule before any
// decision is taken, so reads made through these repositories see committed state
// that no other writer can change until the transaction ends.
type TransactionalRepositories interface {
	InstallmentRepo() ledger.InstallmentRepository
	PaymentRepo() ledger.PaymentRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing.
type NoOpTransactionScope struct {
	installmentRepo ledger.InstallmentRepository
	paymentRepo     ledger.PaymentRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(installmentRepo ledger.InstallmentRepository, paymentRepo ledger.PaymentRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		installmentRepo: installmentRepo,
		paymentRepo:     paymentRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// InstallmentRepo returns the installment repository.
func (s *NoOpTransactionScope) InstallmentRepo() ledger.InstallmentRepository {
	return s.installmentRepo
}

// PaymentRepo returns the payment repository.
func (s *NoOpTransactionScope) PaymentRepo() ledger.PaymentRepository {
	return s.paymentRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
