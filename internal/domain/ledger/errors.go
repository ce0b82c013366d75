package ledger

import (
	"fmt"

	"github.com/erp/tuition/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Error codes surfaced to callers of the payment engine
const (
	CodePreviousPending = "previas_pendientes"
	CodeExceedsCapacity = "supera_capacidad"
	CodeExceedsBalance  = "exceeds_balance"
	CodeNotFound        = "not_found"
	CodeInconsistent    = "inconsistent"
	CodeNoBalance       = "sin_saldo"
	CodeMissingData     = "faltan_datos"

	CodeInvalidAmount     = "INVALID_AMOUNT"
	CodeInvalidMethod     = "INVALID_PAYMENT_METHOD"
	CodeReferenceRequired = "REFERENCE_REQUIRED"
	CodeTransientFailure  = "TRANSIENT_FAILURE"
)

var (
	ErrInstallmentNotFound = shared.NewDomainError(CodeNotFound, "Installment not found")
	ErrPaymentNotFound     = shared.NewDomainError(CodeNotFound, "Payment not found")
	ErrReferenceRequired   = shared.NewDomainError(CodeReferenceRequired, "Payment reference is required")
	ErrTransientFailure    = shared.NewDomainError(CodeTransientFailure, "The ledger is busy, try again")
)

// RejectionError is a policy outcome that blocked a payment. It carries the data the
// caller needs to decide whether to retry with auto-distribution.
type RejectionError struct {
	*shared.DomainError
	PreviousPending []PendingInstallment
	Capacity        *decimal.Decimal
}

// Unwrap exposes the underlying domain error to errors.As
func (e *RejectionError) Unwrap() error {
	return e.DomainError
}

// NewPreviousPendingError reports that older installments must be settled first
func NewPreviousPendingError(previous []PendingInstallment) *RejectionError {
	return &RejectionError{
		DomainError: shared.NewDomainError(CodePreviousPending,
			"Earlier installments still have a pending balance. Pay them first or use automatic distribution."),
		PreviousPending: previous,
	}
}

// NewExceedsCapacityError reports an auto-distributed amount above total capacity
func NewExceedsCapacityError(amount, capacity decimal.Decimal, previous []PendingInstallment) *RejectionError {
	return &RejectionError{
		DomainError: shared.NewDomainError(CodeExceedsCapacity, fmt.Sprintf(
			"Amount %s exceeds the total available capacity %s", amount.StringFixed(2), capacity.StringFixed(2))),
		PreviousPending: previous,
		Capacity:        &capacity,
	}
}

// NewExceedsBalanceError reports an amount above the installment balance
func NewExceedsBalanceError(balance decimal.Decimal) *RejectionError {
	return &RejectionError{
		DomainError: shared.NewDomainError(CodeExceedsBalance, fmt.Sprintf(
			"Amount exceeds the installment balance %s", balance.StringFixed(2))),
	}
}

// NewInconsistentError reports a ledger invariant violation. It is never auto-corrected.
func NewInconsistentError(message string) *shared.DomainError {
	return shared.NewDomainError(CodeInconsistent, message)
}
