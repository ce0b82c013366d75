package ledger

import (
	"fmt"
	"time"

	"github.com/erp/tuition/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstallmentStatus represents the collection status of an installment
type InstallmentStatus string

const (
	InstallmentStatusPending InstallmentStatus = "PENDING" // Nothing paid yet
	InstallmentStatusPartial InstallmentStatus = "PARTIAL" // 0 < paid < owed
	InstallmentStatusPaid    InstallmentStatus = "PAID"    // paid >= owed
	InstallmentStatusOverdue InstallmentStatus = "OVERDUE" // Past due with nothing paid
)

// IsValid checks if the status is a valid InstallmentStatus
func (s InstallmentStatus) IsValid() bool {
	switch s {
	case InstallmentStatusPending, InstallmentStatusPartial, InstallmentStatusPaid, InstallmentStatusOverdue:
		return true
	}
	return false
}

// String returns the string representation of InstallmentStatus
func (s InstallmentStatus) String() string {
	return string(s)
}

// CanBecomeOverdue returns true if the overdue marker may move this status to OVERDUE
func (s InstallmentStatus) CanBecomeOverdue() bool {
	return s == InstallmentStatusPending || s == InstallmentStatusOverdue
}

// AllInstallmentStatuses returns all statuses in display order
func AllInstallmentStatuses() []InstallmentStatus {
	return []InstallmentStatus{
		InstallmentStatusPending,
		InstallmentStatusPartial,
		InstallmentStatusOverdue,
		InstallmentStatusPaid,
	}
}

// Installment is one scheduled charge of a payer's tuition plan.
// It is mutated only by applying or reversing payment charges.
type Installment struct {
	shared.CampusAggregateRoot
	PayerID    uuid.UUID
	Sequence   int
	DueDate    time.Time
	AmountOwed decimal.Decimal
	AmountPaid decimal.Decimal
	Status     InstallmentStatus
}

// NewInstallment creates a new unpaid installment
func NewInstallment(campusID, payerID uuid.UUID, sequence int, dueDate time.Time, amountOwed decimal.Decimal) (*Installment, error) {
	if payerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PAYER", "Payer ID cannot be empty")
	}
	if sequence < 1 {
		return nil, shared.NewDomainError("INVALID_SEQUENCE", "Sequence number must be at least 1")
	}
	if amountOwed.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Installment amount must be positive")
	}
	if dueDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "Due date is required")
	}

	return &Installment{
		CampusAggregateRoot: shared.NewCampusAggregateRoot(campusID),
		PayerID:             payerID,
		Sequence:            sequence,
		DueDate:             dueDate,
		AmountOwed:          amountOwed,
		AmountPaid:          decimal.Zero,
		Status:              InstallmentStatusPending,
	}, nil
}

// Balance returns max(0, owed - paid)
func (i *Installment) Balance() decimal.Decimal {
	balance := i.AmountOwed.Sub(i.AmountPaid)
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

// HasBalance reports whether anything is still owed
func (i *Installment) HasBalance() bool {
	return i.Balance().IsPositive()
}

// IsOverdue reports whether the installment is past due on asOf and still owes money
func (i *Installment) IsOverdue(asOf time.Time) bool {
	return truncateToDay(i.DueDate).Before(truncateToDay(asOf)) && i.HasBalance()
}

// ApplyCharge adds a payment charge to the paid amount
func (i *Installment) ApplyCharge(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError(CodeInvalidAmount, "Charge amount must be positive")
	}
	if amount.GreaterThan(i.Balance()) {
		return NewExceedsBalanceError(i.Balance())
	}

	i.AmountPaid = i.AmountPaid.Add(amount)
	i.recomputeStatus()
	i.Touch()
	i.IncrementVersion()
	return nil
}

// ReverseCharge removes a previously applied charge from the paid amount.
// The paid amount never drops below zero; a reversal that would do so means the
// ledger and its payments disagree and is refused.
func (i *Installment) ReverseCharge(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError(CodeInvalidAmount, "Reversal amount must be positive")
	}
	remaining := i.AmountPaid.Sub(amount)
	if remaining.IsNegative() {
		return NewInconsistentError(fmt.Sprintf(
			"Reversing %s would leave installment #%d with a negative paid amount (%s)",
			amount.StringFixed(2), i.Sequence, remaining.StringFixed(2)))
	}

	i.AmountPaid = remaining
	i.recomputeStatus()
	i.Touch()
	i.IncrementVersion()
	return nil
}

// MarkOverdue flags the installment as overdue when it is past due on asOf.
// Returns true if the status changed.
func (i *Installment) MarkOverdue(asOf time.Time) bool {
	if i.Status == InstallmentStatusOverdue || !i.Status.CanBecomeOverdue() {
		return false
	}
	if !truncateToDay(i.DueDate).Before(truncateToDay(asOf)) {
		return false
	}
	i.Status = InstallmentStatusOverdue
	i.Touch()
	i.IncrementVersion()
	return true
}

// ToPending converts the installment into a previous-pending entry
func (i *Installment) ToPending() PendingInstallment {
	return PendingInstallment{
		InstallmentID: i.ID,
		Sequence:      i.Sequence,
		DueDate:       i.DueDate,
		Balance:       i.Balance(),
	}
}

func (i *Installment) recomputeStatus() {
	switch {
	case i.AmountPaid.GreaterThanOrEqual(i.AmountOwed):
		i.Status = InstallmentStatusPaid
	case i.AmountPaid.IsPositive():
		i.Status = InstallmentStatusPartial
	default:
		i.Status = InstallmentStatusPending
	}
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
