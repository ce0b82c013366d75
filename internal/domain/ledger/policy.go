package ledger

import (
	"strings"
	"time"

	"github.com/erp/tuition/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationMode selects how a payment larger than the target balance is handled
type AllocationMode string

const (
	// AllocationModePlain charges only the target installment
	AllocationModePlain AllocationMode = "plain"
	// AllocationModeAuto spreads the payment over earlier pending installments first
	AllocationModeAuto AllocationMode = "auto"
)

// IsValid checks if the mode is valid
func (m AllocationMode) IsValid() bool {
	return m == AllocationModePlain || m == AllocationModeAuto
}

// ParseAllocationMode normalizes user input. An empty mode means plain.
func ParseAllocationMode(s string) (AllocationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(AllocationModePlain):
		return AllocationModePlain, nil
	case string(AllocationModeAuto):
		return AllocationModeAuto, nil
	}
	return "", shared.NewDomainError(shared.ErrInvalidInput.Code, "Invalid allocation mode: "+s)
}

// PendingInstallment is a snapshot of an installment balance taken under lock
type PendingInstallment struct {
	InstallmentID uuid.UUID       `json:"installment_id"`
	Sequence      int             `json:"sequence"`
	DueDate       time.Time       `json:"due_date"`
	Balance       decimal.Decimal `json:"balance"`
}

// DecisionKind enumerates the outcomes of the allocation policy
type DecisionKind string

const (
	DecisionProceedSingle     DecisionKind = "PROCEED_SINGLE"
	DecisionProceedDistribute DecisionKind = "PROCEED_DISTRIBUTE"
	DecisionNeedsConfirmation DecisionKind = "NEEDS_CONFIRMATION"
	DecisionReject            DecisionKind = "REJECT"
)

// Decision is the result of running the allocation policy
type Decision struct {
	Kind            DecisionKind
	Amount          decimal.Decimal
	PreviousPending []PendingInstallment
	Capacity        decimal.Decimal
	Reason          string
}

// Proceeds reports whether the payment may be written
func (d Decision) Proceeds() bool {
	return d.Kind == DecisionProceedSingle || d.Kind == DecisionProceedDistribute
}

// Err converts a blocking decision into the error returned to the caller.
// Proceeding decisions return nil.
func (d Decision) Err() error {
	switch d.Kind {
	case DecisionNeedsConfirmation:
		return NewPreviousPendingError(d.PreviousPending)
	case DecisionReject:
		if d.Reason == CodeExceedsCapacity {
			return NewExceedsCapacityError(d.Amount, d.Capacity, d.PreviousPending)
		}
		return NewExceedsBalanceError(d.Capacity)
	}
	return nil
}

// Capacity is the target balance plus every previous-pending balance
func Capacity(targetBalance decimal.Decimal, previous []PendingInstallment) decimal.Decimal {
	capacity := targetBalance
	for _, p := range previous {
		capacity = capacity.Add(p.Balance)
	}
	return capacity
}

// Decide applies the allocation rules to freshly read ledger state. It performs no I/O.
//
// Plain mode never skips older debts silently: an amount above the target balance
// asks for confirmation when earlier installments are pending and is rejected
// otherwise. Auto mode is the confirmed override and is bounded by capacity.
func Decide(targetBalance decimal.Decimal, previous []PendingInstallment, requested decimal.Decimal, mode AllocationMode) Decision {
	if mode == AllocationModeAuto {
		capacity := Capacity(targetBalance, previous)
		if requested.GreaterThan(capacity) {
			return Decision{
				Kind:            DecisionReject,
				Amount:          requested,
				PreviousPending: previous,
				Capacity:        capacity,
				Reason:          CodeExceedsCapacity,
			}
		}
		return Decision{
			Kind:            DecisionProceedDistribute,
			Amount:          requested,
			PreviousPending: previous,
			Capacity:        capacity,
		}
	}

	if requested.GreaterThan(targetBalance) {
		if len(previous) > 0 {
			return Decision{
				Kind:            DecisionNeedsConfirmation,
				Amount:          requested,
				PreviousPending: previous,
				Capacity:        Capacity(targetBalance, previous),
			}
		}
		return Decision{
			Kind:     DecisionReject,
			Amount:   requested,
			Capacity: targetBalance,
			Reason:   CodeExceedsBalance,
		}
	}

	return Decision{
		Kind:     DecisionProceedSingle,
		Amount:   requested,
		Capacity: targetBalance,
	}
}
