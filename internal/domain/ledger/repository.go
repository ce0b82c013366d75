package ledger

import (
	"context"
	"time"

	"github.com/erp/tuition/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstallmentFilter defines filtering options for the receivables listing
type InstallmentFilter struct {
	shared.Filter
	CampusID   uuid.UUID          // Restrict to a campus (uuid.Nil = all)
	PayerID    *uuid.UUID         // Filter by payer
	Status     *InstallmentStatus // Filter by status
	DueFrom    *time.Time         // Due date range start (inclusive)
	DueTo      *time.Time         // Due date range end (inclusive)
	Method     *PaymentMethod     // Installments with at least one payment of this method
	Invoice    string             // Installments with a payment whose invoice contains this text
	Reference  string             // Installments with a payment whose reference contains this text
	HasPayment *bool              // Installments with (true) or without (false) paid amount
}

// InstallmentSummary is a listing row: the installment plus its latest payment
type InstallmentSummary struct {
	Installment Installment
	LastPayment *Payment
}

// InstallmentRepository defines the interface for installment persistence
type InstallmentRepository interface {
	// FindByID finds an installment by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Installment, error)

	// FindPreviousPending finds earlier installments of the same payer that still owe money,
	// ordered by sequence. Read only, no locks.
	FindPreviousPending(ctx context.Context, payerID uuid.UUID, beforeSequence int) ([]Installment, error)

	// LockSchedule locks the payer's installments up to and including uptoSequence
	// (SELECT ... FOR UPDATE), ordered by sequence. Must run inside a transaction.
	LockSchedule(ctx context.Context, payerID uuid.UUID, uptoSequence int) ([]*Installment, error)

	// Create persists a new installment
	Create(ctx context.Context, installment *Installment) error

	// Save updates paid amount, status and version of an installment
	Save(ctx context.Context, installment *Installment) error

	// List returns a page of installments with their latest payment
	List(ctx context.Context, filter InstallmentFilter) ([]InstallmentSummary, int64, error)

	// MarkOverdue flags every PENDING installment due before asOf as OVERDUE and returns the count
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	// FindByID finds a payment by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByInstallment lists an installment's payments ordered by payment date
	FindByInstallment(ctx context.Context, installmentID uuid.UUID) ([]Payment, error)

	// SumByInstallment returns the total of an installment's recorded payments
	SumByInstallment(ctx context.Context, installmentID uuid.UUID) (decimal.Decimal, error)

	// Create persists a new payment
	Create(ctx context.Context, payment *Payment) error

	// Delete removes a payment
	Delete(ctx context.Context, id uuid.UUID) error
}
