package ledger

import (
	"time"

	"github.com/erp/tuition/internal/domain/ledger"
	"github.com/erp/tuition/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ApplyPaymentRequest represents a request to apply a payment to an installment
type ApplyPaymentRequest struct {
	InstallmentID uuid.UUID        `json:"installment_id"`
	Amount        *decimal.Decimal `json:"amount"`
	Method        string           `json:"method" binding:"omitempty,max=20"`
	PaymentDate   *time.Time       `json:"payment_date"` // defaults to today
	InvoiceNumber string           `json:"invoice_number" binding:"max=50"`
	Reference     string           `json:"reference" binding:"max=100"`
	Note          string           `json:"note" binding:"max=500"`
	Mode          string           `json:"mode" binding:"max=10"` // plain or auto, case-insensitive

	// Set from request headers, never from the body
	CampusID       uuid.UUID `json:"-"`
	IdempotencyKey string    `json:"-"`
}

// RemovePaymentRequest represents a request to remove a payment
type RemovePaymentRequest struct {
	PaymentID uuid.UUID `json:"payment_id" binding:"required"`
	CampusID  uuid.UUID `json:"-"`
}

// AppliedLine is one installment charged by an apply action
type AppliedLine struct {
	InstallmentID uuid.UUID       `json:"installment_id"`
	Sequence      int             `json:"sequence"`
	Applied       decimal.Decimal `json:"applied"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
}

// ApplyPaymentResult represents the outcome of a successful apply action
type ApplyPaymentResult struct {
	Mode         ledger.AllocationMode `json:"mode"`
	Amount       decimal.Decimal       `json:"amount"`
	Lines        []AppliedLine         `json:"lines"`
	Payments     []PaymentResponse     `json:"payments"`
	Installments []InstallmentResponse `json:"installments"`
	History      *HistoryResult        `json:"history,omitempty"`
}

// RemovePaymentResult represents the outcome of removing a payment
type RemovePaymentResult struct {
	PaymentID   uuid.UUID           `json:"payment_id"`
	Amount      decimal.Decimal     `json:"amount"`
	Installment InstallmentResponse `json:"installment"`
}

// HistoryResult is an installment's payment history plus the earlier installments still owing
type HistoryResult struct {
	Installment     InstallmentResponse         `json:"installment"`
	Payments        []PaymentResponse           `json:"payments"`
	TotalPaid       decimal.Decimal             `json:"total_paid"`
	PreviousPending []ledger.PendingInstallment `json:"previous_pending"`
}

// InstallmentResponse represents an installment in API responses
type InstallmentResponse struct {
	ID          uuid.UUID        `json:"id"`
	CampusID    uuid.UUID        `json:"campus_id"`
	PayerID     uuid.UUID        `json:"payer_id"`
	Sequence    int              `json:"sequence"`
	DueDate     time.Time        `json:"due_date"`
	AmountOwed  decimal.Decimal  `json:"amount_owed"`
	AmountPaid  decimal.Decimal  `json:"amount_paid"`
	Balance     decimal.Decimal  `json:"balance"`
	Status      string           `json:"status"`
	Overdue     bool             `json:"overdue"`
	LastPayment *PaymentResponse `json:"last_payment,omitempty"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Version     int              `json:"version"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID            uuid.UUID       `json:"id"`
	InstallmentID uuid.UUID       `json:"installment_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   time.Time       `json:"payment_date"`
	Method        string          `json:"method"`
	InvoiceNumber string          `json:"invoice_number,omitempty"`
	Reference     string          `json:"reference,omitempty"`
	Note          string          `json:"note,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// InstallmentListFilter represents filter options for the receivables listing
type InstallmentListFilter struct {
	Search     string     `form:"search"`
	PayerID    string     `form:"payer_id" binding:"omitempty,uuid"`
	Status     string     `form:"status" binding:"omitempty,oneof=PENDING PARTIAL PAID OVERDUE"`
	DueFrom    *time.Time `form:"due_from" time_format:"2006-01-02"`
	DueTo      *time.Time `form:"due_to" time_format:"2006-01-02"`
	Method     string     `form:"method"`
	Invoice    string     `form:"invoice"`
	Reference  string     `form:"reference"`
	HasPayment *bool      `form:"has_payment"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=500"`

	CampusID uuid.UUID `form:"-"`
}

// InstallmentListResult is a page of the receivables listing
type InstallmentListResult = shared.Paginated[InstallmentResponse]

// MarkOverdueResult reports an overdue sweep
type MarkOverdueResult struct {
	AsOf   time.Time `json:"as_of"`
	Marked int64     `json:"marked"`
}

// ToInstallmentResponse converts a domain installment to a response DTO
func ToInstallmentResponse(i *ledger.Installment, asOf time.Time) InstallmentResponse {
	return InstallmentResponse{
		ID:         i.ID,
		CampusID:   i.CampusID,
		PayerID:    i.PayerID,
		Sequence:   i.Sequence,
		DueDate:    i.DueDate,
		AmountOwed: i.AmountOwed,
		AmountPaid: i.AmountPaid,
		Balance:    i.Balance(),
		Status:     i.Status.String(),
		Overdue:    i.IsOverdue(asOf),
		UpdatedAt:  i.UpdatedAt,
		Version:    i.Version,
	}
}

// ToPaymentResponse converts a domain payment to a response DTO.
// The method is reported with its display label.
func ToPaymentResponse(p *ledger.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID,
		InstallmentID: p.InstallmentID,
		Amount:        p.Amount,
		PaymentDate:   p.PaymentDate,
		Method:        p.Method.Display(),
		InvoiceNumber: p.InvoiceNumber,
		Reference:     p.Reference,
		Note:          p.Note,
		CreatedAt:     p.CreatedAt,
	}
}
