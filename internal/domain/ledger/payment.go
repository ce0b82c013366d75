package ledger

import (
	"strings"
	"time"

	"github.com/erp/tuition/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimals stored for every amount.
const MoneyScale = 2

// PaymentMethod represents how a payment was received
type PaymentMethod string

const (
	PaymentMethodBank     PaymentMethod = "BANK"
	PaymentMethodNequi    PaymentMethod = "NEQUI"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodOther    PaymentMethod = "OTHER"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodBank, PaymentMethodNequi, PaymentMethodTransfer, PaymentMethodCash, PaymentMethodOther:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// Display returns the label shown in payment history. Transfers are reported as bank payments.
func (m PaymentMethod) Display() string {
	if m == PaymentMethodTransfer {
		return string(PaymentMethodBank)
	}
	return string(m)
}

// ParsePaymentMethod normalizes user input into a PaymentMethod
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s)))
	if m == "" {
		return PaymentMethodOther, nil
	}
	if !m.IsValid() {
		return "", shared.NewDomainError(CodeInvalidMethod, "Invalid payment method: "+s)
	}
	return m, nil
}

// AllPaymentMethods returns all payment methods
func AllPaymentMethods() []PaymentMethod {
	return []PaymentMethod{
		PaymentMethodBank,
		PaymentMethodNequi,
		PaymentMethodTransfer,
		PaymentMethodCash,
		PaymentMethodOther,
	}
}

// PaymentDetails is the metadata shared by every payment created from one apply action
type PaymentDetails struct {
	PaymentDate   time.Time
	Method        PaymentMethod
	InvoiceNumber string
	Reference     string
	Note          string
}

// Payment is one amount charged against one installment
type Payment struct {
	shared.BaseEntity
	InstallmentID uuid.UUID
	PayerID       uuid.UUID
	Amount        decimal.Decimal
	PaymentDate   time.Time
	Method        PaymentMethod
	InvoiceNumber string
	Reference     string
	Note          string
}

// NewPayment creates a payment record for a charge line
func NewPayment(installment *Installment, amount decimal.Decimal, details PaymentDetails) (*Payment, error) {
	if installment == nil {
		return nil, shared.NewDomainError("INVALID_INSTALLMENT", "Installment is required")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError(CodeInvalidAmount, "Payment amount must be positive")
	}
	if !details.Method.IsValid() {
		return nil, shared.NewDomainError(CodeInvalidMethod, "Invalid payment method: "+details.Method.String())
	}

	return &Payment{
		BaseEntity:    shared.NewBaseEntity(),
		InstallmentID: installment.ID,
		PayerID:       installment.PayerID,
		Amount:        amount,
		PaymentDate:   details.PaymentDate,
		Method:        details.Method,
		InvoiceNumber: details.InvoiceNumber,
		Reference:     details.Reference,
		Note:          details.Note,
	}, nil
}
