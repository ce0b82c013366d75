package models

import (
	"time"

	"github.com/erp/tuition/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstallmentModel is the persistence model for the Installment aggregate root.
type InstallmentModel struct {
	CampusAggregateModel
	PayerID    uuid.UUID                `gorm:"type:uuid;not null;uniqueIndex:idx_installment_payer_sequence,priority:1"`
	Sequence   int                      `gorm:"not null;uniqueIndex:idx_installment_payer_sequence,priority:2"`
	DueDate    time.Time                `gorm:"type:date;not null;index"`
	AmountOwed decimal.Decimal          `gorm:"type:decimal(12,2);not null"`
	AmountPaid decimal.Decimal          `gorm:"type:decimal(12,2);not null;default:0"`
	Status     ledger.InstallmentStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
}

// TableName returns the table name for GORM
func (InstallmentModel) TableName() string {
	return "installments"
}

// ToDomain converts the persistence model to a domain Installment
func (m *InstallmentModel) ToDomain() *ledger.Installment {
	return &ledger.Installment{
		CampusAggregateRoot: m.ToCampusAggregateRoot(),
		PayerID:             m.PayerID,
		Sequence:            m.Sequence,
		DueDate:             m.DueDate,
		AmountOwed:          m.AmountOwed,
		AmountPaid:          m.AmountPaid,
		Status:              m.Status,
	}
}

// FromDomain populates the persistence model from a domain Installment
func (m *InstallmentModel) FromDomain(i *ledger.Installment) {
	m.FromDomainCampusAggregateRoot(i.CampusAggregateRoot)
	m.PayerID = i.PayerID
	m.Sequence = i.Sequence
	m.DueDate = i.DueDate
	m.AmountOwed = i.AmountOwed
	m.AmountPaid = i.AmountPaid
	m.Status = i.Status
}

// InstallmentModelFromDomain creates a new persistence model from a domain Installment
func InstallmentModelFromDomain(i *ledger.Installment) *InstallmentModel {
	m := &InstallmentModel{}
	m.FromDomain(i)
	return m
}

// PaymentModel is the persistence model for a Payment.
// Payments are append-only; removal deletes the row.
type PaymentModel struct {
	BaseModel
	InstallmentID uuid.UUID            `gorm:"type:uuid;not null;index:idx_payment_installment_date,priority:1"`
	PayerID       uuid.UUID            `gorm:"type:uuid;not null;index"`
	Amount        decimal.Decimal      `gorm:"type:decimal(12,2);not null"`
	PaymentDate   time.Time            `gorm:"type:date;not null;index:idx_payment_installment_date,priority:2"`
	Method        ledger.PaymentMethod `gorm:"type:varchar(20);not null;default:'OTHER'"`
	InvoiceNumber string               `gorm:"type:varchar(50);index"`
	Reference     string               `gorm:"type:varchar(100);not null;index"`
	Note          string               `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *ledger.Payment {
	return &ledger.Payment{
		BaseEntity:    m.BaseModel.ToDomain(),
		InstallmentID: m.InstallmentID,
		PayerID:       m.PayerID,
		Amount:        m.Amount,
		PaymentDate:   m.PaymentDate,
		Method:        m.Method,
		InvoiceNumber: m.InvoiceNumber,
		Reference:     m.Reference,
		Note:          m.Note,
	}
}

// FromDomain populates the persistence model from a domain Payment
func (m *PaymentModel) FromDomain(p *ledger.Payment) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.InstallmentID = p.InstallmentID
	m.PayerID = p.PayerID
	m.Amount = p.Amount
	m.PaymentDate = p.PaymentDate
	m.Method = p.Method
	m.InvoiceNumber = p.InvoiceNumber
	m.Reference = p.Reference
	m.Note = p.Note
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment
func PaymentModelFromDomain(p *ledger.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}
