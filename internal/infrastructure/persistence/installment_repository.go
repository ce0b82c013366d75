package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/erp/tuition/internal/domain/ledger"
	"github.com/erp/tuition/internal/domain/shared"
	"github.com/erp/tuition/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInstallmentRepository implements InstallmentRepository using GORM
type GormInstallmentRepository struct {
	db *gorm.DB
}

// NewGormInstallmentRepository creates a new GormInstallmentRepository
func NewGormInstallmentRepository(db *gorm.DB) *GormInstallmentRepository {
	return &GormInstallmentRepository{db: db}
}

// FindByID finds an installment by its ID
func (r *GormInstallmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Installment, error) {
	var model models.InstallmentModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindPreviousPending finds the payer's earlier installments that still owe money
func (r *GormInstallmentRepository) FindPreviousPending(ctx context.Context, payerID uuid.UUID, beforeSequence int) ([]ledger.Installment, error) {
	var installmentModels []models.InstallmentModel
	if err := r.db.WithContext(ctx).
		Where("payer_id = ? AND sequence < ? AND amount_owed > amount_paid", payerID, beforeSequence).
		Order("sequence ASC").
		Find(&installmentModels).Error; err != nil {
		return nil, err
	}
	return toInstallments(installmentModels), nil
}

// LockSchedule locks the payer's installments 1..uptoSequence in ascending order.
// Every writer takes the locks in the same order, so overlapping applies queue
// instead of deadlocking.
func (r *GormInstallmentRepository) LockSchedule(ctx context.Context, payerID uuid.UUID, uptoSequence int) ([]*ledger.Installment, error) {
	var installmentModels []models.InstallmentModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("payer_id = ? AND sequence <= ?", payerID, uptoSequence).
		Order("sequence ASC").
		Find(&installmentModels).Error; err != nil {
		return nil, err
	}

	installments := make([]*ledger.Installment, len(installmentModels))
	for i := range installmentModels {
		installments[i] = installmentModels[i].ToDomain()
	}
	return installments, nil
}

// Create persists a new installment
func (r *GormInstallmentRepository) Create(ctx context.Context, installment *ledger.Installment) error {
	model := models.InstallmentModelFromDomain(installment)
	return r.db.WithContext(ctx).Create(model).Error
}

// Save writes the paid amount, status and version of an installment.
// The stored version must be the one the change was based on.
func (r *GormInstallmentRepository) Save(ctx context.Context, installment *ledger.Installment) error {
	result := r.db.WithContext(ctx).
		Model(&models.InstallmentModel{}).
		Where("id = ? AND version = ?", installment.ID, installment.Version-1).
		Updates(map[string]any{
			"amount_paid": installment.AmountPaid,
			"status":      installment.Status,
			"version":     installment.Version,
			"updated_at":  installment.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// List returns a page of installments matching the filter, each with its latest payment
func (r *GormInstallmentRepository) List(ctx context.Context, filter ledger.InstallmentFilter) ([]ledger.InstallmentSummary, int64, error) {
	filter.Normalize()

	var total int64
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&models.InstallmentModel{}), filter).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []ledger.InstallmentSummary{}, 0, nil
	}

	var installmentModels []models.InstallmentModel
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&models.InstallmentModel{}), filter).
		Order("payer_id ASC, due_date ASC, sequence ASC").
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&installmentModels).Error; err != nil {
		return nil, 0, err
	}

	lastPayments, err := r.lastPayments(ctx, installmentModels)
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]ledger.InstallmentSummary, len(installmentModels))
	for i := range installmentModels {
		summaries[i] = ledger.InstallmentSummary{
			Installment: *installmentModels[i].ToDomain(),
			LastPayment: lastPayments[installmentModels[i].ID],
		}
	}
	return summaries, total, nil
}

// MarkOverdue flags every PENDING installment due before asOf as OVERDUE
func (r *GormInstallmentRepository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.InstallmentModel{}).
		Where("status = ? AND due_date < ?", ledger.InstallmentStatusPending, asOf).
		Updates(map[string]any{
			"status":     ledger.InstallmentStatusOverdue,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// lastPayments returns the most recent payment of each listed installment
func (r *GormInstallmentRepository) lastPayments(ctx context.Context, installmentModels []models.InstallmentModel) (map[uuid.UUID]*ledger.Payment, error) {
	latest := make(map[uuid.UUID]*ledger.Payment, len(installmentModels))
	if len(installmentModels) == 0 {
		return latest, nil
	}

	ids := make([]uuid.UUID, len(installmentModels))
	for i := range installmentModels {
		ids[i] = installmentModels[i].ID
	}

	var paymentModels []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("installment_id IN ?", ids).
		Order("payment_date DESC, created_at DESC").
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}

	for i := range paymentModels {
		if _, seen := latest[paymentModels[i].InstallmentID]; !seen {
			latest[paymentModels[i].InstallmentID] = paymentModels[i].ToDomain()
		}
	}
	return latest, nil
}

// applyFilter applies the listing filter without pagination or ordering
func (r *GormInstallmentRepository) applyFilter(query *gorm.DB, filter ledger.InstallmentFilter) *gorm.DB {
	if filter.CampusID != uuid.Nil {
		query = query.Where("campus_id = ?", filter.CampusID)
	}
	if filter.PayerID != nil {
		query = query.Where("payer_id = ?", *filter.PayerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.DueFrom != nil {
		query = query.Where("due_date >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		query = query.Where("due_date <= ?", *filter.DueTo)
	}
	if filter.HasPayment != nil {
		if *filter.HasPayment {
			query = query.Where("amount_paid > 0")
		} else {
			query = query.Where("amount_paid = 0")
		}
	}
	if filter.Method != nil {
		query = query.Where(paymentExists("p.method = ?"), *filter.Method)
	}
	if filter.Invoice != "" {
		query = query.Where(paymentExists("LOWER(p.invoice_number) LIKE ?"), likePattern(filter.Invoice))
	}
	if filter.Reference != "" {
		query = query.Where(paymentExists("LOWER(p.reference) LIKE ?"), likePattern(filter.Reference))
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where(paymentExists("(LOWER(p.reference) LIKE ? OR LOWER(p.invoice_number) LIKE ? OR LOWER(p.note) LIKE ?)"),
			pattern, pattern, pattern)
	}
	return query
}

// paymentExists wraps a payment predicate in an EXISTS subquery on the installment
func paymentExists(predicate string) string {
	return "EXISTS (SELECT 1 FROM payments p WHERE p.installment_id = installments.id AND " + predicate + ")"
}

// likePattern builds a contains pattern for matching against LOWER(column)
func likePattern(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}

func toInstallments(installmentModels []models.InstallmentModel) []ledger.Installment {
	installments := make([]ledger.Installment, len(installmentModels))
	for i := range installmentModels {
		installments[i] = *installmentModels[i].ToDomain()
	}
	return installments
}

// Ensure GormInstallmentRepository implements InstallmentRepository
var _ ledger.InstallmentRepository = (*GormInstallmentRepository)(nil)
