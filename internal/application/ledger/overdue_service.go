package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/tuition/internal/domain/ledger"
	"github.com/erp/tuition/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// OverdueService flags past-due installments
type OverdueService struct {
	installmentRepo ledger.InstallmentRepository
	logger          *zap.Logger
	metrics         *telemetry.LedgerMetrics
}

// NewOverdueService creates a new OverdueService. metrics may be nil.
func NewOverdueService(installmentRepo ledger.InstallmentRepository, metrics *telemetry.LedgerMetrics, logger *zap.Logger) *OverdueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverdueService{
		installmentRepo: installmentRepo,
		logger:          logger,
		metrics:         metrics,
	}
}

// MarkOverdue flags every installment due before asOf that has not received any
// payment as OVERDUE. Partially paid installments keep their status.
func (s *OverdueService) MarkOverdue(ctx context.Context, asOf time.Time) (*MarkOverdueResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "installment", "mark_overdue")
	defer span.End()

	y, m, d := asOf.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, asOf.Location())

	marked, err := s.installmentRepo.MarkOverdue(ctx, day)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to mark overdue installments: %w", err)
	}

	telemetry.SetAttribute(span, "marked", marked)
	s.metrics.RecordOverdueMarked(ctx, marked)
	s.logger.Info("Overdue installments marked",
		zap.Time("as_of", day),
		zap.Int64("marked", marked),
	)

	return &MarkOverdueResult{AsOf: day, Marked: marked}, nil
}
