package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/tuition/internal/domain/ledger"
	"github.com/erp/tuition/internal/domain/shared"
	"github.com/erp/tuition/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentService applies and removes payments against installments.
// Every decision is taken on rows locked inside the write transaction; nothing the
// caller sends about balances is trusted.
type PaymentService struct {
	installmentRepo ledger.InstallmentRepository
	paymentRepo     ledger.PaymentRepository
	txScope         TransactionScope
	logger          *zap.Logger

	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
	metrics        *telemetry.LedgerMetrics
	now            func() time.Time
}

// PaymentServiceOption configures optional PaymentService collaborators
type PaymentServiceOption func(*PaymentService)

// WithIdempotencyStore enables Idempotency-Key handling on Apply
func WithIdempotencyStore(store shared.IdempotencyStore, cfg shared.IdempotencyConfig) PaymentServiceOption {
	return func(s *PaymentService) {
		if !cfg.Enabled {
			return
		}
		s.idempotency = store
		s.idempotencyTTL = cfg.TTL
		if s.idempotencyTTL <= 0 {
			s.idempotencyTTL = shared.DefaultIdempotencyConfig().TTL
		}
	}
}

// WithLedgerMetrics records apply/remove activity
func WithLedgerMetrics(m *telemetry.LedgerMetrics) PaymentServiceOption {
	return func(s *PaymentService) {
		s.metrics = m
	}
}

// WithClock overrides the time source used for default payment dates and overdue flags
func WithClock(now func() time.Time) PaymentServiceOption {
	return func(s *PaymentService) {
		s.now = now
	}
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	installmentRepo ledger.InstallmentRepository,
	paymentRepo ledger.PaymentRepository,
	txScope TransactionScope,
	logger *zap.Logger,
	opts ...PaymentServiceOption,
) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &PaymentService{
		installmentRepo: installmentRepo,
		paymentRepo:     paymentRepo,
		txScope:         txScope,
		logger:          logger,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// validatedApply is an ApplyPaymentRequest after input validation
type validatedApply struct {
	target  *ledger.Installment
	amount  decimal.Decimal
	mode    ledger.AllocationMode
	details ledger.PaymentDetails
}

// Apply records a payment against an installment.
//
// In plain mode the amount must fit the installment balance; when it does not and
// earlier installments still owe money the call fails with previas_pendientes so the
// caller can confirm and retry in auto mode. Auto mode settles earlier installments
// oldest first and gives the remainder to the target, bounded by total capacity.
func (s *PaymentService) Apply(ctx context.Context, req ApplyPaymentRequest) (*ApplyPaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "apply")
	defer span.End()

	start := s.now()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrInstallmentID, req.InstallmentID.String(),
		telemetry.SpanAttrMode, req.Mode,
	)

	in, err := s.validateApply(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPayerID, in.target.PayerID.String(),
		telemetry.SpanAttrAmount, in.amount.String(),
		telemetry.SpanAttrMethod, in.details.Method.String(),
	)

	key := strings.TrimSpace(req.IdempotencyKey)
	if err := s.claim(ctx, key); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var (
		lines    []AppliedLine
		payments []PaymentResponse
		touched  []InstallmentResponse
	)

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		lines, payments, touched = nil, nil, nil

		locked, err := repos.InstallmentRepo().LockSchedule(ctx, in.target.PayerID, in.target.Sequence)
		if err != nil {
			return fmt.Errorf("failed to lock installments: %w", err)
		}
		telemetry.AddEvent(span, "schedule_locked", "installments", len(locked))

		byID := make(map[uuid.UUID]*ledger.Installment, len(locked))
		var target *ledger.Installment
		previous := make([]ledger.PendingInstallment, 0, len(locked))
		for _, inst := range locked {
			byID[inst.ID] = inst
			if inst.ID == in.target.ID {
				target = inst
				continue
			}
			if inst.Sequence < in.target.Sequence && inst.HasBalance() {
				previous = append(previous, inst.ToPending())
			}
		}
		if target == nil {
			return ledger.ErrInstallmentNotFound
		}

		decision := ledger.Decide(target.Balance(), previous, in.amount, in.mode)
		telemetry.SetAttribute(span, telemetry.SpanAttrDecision, string(decision.Kind))
		if !decision.Proceeds() {
			return decision.Err()
		}

		var charges []ledger.ChargeLine
		if decision.Kind == ledger.DecisionProceedDistribute {
			charges = ledger.Distribute(in.amount, previous, target.ToPending())
		} else {
			charges = []ledger.ChargeLine{{
				InstallmentID: target.ID,
				Sequence:      target.Sequence,
				Amount:        in.amount,
			}}
		}

		asOf := s.now()
		for _, charge := range charges {
			inst, ok := byID[charge.InstallmentID]
			if !ok {
				return inconsistentf("charge line references unlocked installment %s", charge.InstallmentID)
			}
			if err := inst.ApplyCharge(charge.Amount); err != nil {
				return err
			}
			if err := repos.InstallmentRepo().Save(ctx, inst); err != nil {
				return fmt.Errorf("failed to save installment: %w", err)
			}

			payment, err := ledger.NewPayment(inst, charge.Amount, in.details)
			if err != nil {
				return err
			}
			if err := repos.PaymentRepo().Create(ctx, payment); err != nil {
				return fmt.Errorf("failed to create payment: %w", err)
			}

			lines = append(lines, AppliedLine{
				InstallmentID: inst.ID,
				Sequence:      inst.Sequence,
				Applied:       charge.Amount,
				BalanceAfter:  inst.Balance(),
			})
			payments = append(payments, ToPaymentResponse(payment))
			touched = append(touched, ToInstallmentResponse(inst, asOf))
		}
		return nil
	})
	if err != nil {
		err = retryable(err)
		s.release(ctx, key)
		s.recordApplyFailure(ctx, in, err, start)
		telemetry.RecordError(span, err)
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to apply payment: %w", err)
	}

	s.metrics.RecordApplied(ctx, in.target.CampusID, in.details.Method.String(), string(in.mode), len(lines), in.amount)
	s.metrics.RecordApplyDuration(ctx, s.now().Sub(start), telemetry.ApplyOutcomeApplied)
	s.logger.Info("Payment applied",
		zap.String("installment_id", in.target.ID.String()),
		zap.String("payer_id", in.target.PayerID.String()),
		zap.String("amount", in.amount.StringFixed(2)),
		zap.String("mode", string(in.mode)),
		zap.Int("lines", len(lines)),
	)

	result := &ApplyPaymentResult{
		Mode:         in.mode,
		Amount:       in.amount,
		Lines:        lines,
		Payments:     payments,
		Installments: touched,
	}

	// the write is committed; a failed read-back only loses the convenience history
	history, err := s.History(ctx, in.target.ID, req.CampusID)
	if err != nil {
		s.logger.Warn("Failed to load history after apply",
			zap.String("installment_id", in.target.ID.String()),
			zap.Error(err),
		)
	} else {
		result.History = history
	}

	telemetry.SetOK(span)
	return result, nil
}

func (s *PaymentService) validateApply(ctx context.Context, req ApplyPaymentRequest) (*validatedApply, error) {
	if req.InstallmentID == uuid.Nil {
		return nil, shared.NewDomainError(ledger.CodeMissingData, "Installment ID is required")
	}

	target, err := s.findVisibleInstallment(ctx, req.InstallmentID, req.CampusID)
	if err != nil {
		return nil, err
	}

	if req.Amount == nil {
		if !target.HasBalance() {
			return nil, shared.NewDomainError(ledger.CodeNoBalance, "The installment has no pending balance")
		}
		return nil, shared.NewDomainError(ledger.CodeMissingData, "Payment amount is required")
	}
	if strings.TrimSpace(req.Reference) == "" {
		return nil, ledger.ErrReferenceRequired
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError(ledger.CodeInvalidAmount, "Payment amount must be positive")
	}
	if !req.Amount.Equal(req.Amount.Round(ledger.MoneyScale)) {
		return nil, shared.NewDomainError(ledger.CodeInvalidAmount, "Payment amount cannot have more than two decimals")
	}

	method, err := ledger.ParsePaymentMethod(req.Method)
	if err != nil {
		return nil, err
	}
	mode, err := ledger.ParseAllocationMode(req.Mode)
	if err != nil {
		return nil, err
	}

	paymentDate := s.now()
	if req.PaymentDate != nil && !req.PaymentDate.IsZero() {
		paymentDate = *req.PaymentDate
	}
	y, m, d := paymentDate.Date()
	paymentDate = time.Date(y, m, d, 0, 0, 0, 0, paymentDate.Location())

	return &validatedApply{
		target: target,
		amount: *req.Amount,
		mode:   mode,
		details: ledger.PaymentDetails{
			PaymentDate:   paymentDate,
			Method:        method,
			InvoiceNumber: strings.TrimSpace(req.InvoiceNumber),
			Reference:     strings.TrimSpace(req.Reference),
			Note:          strings.TrimSpace(req.Note),
		},
	}, nil
}

func (s *PaymentService) claim(ctx context.Context, key string) error {
	if s.idempotency == nil || key == "" {
		return nil
	}
	claimed, err := s.idempotency.Claim(ctx, key, s.idempotencyTTL)
	if err != nil {
		return fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if !claimed {
		s.logger.Info("Duplicate apply request rejected", zap.String("idempotency_key", key))
		return shared.ErrDuplicateRequest
	}
	return nil
}

func (s *PaymentService) release(ctx context.Context, key string) {
	if s.idempotency == nil || key == "" {
		return
	}
	if err := s.idempotency.Release(ctx, key); err != nil {
		s.logger.Warn("Failed to release idempotency key",
			zap.String("idempotency_key", key),
			zap.Error(err),
		)
	}
}

func (s *PaymentService) recordApplyFailure(ctx context.Context, in *validatedApply, err error, start time.Time) {
	var rejection *ledger.RejectionError
	var domainErr *shared.DomainError
	switch {
	case errors.As(err, &rejection):
		s.metrics.RecordRejected(ctx, in.target.CampusID, rejection.Code)
		s.metrics.RecordApplyDuration(ctx, s.now().Sub(start), telemetry.ApplyOutcomeRejected)
		s.logger.Info("Payment rejected by allocation policy",
			zap.String("installment_id", in.target.ID.String()),
			zap.String("amount", in.amount.StringFixed(2)),
			zap.String("mode", string(in.mode)),
			zap.String("code", rejection.Code),
		)
	case errors.As(err, &domainErr) && domainErr.Code == ledger.CodeInconsistent:
		s.metrics.RecordApplyDuration(ctx, s.now().Sub(start), telemetry.ApplyOutcomeFailed)
		s.logger.Error("Ledger inconsistency while applying payment",
			zap.String("installment_id", in.target.ID.String()),
			zap.Error(err),
		)
	default:
		s.metrics.RecordApplyDuration(ctx, s.now().Sub(start), telemetry.ApplyOutcomeFailed)
		s.logger.Warn("Failed to apply payment",
			zap.String("installment_id", in.target.ID.String()),
			zap.Error(err),
		)
	}
}

// Remove deletes a payment and takes its amount back off the installment.
// The installment's paid amount may never drop below zero nor below what its
// remaining payments add up to; either case aborts with inconsistent.
func (s *PaymentService) Remove(ctx context.Context, req RemovePaymentRequest) (*RemovePaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "remove")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrPaymentID, req.PaymentID.String())

	payment, err := s.paymentRepo.FindByID(ctx, req.PaymentID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ledger.ErrPaymentNotFound
		}
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}

	owner, err := s.findVisibleInstallment(ctx, payment.InstallmentID, req.CampusID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var result *RemovePaymentResult
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		locked, err := repos.InstallmentRepo().LockSchedule(ctx, owner.PayerID, owner.Sequence)
		if err != nil {
			return fmt.Errorf("failed to lock installments: %w", err)
		}
		var inst *ledger.Installment
		for _, candidate := range locked {
			if candidate.ID == owner.ID {
				inst = candidate
				break
			}
		}
		if inst == nil {
			return ledger.ErrInstallmentNotFound
		}

		// re-read under lock: a concurrent remove may have won
		current, err := repos.PaymentRepo().FindByID(ctx, payment.ID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return ledger.ErrPaymentNotFound
			}
			return fmt.Errorf("failed to find payment: %w", err)
		}

		if err := inst.ReverseCharge(current.Amount); err != nil {
			return err
		}
		if err := repos.PaymentRepo().Delete(ctx, current.ID); err != nil {
			return fmt.Errorf("failed to delete payment: %w", err)
		}

		remaining, err := repos.PaymentRepo().SumByInstallment(ctx, inst.ID)
		if err != nil {
			return fmt.Errorf("failed to sum payments: %w", err)
		}
		if inst.AmountPaid.LessThan(remaining) {
			return inconsistentf("installment #%d would record %s paid but its remaining payments add up to %s",
				inst.Sequence, inst.AmountPaid.StringFixed(2), remaining.StringFixed(2))
		}

		if err := repos.InstallmentRepo().Save(ctx, inst); err != nil {
			return fmt.Errorf("failed to save installment: %w", err)
		}

		result = &RemovePaymentResult{
			PaymentID:   current.ID,
			Amount:      current.Amount,
			Installment: ToInstallmentResponse(inst, s.now()),
		}
		return nil
	})
	if err != nil {
		err = retryable(err)
		telemetry.RecordError(span, err)
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) {
			if domainErr.Code == ledger.CodeInconsistent {
				s.logger.Error("Ledger inconsistency while removing payment",
					zap.String("payment_id", req.PaymentID.String()),
					zap.String("installment_id", owner.ID.String()),
					zap.Error(err),
				)
			}
			return nil, err
		}
		return nil, fmt.Errorf("failed to remove payment: %w", err)
	}

	s.metrics.RecordRemoved(ctx, owner.CampusID)
	s.logger.Info("Payment removed",
		zap.String("payment_id", result.PaymentID.String()),
		zap.String("installment_id", owner.ID.String()),
		zap.String("amount", result.Amount.StringFixed(2)),
	)
	return result, nil
}

// History returns an installment's payments and the earlier installments still owing.
// It is informational only and never feeds an allocation decision.
func (s *PaymentService) History(ctx context.Context, installmentID, campusID uuid.UUID) (*HistoryResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "history")
	defer span.End()

	inst, err := s.findVisibleInstallment(ctx, installmentID, campusID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	payments, err := s.paymentRepo.FindByInstallment(ctx, inst.ID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	previous, err := s.installmentRepo.FindPreviousPending(ctx, inst.PayerID, inst.Sequence)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to find previous installments: %w", err)
	}

	result := &HistoryResult{
		Installment:     ToInstallmentResponse(inst, s.now()),
		Payments:        make([]PaymentResponse, 0, len(payments)),
		TotalPaid:       decimal.Zero,
		PreviousPending: make([]ledger.PendingInstallment, 0, len(previous)),
	}
	for i := range payments {
		result.Payments = append(result.Payments, ToPaymentResponse(&payments[i]))
		result.TotalPaid = result.TotalPaid.Add(payments[i].Amount)
	}
	for i := range previous {
		result.PreviousPending = append(result.PreviousPending, previous[i].ToPending())
	}
	if len(result.Payments) > 0 {
		last := result.Payments[len(result.Payments)-1]
		result.Installment.LastPayment = &last
	}
	return result, nil
}

// GetInstallment returns one installment
func (s *PaymentService) GetInstallment(ctx context.Context, installmentID, campusID uuid.UUID) (*InstallmentResponse, error) {
	inst, err := s.findVisibleInstallment(ctx, installmentID, campusID)
	if err != nil {
		return nil, err
	}
	resp := ToInstallmentResponse(inst, s.now())
	return &resp, nil
}

// ListInstallments returns a page of the receivables listing
func (s *PaymentService) ListInstallments(ctx context.Context, filter InstallmentListFilter) (*InstallmentListResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "installment", "list")
	defer span.End()

	domainFilter, err := toDomainFilter(filter)
	if err != nil {
		return nil, err
	}

	rows, total, err := s.installmentRepo.List(ctx, domainFilter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to list installments: %w", err)
	}

	asOf := s.now()
	items := make([]InstallmentResponse, 0, len(rows))
	for i := range rows {
		resp := ToInstallmentResponse(&rows[i].Installment, asOf)
		if rows[i].LastPayment != nil {
			last := ToPaymentResponse(rows[i].LastPayment)
			resp.LastPayment = &last
		}
		items = append(items, resp)
	}

	page := shared.NewPaginated(items, total, domainFilter.Page, domainFilter.PageSize)
	return &page, nil
}

func toDomainFilter(f InstallmentListFilter) (ledger.InstallmentFilter, error) {
	out := ledger.InstallmentFilter{
		Filter: shared.Filter{
			Page:     f.Page,
			PageSize: f.PageSize,
			Search:   strings.TrimSpace(f.Search),
		},
		CampusID:   f.CampusID,
		DueFrom:    f.DueFrom,
		DueTo:      f.DueTo,
		Invoice:    strings.TrimSpace(f.Invoice),
		Reference:  strings.TrimSpace(f.Reference),
		HasPayment: f.HasPayment,
	}
	out.Normalize()

	if payer := strings.TrimSpace(f.PayerID); payer != "" {
		payerID, err := uuid.Parse(payer)
		if err != nil {
			return out, shared.NewDomainError(shared.ErrInvalidInput.Code, "Invalid payer ID: "+payer)
		}
		out.PayerID = &payerID
	}
	if f.Status != "" {
		status := ledger.InstallmentStatus(strings.ToUpper(f.Status))
		if !status.IsValid() {
			return out, shared.NewDomainError(shared.ErrInvalidInput.Code, "Invalid installment status: "+f.Status)
		}
		out.Status = &status
	}
	if f.Method != "" {
		method, err := ledger.ParsePaymentMethod(f.Method)
		if err != nil {
			return out, err
		}
		out.Method = &method
	}
	return out, nil
}

func (s *PaymentService) findVisibleInstallment(ctx context.Context, id, campusID uuid.UUID) (*ledger.Installment, error) {
	inst, err := s.installmentRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ledger.ErrInstallmentNotFound
		}
		return nil, fmt.Errorf("failed to find installment: %w", err)
	}
	if !inst.VisibleTo(campusID) {
		return nil, shared.ErrForbidden
	}
	return inst, nil
}

// inconsistentf builds an inconsistent error with a formatted message
// retryable turns a lost optimistic version check into a transient failure.
func retryable(err error) error {
	if errors.Is(err, shared.ErrConcurrencyConflict) {
		return ledger.ErrTransientFailure
	}
	return err
}

func inconsistentf(format string, args ...any) error {
	return ledger.NewInconsistentError(fmt.Sprintf(format, args...))
}
