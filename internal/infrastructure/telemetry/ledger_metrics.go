package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LedgerMetrics records payment engine activity.
// A nil *LedgerMetrics is valid and records nothing.
type LedgerMetrics struct {
	paymentsApplied *Counter
	amountApplied   *Counter
	rejections      *Counter
	paymentsRemoved *Counter
	overdueMarked   *Counter
	applyDuration   *Histogram
}

// ApplyOutcome labels the result of an apply attempt.
type ApplyOutcome string

const (
	ApplyOutcomeApplied  ApplyOutcome = "applied"
	ApplyOutcomeRejected ApplyOutcome = "rejected"
	ApplyOutcomeFailed   ApplyOutcome = "failed"
)

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewLedgerMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// NewLedgerMetrics creates the ledger instruments on the given meter.
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	lm := &LedgerMetrics{}
	var err error

	if lm.paymentsApplied, err = NewCounter(meter,
		"ledger_payments_applied_total",
		"Payment rows written by apply actions",
		"{payments}",
	); err != nil {
		return nil, err
	}

	if lm.amountApplied, err = NewCounter(meter,
		"ledger_amount_applied_total",
		"Amount applied in cents",
		"{cents}",
	); err != nil {
		return nil, err
	}

	if lm.rejections, err = NewCounter(meter,
		"ledger_apply_rejections_total",
		"Apply actions blocked by the allocation policy",
		"{requests}",
	); err != nil {
		return nil, err
	}

	if lm.paymentsRemoved, err = NewCounter(meter,
		"ledger_payments_removed_total",
		"Payments removed",
		"{payments}",
	); err != nil {
		return nil, err
	}

	if lm.overdueMarked, err = NewCounter(meter,
		"ledger_installments_marked_overdue_total",
		"Installments flagged as overdue",
		"{installments}",
	); err != nil {
		return nil, err
	}

	if lm.applyDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "ledger_apply_duration_seconds",
		Description: "Duration of apply actions",
		Unit:        "s",
		Boundaries:  ApplyDurationBuckets,
	}); err != nil {
		return nil, err
	}

	return lm, nil
}

// RecordApplied records a committed apply action.
func (lm *LedgerMetrics) RecordApplied(ctx context.Context, campusID uuid.UUID, method, mode string, rows int, amount decimal.Decimal) {
	if lm == nil {
		return
	}
	attrs := []attribute.KeyValue{
		AttrCampusID.String(campusID.String()),
		AttrPaymentMethod.String(method),
		AttrAllocMode.String(mode),
	}
	lm.paymentsApplied.Add(ctx, int64(rows), attrs...)
	lm.amountApplied.Add(ctx, amount.Shift(2).IntPart(), attrs...)
}

// RecordRejected records an apply action blocked with the given code.
func (lm *LedgerMetrics) RecordRejected(ctx context.Context, campusID uuid.UUID, code string) {
	if lm == nil {
		return
	}
	lm.rejections.Inc(ctx,
		AttrCampusID.String(campusID.String()),
		AttrRejectCode.String(code),
	)
}

// RecordApplyDuration records how long an apply action took.
func (lm *LedgerMetrics) RecordApplyDuration(ctx context.Context, d time.Duration, outcome ApplyOutcome) {
	if lm == nil {
		return
	}
	lm.applyDuration.RecordDuration(ctx, d, AttrOutcome.String(string(outcome)))
}

// RecordRemoved records a removed payment.
func (lm *LedgerMetrics) RecordRemoved(ctx context.Context, campusID uuid.UUID) {
	if lm == nil {
		return
	}
	lm.paymentsRemoved.Inc(ctx, AttrCampusID.String(campusID.String()))
}

// RecordOverdueMarked records installments flagged by an overdue sweep.
func (lm *LedgerMetrics) RecordOverdueMarked(ctx context.Context, count int64) {
	if lm == nil || count <= 0 {
		return
	}
	lm.overdueMarked.Add(ctx, count)
}
