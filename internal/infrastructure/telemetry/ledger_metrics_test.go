package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/erp/tuition/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func newTestLedgerMetrics(t *testing.T) (*telemetry.LedgerMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	lm, err := telemetry.NewLedgerMetrics(provider.Meter("test"))
	require.NoError(t, err)
	return lm, reader
}

func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestNewLedgerMetrics_NilMeter(t *testing.T) {
	lm, err := telemetry.NewLedgerMetrics(nil)
	require.Error(t, err)
	assert.Nil(t, lm)
	assert.Equal(t, "NewLedgerMetrics: meter cannot be nil", err.Error())
}

func TestLedgerMetrics_RecordApplied(t *testing.T) {
	lm, reader := newTestLedgerMetrics(t)
	ctx := context.Background()

	lm.RecordApplied(ctx, uuid.New(), "BANK", "auto", 3, decimal.RequireFromString("120000.50"))

	assert.Equal(t, int64(3), sumOf(t, reader, "ledger_payments_applied_total"))
	assert.Equal(t, int64(12000050), sumOf(t, reader, "ledger_amount_applied_total"))
}

func TestLedgerMetrics_Counters(t *testing.T) {
	lm, reader := newTestLedgerMetrics(t)
	ctx := context.Background()
	campus := uuid.New()

	lm.RecordRejected(ctx, campus, "supera_capacidad")
	lm.RecordRejected(ctx, campus, "previas_pendientes")
	lm.RecordRemoved(ctx, campus)
	lm.RecordOverdueMarked(ctx, 4)
	lm.RecordOverdueMarked(ctx, 0)
	lm.RecordApplyDuration(ctx, 20*time.Millisecond, telemetry.ApplyOutcomeApplied)

	assert.Equal(t, int64(2), sumOf(t, reader, "ledger_apply_rejections_total"))
	assert.Equal(t, int64(1), sumOf(t, reader, "ledger_payments_removed_total"))
	assert.Equal(t, int64(4), sumOf(t, reader, "ledger_installments_marked_overdue_total"))
}

func TestLedgerMetrics_NilReceiver(t *testing.T) {
	var lm *telemetry.LedgerMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		lm.RecordApplied(ctx, uuid.New(), "CASH", "plain", 1, decimal.NewFromInt(1))
		lm.RecordRejected(ctx, uuid.New(), "exceeds_balance")
		lm.RecordRemoved(ctx, uuid.New())
		lm.RecordOverdueMarked(ctx, 1)
		lm.RecordApplyDuration(ctx, time.Second, telemetry.ApplyOutcomeFailed)
	})
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	mp, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.ForceFlush(context.Background()))
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.Shutdown(context.Background()))
}
