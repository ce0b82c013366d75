package telemetry

import (
	"context"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestNewProfiler_Disabled(t *testing.T) {
	p, err := NewProfiler(ProfilerConfig{
		Enabled:         false,
		ServerAddress:   "http://localhost:4040",
		ApplicationName: "tuition-ledger",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_RequiresAddressAndName(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ProfilerConfig
		wantErr string
	}{
		{"missing address", ProfilerConfig{Enabled: true, ApplicationName: "tuition-ledger"}, "server address is required"},
		{"missing name", ProfilerConfig{Enabled: true, ServerAddress: "http://localhost:4040"}, "application name is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProfiler(tt.cfg, zaptest.NewLogger(t))
			require.Error(t, err)
			assert.Nil(t, p)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestProfilerConfig_ProfileTypes(t *testing.T) {
	assert.Equal(t, []pyroscope.ProfileType{pyroscope.ProfileCPU}, ProfilerConfig{}.profileTypes())

	all := ProfilerConfig{ProfileAllocations: true, ProfileGoroutines: true}.profileTypes()
	assert.Len(t, all, 6)
	assert.Contains(t, all, pyroscope.ProfileInuseSpace)
	assert.Contains(t, all, pyroscope.ProfileGoroutines)
}

func TestSanitizeLabels(t *testing.T) {
	pairs := sanitizeLabels(map[string]string{
		ProfilingLabelOperation: "apply_payment",
		ProfilingLabelCampusID:  strings.Repeat("x", 200),
		"payment_id":            "5a0f",
		"":                      "ignored",
		ProfilingLabelMode:      " ",
	})

	require.Len(t, pairs, 4)
	assert.Equal(t, ProfilingLabelCampusID, pairs[0])
	assert.Len(t, pairs[1], maxLabelValueLength)
	assert.Equal(t, []string{ProfilingLabelOperation, "apply_payment"}, pairs[2:])
}

func TestWithProfilingLabels(t *testing.T) {
	var got string
	WithProfilingLabels(context.Background(), map[string]string{
		ProfilingLabelOperation: "mark_overdue",
	}, func(ctx context.Context) {
		got, _ = pprof.Label(ctx, ProfilingLabelOperation)
	})
	assert.Equal(t, "mark_overdue", got)

	called := false
	WithProfilingLabels(context.Background(), nil, func(context.Context) { called = true })
	assert.True(t, called)
}

func TestTracerProvider_EnableSpanProfilesDisabled(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	tp.EnableSpanProfiles()
	assert.False(t, tp.spanProfilesEnabled)
}
