package scheduler

import (
	"context"
	"sync"
	"time"

	appledger "github.com/erp/tuition/internal/application/ledger"
	"github.com/erp/tuition/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// OverdueMarker flags installments past their due date
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, asOf time.Time) (*appledger.MarkOverdueResult, error)
}

// OverdueScheduler runs the overdue sweep once a day
type OverdueScheduler struct {
	marker    OverdueMarker
	logger    *zap.Logger
	config    OverdueSchedulerConfig
	now       func() time.Time
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// OverdueSchedulerConfig holds configuration for the overdue scheduler
type OverdueSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// RunHour is the hour (0-23, local time) of the daily sweep
	RunHour int

	// Timeout bounds a single sweep
	Timeout time.Duration
}

// DefaultOverdueSchedulerConfig returns default configuration
func DefaultOverdueSchedulerConfig() OverdueSchedulerConfig {
	return OverdueSchedulerConfig{
		Enabled: true,
		RunHour: 1,
		Timeout: 10 * time.Minute,
	}
}

// NewOverdueScheduler creates a new overdue scheduler
func NewOverdueScheduler(marker OverdueMarker, logger *zap.Logger, config OverdueSchedulerConfig) *OverdueScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultOverdueSchedulerConfig().Timeout
	}
	return &OverdueScheduler{
		marker: marker,
		logger: logger,
		config: config,
		now:    time.Now,
	}
}

// Start starts the daily sweep loop. A disabled scheduler logs and returns.
func (s *OverdueScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Overdue scheduler is disabled")
		return nil
	}
	if s.config.RunHour < 0 || s.config.RunHour > 23 {
		s.mu.Unlock()
		return ErrInvalidConfig
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go s.runDaily(ctx)

	s.logger.Info("Overdue scheduler started", zap.Int("run_hour", s.config.RunHour))
	return nil
}

// Stop cancels the loop and waits for running sweeps until ctx expires
func (s *OverdueScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Overdue scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Overdue scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *OverdueScheduler) runDaily(ctx context.Context) {
	defer s.wg.Done()

	for {
		now := s.now()
		nextRun := nextDailyRun(now, s.config.RunHour)
		delay := nextRun.Sub(now)

		s.logger.Info("Daily overdue sweep scheduled",
			zap.Time("next_run", nextRun),
			zap.Duration("delay", delay),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Debug("Daily overdue loop stopping")
			return
		case <-timer.C:
			s.execute(ctx)
		}
	}
}

// nextDailyRun returns the next time at hour:00 strictly after now
func nextDailyRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s *OverdueScheduler) execute(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	asOf := s.now()
	s.logger.Info("Starting overdue sweep", zap.Time("as_of", asOf))

	var (
		result *appledger.MarkOverdueResult
		err    error
	)
	telemetry.WithProfilingLabels(sweepCtx, map[string]string{
		telemetry.ProfilingLabelOperation: "mark_overdue",
	}, func(ctx context.Context) {
		result, err = s.marker.MarkOverdue(ctx, asOf)
	})
	duration := s.now().Sub(asOf)
	if err != nil {
		s.logger.Error("Overdue sweep failed",
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("Overdue sweep completed",
		zap.Duration("duration", duration),
		zap.Int64("marked", result.Marked),
	)
}

// TriggerImmediate runs a sweep now in the background
func (s *OverdueScheduler) TriggerImmediate(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("Triggering immediate overdue sweep")

	go func() {
		defer s.wg.Done()
		s.execute(ctx)
	}()

	return nil
}

// IsRunning returns whether the scheduler is running
func (s *OverdueScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
