package maker

import (
	"context"
	"log/slog"
	"time"

	"maker/internal/model"
)

// CycleRunner evaluates one symbol once.
type CycleRunner interface {
	RunCycle(ctx context.Context, symbol model.Symbol) error
}

// Scheduler drives evaluation cycles for every configured symbol at a fixed
// cadence until the context is cancelled.
type Scheduler struct {
	logger   *slog.Logger
	runner   CycleRunner
	symbols  []model.Symbol
	interval time.Duration
}

// NewScheduler creates a new Scheduler.
func NewScheduler(logger *slog.Logger, runner CycleRunner, symbols []model.Symbol, interval time.Duration) *Scheduler {
	return &Scheduler{logger: logger, runner: runner, symbols: symbols, interval: interval}
}

// Run ticks until ctx is cancelled. The sleep starts after a tick finishes,
// so a slow cycle delays the next tick instead of overlapping it, and an
// in-flight tick always runs to completion on shutdown.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		default:
		}

		s.Tick(ctx)

		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-time.After(s.interval):
		}
	}
}

// Tick evaluates every symbol once. A symbol's failure is logged and does not
// affect its siblings or future ticks. Shutdown is honored between ticks only:
// the cycles run on a context detached from the cancellation signal, so an
// in-flight venue call is never aborted mid-wire. Per-call timeouts still
// bound every call.
func (s *Scheduler) Tick(ctx context.Context) {
	workCtx := context.WithoutCancel(ctx)
	for _, symbol := range s.symbols {
		s.runCycle(workCtx, symbol)
	}
	s.logger.Info("tick completed", "symbols", len(s.symbols))
}

// runCycle shields the scheduler from one symbol's failure, whether returned
// or panicked.
func (s *Scheduler) runCycle(ctx context.Context, symbol model.Symbol) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("cycle panicked", "symbol", symbol.String(), "panic", r)
		}
	}()
	if err := s.runner.RunCycle(ctx, symbol); err != nil {
		s.logger.Error("cycle failed", "symbol", symbol.String(), "error", err)
	}
}
