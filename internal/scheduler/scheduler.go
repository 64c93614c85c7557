// Package scheduler fires a task on a cron expression. At most one run is
// in flight: a tick that arrives while the previous run is still going is
// dropped.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/semaphore"

	"github.com/mikequentel/ukiyobot/internal/logger"
	"github.com/mikequentel/ukiyobot/internal/metrics"
)

// Task is one scheduled run.
type Task func(ctx context.Context) error

type Scheduler struct {
	expr     string
	schedule cron.Schedule
	task     Task
	clock    clockwork.Clock
	log      *slog.Logger
	runNow   bool

	inflight *semaphore.Weighted
	wg       sync.WaitGroup
}

type Option func(*Scheduler)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithImmediateRun fires once as soon as Run starts, before the first tick.
func WithImmediateRun() Option {
	return func(s *Scheduler) { s.runNow = true }
}

// New parses a standard five-field cron expression.
func New(expr string, task Task, opts ...Option) (*Scheduler, error) {
	if task == nil {
		return nil, fmt.Errorf("scheduler: nil task")
	}
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("scheduler: parse %q: %w", expr, err)
	}

	s := &Scheduler{
		expr:     expr,
		schedule: sched,
		task:     task,
		clock:    clockwork.NewRealClock(),
		log:      logger.Default(),
		inflight: semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Next returns the first activation strictly after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Run blocks until ctx is done, then waits for the in-flight run to
// finish. It always returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("scheduler started", "schedule", s.expr, "next", s.Next(s.clock.Now()).Format(time.RFC3339))

	if s.runNow {
		s.fire(ctx, s.clock.Now())
	}

	for {
		now := s.clock.Now()
		next := s.schedule.Next(now)
		timer := s.clock.NewTimer(next.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.wg.Wait()
			s.log.Info("scheduler stopped")
			return ctx.Err()
		case <-timer.Chan():
			s.fire(ctx, next)
		}
	}
}

// fire starts a run in its own goroutine unless one is already going.
func (s *Scheduler) fire(ctx context.Context, tick time.Time) {
	if !s.inflight.TryAcquire(1) {
		metrics.TicksSkipped.Inc()
		s.log.Warn("previous run still in progress, skipping tick", "tick", tick.Format(time.RFC3339))
		return
	}

	runID := uuid.NewString()
	runLog := s.log.With("run_id", runID)
	runCtx := logger.WithLogger(ctx, runLog)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.inflight.Release(1)

		start := s.clock.Now()
		runLog.Info("run started", "tick", tick.Format(time.RFC3339))
		if err := s.task(runCtx); err != nil {
			metrics.TaskErrors.Inc()
			runLog.Error("run failed, waiting for next tick", "error", err, "elapsed", s.clock.Since(start))
			return
		}
		runLog.Info("run finished", "elapsed", s.clock.Since(start))
	}()
}
