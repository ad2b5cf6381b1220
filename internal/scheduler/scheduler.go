// Package scheduler fires the report pipeline on weekdays at a
// configured local time.
package scheduler

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// misfireGrace is how late a wakeup may be and still count as the
// scheduled firing. Beyond it the slot is skipped.
const misfireGrace = time.Hour

// Runner is the work the scheduler triggers.
type Runner interface {
	Run(ctx context.Context, trigger string)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, trigger string)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, trigger string) { f(ctx, trigger) }

// Scheduler triggers a Runner Monday through Friday at HH:MM in a
// given timezone.
type Scheduler struct {
	hour   int
	minute int
	loc    *time.Location
	runner Runner

	mu   sync.RWMutex
	next time.Time
}

// New creates a scheduler. The timezone must be a valid IANA name.
func New(hour, minute int, timezone string, runner Runner) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}
	return &Scheduler{hour: hour, minute: minute, loc: loc, runner: runner}, nil
}

// Next returns the upcoming firing time.
func (s *Scheduler) Next() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.next.IsZero() {
		return s.nextAfter(time.Now())
	}
	return s.next
}

// Start runs the schedule loop until ctx is cancelled. A panicking run
// is logged and the loop continues with the next slot.
func (s *Scheduler) Start(ctx context.Context) {
	for {
		next := s.nextAfter(time.Now())
		s.mu.Lock()
		s.next = next
		s.mu.Unlock()

		slog.Info("next scheduled report", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		// A machine waking from sleep can fire the timer long after
		// the slot; only run within the grace window.
		if late := time.Since(next); late > misfireGrace {
			slog.Warn("missed schedule slot, skipping", "late", late.Round(time.Second))
			continue
		}

		s.fire(ctx)
	}
}

func (s *Scheduler) fire(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("scheduled run panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	s.runner.Run(ctx, "scheduled")
}

// nextAfter computes the first weekday firing strictly after t.
func (s *Scheduler) nextAfter(t time.Time) time.Time {
	t = t.In(s.loc)
	candidate := time.Date(t.Year(), t.Month(), t.Day(), s.hour, s.minute, 0, 0, s.loc)

	for !candidate.After(t) || !isWeekday(candidate) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

func isWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}
