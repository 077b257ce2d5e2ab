// Package jobs runs background work on a schedule.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/eventboard/eventboard/internal/config"
	"github.com/eventboard/eventboard/internal/plugins/events"
)

// runTimeout bounds one run of the daily job.
const runTimeout = time.Minute

// DailyRunner is the part of the events service the daily job drives.
type DailyRunner interface {
	CreateDaily(ctx context.Context, day time.Time) (*events.Event, error)
	ActivateForDate(ctx context.Context, day time.Time) (int64, error)
}

// Daily fires once a day at a fixed local hour.
type Daily struct {
	runner DailyRunner
	hour   int
	loc    *time.Location

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// NewDaily creates the daily job for cfg. A nil location means UTC.
func NewDaily(cfg config.JobsConfig, runner DailyRunner) *Daily {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Daily{
		runner: runner,
		hour:   cfg.DailyHour,
		loc:    loc,
		now:    time.Now,
		after:  time.After,
	}
}

// Start runs the job in a goroutine until ctx is cancelled. The returned
// channel is closed when the goroutine exits.
func (d *Daily) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			next := nextRun(d.now(), d.hour, d.loc)
			slog.Info("daily job scheduled", slog.Time("next_run", next))

			select {
			case <-ctx.Done():
				return
			case <-d.after(time.Until(next)):
				d.RunOnce(ctx, next)
			}
		}
	}()
	return done
}

// RunOnce creates the daily event for day and shows the hidden events dated
// day. A failing step is logged and does not stop the other.
func (d *Daily) RunOnce(ctx context.Context, day time.Time) {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	day = day.In(d.loc)
	if event, err := d.runner.CreateDaily(ctx, day); err != nil {
		slog.Error("daily job: creating event", slog.Any("error", err))
	} else {
		slog.Info("daily job: event created", slog.Int64("event_id", event.ID))
	}

	n, err := d.runner.ActivateForDate(ctx, day)
	if err != nil {
		slog.Error("daily job: activating events", slog.Any("error", err))
		return
	}
	slog.Info("daily job: events activated",
		slog.String("date", day.Format(time.DateOnly)),
		slog.Int64("count", n),
	)
}

// nextRun returns the first instant strictly after now at hour:00 in loc.
func nextRun(now time.Time, hour int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, 0, 0, 0, loc)
	}
	return next
}
