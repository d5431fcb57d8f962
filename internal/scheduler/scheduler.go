// Package scheduler runs the delinquency accrual once per calendar day.
// The engine itself is idempotent per day, so an extra invocation (restart,
// manual trigger) is harmless, and a missed day is caught up by the next run.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/prestabook/prestabook/internal/domain"
)

// AccrualRunner is the "run now with this date" entry point the scheduler
// drives. Satisfied by service.AccrualEngine.
type AccrualRunner interface {
	Run(ctx context.Context, today time.Time) (*domain.AccrualReport, error)
}

// Daily fires the accrual run every day at a fixed hour (UTC).
type Daily struct {
	engine AccrualRunner
	hour   int
	logger *zap.Logger
}

// NewDaily creates a daily scheduler firing at the given UTC hour (0-23).
func NewDaily(engine AccrualRunner, hour int, logger *zap.Logger) *Daily {
	return &Daily{engine: engine, hour: hour, logger: logger}
}

// Start blocks until ctx is cancelled, invoking the accrual engine at the
// configured hour each day.
func (d *Daily) Start(ctx context.Context) error {
	d.logger.Info("accrual scheduler started", zap.Int("hour_utc", d.hour))

	for {
		wait := time.Until(nextRun(time.Now().UTC(), d.hour))
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			d.logger.Info("accrual scheduler stopped")
			return ctx.Err()
		case <-timer.C:
		}

		if _, err := d.engine.Run(ctx, time.Now().UTC()); err != nil {
			// The engine already logged details; the next tick retries.
			d.logger.Error("scheduled accrual run failed", zap.Error(err))
		}
	}
}

// nextRun returns the next occurrence of hour after now.
func nextRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
