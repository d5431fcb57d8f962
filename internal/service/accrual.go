package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/prestabook/prestabook/internal/domain"
	"github.com/prestabook/prestabook/internal/infra/observability"
	"github.com/prestabook/prestabook/internal/port"
)

var accrualTracer = otel.Tracer("service/accrual")

// ============================================================
// Delinquency accrual
// ============================================================

// AccrualEngine ages outstanding installments into delinquency and accrues
// the late-payment surcharge. It is invoked once per day by the scheduler
// and on demand through the API.
type AccrualEngine struct {
	store     port.Store
	dailyRate decimal.Decimal
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewAccrualEngine creates an accrual engine with the given daily overdue
// rate (e.g. 0.001 for 0.1% per day, simple interest).
func NewAccrualEngine(store port.Store, dailyRate decimal.Decimal, metrics *observability.Metrics, logger *zap.Logger) *AccrualEngine {
	return &AccrualEngine{store: store, dailyRate: dailyRate, metrics: metrics, logger: logger}
}

// Run scans every pending or overdue installment of an active loan whose due
// date lies before today (calendar-day comparison) and brings its delinquency
// state up to date:
//
//  1. pending installments past due transition to overdue
//  2. daysOverdue is recomputed from the real elapsed day count, so a run
//     skipped for several days catches up in one pass
//  3. when daysOverdue changed, the surcharge is recomputed from scratch
//     (base × dailyRate × daysOverdue) and persisted
//
// Re-running with the same today is a no-op: unchanged day counts skip the
// write entirely, so interest is never accrued twice. A persistence failure
// on one installment is logged and the scan continues; already-applied
// changes are not rolled back.
func (e *AccrualEngine) Run(ctx context.Context, today time.Time) (*domain.AccrualReport, error) {
	ctx, span := accrualTracer.Start(ctx, "AccrualEngine.Run")
	defer span.End()

	day := midnight(today)
	span.SetAttributes(attribute.String("run.date", day.Format("2006-01-02")))

	due, err := e.store.ListAccruable(ctx, day)
	if err != nil {
		e.logger.Error("accrual scan failed", zap.Error(err))
		return nil, err
	}

	report := &domain.AccrualReport{
		RunDate:      day,
		Scanned:      len(due),
		TotalOverdue: decimal.Zero,
	}
	affectedLoans := make(map[string]struct{})

	for i := range due {
		inst := &due[i]

		changed := false
		if inst.Status == domain.InstallmentPending {
			inst.Status = domain.InstallmentOverdue
			report.Reclassified++
			changed = true
		}

		// Monotonic by construction: the real day difference only grows
		// with today, and equal day counts skip the recomputation, which
		// makes the run idempotent within a calendar day.
		days := DaysOverdue(inst.DueDate, day)
		if days != inst.DaysOverdue {
			inst.DaysOverdue = days
			inst.OverdueInterest = OverdueInterest(inst.Amount, e.dailyRate, days)
			inst.RecomputeTotal()
			changed = true
		}

		if !changed {
			report.TotalOverdue = report.TotalOverdue.Add(inst.TotalAmount)
			affectedLoans[inst.LoanID] = struct{}{}
			continue
		}

		// Stamped with the run's day, not the wall clock, so a replayed run
		// writes identical rows.
		inst.UpdatedAt = day
		if err := e.store.UpdateInstallment(ctx, inst); err != nil {
			report.Failed++
			e.metrics.IncrAccrualFailure()
			e.logger.Error("failed to persist accrual update",
				zap.String("installment_id", inst.ID),
				zap.String("loan_id", inst.LoanID),
				zap.Error(err),
			)
			continue
		}

		report.TotalOverdue = report.TotalOverdue.Add(inst.TotalAmount)
		affectedLoans[inst.LoanID] = struct{}{}

		e.logger.Debug("installment aged",
			zap.String("installment_id", inst.ID),
			zap.Int("days_overdue", inst.DaysOverdue),
			zap.String("overdue_interest", inst.OverdueInterest.String()),
		)
	}

	report.ClientsAffected = e.countClientsAffected(ctx, affectedLoans)

	e.metrics.ObserveAccrualRun(report.Scanned, report.Reclassified)
	e.logger.Info("accrual run completed",
		zap.String("run_date", day.Format("2006-01-02")),
		zap.Int("scanned", report.Scanned),
		zap.Int("reclassified", report.Reclassified),
		zap.Int("failed", report.Failed),
		zap.String("total_overdue", report.TotalOverdue.String()),
		zap.Int("clients_affected", report.ClientsAffected),
	)

	return report, nil
}

// countClientsAffected resolves the distinct clients behind the touched
// loans for the run report. Report-only; failures here do not fail the run.
func (e *AccrualEngine) countClientsAffected(ctx context.Context, loanIDs map[string]struct{}) int {
	if len(loanIDs) == 0 {
		return 0
	}
	loans, err := e.store.ListLoans(ctx)
	if err != nil {
		e.logger.Warn("could not resolve clients for accrual report", zap.Error(err))
		return 0
	}
	clients := make(map[string]struct{})
	for _, l := range loans {
		if _, ok := loanIDs[l.ID]; ok {
			clients[l.ClientID] = struct{}{}
		}
	}
	return len(clients)
}
