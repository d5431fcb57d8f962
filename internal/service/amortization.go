package service

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/prestabook/prestabook/internal/domain"
)

// ============================================================
// Amortization (French / fixed-installment system)
// ============================================================

// ComputeSchedule computes a fixed-installment repayment schedule:
//
//	monthlyRate = annualRatePercent / 100 / 12
//	installment = P * r * (1+r)^n / ((1+r)^n - 1)
//
// The installment is rounded to 2 decimals half-up; totalAmount is
// installment × n, so the loan-level figures and the schedule agree by
// construction. Every schedule entry is rounded independently and the
// remaining balance is clamped to zero on the final period to absorb
// rounding drift.
//
// Pure function: no side effects, deterministic, used both for persisted
// loan creation and for the what-if preview endpoint.
func ComputeSchedule(amount, annualRatePercent decimal.Decimal, installments int, startDate time.Time) (*domain.LoanQuote, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be positive"}
	}
	if installments <= 0 {
		return nil, &domain.ErrValidation{Field: "installments", Message: "must be positive"}
	}
	if annualRatePercent.IsNegative() {
		return nil, &domain.ErrValidation{Field: "interest_rate", Message: "must not be negative"}
	}

	// Annual percent -> monthly decimal rate. The power term is computed in
	// float64; all monetary arithmetic stays in decimal.
	monthlyRate := annualRatePercent.Div(decimal.NewFromInt(1200))

	var installmentAmount decimal.Decimal
	if monthlyRate.IsZero() {
		// Zero-interest: straight-line split.
		installmentAmount = amount.Div(decimal.NewFromInt(int64(installments))).Round(2)
	} else {
		r := monthlyRate.InexactFloat64()
		factor := math.Pow(1+r, float64(installments))
		payment := amount.InexactFloat64() * r * factor / (factor - 1)
		installmentAmount = decimal.NewFromFloat(payment).Round(2)
	}

	totalAmount := installmentAmount.Mul(decimal.NewFromInt(int64(installments))).Round(2)
	totalInterest := totalAmount.Sub(amount).Round(2)
	endDate := startDate.AddDate(0, installments, 0)

	schedule := make([]domain.ScheduleEntry, 0, installments)
	remaining := amount
	for i := 1; i <= installments; i++ {
		interest := remaining.Mul(monthlyRate)
		principal := installmentAmount.Sub(interest)
		remaining = remaining.Sub(principal)

		balance := remaining.Round(2)
		if balance.IsNegative() {
			balance = decimal.Zero
		}

		schedule = append(schedule, domain.ScheduleEntry{
			Number:           i,
			Amount:           installmentAmount,
			PrincipalPortion: principal.Round(2),
			InterestPortion:  interest.Round(2),
			RemainingBalance: balance,
			DueDate:          startDate.AddDate(0, i, 0),
		})
	}

	return &domain.LoanQuote{
		InstallmentAmount: installmentAmount,
		TotalAmount:       totalAmount,
		TotalInterest:     totalInterest,
		EndDate:           endDate,
		Schedule:          schedule,
	}, nil
}

// OverdueInterest computes the flat late-payment surcharge for an installment:
// base × dailyRate × daysOverdue, rounded to 2 decimals. Simple interest, not
// compounding; the daily rate is a policy knob (default 0.001 = 0.1%/day).
func OverdueInterest(base, dailyRate decimal.Decimal, daysOverdue int) decimal.Decimal {
	if daysOverdue <= 0 {
		return decimal.Zero
	}
	return base.Mul(dailyRate).Mul(decimal.NewFromInt(int64(daysOverdue))).Round(2)
}

// DaysOverdue returns the whole calendar days elapsed between dueDate and
// today, both normalized to midnight UTC. Zero when the due date has not
// passed.
func DaysOverdue(dueDate, today time.Time) int {
	due := midnight(dueDate)
	now := midnight(today)
	if !now.After(due) {
		return 0
	}
	return int(now.Sub(due).Hours() / 24)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
