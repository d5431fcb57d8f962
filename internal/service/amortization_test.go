package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prestabook/prestabook/internal/domain"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestComputeSchedule_FixedInstallment(t *testing.T) {
	// 1,000,000 at 24% annual over 12 months: monthly rate 2%.
	quote, err := ComputeSchedule(
		decimal.NewFromInt(1_000_000),
		decimal.NewFromInt(24),
		12,
		day("2025-01-15"),
	)
	require.NoError(t, err)

	assert.Equal(t, "94559.6", quote.InstallmentAmount.String())
	assert.Equal(t, "1134715.2", quote.TotalAmount.String())
	assert.Equal(t, "134715.2", quote.TotalInterest.String())
	assert.Equal(t, day("2026-01-15"), quote.EndDate)
	require.Len(t, quote.Schedule, 12)

	// First period: interest on the full principal.
	first := quote.Schedule[0]
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, "20000", first.InterestPortion.String())
	assert.Equal(t, "74559.6", first.PrincipalPortion.String())
	assert.Equal(t, day("2025-02-15"), first.DueDate)

	// Every installment carries the same amount; interest declines.
	for i, entry := range quote.Schedule {
		assert.True(t, entry.Amount.Equal(quote.InstallmentAmount), "period %d", i+1)
		if i > 0 {
			assert.True(t, entry.InterestPortion.LessThan(quote.Schedule[i-1].InterestPortion),
				"interest should decline, period %d", i+1)
		}
	}

	// Balance extinguishes on the final period.
	last := quote.Schedule[11]
	assert.Equal(t, 12, last.Number)
	assert.True(t, last.RemainingBalance.IsZero(), "final balance = %s", last.RemainingBalance)
	assert.Equal(t, day("2026-01-15"), last.DueDate)
}

func TestComputeSchedule_ZeroRate(t *testing.T) {
	quote, err := ComputeSchedule(
		decimal.NewFromInt(120_000),
		decimal.Zero,
		12,
		day("2025-03-01"),
	)
	require.NoError(t, err)

	assert.Equal(t, "10000", quote.InstallmentAmount.String())
	assert.Equal(t, "120000", quote.TotalAmount.String())
	assert.True(t, quote.TotalInterest.IsZero())

	for _, entry := range quote.Schedule {
		assert.True(t, entry.InterestPortion.IsZero())
		assert.True(t, entry.PrincipalPortion.Equal(decimal.NewFromInt(10_000)))
	}
	assert.True(t, quote.Schedule[11].RemainingBalance.IsZero())
}

func TestComputeSchedule_PrincipalConservation(t *testing.T) {
	amount := decimal.NewFromInt(50_000)
	quote, err := ComputeSchedule(amount, decimal.NewFromFloat(18.5), 6, day("2025-06-10"))
	require.NoError(t, err)

	sum := decimal.Zero
	for _, entry := range quote.Schedule {
		sum = sum.Add(entry.PrincipalPortion)
	}
	// Rounded per-period principal reconstructs the loan amount within cents.
	diff := sum.Sub(amount).Abs()
	assert.True(t, diff.LessThanOrEqual(decimal.NewFromFloat(0.06)), "principal drift = %s", diff)
}

func TestComputeSchedule_Validation(t *testing.T) {
	cases := []struct {
		name         string
		amount       decimal.Decimal
		rate         decimal.Decimal
		installments int
		field        string
	}{
		{"zero amount", decimal.Zero, decimal.NewFromInt(24), 12, "amount"},
		{"negative amount", decimal.NewFromInt(-100), decimal.NewFromInt(24), 12, "amount"},
		{"zero installments", decimal.NewFromInt(1000), decimal.NewFromInt(24), 0, "installments"},
		{"negative rate", decimal.NewFromInt(1000), decimal.NewFromInt(-1), 12, "interest_rate"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ComputeSchedule(tc.amount, tc.rate, tc.installments, day("2025-01-01"))
			var verr *domain.ErrValidation
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestOverdueInterest(t *testing.T) {
	rate := decimal.NewFromFloat(0.001)

	got := OverdueInterest(decimal.NewFromInt(50_000), rate, 10)
	assert.Equal(t, "500", got.String())

	assert.True(t, OverdueInterest(decimal.NewFromInt(50_000), rate, 0).IsZero())
	assert.True(t, OverdueInterest(decimal.NewFromInt(50_000), rate, -3).IsZero())

	// Sub-cent amounts round half-up to 2 decimals.
	got = OverdueInterest(decimal.NewFromFloat(1234.56), rate, 3)
	assert.Equal(t, "3.7", got.String())
}

func TestDaysOverdue(t *testing.T) {
	due := day("2025-01-01")

	assert.Equal(t, 10, DaysOverdue(due, day("2025-01-11")))
	assert.Equal(t, 1, DaysOverdue(due, day("2025-01-02")))
	assert.Equal(t, 0, DaysOverdue(due, due))
	assert.Equal(t, 0, DaysOverdue(due, day("2024-12-25")))

	// Time of day never changes the count.
	assert.Equal(t, 2, DaysOverdue(
		due.Add(23*time.Hour),
		day("2025-01-03").Add(1*time.Minute),
	))
}
