package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/prestabook/prestabook/internal/domain"
)

// ============================================================
// Portfolio aggregation (dashboard + calendar)
// ============================================================

// Summary folds the current loans + installments snapshot into the dashboard
// aggregate. Loans and installments are loaded concurrently; nothing is
// cached or mutated.
func (s *LendingService) Summary(ctx context.Context, today time.Time) (*domain.PortfolioSummary, error) {
	ctx, span := tracer.Start(ctx, "LendingService.Summary")
	defer span.End()

	var (
		loans        []domain.Loan
		installments []domain.Installment
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		loans, err = s.store.ListLoans(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		installments, err = s.store.ListInstallments(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	loanByID := make(map[string]*domain.Loan, len(loans))
	for i := range loans {
		loanByID[loans[i].ID] = &loans[i]
	}

	summary := &domain.PortfolioSummary{
		TotalLent:           decimal.Zero,
		TotalWithInterest:   decimal.Zero,
		TotalReceived:       decimal.Zero,
		TotalPending:        decimal.Zero,
		TotalOverdue:        decimal.Zero,
		TotalInterestEarned: decimal.Zero,
		UpcomingPayments:    []domain.UpcomingPayment{},
	}

	paidCount := make(map[string]int)

	for _, l := range loans {
		if l.Status == domain.LoanActive {
			summary.ActiveLoansCount++
			summary.TotalLent = summary.TotalLent.Add(l.Amount)
			summary.TotalWithInterest = summary.TotalWithInterest.Add(l.TotalAmount)
		}
	}

	day := midnight(today)
	horizon := day.AddDate(0, 0, 7)

	for i := range installments {
		inst := &installments[i]
		loan := loanByID[inst.LoanID]
		if loan == nil {
			continue
		}

		switch inst.Status {
		case domain.InstallmentPaid:
			summary.TotalReceived = summary.TotalReceived.Add(inst.TotalAmount)
			paidCount[inst.LoanID]++
		case domain.InstallmentOverdue:
			summary.OverdueInstallments++
			summary.TotalOverdue = summary.TotalOverdue.Add(inst.TotalAmount)
		case domain.InstallmentPending:
			if loan.Status != domain.LoanActive {
				break
			}
			summary.TotalPending = summary.TotalPending.Add(inst.TotalAmount)

			dueDay := midnight(inst.DueDate)
			if !dueDay.Before(day) && !dueDay.After(horizon) {
				summary.UpcomingInstallments++
				name := ""
				if loan.Client != nil {
					name = loan.Client.FullName()
				}
				summary.UpcomingPayments = append(summary.UpcomingPayments, domain.UpcomingPayment{
					InstallmentID: inst.ID,
					ClientName:    name,
					Amount:        inst.TotalAmount,
					DueDate:       inst.DueDate,
					Number:        inst.Number,
				})
			}
		}
	}

	// Interest earned to date: what came in minus the principal share it
	// recovered, with principal attributed proportionally across a loan's
	// installments.
	principalRecovered := decimal.Zero
	for id, n := range paidCount {
		loan := loanByID[id]
		if loan == nil || loan.Installments == 0 {
			continue
		}
		share := loan.Amount.
			Mul(decimal.NewFromInt(int64(n))).
			Div(decimal.NewFromInt(int64(loan.Installments)))
		principalRecovered = principalRecovered.Add(share)
	}
	summary.TotalInterestEarned = summary.TotalReceived.Sub(principalRecovered).Round(2)

	return summary, nil
}

// Calendar renders every installment of the active loans as a calendar event,
// color-coded by status for the dashboard calendar page.
func (s *LendingService) Calendar(ctx context.Context) ([]domain.CalendarEvent, error) {
	ctx, span := tracer.Start(ctx, "LendingService.Calendar")
	defer span.End()

	loans, err := s.store.ListLoans(ctx)
	if err != nil {
		return nil, err
	}

	events := []domain.CalendarEvent{}
	for i := range loans {
		loan := &loans[i]
		if loan.Status != domain.LoanActive {
			continue
		}
		name := ""
		if loan.Client != nil {
			name = loan.Client.FullName()
		}
		for _, inst := range loan.Schedule {
			color := "#3b82f6" // pending: blue
			switch inst.Status {
			case domain.InstallmentPaid:
				color = "#10b981" // green
			case domain.InstallmentOverdue:
				color = "#ef4444" // red
			}
			events = append(events, domain.CalendarEvent{
				ID:              inst.ID,
				Title:           name + " - $" + inst.TotalAmount.StringFixed(2),
				Start:           inst.DueDate,
				BackgroundColor: color,
				BorderColor:     color,
				ClientID:        loan.ClientID,
				ClientName:      name,
				LoanID:          loan.ID,
				Number:          inst.Number,
				Amount:          inst.TotalAmount,
				Status:          string(inst.Status),
				OverdueInterest: inst.OverdueInterest,
			})
		}
	}
	return events, nil
}
