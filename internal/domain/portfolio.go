package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Portfolio summary (dashboard)
// ============================================================

// PortfolioSummary is the dashboard aggregate. Every value is a fold over the
// current loans + installments snapshot, recomputed on each request.
type PortfolioSummary struct {
	TotalLent            decimal.Decimal   `json:"total_lent"`
	TotalWithInterest    decimal.Decimal   `json:"total_with_interest"`
	TotalReceived        decimal.Decimal   `json:"total_received"`
	TotalPending         decimal.Decimal   `json:"total_pending"`
	TotalOverdue         decimal.Decimal   `json:"total_overdue"`
	TotalInterestEarned  decimal.Decimal   `json:"total_interest_earned"`
	ActiveLoansCount     int               `json:"active_loans_count"`
	UpcomingInstallments int               `json:"upcoming_installments"`
	OverdueInstallments  int               `json:"overdue_installments"`
	UpcomingPayments     []UpcomingPayment `json:"upcoming_payments"`
}

// UpcomingPayment is one entry of the 7-day look-ahead list.
type UpcomingPayment struct {
	InstallmentID string          `json:"installment_id"`
	ClientName    string          `json:"client_name"`
	Amount        decimal.Decimal `json:"amount"`
	DueDate       time.Time       `json:"due_date"`
	Number        int             `json:"number"`
}

// CalendarEvent is one installment rendered for the calendar page.
type CalendarEvent struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Start           time.Time       `json:"start"`
	BackgroundColor string          `json:"backgroundColor"`
	BorderColor     string          `json:"borderColor"`
	ClientID        string          `json:"client_id"`
	ClientName      string          `json:"client_name"`
	LoanID          string          `json:"loan_id"`
	Number          int             `json:"number"`
	Amount          decimal.Decimal `json:"amount"`
	Status          string          `json:"status"`
	OverdueInterest decimal.Decimal `json:"overdue_interest"`
}

// AccrualReport summarizes one delinquency accrual run.
type AccrualReport struct {
	RunDate         time.Time       `json:"run_date"`
	Scanned         int             `json:"scanned"`
	Reclassified    int             `json:"reclassified"`
	Failed          int             `json:"failed"`
	TotalOverdue    decimal.Decimal `json:"total_overdue"`
	ClientsAffected int             `json:"clients_affected"`
}
