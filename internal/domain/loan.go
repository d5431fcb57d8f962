package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Loans
// ============================================================

// LoanStatus is the lifecycle stage of a loan.
type LoanStatus string

const (
	LoanActive    LoanStatus = "active"
	LoanPaid      LoanStatus = "paid"
	LoanDefaulted LoanStatus = "defaulted"
)

// ParseLoanStatus validates a raw status string.
func ParseLoanStatus(s string) (LoanStatus, error) {
	switch LoanStatus(s) {
	case LoanActive, LoanPaid, LoanDefaulted:
		return LoanStatus(s), nil
	}
	return "", fmt.Errorf("invalid loan status: %q", s)
}

// CanTransition reports whether a loan may move from its current status to
// next. The only transition any rule currently produces is active→paid, via
// the payment cascade. DEFAULTED stays in the vocabulary but nothing in the
// engine reaches it; a future business rule has to add that edge here
// explicitly.
func (s LoanStatus) CanTransition(next LoanStatus) bool {
	switch s {
	case LoanActive:
		return next == LoanPaid
	case LoanPaid:
		return false
	case LoanDefaulted:
		return false
	}
	return false
}

// Loan is a fixed-installment loan issued to a client. The full repayment
// schedule is materialized as Installment rows at creation time; after that,
// Status is the only field that ever changes.
type Loan struct {
	ID                string          `json:"id"`
	ClientID          string          `json:"client_id"`
	Amount            decimal.Decimal `json:"amount"`
	InterestRate      decimal.Decimal `json:"interest_rate"` // annual, percent
	Installments      int             `json:"installments"`
	InstallmentAmount decimal.Decimal `json:"installment_amount"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	StartDate         time.Time       `json:"start_date"`
	EndDate           time.Time       `json:"end_date"`
	Status            LoanStatus      `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	Client   *Client       `json:"client,omitempty"`
	Schedule []Installment `json:"schedule,omitempty"`
}

// LoanRequest is the create payload for a loan.
type LoanRequest struct {
	ClientID     string          `json:"client_id"`
	Amount       decimal.Decimal `json:"amount"`
	InterestRate decimal.Decimal `json:"interest_rate"`
	Installments int             `json:"installments"`
	StartDate    string          `json:"start_date"` // YYYY-MM-DD
}

// LoanQuote is the result of the amortization calculation: the loan-level
// figures plus the full per-period schedule. It is returned as-is by the
// preview endpoint and materialized into Loan + Installment rows on creation.
type LoanQuote struct {
	InstallmentAmount decimal.Decimal `json:"installment_amount"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	TotalInterest     decimal.Decimal `json:"total_interest"`
	EndDate           time.Time       `json:"end_date"`
	Schedule          []ScheduleEntry `json:"schedule"`
}

// ScheduleEntry is one period of a computed amortization schedule.
type ScheduleEntry struct {
	Number           int             `json:"number"`
	Amount           decimal.Decimal `json:"amount"`
	PrincipalPortion decimal.Decimal `json:"principal_portion"`
	InterestPortion  decimal.Decimal `json:"interest_portion"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	DueDate          time.Time       `json:"due_date"`
}
