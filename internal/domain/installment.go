package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Installments
// ============================================================

// InstallmentStatus is the lifecycle stage of a single installment.
type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentOverdue InstallmentStatus = "overdue"
	InstallmentPaid    InstallmentStatus = "paid"
)

// ParseInstallmentStatus validates a raw status string.
func ParseInstallmentStatus(s string) (InstallmentStatus, error) {
	switch InstallmentStatus(s) {
	case InstallmentPending, InstallmentOverdue, InstallmentPaid:
		return InstallmentStatus(s), nil
	}
	return "", fmt.Errorf("invalid installment status: %q", s)
}

// Installment is one period of a loan's repayment schedule.
//
// Invariants:
//   - TotalAmount == Amount + OverdueInterest at all times
//   - DaysOverdue == 0 while status is pending or paid
//   - PaidDate is set iff status is paid
type Installment struct {
	ID              string            `json:"id"`
	LoanID          string            `json:"loan_id"`
	Number          int               `json:"number"`
	Amount          decimal.Decimal   `json:"amount"`
	OverdueInterest decimal.Decimal   `json:"overdue_interest"`
	TotalAmount     decimal.Decimal   `json:"total_amount"`
	DueDate         time.Time         `json:"due_date"`
	PaidDate        *time.Time        `json:"paid_date,omitempty"`
	Status          InstallmentStatus `json:"status"`
	DaysOverdue     int               `json:"days_overdue"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// RecomputeTotal restores the TotalAmount invariant after the surcharge
// changed.
func (i *Installment) RecomputeTotal() {
	i.TotalAmount = i.Amount.Add(i.OverdueInterest)
}
