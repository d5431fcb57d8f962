package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/prestabook/prestabook/internal/domain"
)

const installmentColumns = `id, loan_id, number, amount, overdue_interest, total_amount,
	due_date, paid_date, status, days_overdue, created_at, updated_at`

func (s *Store) GetInstallment(ctx context.Context, id string) (*domain.Installment, error) {
	insts, err := s.queryInstallments(ctx, `
		SELECT `+installmentColumns+` FROM installments WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(insts) == 0 {
		return nil, &domain.ErrNotFound{Resource: "installment", ID: id}
	}
	return &insts[0], nil
}

func (s *Store) ListInstallmentsByLoan(ctx context.Context, loanID string) ([]domain.Installment, error) {
	return s.queryInstallments(ctx, `
		SELECT `+installmentColumns+`
		FROM installments WHERE loan_id = $1 ORDER BY number`, loanID)
}

func (s *Store) ListInstallments(ctx context.Context) ([]domain.Installment, error) {
	return s.queryInstallments(ctx, `
		SELECT `+installmentColumns+`
		FROM installments ORDER BY loan_id, number`)
}

func (s *Store) UpdateInstallment(ctx context.Context, inst *domain.Installment) error {
	return s.guard(ctx, "update_installment", func(ctx context.Context) error {
		tag, err := s.pool.Exec(ctx, `
			UPDATE installments
			SET overdue_interest = $2, total_amount = $3, paid_date = $4,
			    status = $5, days_overdue = $6, updated_at = $7
			WHERE id = $1`,
			inst.ID, inst.OverdueInterest, inst.TotalAmount, inst.PaidDate,
			string(inst.Status), inst.DaysOverdue, inst.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return &domain.ErrNotFound{Resource: "installment", ID: inst.ID}
		}
		return nil
	})
}

// ListAccruable selects the accrual engine's working set: unpaid
// installments of active loans already past due at the given day.
func (s *Store) ListAccruable(ctx context.Context, before time.Time) ([]domain.Installment, error) {
	return s.queryInstallments(ctx, `
		SELECT i.id, i.loan_id, i.number, i.amount, i.overdue_interest, i.total_amount,
		       i.due_date, i.paid_date, i.status, i.days_overdue, i.created_at, i.updated_at
		FROM installments i
		JOIN loans l ON l.id = i.loan_id
		WHERE i.status IN ('pending', 'overdue')
		  AND l.status = 'active'
		  AND i.due_date < $1
		ORDER BY i.due_date`, before)
}

func (s *Store) queryInstallments(ctx context.Context, sql string, args ...any) ([]domain.Installment, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query installments: %w", err)
	}
	defer rows.Close()

	out := []domain.Installment{}
	for rows.Next() {
		var inst domain.Installment
		var status string
		if err := rows.Scan(
			&inst.ID, &inst.LoanID, &inst.Number, &inst.Amount, &inst.OverdueInterest,
			&inst.TotalAmount, &inst.DueDate, &inst.PaidDate, &status,
			&inst.DaysOverdue, &inst.CreatedAt, &inst.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan installment: %w", err)
		}
		if inst.Status, err = domain.ParseInstallmentStatus(status); err != nil {
			return nil, fmt.Errorf("installment %s: %w", inst.ID, err)
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}
