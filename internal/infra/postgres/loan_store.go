package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/prestabook/prestabook/internal/domain"
)

const loanColumns = `l.id, l.client_id, l.amount, l.interest_rate, l.installments,
	l.installment_amount, l.total_amount, l.start_date, l.end_date, l.status,
	l.created_at, l.updated_at`

// CreateLoan inserts a loan and its full schedule in one transaction.
func (s *Store) CreateLoan(ctx context.Context, l *domain.Loan, schedule []domain.Installment) error {
	return s.guard(ctx, "create_loan", func(ctx context.Context) error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		_, err = tx.Exec(ctx, `
			INSERT INTO loans (
				id, client_id, amount, interest_rate, installments,
				installment_amount, total_amount, start_date, end_date, status,
				created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			l.ID, l.ClientID, l.Amount, l.InterestRate, l.Installments,
			l.InstallmentAmount, l.TotalAmount, l.StartDate, l.EndDate, string(l.Status),
			l.CreatedAt, l.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert loan: %w", err)
		}

		for _, inst := range schedule {
			_, err := tx.Exec(ctx, `
				INSERT INTO installments (
					id, loan_id, number, amount, overdue_interest, total_amount,
					due_date, paid_date, status, days_overdue, created_at, updated_at
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
				inst.ID, inst.LoanID, inst.Number, inst.Amount, inst.OverdueInterest,
				inst.TotalAmount, inst.DueDate, inst.PaidDate, string(inst.Status),
				inst.DaysOverdue, inst.CreatedAt, inst.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("insert installment %d: %w", inst.Number, err)
			}
		}

		return tx.Commit(ctx)
	})
}

func (s *Store) ListLoans(ctx context.Context) ([]domain.Loan, error) {
	return s.queryLoans(ctx, `
		SELECT `+loanColumns+`, `+clientJoinColumns+`
		FROM loans l JOIN clients c ON c.id = l.client_id
		ORDER BY l.created_at`)
}

func (s *Store) GetLoan(ctx context.Context, id string) (*domain.Loan, error) {
	loans, err := s.queryLoans(ctx, `
		SELECT `+loanColumns+`, `+clientJoinColumns+`
		FROM loans l JOIN clients c ON c.id = l.client_id
		WHERE l.id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(loans) == 0 {
		return nil, &domain.ErrNotFound{Resource: "loan", ID: id}
	}
	return &loans[0], nil
}

func (s *Store) ListLoansByClient(ctx context.Context, clientID string) ([]domain.Loan, error) {
	return s.queryLoans(ctx, `
		SELECT `+loanColumns+`, `+clientJoinColumns+`
		FROM loans l JOIN clients c ON c.id = l.client_id
		WHERE l.client_id = $1
		ORDER BY l.created_at`, clientID)
}

func (s *Store) DeleteLoan(ctx context.Context, id string) error {
	return s.guard(ctx, "delete_loan", func(ctx context.Context) error {
		// Installments go with the loan (ON DELETE CASCADE).
		tag, err := s.pool.Exec(ctx, `DELETE FROM loans WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return &domain.ErrNotFound{Resource: "loan", ID: id}
		}
		return nil
	})
}

// SettleLoanIfPaid flips the loan to paid in a single conditional UPDATE:
// the row changes only if the loan is still active and no unpaid installment
// remains, so concurrent payments cannot race the cascade.
func (s *Store) SettleLoanIfPaid(ctx context.Context, loanID string, now time.Time) (bool, error) {
	var settled bool
	err := s.guard(ctx, "settle_loan", func(ctx context.Context) error {
		tag, err := s.pool.Exec(ctx, `
			UPDATE loans
			SET status = 'paid', updated_at = $2
			WHERE id = $1
			  AND status = 'active'
			  AND NOT EXISTS (
				SELECT 1 FROM installments
				WHERE loan_id = $1 AND status <> 'paid'
			  )`,
			loanID, now,
		)
		if err != nil {
			return err
		}
		settled = tag.RowsAffected() > 0
		return nil
	})
	return settled, err
}

const clientJoinColumns = `c.id, c.name, c.last_name, c.document_id, c.phone, c.email, c.address,
	c.created_at, c.updated_at`

// queryLoans fetches loans with their clients, then attaches the installment
// schedules in a second query.
func (s *Store) queryLoans(ctx context.Context, sql string, args ...any) ([]domain.Loan, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query loans: %w", err)
	}
	defer rows.Close()

	loans := []domain.Loan{}
	index := map[string]int{}
	for rows.Next() {
		var l domain.Loan
		var c domain.Client
		var status string
		if err := rows.Scan(
			&l.ID, &l.ClientID, &l.Amount, &l.InterestRate, &l.Installments,
			&l.InstallmentAmount, &l.TotalAmount, &l.StartDate, &l.EndDate, &status,
			&l.CreatedAt, &l.UpdatedAt,
			&c.ID, &c.Name, &c.LastName, &c.DocumentID, &c.Phone, &c.Email, &c.Address,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		if l.Status, err = domain.ParseLoanStatus(status); err != nil {
			return nil, fmt.Errorf("loan %s: %w", l.ID, err)
		}
		l.Client = &c
		index[l.ID] = len(loans)
		loans = append(loans, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(loans) == 0 {
		return loans, nil
	}

	ids := make([]string, 0, len(loans))
	for _, l := range loans {
		ids = append(ids, l.ID)
	}
	installments, err := s.queryInstallments(ctx, `
		SELECT `+installmentColumns+`
		FROM installments WHERE loan_id = ANY($1)
		ORDER BY loan_id, number`, ids)
	if err != nil {
		return nil, err
	}
	for _, inst := range installments {
		i := index[inst.LoanID]
		loans[i].Schedule = append(loans[i].Schedule, inst)
	}
	return loans, nil
}
