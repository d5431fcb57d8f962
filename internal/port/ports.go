// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/prestabook/prestabook/internal/domain"
)

// Store defines all data operations of the lending book.
// Implemented by the Postgres adapter and by the in-memory store.
type Store interface {
	// Clients
	CreateClient(ctx context.Context, c *domain.Client) error
	ListClients(ctx context.Context) ([]domain.Client, error)
	GetClient(ctx context.Context, id string) (*domain.Client, error)
	GetClientByDocument(ctx context.Context, documentID string) (*domain.Client, error)
	UpdateClient(ctx context.Context, c *domain.Client) error
	DeleteClient(ctx context.Context, id string) error

	// Loans
	// CreateLoan persists the loan together with its full installment
	// schedule in one transaction.
	CreateLoan(ctx context.Context, l *domain.Loan, schedule []domain.Installment) error
	ListLoans(ctx context.Context) ([]domain.Loan, error)
	GetLoan(ctx context.Context, id string) (*domain.Loan, error)
	ListLoansByClient(ctx context.Context, clientID string) ([]domain.Loan, error)
	DeleteLoan(ctx context.Context, id string) error

	// SettleLoanIfPaid atomically transitions the loan to paid when every
	// one of its installments is paid. Returns true if the transition
	// happened. The check-and-set is a single conditional write, so two
	// concurrent payments on the last installments cannot both miss it.
	SettleLoanIfPaid(ctx context.Context, loanID string, now time.Time) (bool, error)

	// Installments
	GetInstallment(ctx context.Context, id string) (*domain.Installment, error)
	ListInstallmentsByLoan(ctx context.Context, loanID string) ([]domain.Installment, error)
	ListInstallments(ctx context.Context) ([]domain.Installment, error)
	UpdateInstallment(ctx context.Context, inst *domain.Installment) error

	// ListAccruable returns installments still pending or overdue whose due
	// date is strictly before the given day and whose owning loan is active,
	// i.e. the accrual engine's working set.
	ListAccruable(ctx context.Context, before time.Time) ([]domain.Installment, error)

	// Ping reports store health for readiness checks.
	Ping(ctx context.Context) error
}
