// Package service provides the business logic layer of the lending book:
// client and loan management, the amortization calculator, payment recording
// and the portfolio aggregation behind the dashboard.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/prestabook/prestabook/internal/domain"
	"github.com/prestabook/prestabook/internal/infra/observability"
	"github.com/prestabook/prestabook/internal/port"
)

var tracer = otel.Tracer("service/lending")

// LendingService orchestrates all lending book operations over the store.
type LendingService struct {
	store   port.Store
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewLendingService creates a new lending service.
func NewLendingService(store port.Store, metrics *observability.Metrics, logger *zap.Logger) *LendingService {
	return &LendingService{store: store, metrics: metrics, logger: logger}
}

// ============================================================
// Clients
// ============================================================

func (s *LendingService) CreateClient(ctx context.Context, req *domain.ClientRequest) (*domain.Client, error) {
	ctx, span := tracer.Start(ctx, "LendingService.CreateClient")
	defer span.End()

	if err := validateClientRequest(req); err != nil {
		return nil, err
	}

	if existing, err := s.store.GetClientByDocument(ctx, req.DocumentID); err == nil && existing != nil {
		return nil, &domain.ErrConflict{Message: fmt.Sprintf("client with document %s already exists", req.DocumentID)}
	}

	now := time.Now().UTC()
	client := &domain.Client{
		ID:         uuid.New().String(),
		Name:       req.Name,
		LastName:   req.LastName,
		DocumentID: req.DocumentID,
		Phone:      req.Phone,
		Email:      req.Email,
		Address:    req.Address,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.store.CreateClient(ctx, client); err != nil {
		s.logger.Error("failed to create client", zap.String("document_id", req.DocumentID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("client created",
		zap.String("client_id", client.ID),
		zap.String("document_id", client.DocumentID),
	)
	return client, nil
}

func (s *LendingService) ListClients(ctx context.Context) ([]domain.Client, error) {
	ctx, span := tracer.Start(ctx, "LendingService.ListClients")
	defer span.End()

	return s.store.ListClients(ctx)
}

func (s *LendingService) GetClient(ctx context.Context, id string) (*domain.Client, error) {
	ctx, span := tracer.Start(ctx, "LendingService.GetClient")
	defer span.End()
	span.SetAttributes(attribute.String("client.id", id))

	return s.store.GetClient(ctx, id)
}

// UpdateClient changes a client's contact fields. The document id is the
// client's identity and cannot change.
func (s *LendingService) UpdateClient(ctx context.Context, id string, req *domain.ClientRequest) (*domain.Client, error) {
	ctx, span := tracer.Start(ctx, "LendingService.UpdateClient")
	defer span.End()

	if err := validateClientRequest(req); err != nil {
		return nil, err
	}

	client, err := s.store.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.DocumentID != client.DocumentID {
		return nil, &domain.ErrValidation{Field: "document_id", Message: "is immutable"}
	}

	client.Name = req.Name
	client.LastName = req.LastName
	client.Phone = req.Phone
	client.Email = req.Email
	client.Address = req.Address
	client.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateClient(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

// DeleteClient removes a client. Refused while the client owns an active
// loan; settled loans and their installments go with the client.
func (s *LendingService) DeleteClient(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "LendingService.DeleteClient")
	defer span.End()

	if _, err := s.store.GetClient(ctx, id); err != nil {
		return err
	}

	loans, err := s.store.ListLoansByClient(ctx, id)
	if err != nil {
		return err
	}
	for _, l := range loans {
		if l.Status == domain.LoanActive {
			return &domain.ErrConflict{Message: "client has active loans and cannot be deleted"}
		}
	}

	return s.store.DeleteClient(ctx, id)
}

// ============================================================
// Loans
// ============================================================

// CreateLoan computes the amortization schedule for the requested terms and
// persists the loan together with all of its installment rows.
func (s *LendingService) CreateLoan(ctx context.Context, req *domain.LoanRequest) (*domain.Loan, error) {
	ctx, span := tracer.Start(ctx, "LendingService.CreateLoan")
	defer span.End()

	startDate, err := parseDay(req.StartDate)
	if err != nil {
		return nil, &domain.ErrValidation{Field: "start_date", Message: "invalid format, use YYYY-MM-DD"}
	}

	client, err := s.store.GetClient(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}

	quote, err := ComputeSchedule(req.Amount, req.InterestRate, req.Installments, startDate)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	loan := &domain.Loan{
		ID:                uuid.New().String(),
		ClientID:          client.ID,
		Amount:            req.Amount,
		InterestRate:      req.InterestRate,
		Installments:      req.Installments,
		InstallmentAmount: quote.InstallmentAmount,
		TotalAmount:       quote.TotalAmount,
		StartDate:         startDate,
		EndDate:           quote.EndDate,
		Status:            domain.LoanActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	schedule := make([]domain.Installment, 0, len(quote.Schedule))
	for _, entry := range quote.Schedule {
		schedule = append(schedule, domain.Installment{
			ID:              uuid.New().String(),
			LoanID:          loan.ID,
			Number:          entry.Number,
			Amount:          entry.Amount,
			OverdueInterest: decimal.Zero,
			TotalAmount:     entry.Amount,
			DueDate:         entry.DueDate,
			Status:          domain.InstallmentPending,
			DaysOverdue:     0,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}

	if err := s.store.CreateLoan(ctx, loan, schedule); err != nil {
		s.logger.Error("failed to create loan",
			zap.String("client_id", client.ID),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.IncrLoanCreated()
	s.logger.Info("loan created",
		zap.String("loan_id", loan.ID),
		zap.String("client_id", client.ID),
		zap.String("amount", loan.Amount.String()),
		zap.String("installment_amount", loan.InstallmentAmount.String()),
		zap.Int("installments", loan.Installments),
	)

	loan.Client = client
	loan.Schedule = schedule
	return loan, nil
}

// QuoteLoan runs the amortization calculator without persisting anything
// (what-if preview).
func (s *LendingService) QuoteLoan(ctx context.Context, amount, rate decimal.Decimal, installments int, startDate string) (*domain.LoanQuote, error) {
	_, span := tracer.Start(ctx, "LendingService.QuoteLoan")
	defer span.End()

	start, err := parseDay(startDate)
	if err != nil {
		return nil, &domain.ErrValidation{Field: "start_date", Message: "invalid format, use YYYY-MM-DD"}
	}
	return ComputeSchedule(amount, rate, installments, start)
}

func (s *LendingService) ListLoans(ctx context.Context) ([]domain.Loan, error) {
	ctx, span := tracer.Start(ctx, "LendingService.ListLoans")
	defer span.End()

	return s.store.ListLoans(ctx)
}

func (s *LendingService) GetLoan(ctx context.Context, id string) (*domain.Loan, error) {
	ctx, span := tracer.Start(ctx, "LendingService.GetLoan")
	defer span.End()
	span.SetAttributes(attribute.String("loan.id", id))

	return s.store.GetLoan(ctx, id)
}

func (s *LendingService) ListLoansByClient(ctx context.Context, clientID string) ([]domain.Loan, error) {
	ctx, span := tracer.Start(ctx, "LendingService.ListLoansByClient")
	defer span.End()

	if _, err := s.store.GetClient(ctx, clientID); err != nil {
		return nil, err
	}
	return s.store.ListLoansByClient(ctx, clientID)
}

// DeleteLoan removes a loan and its installments.
func (s *LendingService) DeleteLoan(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "LendingService.DeleteLoan")
	defer span.End()

	if _, err := s.store.GetLoan(ctx, id); err != nil {
		return err
	}
	return s.store.DeleteLoan(ctx, id)
}

// ListLoanInstallments returns the installment ledger of one loan in
// due-date order.
func (s *LendingService) ListLoanInstallments(ctx context.Context, loanID string) ([]domain.Installment, error) {
	ctx, span := tracer.Start(ctx, "LendingService.ListLoanInstallments")
	defer span.End()

	if _, err := s.store.GetLoan(ctx, loanID); err != nil {
		return nil, err
	}
	return s.store.ListInstallmentsByLoan(ctx, loanID)
}

// ============================================================
// Helpers
// ============================================================

func validateClientRequest(req *domain.ClientRequest) error {
	if req.Name == "" {
		return &domain.ErrValidation{Field: "name", Message: "required"}
	}
	if req.LastName == "" {
		return &domain.ErrValidation{Field: "last_name", Message: "required"}
	}
	if req.DocumentID == "" {
		return &domain.ErrValidation{Field: "document_id", Message: "required"}
	}
	return nil
}

func parseDay(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
