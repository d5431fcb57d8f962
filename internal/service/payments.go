package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/prestabook/prestabook/internal/domain"
)

// ============================================================
// Payment recording
// ============================================================

// PayInstallment marks one installment as paid and cascades the loan to paid
// when it was the last outstanding one.
//
// Paying late does not waive the accrued surcharge: OverdueInterest and
// TotalAmount stay as last computed by the accrual engine. paidAt defaults to
// now when nil.
func (s *LendingService) PayInstallment(ctx context.Context, installmentID string, paidAt *time.Time) (*domain.Installment, error) {
	ctx, span := tracer.Start(ctx, "LendingService.PayInstallment")
	defer span.End()
	span.SetAttributes(attribute.String("installment.id", installmentID))

	inst, err := s.store.GetInstallment(ctx, installmentID)
	if err != nil {
		return nil, err
	}
	if inst.Status == domain.InstallmentPaid {
		return nil, &domain.ErrAlreadyPaid{InstallmentID: installmentID}
	}

	now := time.Now().UTC()
	when := now
	if paidAt != nil {
		when = paidAt.UTC()
	}

	inst.Status = domain.InstallmentPaid
	inst.PaidDate = &when
	inst.DaysOverdue = 0
	inst.UpdatedAt = now

	if err := s.store.UpdateInstallment(ctx, inst); err != nil {
		s.logger.Error("failed to record payment",
			zap.String("installment_id", installmentID),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.IncrPayment()
	s.logger.Info("installment paid",
		zap.String("installment_id", inst.ID),
		zap.String("loan_id", inst.LoanID),
		zap.Int("number", inst.Number),
		zap.String("total_amount", inst.TotalAmount.String()),
	)

	// Cascade: the store settles the loan in one conditional write, so two
	// concurrent payments on the last installments cannot both observe an
	// unfinished loan and both skip the transition.
	settled, err := s.store.SettleLoanIfPaid(ctx, inst.LoanID, now)
	if err != nil {
		s.logger.Error("loan settle check failed",
			zap.String("loan_id", inst.LoanID),
			zap.Error(err),
		)
		return nil, err
	}
	if settled {
		s.logger.Info("loan fully paid", zap.String("loan_id", inst.LoanID))
	}

	return inst, nil
}
