package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/prestabook/prestabook/internal/domain"
	"github.com/prestabook/prestabook/internal/service"
)

// ============================================================
// Loans: /api/loans
// ============================================================

func listLoansHandler(svc *service.LendingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loans, err := svc.ListLoans(r.Context())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, loans)
	}
}

func createLoanHandler(svc *service.LendingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.LoanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.ClientID == "" {
			writeError(w, http.StatusBadRequest, "client_id is required")
			return
		}

		loan, err := svc.CreateLoan(r.Context(), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, loan)
	}
}

// calculateLoanHandler runs the amortization preview without persisting.
func calculateLoanHandler(svc *service.LendingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.LoanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		quote, err := svc.QuoteLoan(r.Context(), req.Amount, req.InterestRate, req.Installments, req.StartDate)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, quote)
	}
}

func getLoanHandler(svc *service.LendingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loan, err := svc.GetLoan(r.Context(), chi.URLParam(r, "loanID"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, loan)
	}
}

func deleteLoanHandler(svc *service.LendingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteLoan(r.Context(), chi.URLParam(r, "loanID")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listLoanInstallmentsHandler(svc *service.LendingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		installments, err := svc.ListLoanInstallments(r.Context(), chi.URLParam(r, "loanID"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, installments)
	}
}
