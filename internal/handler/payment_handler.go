package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/prestabook/prestabook/internal/service"
)

type payInstallmentRequest struct {
	PaymentDate string `json:"payment_date,omitempty"` // YYYY-MM-DD, defaults to today
}

// payInstallmentHandler marks an installment paid and settles the loan when
// it was the last open one.
func payInstallmentHandler(svc *service.LendingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req payInstallmentRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
		}

		var paidAt *time.Time
		if req.PaymentDate != "" {
			t, err := time.Parse("2006-01-02", req.PaymentDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, "payment_date must be YYYY-MM-DD")
				return
			}
			paidAt = &t
		}

		inst, err := svc.PayInstallment(r.Context(), chi.URLParam(r, "installmentID"), paidAt)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, inst)
	}
}
