package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/prestabook/prestabook/internal/service"
)

type runAccrualRequest struct {
	Date string `json:"date,omitempty"` // YYYY-MM-DD, defaults to today
}

// runAccrualHandler triggers the overdue aging pass on demand. The same run
// happens on the daily schedule; this endpoint exists for catch-up and ops.
func runAccrualHandler(engine *service.AccrualEngine, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req runAccrualRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
		}

		today := time.Now().UTC()
		if req.Date != "" {
			t, err := time.Parse("2006-01-02", req.Date)
			if err != nil {
				writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
				return
			}
			today = t
		}

		report, err := engine.Run(r.Context(), today)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}
