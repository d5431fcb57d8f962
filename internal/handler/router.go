package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/prestabook/prestabook/internal/infra/observability"
	"github.com/prestabook/prestabook/internal/port"
	"github.com/prestabook/prestabook/internal/service"
)

// NewRouter creates the HTTP router with all routes and middleware.
// Routes follow the API contract consumed by the dashboard frontend.
func NewRouter(svc *service.LendingService, engine *service.AccrualEngine, store port.Store, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(metricsMiddleware(metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(store, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API ---
	r.Route("/api", func(r chi.Router) {

		// Clients
		r.Route("/clients", func(r chi.Router) {
			r.Get("/", listClientsHandler(svc, logger))
			r.Post("/", createClientHandler(svc, logger))
			r.Get("/{clientID}", getClientHandler(svc, logger))
			r.Put("/{clientID}", updateClientHandler(svc, logger))
			r.Delete("/{clientID}", deleteClientHandler(svc, logger))
			r.Get("/{clientID}/loans", listClientLoansHandler(svc, logger))
		})

		// Loans
		r.Route("/loans", func(r chi.Router) {
			r.Get("/", listLoansHandler(svc, logger))
			r.Post("/", createLoanHandler(svc, logger))
			r.Post("/calculate", calculateLoanHandler(svc, logger))
			r.Get("/{loanID}", getLoanHandler(svc, logger))
			r.Delete("/{loanID}", deleteLoanHandler(svc, logger))
			r.Get("/{loanID}/installments", listLoanInstallmentsHandler(svc, logger))
		})

		// Payments
		r.Post("/installments/{installmentID}/pay", payInstallmentHandler(svc, logger))

		// Dashboard
		r.Get("/summary", summaryHandler(svc, logger))
		r.Get("/summary/calendar", calendarHandler(svc, logger))

		// Accrual (manual trigger + counters snapshot)
		r.Post("/accrual/run", runAccrualHandler(engine, logger))
		r.Get("/stats/accrual", accrualStatsHandler(metrics))
	})

	return r
}

// metricsMiddleware observes request durations per route pattern.
func metricsMiddleware(metrics *observability.Metrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)

			pattern := chi.RouteContext(r.Context()).RoutePattern()
			if pattern == "" {
				pattern = "unmatched"
			}
			metrics.RecordRequestDuration(r.Method+" "+pattern, time.Since(start))
		})
	}
}

func healthzHandler(store port.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			logger.Error("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func accrualStatsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetAccrualSnapshot())
	}
}
