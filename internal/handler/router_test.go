package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/prestabook/prestabook/internal/domain"
	"github.com/prestabook/prestabook/internal/handler"
	"github.com/prestabook/prestabook/internal/infra/memory"
	"github.com/prestabook/prestabook/internal/infra/observability"
	"github.com/prestabook/prestabook/internal/service"
)

func newTestRouter() http.Handler {
	store := memory.New()
	metrics := observability.NewMetrics()
	logger := zap.NewNop()
	svc := service.NewLendingService(store, metrics, logger)
	engine := service.NewAccrualEngine(store, decimal.NewFromFloat(0.001), metrics, logger)
	return handler.NewRouter(svc, engine, store, metrics, logger)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestHealthz(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestClientCRUD(t *testing.T) {
	router := newTestRouter()

	// Create
	rec := doJSON(t, router, http.MethodPost, "/api/clients", map[string]string{
		"name":        "Ana",
		"last_name":   "Gomez",
		"document_id": "12345678",
		"phone":       "555-0100",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[domain.Client](t, rec)
	if created.ID == "" {
		t.Fatal("create: expected a generated id")
	}

	// Duplicate document
	rec = doJSON(t, router, http.MethodPost, "/api/clients", map[string]string{
		"name":        "Other",
		"last_name":   "Person",
		"document_id": "12345678",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate: expected 409, got %d", rec.Code)
	}

	// Missing fields
	rec = doJSON(t, router, http.MethodPost, "/api/clients", map[string]string{"name": "NoDoc"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid: expected 400, got %d", rec.Code)
	}

	// List
	rec = doJSON(t, router, http.MethodGet, "/api/clients", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	if clients := decode[[]domain.Client](t, rec); len(clients) != 1 {
		t.Errorf("list: expected 1 client, got %d", len(clients))
	}

	// Get
	rec = doJSON(t, router, http.MethodGet, "/api/clients/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("get: expected 200, got %d", rec.Code)
	}

	// Update contact fields
	rec = doJSON(t, router, http.MethodPut, "/api/clients/"+created.ID, map[string]string{
		"name":        "Ana",
		"last_name":   "Gomez",
		"document_id": "12345678",
		"phone":       "555-0199",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if updated := decode[domain.Client](t, rec); updated.Phone != "555-0199" {
		t.Errorf("update: phone not applied, got %q", updated.Phone)
	}

	// Changing the document is rejected
	rec = doJSON(t, router, http.MethodPut, "/api/clients/"+created.ID, map[string]string{
		"name":        "Ana",
		"last_name":   "Gomez",
		"document_id": "99999999",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("document change: expected 400, got %d", rec.Code)
	}

	// Delete
	rec = doJSON(t, router, http.MethodDelete, "/api/clients/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodGet, "/api/clients/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: expected 404, got %d", rec.Code)
	}
}

func createTestClient(t *testing.T, router http.Handler) domain.Client {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/clients", map[string]string{
		"name":        "Luis",
		"last_name":   "Torres",
		"document_id": fmt.Sprintf("doc-%s", t.Name()),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create client: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	return decode[domain.Client](t, rec)
}

func TestCalculateLoan(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/loans/calculate", map[string]any{
		"amount":        1000000,
		"interest_rate": 24,
		"installments":  12,
		"start_date":    "2025-01-15",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	quote := decode[domain.LoanQuote](t, rec)
	if got := quote.InstallmentAmount.StringFixed(2); got != "94559.60" {
		t.Errorf("installment amount = %s, want 94559.60", got)
	}
	if len(quote.Schedule) != 12 {
		t.Errorf("schedule length = %d, want 12", len(quote.Schedule))
	}

	// Invalid terms
	rec = doJSON(t, router, http.MethodPost, "/api/loans/calculate", map[string]any{
		"amount":        0,
		"interest_rate": 24,
		"installments":  12,
		"start_date":    "2025-01-15",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("zero amount: expected 400, got %d", rec.Code)
	}
}

func TestLoanLifecycle(t *testing.T) {
	router := newTestRouter()
	client := createTestClient(t, router)

	// Create a loan
	rec := doJSON(t, router, http.MethodPost, "/api/loans", map[string]any{
		"client_id":     client.ID,
		"amount":        300000,
		"interest_rate": 0,
		"installments":  3,
		"start_date":    "2025-01-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create loan: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	loan := decode[domain.Loan](t, rec)
	if loan.Status != domain.LoanActive {
		t.Errorf("new loan status = %s, want active", loan.Status)
	}
	if len(loan.Schedule) != 3 {
		t.Fatalf("schedule length = %d, want 3", len(loan.Schedule))
	}

	// Unknown client is a 404
	rec = doJSON(t, router, http.MethodPost, "/api/loans", map[string]any{
		"client_id":     "nope",
		"amount":        1000,
		"interest_rate": 0,
		"installments":  2,
		"start_date":    "2025-01-01",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown client: expected 404, got %d", rec.Code)
	}

	// Installment ledger
	rec = doJSON(t, router, http.MethodGet, "/api/loans/"+loan.ID+"/installments", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("installments: expected 200, got %d", rec.Code)
	}
	installments := decode[[]domain.Installment](t, rec)
	if len(installments) != 3 {
		t.Fatalf("installments = %d, want 3", len(installments))
	}

	// Pay them all; the last one settles the loan
	for _, inst := range installments {
		rec = doJSON(t, router, http.MethodPost, "/api/installments/"+inst.ID+"/pay", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("pay #%d: expected 200, got %d: %s", inst.Number, rec.Code, rec.Body.String())
		}
	}

	rec = doJSON(t, router, http.MethodGet, "/api/loans/"+loan.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get loan: expected 200, got %d", rec.Code)
	}
	if got := decode[domain.Loan](t, rec); got.Status != domain.LoanPaid {
		t.Errorf("loan status after full payment = %s, want paid", got.Status)
	}

	// Paying a settled installment is a conflict
	rec = doJSON(t, router, http.MethodPost, "/api/installments/"+installments[0].ID+"/pay", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("double pay: expected 409, got %d", rec.Code)
	}

	// The client's loans are listed
	rec = doJSON(t, router, http.MethodGet, "/api/clients/"+client.ID+"/loans", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("client loans: expected 200, got %d", rec.Code)
	}
	if loans := decode[[]domain.Loan](t, rec); len(loans) != 1 {
		t.Errorf("client loans = %d, want 1", len(loans))
	}
}

func TestDeleteClientWithActiveLoan(t *testing.T) {
	router := newTestRouter()
	client := createTestClient(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/loans", map[string]any{
		"client_id":     client.ID,
		"amount":        10000,
		"interest_rate": 0,
		"installments":  2,
		"start_date":    "2025-01-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create loan: expected 201, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/clients/"+client.ID, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 while a loan is active, got %d", rec.Code)
	}
}

func TestAccrualRunEndpoint(t *testing.T) {
	router := newTestRouter()
	client := createTestClient(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/loans", map[string]any{
		"client_id":     client.ID,
		"amount":        50000,
		"interest_rate": 0,
		"installments":  1,
		"start_date":    "2025-01-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create loan: expected 201, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/accrual/run", map[string]string{
		"date": "2025-02-11",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	report := decode[domain.AccrualReport](t, rec)
	if report.Scanned != 1 || report.Reclassified != 1 {
		t.Errorf("report = %+v, want 1 scanned / 1 reclassified", report)
	}
	if got := report.TotalOverdue.StringFixed(2); got != "50500.00" {
		t.Errorf("total overdue = %s, want 50500.00", got)
	}

	// Malformed date
	rec = doJSON(t, router, http.MethodPost, "/api/accrual/run", map[string]string{
		"date": "11/02/2025",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad date: expected 400, got %d", rec.Code)
	}

	// Counter snapshot is exposed
	rec = doJSON(t, router, http.MethodGet, "/api/stats/accrual", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("stats: expected 200, got %d", rec.Code)
	}
}

func TestSummaryEndpoints(t *testing.T) {
	router := newTestRouter()
	client := createTestClient(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/loans", map[string]any{
		"client_id":     client.ID,
		"amount":        60000,
		"interest_rate": 12,
		"installments":  6,
		"start_date":    "2025-01-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create loan: expected 201, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: expected 200, got %d", rec.Code)
	}
	summary := decode[domain.PortfolioSummary](t, rec)
	if summary.ActiveLoansCount != 1 {
		t.Errorf("active loans = %d, want 1", summary.ActiveLoansCount)
	}
	if got := summary.TotalLent.StringFixed(2); got != "60000.00" {
		t.Errorf("total lent = %s, want 60000.00", got)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/summary/calendar", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("calendar: expected 200, got %d", rec.Code)
	}
	if events := decode[[]domain.CalendarEvent](t, rec); len(events) != 6 {
		t.Errorf("calendar events = %d, want 6", len(events))
	}
}
