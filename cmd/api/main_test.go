package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mangaeliso/inala-backoffice/pkg/models"
	"github.com/mangaeliso/inala-backoffice/pkg/period"
	"github.com/mangaeliso/inala-backoffice/pkg/reports"
	"github.com/mangaeliso/inala-backoffice/pkg/store"
)

func setupTestServer(t *testing.T) (*Server, *mux.Router) {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "api_test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	server := NewServer(s, period.DefaultFiscalStartDay, zap.NewNop().Sugar())
	return server, server.newRouter()
}

func doJSON(t *testing.T, router *mux.Router, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("Failed to marshal payload: %v", err)
		}
		body = bytes.NewBuffer(data)
	} else {
		body = &bytes.Buffer{}
	}

	req := httptest.NewRequest(method, path, body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestAPI_CreditorReport(t *testing.T) {
	_, router := setupTestServer(t)

	rr := doJSON(t, router, "POST", "/sales", map[string]any{
		"date":          "2025-03-10",
		"customer_name": "Amy",
		"total":         200.0,
		"payment_type":  "credit",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201 creating sale, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, router, "POST", "/payments", map[string]any{
		"date":          "2025-03-15",
		"customer_name": "Amy",
		"amount":        50.0,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201 creating payment, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, router, "GET", "/creditors?month=3&year=2025", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var report reports.CreditorReport
	if err := json.Unmarshal(rr.Body.Bytes(), &report); err != nil {
		t.Fatalf("Failed to decode report: %v", err)
	}
	if len(report.Entries) != 1 {
		t.Fatalf("Expected 1 creditor entry, got %d", len(report.Entries))
	}
	entry := report.Entries[0]
	if entry.Name != "amy" {
		t.Errorf("Expected entry for amy, got %q", entry.Name)
	}
	if !entry.OutstandingAmount.Equal(decimal.NewFromInt(150)) {
		t.Errorf("Expected outstanding 150, got %s", entry.OutstandingAmount)
	}
	if report.Summary.DebtorCount != 1 {
		t.Errorf("Expected 1 debtor, got %d", report.Summary.DebtorCount)
	}
}

func TestAPI_PaymentOverrideReachesReport(t *testing.T) {
	_, router := setupTestServer(t)

	doJSON(t, router, "POST", "/sales", map[string]any{
		"date":          "2025-03-10",
		"customer_name": "Amy",
		"total":         200.0,
		"payment_type":  "credit",
	})
	// Paid in February, reclassified to March's books.
	doJSON(t, router, "POST", "/payments", map[string]any{
		"date":              "2025-02-10",
		"customer_name":     "Amy",
		"amount":            50.0,
		"applies_to_period": map[string]int{"month": 3, "year": 2025},
	})

	rr := doJSON(t, router, "GET", "/creditors?month=3&year=2025", nil)
	var report reports.CreditorReport
	if err := json.Unmarshal(rr.Body.Bytes(), &report); err != nil {
		t.Fatalf("Failed to decode report: %v", err)
	}
	if len(report.Entries) != 1 || !report.Entries[0].TotalPaid.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Reclassified payment missing from March report: %s", rr.Body.String())
	}
}

func TestAPI_SaleValidation(t *testing.T) {
	_, router := setupTestServer(t)

	rr := doJSON(t, router, "POST", "/sales", map[string]any{
		"date":          "not-a-date",
		"customer_name": "Amy",
		"total":         10.0,
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for bad date, got %d", rr.Code)
	}

	rr = doJSON(t, router, "POST", "/payments", map[string]any{
		"date":          "2025-03-10",
		"customer_name": "Amy",
		"amount":        -5.0,
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for negative payment, got %d", rr.Code)
	}
}

func TestAPI_ExpenseSummary(t *testing.T) {
	_, router := setupTestServer(t)

	for _, expense := range []map[string]any{
		{"date": "2025-03-10", "category": "stock", "amount": 300.0},
		{"date": "2025-03-20", "category": "transport", "amount": 50.0},
		{"date": "2025-04-10", "category": "stock", "amount": 999.0},
	} {
		rr := doJSON(t, router, "POST", "/expenses", expense)
		if rr.Code != http.StatusCreated {
			t.Fatalf("Expected status 201 creating expense, got %d: %s", rr.Code, rr.Body.String())
		}
	}

	rr := doJSON(t, router, "GET", "/expenses/summary?month=3&year=2025", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var summary reports.ExpenseSummary
	if err := json.Unmarshal(rr.Body.Bytes(), &summary); err != nil {
		t.Fatalf("Failed to decode summary: %v", err)
	}
	if !summary.Total.Equal(decimal.NewFromInt(350)) {
		t.Errorf("Expected March total 350, got %s", summary.Total)
	}
	if len(summary.ByCategory) != 2 {
		t.Errorf("Expected 2 categories, got %d", len(summary.ByCategory))
	}
}

func TestAPI_BudgetReport(t *testing.T) {
	_, router := setupTestServer(t)

	rr := doJSON(t, router, "POST", "/budget", map[string]any{
		"period":   map[string]int{"month": 3, "year": 2025},
		"category": "stock",
		"planned":  600.0,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201 creating budget item, got %d: %s", rr.Code, rr.Body.String())
	}

	doJSON(t, router, "POST", "/expenses", map[string]any{
		"date": "2025-03-10", "category": "stock", "amount": 450.0,
	})

	rr = doJSON(t, router, "GET", "/budget?month=3&year=2025", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var report reports.BudgetReport
	if err := json.Unmarshal(rr.Body.Bytes(), &report); err != nil {
		t.Fatalf("Failed to decode report: %v", err)
	}
	if len(report.Lines) != 1 {
		t.Fatalf("Expected 1 budget line, got %d", len(report.Lines))
	}
	if !report.Lines[0].Remaining.Equal(decimal.NewFromInt(150)) {
		t.Errorf("Expected remaining 150, got %s", report.Lines[0].Remaining)
	}
}

func TestAPI_LoanLifecycle(t *testing.T) {
	_, router := setupTestServer(t)

	rr := doJSON(t, router, "POST", "/loans", map[string]any{
		"customer_name": "Thandi Dlamini",
		"principal":     1000.0,
		"interest_rate": 0.10,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201 creating loan, got %d: %s", rr.Code, rr.Body.String())
	}

	var loan models.Loan
	if err := json.Unmarshal(rr.Body.Bytes(), &loan); err != nil {
		t.Fatalf("Failed to decode loan: %v", err)
	}
	if loan.CustomerKey != "thandi dlamini" {
		t.Errorf("Expected normalized customer key, got %q", loan.CustomerKey)
	}

	rr = doJSON(t, router, "POST", "/loans/"+loan.ID.String()+"/payments", map[string]any{
		"amount": 200.0,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201 recording payment, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, router, "GET", "/loans/"+loan.ID.String(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	var fetched models.Loan
	if err := json.Unmarshal(rr.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("Failed to decode loan: %v", err)
	}
	if !fetched.Balance.Equal(decimal.NewFromInt(800)) {
		t.Errorf("Expected balance 800 after payment, got %s", fetched.Balance)
	}

	rr = doJSON(t, router, "GET", "/loans/"+loan.ID.String()+"/transactions", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	var txs []models.LoanTransaction
	if err := json.Unmarshal(rr.Body.Bytes(), &txs); err != nil {
		t.Fatalf("Failed to decode transactions: %v", err)
	}
	if len(txs) != 2 {
		t.Errorf("Expected disbursement + payment, got %d transactions", len(txs))
	}

	rr = doJSON(t, router, "DELETE", "/loans/"+loan.ID.String(), nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", rr.Code)
	}
	rr = doJSON(t, router, "GET", "/loans/"+loan.ID.String(), nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", rr.Code)
	}
}

func TestAPI_SalesPeriodFilter(t *testing.T) {
	_, router := setupTestServer(t)

	for _, sale := range []map[string]any{
		{"date": "2025-03-10", "customer_name": "Amy", "total": 100.0, "payment_type": "cash"},
		// Before the fiscal start day: April 2nd still belongs to March.
		{"date": "2025-04-02", "customer_name": "Ben", "total": 200.0, "payment_type": "cash"},
		{"date": "2025-04-10", "customer_name": "Cindy", "total": 300.0, "payment_type": "cash"},
	} {
		doJSON(t, router, "POST", "/sales", sale)
	}

	rr := doJSON(t, router, "GET", "/sales?month=3&year=2025", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	var sales []models.Sale
	if err := json.Unmarshal(rr.Body.Bytes(), &sales); err != nil {
		t.Fatalf("Failed to decode sales: %v", err)
	}
	if len(sales) != 2 {
		t.Errorf("Expected 2 sales in March's books, got %d", len(sales))
	}
}
