package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mangaeliso/inala-backoffice/pkg/config"
	"github.com/mangaeliso/inala-backoffice/pkg/ledger"
	"github.com/mangaeliso/inala-backoffice/pkg/loanbook"
	"github.com/mangaeliso/inala-backoffice/pkg/models"
	"github.com/mangaeliso/inala-backoffice/pkg/notify"
	"github.com/mangaeliso/inala-backoffice/pkg/period"
	"github.com/mangaeliso/inala-backoffice/pkg/reports"
	"github.com/mangaeliso/inala-backoffice/pkg/store"
)

// Server wires the storage, loan book, and notifier behind the HTTP API.
type Server struct {
	storage        store.Storage
	loans          *loanbook.Book
	notifier       notify.Notifier
	log            *zap.SugaredLogger
	fiscalStartDay int
}

func NewServer(s store.Storage, fiscalStartDay int, log *zap.SugaredLogger) *Server {
	notifier := notify.NewLogNotifier(log)
	return &Server{
		storage:        s,
		loans:          loanbook.NewBook(s, notifier, log),
		notifier:       notifier,
		log:            log,
		fiscalStartDay: fiscalStartDay,
	}
}

// parseDate accepts full RFC 3339 timestamps and plain dates; the ledgers
// are entered by hand, so "2025-03-10" must work.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected RFC 3339 or YYYY-MM-DD", value)
	}
	return t, nil
}

// queryFilter builds the ledger filter from the request query: all=true
// includes every period, explicit month+year select one, and with neither
// the current business period is used.
func (s *Server) queryFilter(r *http.Request) (ledger.Filter, error) {
	f := ledger.Filter{FiscalStartDay: s.fiscalStartDay}

	q := r.URL.Query()
	if q.Get("all") == "true" {
		f.AllPeriods = true
		return f, nil
	}

	monthStr, yearStr := q.Get("month"), q.Get("year")
	if monthStr == "" && yearStr == "" {
		current := period.Resolve(time.Now(), s.fiscalStartDay)
		f.Period = &current
		return f, nil
	}

	month, err := strconv.Atoi(monthStr)
	if err != nil || month < 1 || month > 12 {
		return f, fmt.Errorf("invalid month %q", monthStr)
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return f, fmt.Errorf("invalid year %q", yearStr)
	}
	f.Period = &models.BusinessPeriod{Month: month, Year: year}
	return f, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) createSaleHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date         string          `json:"date"`
		CustomerName string          `json:"customer_name"`
		Total        decimal.Decimal `json:"total"`
		PaymentType  string          `json:"payment_type"`
		Notes        string          `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Total.IsNegative() {
		http.Error(w, "Total must not be negative", http.StatusBadRequest)
		return
	}

	paymentType := models.PaymentType(req.PaymentType)
	if paymentType == "" {
		paymentType = models.PaymentTypeCash
	}

	sale := &models.Sale{
		ID:           uuid.New(),
		Date:         date,
		CustomerName: req.CustomerName,
		Total:        req.Total,
		PaymentType:  paymentType,
		Notes:        req.Notes,
		CreatedAt:    time.Now(),
	}
	if err := s.storage.CreateSale(sale); err != nil {
		s.log.Errorw("failed to create sale", "error", err)
		http.Error(w, "Failed to create sale", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, sale)
}

func (s *Server) listSalesHandler(w http.ResponseWriter, r *http.Request) {
	f, err := s.queryFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sales, err := s.storage.GetSales()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if !f.AllPeriods && f.Period != nil {
		filtered := make([]models.Sale, 0, len(sales))
		for _, sale := range sales {
			if period.Resolve(sale.Date, s.fiscalStartDay) == *f.Period {
				filtered = append(filtered, sale)
			}
		}
		sales = filtered
	}

	writeJSON(w, http.StatusOK, sales)
}

func (s *Server) createPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date            string                 `json:"date"`
		CustomerName    string                 `json:"customer_name"`
		Amount          decimal.Decimal        `json:"amount"`
		AppliesToPeriod *models.BusinessPeriod `json:"applies_to_period"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !req.Amount.IsPositive() {
		http.Error(w, "Amount must be positive", http.StatusBadRequest)
		return
	}

	payment := &models.Payment{
		ID:              uuid.New(),
		Date:            date,
		CustomerName:    req.CustomerName,
		Amount:          req.Amount,
		AppliesToPeriod: req.AppliesToPeriod,
		CreatedAt:       time.Now(),
	}
	if err := s.storage.CreatePayment(payment); err != nil {
		s.log.Errorw("failed to create payment", "error", err)
		http.Error(w, "Failed to create payment", http.StatusInternalServerError)
		return
	}

	s.notifier.PaymentRecorded(payment.CustomerName, payment.Amount)
	writeJSON(w, http.StatusCreated, payment)
}

func (s *Server) listPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	payments, err := s.storage.GetPayments()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

func (s *Server) creditorsHandler(w http.ResponseWriter, r *http.Request) {
	f, err := s.queryFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sales, err := s.storage.GetSales()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	payments, err := s.storage.GetPayments()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, reports.BuildCreditorReport(sales, payments, f))
}

func (s *Server) createExpenseHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date        string          `json:"date"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Category == "" {
		http.Error(w, "Category is required", http.StatusBadRequest)
		return
	}
	if !req.Amount.IsPositive() {
		http.Error(w, "Amount must be positive", http.StatusBadRequest)
		return
	}

	expense := &models.Expense{
		ID:          uuid.New(),
		Date:        date,
		Category:    req.Category,
		Description: req.Description,
		Amount:      req.Amount,
		CreatedAt:   time.Now(),
	}
	if err := s.storage.CreateExpense(expense); err != nil {
		s.log.Errorw("failed to create expense", "error", err)
		http.Error(w, "Failed to create expense", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, expense)
}

func (s *Server) listExpensesHandler(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.storage.GetExpenses()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) expenseSummaryHandler(w http.ResponseWriter, r *http.Request) {
	f, err := s.queryFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if f.Period == nil {
		http.Error(w, "Expense summaries are per period; pass month and year", http.StatusBadRequest)
		return
	}

	expenses, err := s.storage.GetExpenses()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, reports.BuildExpenseSummary(expenses, *f.Period, s.fiscalStartDay))
}

func (s *Server) createBudgetItemHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Period   models.BusinessPeriod `json:"period"`
		Category string                `json:"category"`
		Planned  decimal.Decimal       `json:"planned"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Period.Month < 1 || req.Period.Month > 12 || req.Period.Year == 0 {
		http.Error(w, "Invalid period", http.StatusBadRequest)
		return
	}
	if req.Category == "" {
		http.Error(w, "Category is required", http.StatusBadRequest)
		return
	}
	if req.Planned.IsNegative() {
		http.Error(w, "Planned amount must not be negative", http.StatusBadRequest)
		return
	}

	item := &models.BudgetItem{
		ID:        uuid.New(),
		Period:    req.Period,
		Category:  req.Category,
		Planned:   req.Planned,
		CreatedAt: time.Now(),
	}
	if err := s.storage.CreateBudgetItem(item); err != nil {
		s.log.Errorw("failed to create budget item", "error", err)
		http.Error(w, "Failed to create budget item", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) budgetReportHandler(w http.ResponseWriter, r *http.Request) {
	f, err := s.queryFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if f.Period == nil {
		http.Error(w, "Budgets are per period; pass month and year", http.StatusBadRequest)
		return
	}

	items, err := s.storage.GetBudgetItems(*f.Period)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	expenses, err := s.storage.GetExpenses()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, reports.BuildBudgetReport(items, expenses, *f.Period, s.fiscalStartDay))
}

func (s *Server) createLoanHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CustomerName string          `json:"customer_name"`
		Principal    decimal.Decimal `json:"principal"`
		InterestRate decimal.Decimal `json:"interest_rate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !req.Principal.IsPositive() {
		http.Error(w, "Principal must be positive", http.StatusBadRequest)
		return
	}

	loan, err := s.loans.CreateLoan(req.CustomerName, req.Principal, req.InterestRate)
	if err != nil {
		s.log.Errorw("failed to create loan", "error", err)
		http.Error(w, fmt.Sprintf("Failed to create loan: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, loan)
}

func (s *Server) getLoanHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid loan ID", http.StatusBadRequest)
		return
	}

	loan, err := s.loans.GetLoan(loanID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Loan not found", http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, loan)
}

func (s *Server) listLoansHandler(w http.ResponseWriter, r *http.Request) {
	loans, err := s.loans.GetAllLoans()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

func (s *Server) deleteLoanHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid loan ID", http.StatusBadRequest)
		return
	}

	if err := s.loans.DeleteLoan(loanID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Loan not found", http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) loanTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid loan ID", http.StatusBadRequest)
		return
	}

	txs, err := s.loans.GetTransactions(loanID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) recordLoanPaymentHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid loan ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !req.Amount.IsPositive() {
		http.Error(w, "Amount must be positive", http.StatusBadRequest)
		return
	}

	tx, err := s.loans.RecordPayment(loanID, req.Amount)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Loan not found", http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, tx)
}

// newRouter registers every route on a fresh mux router.
func (s *Server) newRouter() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/sales", s.listSalesHandler).Methods("GET")
	router.HandleFunc("/sales", s.createSaleHandler).Methods("POST")
	router.HandleFunc("/payments", s.listPaymentsHandler).Methods("GET")
	router.HandleFunc("/payments", s.createPaymentHandler).Methods("POST")
	router.HandleFunc("/creditors", s.creditorsHandler).Methods("GET")
	router.HandleFunc("/expenses", s.listExpensesHandler).Methods("GET")
	router.HandleFunc("/expenses", s.createExpenseHandler).Methods("POST")
	router.HandleFunc("/expenses/summary", s.expenseSummaryHandler).Methods("GET")
	router.HandleFunc("/budget", s.budgetReportHandler).Methods("GET")
	router.HandleFunc("/budget", s.createBudgetItemHandler).Methods("POST")
	router.HandleFunc("/loans", s.listLoansHandler).Methods("GET")
	router.HandleFunc("/loans", s.createLoanHandler).Methods("POST")
	router.HandleFunc("/loans/{id}", s.getLoanHandler).Methods("GET")
	router.HandleFunc("/loans/{id}", s.deleteLoanHandler).Methods("DELETE")
	router.HandleFunc("/loans/{id}/transactions", s.loanTransactionsHandler).Methods("GET")
	router.HandleFunc("/loans/{id}/payments", s.recordLoanPaymentHandler).Methods("POST")

	return router
}

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	cfg := config.Default()
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalw("failed to load config", "path", *configPath, "error", err)
		}
	}

	sqliteStore, err := store.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		log.Fatalw("failed to initialize store", "path", cfg.Storage.Path, "error", err)
	}
	defer sqliteStore.Close()

	server := NewServer(sqliteStore, cfg.Books.FiscalStartDay, log)
	router := server.newRouter()

	// Periodic loan jobs: accrual every interval, statement application
	// right after so statement day is never missed.
	go func() {
		ticker := time.NewTicker(cfg.Books.LoanJobInterval.Duration)
		defer ticker.Stop()

		for range ticker.C {
			server.loans.AccrueDailyInterest()
			server.loans.ApplyStatementInterest()
		}
	}()

	log.Infow("server starting",
		"addr", cfg.Server.ListenAddr,
		"fiscal_start_day", cfg.Books.FiscalStartDay)
	if err := http.ListenAndServe(cfg.Server.ListenAddr, router); err != nil {
		log.Fatalw("server stopped", "error", err)
	}
}
