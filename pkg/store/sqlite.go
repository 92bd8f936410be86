package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mangaeliso/inala-backoffice/pkg/models"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore manages the database connection and operations for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dataSourceName
// and initializes the schema.
func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}
	return s, nil
}

// initSchema creates the tables if they don't already exist. Monetary
// columns are TEXT so decimal values round-trip without precision loss.
func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS sales (
		id TEXT PRIMARY KEY,
		date DATETIME NOT NULL,
		customer_name TEXT NOT NULL,
		total TEXT NOT NULL,
		payment_type TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		date DATETIME NOT NULL,
		customer_name TEXT NOT NULL,
		amount TEXT NOT NULL,
		applies_month INTEGER,
		applies_year INTEGER,
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		date DATETIME NOT NULL,
		category TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		amount TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS budget_items (
		id TEXT PRIMARY KEY,
		period_month INTEGER NOT NULL,
		period_year INTEGER NOT NULL,
		category TEXT NOT NULL,
		planned TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS loans (
		id TEXT PRIMARY KEY,
		customer_key TEXT NOT NULL,
		principal TEXT NOT NULL,
		balance TEXT NOT NULL,
		interest_rate TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		last_accrual_date DATETIME,
		statement_cycle_day INTEGER NOT NULL DEFAULT 1,
		accrued_interest TEXT NOT NULL DEFAULT '0'
	);
	CREATE TABLE IF NOT EXISTS loan_transactions (
		id TEXT PRIMARY KEY,
		loan_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		type TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		FOREIGN KEY(loan_id) REFERENCES loans(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateSale inserts a new sale.
func (s *SQLiteStore) CreateSale(sale *models.Sale) error {
	_, err := s.db.Exec(
		`INSERT INTO sales (id, date, customer_name, total, payment_type, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sale.ID.String(), sale.Date, sale.CustomerName, sale.Total, string(sale.PaymentType), sale.Notes, sale.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create sale: %w", err)
	}
	return nil
}

// GetSales retrieves all sales ordered by date.
func (s *SQLiteStore) GetSales() ([]models.Sale, error) {
	rows, err := s.db.Query(`SELECT id, date, customer_name, total, payment_type, notes, created_at FROM sales ORDER BY date ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get sales: %w", err)
	}
	defer rows.Close()

	var sales []models.Sale
	for rows.Next() {
		var sale models.Sale
		var idStr, paymentType string
		if err := rows.Scan(&idStr, &sale.Date, &sale.CustomerName, &sale.Total, &paymentType, &sale.Notes, &sale.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sale row: %w", err)
		}
		sale.ID = uuid.MustParse(idStr)
		sale.PaymentType = models.PaymentType(paymentType)
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during sales iteration: %w", err)
	}
	return sales, nil
}

// CreatePayment inserts a new payment.
func (s *SQLiteStore) CreatePayment(payment *models.Payment) error {
	var appliesMonth, appliesYear sql.NullInt64
	if payment.AppliesToPeriod != nil {
		appliesMonth = sql.NullInt64{Int64: int64(payment.AppliesToPeriod.Month), Valid: true}
		appliesYear = sql.NullInt64{Int64: int64(payment.AppliesToPeriod.Year), Valid: true}
	}
	_, err := s.db.Exec(
		`INSERT INTO payments (id, date, customer_name, amount, applies_month, applies_year, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		payment.ID.String(), payment.Date, payment.CustomerName, payment.Amount, appliesMonth, appliesYear, payment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetPayments retrieves all payments ordered by date.
func (s *SQLiteStore) GetPayments() ([]models.Payment, error) {
	rows, err := s.db.Query(`SELECT id, date, customer_name, amount, applies_month, applies_year, created_at FROM payments ORDER BY date ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get payments: %w", err)
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		var payment models.Payment
		var idStr string
		var appliesMonth, appliesYear sql.NullInt64
		if err := rows.Scan(&idStr, &payment.Date, &payment.CustomerName, &payment.Amount, &appliesMonth, &appliesYear, &payment.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment row: %w", err)
		}
		payment.ID = uuid.MustParse(idStr)
		if appliesMonth.Valid && appliesYear.Valid {
			payment.AppliesToPeriod = &models.BusinessPeriod{
				Month: int(appliesMonth.Int64),
				Year:  int(appliesYear.Int64),
			}
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during payments iteration: %w", err)
	}
	return payments, nil
}

// CreateExpense inserts a new expense.
func (s *SQLiteStore) CreateExpense(expense *models.Expense) error {
	_, err := s.db.Exec(
		`INSERT INTO expenses (id, date, category, description, amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		expense.ID.String(), expense.Date, expense.Category, expense.Description, expense.Amount, expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

// GetExpenses retrieves all expenses ordered by date.
func (s *SQLiteStore) GetExpenses() ([]models.Expense, error) {
	rows, err := s.db.Query(`SELECT id, date, category, description, amount, created_at FROM expenses ORDER BY date ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		var expense models.Expense
		var idStr string
		if err := rows.Scan(&idStr, &expense.Date, &expense.Category, &expense.Description, &expense.Amount, &expense.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense row: %w", err)
		}
		expense.ID = uuid.MustParse(idStr)
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during expenses iteration: %w", err)
	}
	return expenses, nil
}

// CreateBudgetItem inserts a planned budget amount for a period/category.
func (s *SQLiteStore) CreateBudgetItem(item *models.BudgetItem) error {
	_, err := s.db.Exec(
		`INSERT INTO budget_items (id, period_month, period_year, category, planned, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID.String(), item.Period.Month, item.Period.Year, item.Category, item.Planned, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create budget item: %w", err)
	}
	return nil
}

// GetBudgetItems retrieves the budget items for one business period.
func (s *SQLiteStore) GetBudgetItems(p models.BusinessPeriod) ([]models.BudgetItem, error) {
	rows, err := s.db.Query(
		`SELECT id, period_month, period_year, category, planned, created_at FROM budget_items WHERE period_month = ? AND period_year = ? ORDER BY category ASC`,
		p.Month, p.Year,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get budget items: %w", err)
	}
	defer rows.Close()

	var items []models.BudgetItem
	for rows.Next() {
		var item models.BudgetItem
		var idStr string
		if err := rows.Scan(&idStr, &item.Period.Month, &item.Period.Year, &item.Category, &item.Planned, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan budget item row: %w", err)
		}
		item.ID = uuid.MustParse(idStr)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during budget items iteration: %w", err)
	}
	return items, nil
}

// CreateLoan inserts a new loan.
func (s *SQLiteStore) CreateLoan(loan *models.Loan) error {
	_, err := s.db.Exec(
		`INSERT INTO loans (id, customer_key, principal, balance, interest_rate, status, created_at, updated_at, last_accrual_date, statement_cycle_day, accrued_interest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		loan.ID.String(), loan.CustomerKey, loan.Principal, loan.Balance, loan.InterestRate, string(loan.Status), loan.CreatedAt, loan.UpdatedAt, loan.LastAccrualDate, loan.StatementCycleDay, loan.AccruedInterest,
	)
	if err != nil {
		return fmt.Errorf("failed to create loan: %w", err)
	}
	return nil
}

// GetLoan retrieves a loan by its ID.
func (s *SQLiteStore) GetLoan(id uuid.UUID) (*models.Loan, error) {
	row := s.db.QueryRow(`SELECT id, customer_key, principal, balance, interest_rate, status, created_at, updated_at, last_accrual_date, statement_cycle_day, accrued_interest FROM loans WHERE id = ?`, id.String())
	loan, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	return loan, nil
}

// UpdateLoan updates an existing loan.
func (s *SQLiteStore) UpdateLoan(loan *models.Loan) error {
	result, err := s.db.Exec(
		`UPDATE loans SET customer_key = ?, principal = ?, balance = ?, interest_rate = ?, status = ?, updated_at = ?, last_accrual_date = ?, statement_cycle_day = ?, accrued_interest = ? WHERE id = ?`,
		loan.CustomerKey, loan.Principal, loan.Balance, loan.InterestRate, string(loan.Status), loan.UpdatedAt, loan.LastAccrualDate, loan.StatementCycleDay, loan.AccruedInterest, loan.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update loan: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteLoan removes a loan and its transactions within a transaction.
func (s *SQLiteStore) DeleteLoan(id uuid.UUID) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM loan_transactions WHERE loan_id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete associated transactions: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM loans WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete loan: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// GetAllLoans retrieves all loans.
func (s *SQLiteStore) GetAllLoans() ([]*models.Loan, error) {
	rows, err := s.db.Query(`SELECT id, customer_key, principal, balance, interest_rate, status, created_at, updated_at, last_accrual_date, statement_cycle_day, accrued_interest FROM loans`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all loans: %w", err)
	}
	defer rows.Close()

	return scanLoans(rows)
}

// GetAllActiveLoans retrieves all active loans.
func (s *SQLiteStore) GetAllActiveLoans() ([]*models.Loan, error) {
	rows, err := s.db.Query(`SELECT id, customer_key, principal, balance, interest_rate, status, created_at, updated_at, last_accrual_date, statement_cycle_day, accrued_interest FROM loans WHERE status = 'active'`)
	if err != nil {
		return nil, fmt.Errorf("failed to get active loans: %w", err)
	}
	defer rows.Close()

	return scanLoans(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLoan(row rowScanner) (*models.Loan, error) {
	var loan models.Loan
	var idStr, status string
	var lastAccrual sql.NullTime
	if err := row.Scan(&idStr, &loan.CustomerKey, &loan.Principal, &loan.Balance, &loan.InterestRate, &status, &loan.CreatedAt, &loan.UpdatedAt, &lastAccrual, &loan.StatementCycleDay, &loan.AccruedInterest); err != nil {
		return nil, err
	}
	loan.ID = uuid.MustParse(idStr)
	loan.Status = models.LoanStatus(status)
	if lastAccrual.Valid {
		loan.LastAccrualDate = &lastAccrual.Time
	}
	return &loan, nil
}

func scanLoans(rows *sql.Rows) ([]*models.Loan, error) {
	var loans []*models.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan row: %w", err)
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during loans iteration: %w", err)
	}
	return loans, nil
}

// CreateLoanTransaction inserts a new loan transaction.
func (s *SQLiteStore) CreateLoanTransaction(tx *models.LoanTransaction) error {
	_, err := s.db.Exec(
		`INSERT INTO loan_transactions (id, loan_id, amount, type, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		tx.ID.String(), tx.LoanID.String(), tx.Amount, string(tx.Type), tx.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to create loan transaction: %w", err)
	}
	return nil
}

// GetLoanTransactions retrieves all transactions for a given loan ID.
func (s *SQLiteStore) GetLoanTransactions(loanID uuid.UUID) ([]*models.LoanTransaction, error) {
	rows, err := s.db.Query(`SELECT id, loan_id, amount, type, timestamp FROM loan_transactions WHERE loan_id = ? ORDER BY timestamp ASC`, loanID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions for loan %s: %w", loanID, err)
	}
	defer rows.Close()

	var transactions []*models.LoanTransaction
	for rows.Next() {
		var tx models.LoanTransaction
		var txIDStr, loanIDStr, txType string
		if err := rows.Scan(&txIDStr, &loanIDStr, &tx.Amount, &txType, &tx.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan loan transaction row: %w", err)
		}
		tx.ID = uuid.MustParse(txIDStr)
		tx.LoanID = uuid.MustParse(loanIDStr)
		tx.Type = models.LoanTransactionType(txType)
		transactions = append(transactions, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during loan transactions iteration: %w", err)
	}
	return transactions, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
