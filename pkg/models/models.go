package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BusinessPeriod is a fiscal month running from the fiscal start day of one
// calendar month to the day before it in the next. Month is 1-12.
type BusinessPeriod struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// IsZero reports whether the period carries no usable value.
func (p BusinessPeriod) IsZero() bool {
	return p.Month == 0 || p.Year == 0
}

type PaymentType string

const (
	PaymentTypeCredit PaymentType = "credit"
	PaymentTypeCash   PaymentType = "cash"
)

// Sale is a single sales record. Only credit sales participate in the
// creditor ledger; cash sales are kept for revenue reporting.
type Sale struct {
	ID           uuid.UUID       `json:"id"`
	Date         time.Time       `json:"date"`
	CustomerName string          `json:"customer_name"`
	Total        decimal.Decimal `json:"total"`
	PaymentType  PaymentType     `json:"payment_type"`
	Notes        string          `json:"notes,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Payment is money received against a customer's credit balance.
// AppliesToPeriod, when set, reclassifies the payment into that business
// period regardless of its date. Staff use it to correct misdated payments.
type Payment struct {
	ID              uuid.UUID       `json:"id"`
	Date            time.Time       `json:"date"`
	CustomerName    string          `json:"customer_name"`
	Amount          decimal.Decimal `json:"amount"`
	AppliesToPeriod *BusinessPeriod `json:"applies_to_period,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// CustomerLedgerEntry is the derived per-customer credit position. It is
// recomputed from the full history on every aggregation and never persisted.
type CustomerLedgerEntry struct {
	Name              string          `json:"name"`
	TotalCredit       decimal.Decimal `json:"total_credit"`
	TotalPaid         decimal.Decimal `json:"total_paid"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
	Transactions      []Sale          `json:"transactions"`
	Payments          []Payment       `json:"payments"`
	LastPurchase      time.Time       `json:"last_purchase"`
}

// Expense is an expenditure record, bucketed by category for reporting.
type Expense struct {
	ID          uuid.UUID       `json:"id"`
	Date        time.Time       `json:"date"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	CreatedAt   time.Time       `json:"created_at"`
}

// BudgetItem is a planned amount for a category in a business period.
// Actual spend is derived from expenses at report time.
type BudgetItem struct {
	ID        uuid.UUID       `json:"id"`
	Period    BusinessPeriod  `json:"period"`
	Category  string          `json:"category"`
	Planned   decimal.Decimal `json:"planned"`
	CreatedAt time.Time       `json:"created_at"`
}

type LoanStatus string

const (
	LoanStatusActive LoanStatus = "active"
	LoanStatusClosed LoanStatus = "closed"
)

// Loan is a customer loan tracked alongside the credit ledger. CustomerKey
// matches the normalized key used for creditor entries.
type Loan struct {
	ID                uuid.UUID       `json:"id"`
	CustomerKey       string          `json:"customer_key"`
	Principal         decimal.Decimal `json:"principal"`
	Balance           decimal.Decimal `json:"balance"`
	InterestRate      decimal.Decimal `json:"interest_rate"` // annual rate
	Status            LoanStatus      `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	LastAccrualDate   *time.Time      `json:"last_accrual_date,omitempty"`
	StatementCycleDay int             `json:"statement_cycle_day"` // 1-28
	AccruedInterest   decimal.Decimal `json:"accrued_interest"`
}

type LoanTransactionType string

const (
	LoanTransactionTypeDisbursement LoanTransactionType = "disbursement"
	LoanTransactionTypePayment      LoanTransactionType = "payment"
	LoanTransactionTypeInterest     LoanTransactionType = "interest"
)

// LoanTransaction is a single movement on a loan.
type LoanTransaction struct {
	ID        uuid.UUID           `json:"id"`
	LoanID    uuid.UUID           `json:"loan_id"`
	Amount    decimal.Decimal     `json:"amount"`
	Type      LoanTransactionType `json:"type"`
	Timestamp time.Time           `json:"timestamp"`
}
