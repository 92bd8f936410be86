package store

import (
	"errors"

	"github.com/google/uuid"

	"github.com/mangaeliso/inala-backoffice/pkg/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Storage defines the database operations the back office needs. The
// creditor aggregation itself never touches storage; it consumes the
// slices GetSales and GetPayments return.
type Storage interface {
	CreateSale(sale *models.Sale) error
	GetSales() ([]models.Sale, error)

	CreatePayment(payment *models.Payment) error
	GetPayments() ([]models.Payment, error)

	CreateExpense(expense *models.Expense) error
	GetExpenses() ([]models.Expense, error)

	CreateBudgetItem(item *models.BudgetItem) error
	GetBudgetItems(p models.BusinessPeriod) ([]models.BudgetItem, error)

	CreateLoan(loan *models.Loan) error
	GetLoan(id uuid.UUID) (*models.Loan, error)
	UpdateLoan(loan *models.Loan) error
	DeleteLoan(id uuid.UUID) error
	GetAllLoans() ([]*models.Loan, error)
	GetAllActiveLoans() ([]*models.Loan, error)

	CreateLoanTransaction(tx *models.LoanTransaction) error
	GetLoanTransactions(loanID uuid.UUID) ([]*models.LoanTransaction, error)

	Close() error
}
