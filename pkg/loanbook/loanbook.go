// Package loanbook handles the bookkeeping for customer loans: disbursement,
// daily interest accrual, statement-day interest application, and payments.
package loanbook

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mangaeliso/inala-backoffice/pkg/ledger"
	"github.com/mangaeliso/inala-backoffice/pkg/models"
	"github.com/mangaeliso/inala-backoffice/pkg/notify"
	"github.com/mangaeliso/inala-backoffice/pkg/store"
)

const (
	minStatementDay = 1
	maxStatementDay = 28
)

var daysInYear = decimal.NewFromInt(365)

// Book holds the business logic for loans and their transactions.
type Book struct {
	storage  store.Storage
	notifier notify.Notifier
	log      *zap.SugaredLogger
	randSrc  rand.Source // source for assigning statement cycle days
}

// NewBook creates a Book over the given storage. notifier may be nil.
func NewBook(s store.Storage, notifier notify.Notifier, log *zap.SugaredLogger) *Book {
	return &Book{
		storage:  s,
		notifier: notifier,
		log:      log,
		randSrc:  rand.NewSource(time.Now().UnixNano()),
	}
}

// assignStatementCycleDay picks a day of the month (1-28) for the statement
// cycle so statement work spreads across the month.
func (b *Book) assignStatementCycleDay() int {
	r := rand.New(b.randSrc)
	return r.Intn(maxStatementDay-minStatementDay+1) + minStatementDay
}

// CreateLoan opens a loan for a customer and records the disbursement. The
// customer name is normalized to the same key the creditor ledger uses, so
// loans and credit positions line up per customer.
func (b *Book) CreateLoan(customerName string, principal, rate decimal.Decimal) (*models.Loan, error) {
	loan := &models.Loan{
		ID:                uuid.New(),
		CustomerKey:       ledger.CustomerKey(customerName),
		Principal:         principal,
		Balance:           principal,
		InterestRate:      rate,
		Status:            models.LoanStatusActive,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
		StatementCycleDay: b.assignStatementCycleDay(),
		AccruedInterest:   decimal.Zero,
	}

	if err := b.storage.CreateLoan(loan); err != nil {
		return nil, fmt.Errorf("failed to store loan: %w", err)
	}

	tx := models.LoanTransaction{
		ID:        uuid.New(),
		LoanID:    loan.ID,
		Amount:    principal,
		Type:      models.LoanTransactionTypeDisbursement,
		Timestamp: time.Now(),
	}
	if err := b.storage.CreateLoanTransaction(&tx); err != nil {
		return nil, fmt.Errorf("failed to store disbursement transaction: %w", err)
	}

	return loan, nil
}

// AccrueDailyInterest walks all active loans and accrues one day of
// interest. A loan already accrued today is skipped, so the job can run
// more than once a day without double-charging.
func (b *Book) AccrueDailyInterest() {
	loans, err := b.storage.GetAllActiveLoans()
	if err != nil {
		b.log.Errorw("failed to load active loans for accrual", "error", err)
		return
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)

	for _, loan := range loans {
		if loan.LastAccrualDate != nil && loan.LastAccrualDate.UTC().Truncate(24*time.Hour).Equal(today) {
			continue
		}

		// Daily interest = balance * (annual rate / 365).
		interest := loan.Balance.Mul(loan.InterestRate.Div(daysInYear))
		if !interest.IsPositive() {
			continue
		}

		loan.AccruedInterest = loan.AccruedInterest.Add(interest)
		loan.UpdatedAt = time.Now()
		loan.LastAccrualDate = &today

		if err := b.storage.UpdateLoan(loan); err != nil {
			b.log.Errorw("failed to update loan during accrual", "loan_id", loan.ID, "error", err)
			continue
		}

		b.log.Infow("accrued daily interest",
			"loan_id", loan.ID,
			"interest", interest.StringFixed(2),
			"total_accrued", loan.AccruedInterest.StringFixed(2))
	}
}

// ApplyStatementInterest rolls accrued interest into the balance of every
// loan whose statement cycle day is today, recording an interest
// transaction per loan.
func (b *Book) ApplyStatementInterest() {
	loans, err := b.storage.GetAllActiveLoans()
	if err != nil {
		b.log.Errorw("failed to load active loans for statement run", "error", err)
		return
	}

	todayDay := time.Now().Day()

	for _, loan := range loans {
		if loan.StatementCycleDay != todayDay {
			continue
		}
		if !loan.AccruedInterest.IsPositive() {
			continue
		}

		loan.Balance = loan.Balance.Add(loan.AccruedInterest)
		loan.UpdatedAt = time.Now()

		tx := models.LoanTransaction{
			ID:        uuid.New(),
			LoanID:    loan.ID,
			Amount:    loan.AccruedInterest,
			Type:      models.LoanTransactionTypeInterest,
			Timestamp: time.Now(),
		}
		if err := b.storage.CreateLoanTransaction(&tx); err != nil {
			b.log.Errorw("failed to record statement interest", "loan_id", loan.ID, "error", err)
			continue
		}

		b.log.Infow("applied statement interest",
			"loan_id", loan.ID,
			"interest", loan.AccruedInterest.StringFixed(2),
			"balance", loan.Balance.StringFixed(2))
		loan.AccruedInterest = decimal.Zero

		if err := b.storage.UpdateLoan(loan); err != nil {
			b.log.Errorw("failed to update loan after statement run", "loan_id", loan.ID, "error", err)
		}
	}
}

// GetLoan retrieves a loan by its ID.
func (b *Book) GetLoan(id uuid.UUID) (*models.Loan, error) {
	return b.storage.GetLoan(id)
}

// GetAllLoans retrieves all loans.
func (b *Book) GetAllLoans() ([]*models.Loan, error) {
	return b.storage.GetAllLoans()
}

// DeleteLoan deletes a loan and its transactions.
func (b *Book) DeleteLoan(id uuid.UUID) error {
	return b.storage.DeleteLoan(id)
}

// GetTransactions retrieves the transaction history of a loan.
func (b *Book) GetTransactions(loanID uuid.UUID) ([]*models.LoanTransaction, error) {
	return b.storage.GetLoanTransactions(loanID)
}

// RecordPayment applies a payment to a loan. When the balance reaches zero
// the loan is closed, with the balance floored at zero.
func (b *Book) RecordPayment(loanID uuid.UUID, amount decimal.Decimal) (*models.LoanTransaction, error) {
	loan, err := b.storage.GetLoan(loanID)
	if err != nil {
		return nil, err
	}

	if loan.Status != models.LoanStatusActive {
		return nil, fmt.Errorf("loan is not active")
	}

	loan.Balance = loan.Balance.Sub(amount)
	loan.UpdatedAt = time.Now()

	closed := false
	if loan.Balance.LessThanOrEqual(decimal.Zero) {
		loan.Status = models.LoanStatusClosed
		loan.Balance = decimal.Zero
		closed = true
	}

	if err := b.storage.UpdateLoan(loan); err != nil {
		return nil, fmt.Errorf("failed to update loan balance: %w", err)
	}

	tx := &models.LoanTransaction{
		ID:        uuid.New(),
		LoanID:    loan.ID,
		Amount:    amount,
		Type:      models.LoanTransactionTypePayment,
		Timestamp: time.Now(),
	}
	if err := b.storage.CreateLoanTransaction(tx); err != nil {
		return nil, fmt.Errorf("failed to store payment transaction: %w", err)
	}

	if closed && b.notifier != nil {
		b.notifier.LoanClosed(loan.CustomerKey, loan.ID.String())
	}

	return tx, nil
}
