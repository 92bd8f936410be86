// Package ledger reconciles credit sales against customer payments and
// produces the per-customer creditor positions the reports are built from.
package ledger

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mangaeliso/inala-backoffice/pkg/models"
	"github.com/mangaeliso/inala-backoffice/pkg/period"
)

// unknownCustomer keys records that carry no customer name at all.
const unknownCustomer = "unknown customer"

// Filter selects which records participate in an aggregation. When
// AllPeriods is true or Period is nil, every record is included; otherwise
// sales and payments are bucketed by business period and only the matching
// period survives.
type Filter struct {
	Period         *models.BusinessPeriod
	AllPeriods     bool
	FiscalStartDay int
}

func (f Filter) startDay() int {
	if period.ValidStartDay(f.FiscalStartDay) {
		return f.FiscalStartDay
	}
	return period.DefaultFiscalStartDay
}

func (f Filter) unfiltered() bool {
	return f.AllPeriods || f.Period == nil
}

// CustomerKey normalizes a customer name into the key ledger entries are
// grouped under. The same customer entered as "John Doe" and " john doe "
// must land in one entry.
func CustomerKey(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return unknownCustomer
	}
	return key
}

// BuildCreditSummary aggregates credit sales and payments into per-customer
// ledger entries keyed by normalized customer name. It is a pure function:
// it performs no I/O, mutates neither input slice, and allocates a fresh
// map on every call.
//
// Payments for customers with no credit sale in the filtered set are
// dropped. See the orphan-payment decision in DESIGN.md; the behavior is
// pinned by a test so changing it is a deliberate act.
func BuildCreditSummary(sales []models.Sale, payments []models.Payment, f Filter) map[string]*models.CustomerLedgerEntry {
	entries := make(map[string]*models.CustomerLedgerEntry)

	for _, sale := range sales {
		if sale.PaymentType != models.PaymentTypeCredit {
			continue
		}
		if !f.unfiltered() && period.Resolve(sale.Date, f.startDay()) != *f.Period {
			continue
		}

		key := CustomerKey(sale.CustomerName)
		entry, ok := entries[key]
		if !ok {
			entry = &models.CustomerLedgerEntry{
				Name:        key,
				TotalCredit: decimal.Zero,
				TotalPaid:   decimal.Zero,
			}
			entries[key] = entry
		}

		entry.TotalCredit = entry.TotalCredit.Add(sale.Total)
		entry.Transactions = append(entry.Transactions, sale)
		// Zero dates stay out of the recency comparison; on equal dates the
		// first-seen sale is retained.
		if !sale.Date.IsZero() && sale.Date.After(entry.LastPurchase) {
			entry.LastPurchase = sale.Date
		}
	}

	for _, payment := range payments {
		if !f.unfiltered() && period.ForPayment(payment, f.startDay()) != *f.Period {
			continue
		}

		entry, ok := entries[CustomerKey(payment.CustomerName)]
		if !ok {
			continue
		}
		entry.TotalPaid = entry.TotalPaid.Add(payment.Amount)
		entry.Payments = append(entry.Payments, payment)
	}

	for _, entry := range entries {
		outstanding := entry.TotalCredit.Sub(entry.TotalPaid)
		if outstanding.IsNegative() {
			// Overpayment is absorbed, not carried as customer credit.
			outstanding = decimal.Zero
		}
		entry.OutstandingAmount = outstanding
	}

	return entries
}

// Summary is the scalar rollup of a credit aggregation, computed by folding
// over the entry map.
type Summary struct {
	TotalCredit      decimal.Decimal `json:"total_credit"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	CustomerCount    int             `json:"customer_count"`
	DebtorCount      int             `json:"debtor_count"`
}

// Rollup folds the entry map into its scalar summary. A debtor is any
// customer whose outstanding amount is strictly positive; decimal
// arithmetic makes the comparison exact, no epsilon needed.
func Rollup(entries map[string]*models.CustomerLedgerEntry) Summary {
	s := Summary{
		TotalCredit:      decimal.Zero,
		TotalPaid:        decimal.Zero,
		TotalOutstanding: decimal.Zero,
	}
	for _, entry := range entries {
		s.TotalCredit = s.TotalCredit.Add(entry.TotalCredit)
		s.TotalPaid = s.TotalPaid.Add(entry.TotalPaid)
		s.TotalOutstanding = s.TotalOutstanding.Add(entry.OutstandingAmount)
		s.CustomerCount++
		if entry.OutstandingAmount.IsPositive() {
			s.DebtorCount++
		}
	}
	return s
}
