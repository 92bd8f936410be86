// Package reports shapes stored records into the views the API serves:
// the creditor report, expense summaries, and budget comparisons.
package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mangaeliso/inala-backoffice/pkg/ledger"
	"github.com/mangaeliso/inala-backoffice/pkg/models"
	"github.com/mangaeliso/inala-backoffice/pkg/period"
)

// CreditorReport is the creditor summary ready for rendering: entries
// sorted by outstanding amount, largest debt first, plus the rollup.
type CreditorReport struct {
	Entries []*models.CustomerLedgerEntry `json:"entries"`
	Summary ledger.Summary                `json:"summary"`
}

// BuildCreditorReport runs the credit aggregation and orders the result.
// Ties on outstanding amount break by name so output is deterministic.
func BuildCreditorReport(sales []models.Sale, payments []models.Payment, f ledger.Filter) CreditorReport {
	entries := ledger.BuildCreditSummary(sales, payments, f)

	sorted := make([]*models.CustomerLedgerEntry, 0, len(entries))
	for _, entry := range entries {
		sorted = append(sorted, entry)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].OutstandingAmount.Equal(sorted[j].OutstandingAmount) {
			return sorted[i].OutstandingAmount.GreaterThan(sorted[j].OutstandingAmount)
		}
		return sorted[i].Name < sorted[j].Name
	})

	return CreditorReport{Entries: sorted, Summary: ledger.Rollup(entries)}
}

// CategoryAmount is an amount aggregated under one category name.
type CategoryAmount struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// ExpenseSummary is the expense rollup for one business period.
type ExpenseSummary struct {
	Period     models.BusinessPeriod `json:"period"`
	Total      decimal.Decimal       `json:"total"`
	ByCategory []CategoryAmount      `json:"by_category"`
}

// BuildExpenseSummary totals the expenses falling in the given business
// period, overall and per category. Categories sort alphabetically.
func BuildExpenseSummary(expenses []models.Expense, p models.BusinessPeriod, fiscalStartDay int) ExpenseSummary {
	summary := ExpenseSummary{Period: p, Total: decimal.Zero}

	byCategory := make(map[string]decimal.Decimal)
	for _, expense := range expenses {
		if period.Resolve(expense.Date, fiscalStartDay) != p {
			continue
		}
		summary.Total = summary.Total.Add(expense.Amount)
		byCategory[expense.Category] = byCategory[expense.Category].Add(expense.Amount)
	}

	for category, amount := range byCategory {
		summary.ByCategory = append(summary.ByCategory, CategoryAmount{Category: category, Amount: amount})
	}
	sort.Slice(summary.ByCategory, func(i, j int) bool {
		return summary.ByCategory[i].Category < summary.ByCategory[j].Category
	})

	return summary
}

// BudgetLine compares planned against actual spend for one category.
type BudgetLine struct {
	Category  string          `json:"category"`
	Planned   decimal.Decimal `json:"planned"`
	Actual    decimal.Decimal `json:"actual"`
	Remaining decimal.Decimal `json:"remaining"`
}

// BudgetReport is the planned-vs-actual view for one business period.
type BudgetReport struct {
	Period       models.BusinessPeriod `json:"period"`
	Lines        []BudgetLine          `json:"lines"`
	TotalPlanned decimal.Decimal       `json:"total_planned"`
	TotalActual  decimal.Decimal       `json:"total_actual"`
}

// BuildBudgetReport joins budget items with the period's actual expenses.
// Categories with spend but no budget line appear with a zero plan, so
// unplanned spending is visible rather than silently dropped.
func BuildBudgetReport(items []models.BudgetItem, expenses []models.Expense, p models.BusinessPeriod, fiscalStartDay int) BudgetReport {
	report := BudgetReport{Period: p, TotalPlanned: decimal.Zero, TotalActual: decimal.Zero}

	planned := make(map[string]decimal.Decimal)
	for _, item := range items {
		planned[item.Category] = planned[item.Category].Add(item.Planned)
	}

	actual := make(map[string]decimal.Decimal)
	for _, expense := range expenses {
		if period.Resolve(expense.Date, fiscalStartDay) != p {
			continue
		}
		actual[expense.Category] = actual[expense.Category].Add(expense.Amount)
	}

	categories := make(map[string]struct{})
	for category := range planned {
		categories[category] = struct{}{}
	}
	for category := range actual {
		categories[category] = struct{}{}
	}

	for category := range categories {
		line := BudgetLine{
			Category: category,
			Planned:  planned[category],
			Actual:   actual[category],
		}
		line.Remaining = line.Planned.Sub(line.Actual)
		report.Lines = append(report.Lines, line)
		report.TotalPlanned = report.TotalPlanned.Add(line.Planned)
		report.TotalActual = report.TotalActual.Add(line.Actual)
	}
	sort.Slice(report.Lines, func(i, j int) bool {
		return report.Lines[i].Category < report.Lines[j].Category
	})

	return report
}
