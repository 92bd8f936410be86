// Package period maps calendar dates onto business periods. Inala's books
// run on a fiscal month starting on the 5th: a sale on the 3rd of February
// belongs to January's books.
package period

import (
	"time"

	"github.com/mangaeliso/inala-backoffice/pkg/models"
)

const (
	// DefaultFiscalStartDay is the day of the month the business month opens.
	DefaultFiscalStartDay = 5

	minFiscalStartDay = 1
	maxFiscalStartDay = 28
)

// ValidStartDay reports whether day can serve as a fiscal start day.
func ValidStartDay(day int) bool {
	return day >= minFiscalStartDay && day <= maxFiscalStartDay
}

// Resolve buckets a calendar date into its business period. Dates before the
// fiscal start day fall into the previous calendar month, with January
// wrapping to December of the prior year. Callers pass a valid date;
// fiscalStartDay values outside 1-28 fall back to the default.
func Resolve(date time.Time, fiscalStartDay int) models.BusinessPeriod {
	if !ValidStartDay(fiscalStartDay) {
		fiscalStartDay = DefaultFiscalStartDay
	}

	month := int(date.Month())
	year := date.Year()

	if date.Day() < fiscalStartDay {
		month--
		if month < 1 {
			month = 12
			year--
		}
	}

	return models.BusinessPeriod{Month: month, Year: year}
}

// ForPayment resolves the business period a payment belongs to. An explicit
// AppliesToPeriod wins over the payment date: staff log payments late or
// reclassify them to a prior period, and the override is returned verbatim.
func ForPayment(p models.Payment, fiscalStartDay int) models.BusinessPeriod {
	if p.AppliesToPeriod != nil && !p.AppliesToPeriod.IsZero() {
		return *p.AppliesToPeriod
	}
	return Resolve(p.Date, fiscalStartDay)
}
