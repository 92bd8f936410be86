package period

import (
	"testing"
	"time"

	"github.com/mangaeliso/inala-backoffice/pkg/models"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		date     time.Time
		startDay int
		want     models.BusinessPeriod
	}{
		{
			name:     "before start day falls into previous month",
			date:     date(2025, time.March, 3),
			startDay: 5,
			want:     models.BusinessPeriod{Month: 2, Year: 2025},
		},
		{
			name:     "on start day belongs to own month",
			date:     date(2025, time.January, 5),
			startDay: 5,
			want:     models.BusinessPeriod{Month: 1, Year: 2025},
		},
		{
			name:     "early January wraps to December of prior year",
			date:     date(2025, time.January, 3),
			startDay: 5,
			want:     models.BusinessPeriod{Month: 12, Year: 2024},
		},
		{
			name:     "mid month stays put",
			date:     date(2025, time.July, 20),
			startDay: 5,
			want:     models.BusinessPeriod{Month: 7, Year: 2025},
		},
		{
			name:     "custom start day",
			date:     date(2025, time.June, 9),
			startDay: 10,
			want:     models.BusinessPeriod{Month: 5, Year: 2025},
		},
		{
			name:     "out of range start day falls back to default",
			date:     date(2025, time.March, 3),
			startDay: 40,
			want:     models.BusinessPeriod{Month: 2, Year: 2025},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.date, tt.startDay)
			if got != tt.want {
				t.Errorf("Resolve(%s, %d) = %+v, want %+v", tt.date.Format("2006-01-02"), tt.startDay, got, tt.want)
			}
		})
	}
}

func TestForPayment_OverrideWins(t *testing.T) {
	p := models.Payment{
		Date:            date(2025, time.February, 10),
		AppliesToPeriod: &models.BusinessPeriod{Month: 3, Year: 2025},
	}

	got := ForPayment(p, DefaultFiscalStartDay)
	want := models.BusinessPeriod{Month: 3, Year: 2025}
	if got != want {
		t.Errorf("ForPayment with override = %+v, want %+v", got, want)
	}
}

func TestForPayment_DateDerivedWithoutOverride(t *testing.T) {
	p := models.Payment{Date: date(2025, time.February, 10)}

	got := ForPayment(p, DefaultFiscalStartDay)
	want := models.BusinessPeriod{Month: 2, Year: 2025}
	if got != want {
		t.Errorf("ForPayment without override = %+v, want %+v", got, want)
	}
}

func TestForPayment_ZeroOverrideIgnored(t *testing.T) {
	// An override missing month or year is unusable; the date decides.
	p := models.Payment{
		Date:            date(2025, time.February, 10),
		AppliesToPeriod: &models.BusinessPeriod{Month: 0, Year: 2025},
	}

	got := ForPayment(p, DefaultFiscalStartDay)
	want := models.BusinessPeriod{Month: 2, Year: 2025}
	if got != want {
		t.Errorf("ForPayment with zero override = %+v, want %+v", got, want)
	}
}
