package core

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	CategoryID string
	Currency   Currency
	Amount     Money
}

// MonthStats summarizes a user's expenses for a specific year+month.
type MonthStats struct {
	Year       int
	Month      int // 1-12
	Count      int
	Totals     map[Currency]Money
	TotalInPEN Money // all currencies converted with the user's exchange rate
	ByCategory []CategoryAmount
}

// NewMonthStats folds per-category sums into totals.
func NewMonthStats(year, month, count int, byCategory []CategoryAmount, settings UserSettings) MonthStats {
	st := MonthStats{
		Year:       year,
		Month:      month,
		Count:      count,
		Totals:     make(map[Currency]Money, 2),
		ByCategory: byCategory,
	}
	for _, c := range Currencies() {
		st.Totals[c] = Money{}
	}
	for _, ca := range byCategory {
		st.Totals[ca.Currency] = st.Totals[ca.Currency].Add(ca.Amount)
		st.TotalInPEN = st.TotalInPEN.Add(settings.ToPEN(ca.Amount, ca.Currency))
	}
	return st
}
