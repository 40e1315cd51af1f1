package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudgetValidate(t *testing.T) {
	valid := Budget{
		CategoryID: "food",
		Amount:     Money{Cents: 50000},
		Period:     PeriodMonthly,
		StartDate:  NewDate(2024, 1, 1),
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Budget)
		want   error
	}{
		{"no category", func(b *Budget) { b.CategoryID = " " }, ErrEmptyCategory},
		{"zero amount", func(b *Budget) { b.Amount = Money{} }, ErrInvalidAmount},
		{"unknown period", func(b *Budget) { b.Period = "yearly" }, ErrInvalidPeriod},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := valid
			tt.mutate(&b)
			assert.ErrorIs(t, b.Validate(), tt.want)
		})
	}

	b := valid
	b.StartDate = Date{}
	assert.Error(t, b.Validate())
}

func TestBudgetWindow(t *testing.T) {
	tests := []struct {
		name     string
		period   BudgetPeriod
		start    Date
		day      Date
		from, to Date
	}{
		{"weekly first day", PeriodWeekly, NewDate(2024, 6, 3), NewDate(2024, 6, 3), NewDate(2024, 6, 3), NewDate(2024, 6, 9)},
		{"weekly third week", PeriodWeekly, NewDate(2024, 6, 3), NewDate(2024, 6, 20), NewDate(2024, 6, 17), NewDate(2024, 6, 23)},
		{"biweekly last day", PeriodBiweekly, NewDate(2024, 6, 3), NewDate(2024, 6, 16), NewDate(2024, 6, 3), NewDate(2024, 6, 16)},
		{"biweekly second period", PeriodBiweekly, NewDate(2024, 6, 3), NewDate(2024, 6, 17), NewDate(2024, 6, 17), NewDate(2024, 6, 30)},
		{"monthly from first", PeriodMonthly, NewDate(2024, 1, 1), NewDate(2024, 6, 20), NewDate(2024, 6, 1), NewDate(2024, 6, 30)},
		{"monthly mid month", PeriodMonthly, NewDate(2024, 1, 15), NewDate(2024, 6, 10), NewDate(2024, 5, 15), NewDate(2024, 6, 14)},
		{"monthly clamps short month", PeriodMonthly, NewDate(2024, 1, 31), NewDate(2024, 2, 29), NewDate(2024, 2, 29), NewDate(2024, 3, 30)},
		{"monthly across year", PeriodMonthly, NewDate(2023, 11, 20), NewDate(2024, 1, 5), NewDate(2023, 12, 20), NewDate(2024, 1, 19)},
		{"before start", PeriodWeekly, NewDate(2024, 6, 3), NewDate(2024, 5, 1), NewDate(2024, 6, 3), NewDate(2024, 6, 9)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Budget{Period: tt.period, StartDate: tt.start}
			from, to := b.Window(tt.day)
			assert.Equal(t, tt.from, from)
			assert.Equal(t, tt.to, to)
		})
	}
}

func TestBudgetStatusExceeded(t *testing.T) {
	b := Budget{Amount: Money{Cents: 10000}}
	s := NewBudgetStatus(b, NewDate(2024, 6, 1), NewDate(2024, 6, 30), Money{Cents: 12500})
	assert.Equal(t, Money{Cents: -2500}, s.Remaining)
	assert.True(t, s.Exceeded())

	s = NewBudgetStatus(b, NewDate(2024, 6, 1), NewDate(2024, 6, 30), Money{Cents: 10000})
	assert.False(t, s.Exceeded())
}
