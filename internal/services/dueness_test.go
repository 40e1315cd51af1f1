package services

import (
	"slices"
	"testing"
	"time"

	"gastos/internal/core"

	"github.com/stretchr/testify/assert"
)

func datePtr(y, m, d int) *core.Date {
	dt := core.NewDate(y, m, d)
	return &dt
}

func dueStrings(rt core.RecurringTransaction, today core.Date, lookback int) []string {
	var out []string
	for d := range DueDates(rt, today, lookback) {
		out = append(out, d.String())
	}
	return out
}

func TestDueDates(t *testing.T) {
	base := core.RecurringTransaction{
		Kind:       core.KindExpense,
		Name:       "Rent",
		Amount:     core.Money{Cents: 20000},
		Currency:   core.PEN,
		DayOfMonth: 31,
		CategoryID: "home",
		Active:     true,
		CreatedAt:  time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
	}
	with := func(f func(*core.RecurringTransaction)) core.RecurringTransaction {
		rt := base
		f(&rt)
		return rt
	}

	tests := []struct {
		name     string
		rt       core.RecurringTransaction
		today    core.Date
		lookback int
		want     []string
	}{
		{
			name:     "leap year backfill clamps february",
			rt:       base,
			today:    core.NewDate(2024, 3, 31),
			lookback: 2,
			want:     []string{"2024-01-31", "2024-02-29", "2024-03-31"},
		},
		{
			name:     "lookback clamped to creation month",
			rt:       base,
			today:    core.NewDate(2024, 3, 31),
			lookback: 12,
			want:     []string{"2024-01-31", "2024-02-29", "2024-03-31"},
		},
		{
			name:  "current month only without lookback",
			rt:    base,
			today: core.NewDate(2024, 3, 31),
			want:  []string{"2024-03-31"},
		},
		{
			name:     "current month not reached yet",
			rt:       base,
			today:    core.NewDate(2024, 3, 30),
			lookback: 2,
			want:     []string{"2024-01-31", "2024-02-29"},
		},
		{
			name:     "thirty day month clamps to the 30th",
			rt:       with(func(rt *core.RecurringTransaction) { rt.CreatedAt = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC) }),
			today:    core.NewDate(2024, 5, 2),
			lookback: 1,
			want:     []string{"2024-04-30"},
		},
		{
			name: "instance before creation day in creation month is kept",
			rt: with(func(rt *core.RecurringTransaction) {
				rt.DayOfMonth = 5
				rt.CreatedAt = time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
			}),
			today: core.NewDate(2024, 3, 25),
			want:  []string{"2024-03-05"},
		},
		{
			name:     "watermark in a month skips it and earlier months",
			rt:       with(func(rt *core.RecurringTransaction) { rt.LastProcessedDate = datePtr(2024, 2, 10) }),
			today:    core.NewDate(2024, 3, 31),
			lookback: 2,
			want:     []string{"2024-03-31"},
		},
		{
			name:     "watermark beyond the walk skips everything",
			rt:       with(func(rt *core.RecurringTransaction) { rt.LastProcessedDate = datePtr(2024, 4, 1) }),
			today:    core.NewDate(2024, 3, 31),
			lookback: 2,
			want:     nil,
		},
		{
			name:     "inactive yields nothing",
			rt:       with(func(rt *core.RecurringTransaction) { rt.Active = false }),
			today:    core.NewDate(2024, 3, 31),
			lookback: 2,
			want:     nil,
		},
		{
			name:     "crosses year boundary",
			rt:       with(func(rt *core.RecurringTransaction) { rt.DayOfMonth = 1; rt.CreatedAt = time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC) }),
			today:    core.NewDate(2024, 1, 1),
			lookback: 2,
			want:     []string{"2023-11-01", "2023-12-01", "2024-01-01"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dueStrings(tt.rt, tt.today, tt.lookback))
		})
	}
}

func TestDueDatesIsRestartableAndStopsEarly(t *testing.T) {
	rt := core.RecurringTransaction{
		DayOfMonth: 10,
		Active:     true,
		CreatedAt:  time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	seq := DueDates(rt, core.NewDate(2024, 6, 15), 5)

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Len(t, first, 6)
	assert.Equal(t, first, second)

	var taken []core.Date
	for d := range seq {
		taken = append(taken, d)
		if len(taken) == 2 {
			break
		}
	}
	assert.Equal(t, first[:2], taken)
}

func TestDueDatesNeverLeaksFuture(t *testing.T) {
	today := core.NewDate(2024, 6, 14)
	for day := 1; day <= 31; day++ {
		rt := core.RecurringTransaction{DayOfMonth: day, Active: true, CreatedAt: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
		for d := range DueDates(rt, today, 24) {
			assert.False(t, d.After(today), "day %d produced %s", day, d)
		}
	}
}
