package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	PeriodWeekly   BudgetPeriod = "weekly"
	PeriodBiweekly BudgetPeriod = "biweekly"
	PeriodMonthly  BudgetPeriod = "monthly"
)

var ErrInvalidPeriod = errors.New("invalid budget period")

type BudgetPeriod string

func (p BudgetPeriod) Validate() error {
	switch p {
	case PeriodWeekly, PeriodBiweekly, PeriodMonthly:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPeriod, string(p))
	}
}

// Budget caps spending on one category. Amounts are in soles; spending in
// other currencies is converted with the user's exchange rate. A user has
// at most one budget per category.
type Budget struct {
	ID         string
	UserID     string
	CategoryID string
	Amount     Money
	Period     BudgetPeriod
	StartDate  Date
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if err := b.Period.Validate(); err != nil {
		return err
	}
	return b.StartDate.Validate()
}

// Window returns the inclusive date range of the period containing day.
// Periods repeat back to back from StartDate; a day before StartDate gets
// the first period. Monthly periods keep StartDate's day of month, clamped
// to shorter months.
func (b Budget) Window(day Date) (from, to Date) {
	start := b.StartDate
	if day.Before(start) {
		day = start
	}
	switch b.Period {
	case PeriodWeekly, PeriodBiweekly:
		length := 7
		if b.Period == PeriodBiweekly {
			length = 14
		}
		elapsed := int(day.Sub(start.Time).Hours() / 24)
		from = Date{Time: start.AddDate(0, 0, elapsed/length*length)}
		return from, Date{Time: from.AddDate(0, 0, length-1)}
	default:
		months := (day.Year()-start.Year())*12 + day.Month() - start.Month()
		from = b.monthlyStart(months)
		if day.Before(from) {
			months--
			from = b.monthlyStart(months)
		}
		next := b.monthlyStart(months + 1)
		return from, Date{Time: next.AddDate(0, 0, -1)}
	}
}

func (b Budget) monthlyStart(offset int) Date {
	first := b.StartDate.MonthStart().AddMonths(offset)
	return InstanceDate(first.Year(), first.Month(), b.StartDate.Day())
}

// BudgetStatus is a budget measured against the spending of one period.
type BudgetStatus struct {
	Budget    Budget
	From, To  Date
	Spent     Money
	Remaining Money // negative when over budget
}

func NewBudgetStatus(b Budget, from, to Date, spent Money) BudgetStatus {
	return BudgetStatus{
		Budget:    b,
		From:      from,
		To:        to,
		Spent:     spent,
		Remaining: b.Amount.Sub(spent),
	}
}

func (s BudgetStatus) Exceeded() bool {
	return s.Remaining.Cents < 0
}
