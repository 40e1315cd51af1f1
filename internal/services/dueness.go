// Package services provides business logic and orchestration services.
//
// This file holds the month walk that decides which instances of a fixed
// transaction are owed.
package services

import (
	"iter"

	"gastos/internal/core"
)

// DueDates yields, oldest first, the instance dates of rt that are owed as of
// today. The walk starts lookbackMonths before today's month (never before
// the month rt was created in) and ends with today's month. Each month
// contributes day_of_month clamped to its last day, unless that date is
// after today or the month is already covered by rt's watermark.
//
// The sequence is pure and can be ranged over any number of times.
func DueDates(rt core.RecurringTransaction, today core.Date, lookbackMonths int) iter.Seq[core.Date] {
	return func(yield func(core.Date) bool) {
		if !rt.Active || rt.DayOfMonth < 1 {
			return
		}

		current := today.MonthStart()
		start := current
		if lookbackMonths > 0 {
			start = current.AddMonths(-lookbackMonths)
		}
		if !rt.CreatedAt.IsZero() {
			if created := core.DateOf(rt.CreatedAt).MonthStart(); start.Before(created) {
				start = created
			}
		}

		for m := start; !m.After(current); m = m.AddMonths(1) {
			instance := core.InstanceDate(m.Year(), m.Month(), rt.DayOfMonth)
			if instance.After(today) {
				continue
			}
			if monthProcessed(rt.LastProcessedDate, m) {
				continue
			}
			if !yield(instance) {
				return
			}
		}
	}
}

// monthProcessed reports whether the watermark falls in the month starting at
// monthStart or any later month.
func monthProcessed(lastProcessed *core.Date, monthStart core.Date) bool {
	return lastProcessed != nil && !lastProcessed.Before(monthStart)
}
