package core

import "time"

// CardUsage is the consumed portion of a credit card, tracked per currency.
// It is a materialized view over the card's expenses and payments.
type CardUsage struct {
	PEN Money
	USD Money
}

func (u CardUsage) Get(c Currency) Money {
	if c == USD {
		return u.USD
	}
	return u.PEN
}

// NewCardUsage derives the usage from per-currency sums of linked expenses and
// linked payments. Each currency is floored at zero: when payments exceed
// expenses the stored value is 0, never negative.
func NewCardUsage(expenses, payments map[Currency]Money) CardUsage {
	return CardUsage{
		PEN: expenses[PEN].Sub(payments[PEN]).FloorZero(),
		USD: expenses[USD].Sub(payments[USD]).FloorZero(),
	}
}

// BalanceInputs carries everything needed to derive a bank account balance.
// LinkedExpenses and LinkedIncomes are sums of ledger entries linked to the
// account, already filtered to its currency and reset timestamp.
type BalanceInputs struct {
	Account        BankAccount
	LinkedExpenses Money
	LinkedIncomes  Money
	Fixed          []RecurringTransaction
	Today          Date
}

// BankBalance is the computed balance with the terms it was derived from.
type BankBalance struct {
	AccountID            string
	Currency             Currency
	Stored               Money
	LinkedExpenses       Money
	LinkedIncomes        Money
	PendingFixedExpenses Money
	PendingFixedIncomes  Money
	Computed             Money
}

// ComputeBankBalance applies the balance formula:
//
//	stored
//	  - linked expenses (if SubtractExpenses)
//	  - fixed expenses due this month
//	  + linked incomes (if AddIncomes)
//	  + fixed incomes due this month
//
// A fixed transaction counts as due this month when it is active, in the
// account currency and its day of month is on or before today's day. This
// threshold ignores whether the scheduler already materialized the
// transaction, so a processed fixed expense is counted both as a linked
// expense and as pending.
func ComputeBankBalance(in BalanceInputs) BankBalance {
	acc := in.Account
	out := BankBalance{
		AccountID: acc.ID,
		Currency:  acc.Currency,
		Stored:    acc.Balance,
	}
	if acc.SubtractExpenses {
		out.LinkedExpenses = in.LinkedExpenses
	}
	if acc.AddIncomes {
		out.LinkedIncomes = in.LinkedIncomes
	}
	for _, rt := range in.Fixed {
		if !rt.Active || rt.Currency != acc.Currency || rt.DayOfMonth > in.Today.Day() {
			continue
		}
		switch rt.Kind {
		case KindExpense:
			out.PendingFixedExpenses = out.PendingFixedExpenses.Add(rt.Amount)
		case KindIncome:
			out.PendingFixedIncomes = out.PendingFixedIncomes.Add(rt.Amount)
		}
	}
	out.Computed = out.Stored.
		Sub(out.LinkedExpenses).
		Sub(out.PendingFixedExpenses).
		Add(out.LinkedIncomes).
		Add(out.PendingFixedIncomes)
	return out
}

// ResetCutoff returns the first date whose entries count toward the account
// balance, or the zero Date when the account was never reset.
func (a BankAccount) ResetCutoff() Date {
	if a.BalanceResetAt == nil {
		return Date{}
	}
	return DateOf(a.BalanceResetAt.In(time.UTC))
}
