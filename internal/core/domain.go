package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	PEN Currency = "PEN"
	USD Currency = "USD"
)

const (
	KindExpense EntryKind = "expense"
	KindIncome  EntryKind = "income"
)

// RecurringSuffix tags ledger entries materialized from a fixed transaction.
const RecurringSuffix = " (Fijo)"

type (
	Currency string

	EntryKind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// LedgerEntry is a concrete expense or income.
	LedgerEntry struct {
		ID            string
		UserID        string
		Kind          EntryKind
		Amount        Money
		Currency      Currency
		CategoryID    string
		Description   string
		Date          Date
		CreditCardID  string // expenses only
		BankAccountID string
		RecurringID   string // set when materialized from a fixed transaction
		CreatedAt     time.Time
	}

	// RecurringTransaction is a fixed expense or income triggered on a day of the month.
	RecurringTransaction struct {
		ID                string
		UserID            string
		Kind              EntryKind
		Name              string
		Amount            Money
		Currency          Currency
		DayOfMonth        int
		CategoryID        string
		CreditCardID      string
		BankAccountID     string
		Active            bool
		CreatedAt         time.Time
		LastProcessedDate *Date
	}

	CreditCard struct {
		ID             string
		UserID         string
		Name           string
		LastFourDigits string
		Limit          Money
		Currency       Currency
		Usage          CardUsage
		CutOffDay      int
		PaymentDay     int
		CreatedAt      time.Time
		UpdatedAt      time.Time
	}

	BankAccount struct {
		ID               string
		UserID           string
		Name             string
		LastFourDigits   string
		Balance          Money
		Currency         Currency
		SubtractExpenses bool
		AddIncomes       bool
		BalanceResetAt   *time.Time
		CreatedAt        time.Time
		UpdatedAt        time.Time
	}

	CreditCardPayment struct {
		ID            string
		UserID        string
		CreditCardID  string
		BankAccountID string
		Amount        Money
		Currency      Currency
		Date          Date
		CreatedAt     time.Time
	}
)

var (
	ErrInvalidDay         = errors.New("invalid day of month")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrAmountTooLarge     = errors.New("amount exceeds maximum")
	ErrInvalidCurrency    = errors.New("invalid currency")
	ErrInvalidKind        = errors.New("invalid entry kind")
	ErrEmptyDescription   = errors.New("empty description")
	ErrEmptyCategory      = errors.New("empty category")
	ErrEmptyName          = errors.New("empty name")
	ErrInstrumentConflict = errors.New("credit card and bank account are mutually exclusive")
	ErrCardOnIncome       = errors.New("incomes cannot be linked to a credit card")
)

// Currencies lists the supported currencies in display order.
func Currencies() []Currency {
	return []Currency{PEN, USD}
}

func (c Currency) Validate() error {
	switch c {
	case PEN, USD:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, string(c))
	}
}

func (k EntryKind) Validate() error {
	switch k {
	case KindExpense, KindIncome:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, string(k))
	}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (e LedgerEntry) Validate() error {
	if err := e.Kind.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := e.Currency.Validate(); err != nil {
		return err
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 255 {
		return errors.New("description too long (max 255 characters)")
	}
	if e.Kind == KindIncome && e.CreditCardID != "" {
		return ErrCardOnIncome
	}
	return nil
}

func (rt RecurringTransaction) Validate() error {
	if err := rt.Kind.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(rt.Name)) == 0 {
		return ErrEmptyName
	}
	if err := rt.Amount.Validate(); err != nil {
		return err
	}
	if err := rt.Currency.Validate(); err != nil {
		return err
	}
	if rt.DayOfMonth < 1 || rt.DayOfMonth > 31 {
		return ErrInvalidDay
	}
	if strings.TrimSpace(rt.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if rt.CreditCardID != "" && rt.BankAccountID != "" {
		return ErrInstrumentConflict
	}
	if rt.Kind == KindIncome && rt.CreditCardID != "" {
		return ErrCardOnIncome
	}
	return nil
}

// Materialize builds the ledger entry owed for the instance date. ID and
// CreatedAt are left for the caller.
func (rt RecurringTransaction) Materialize(date Date) LedgerEntry {
	return LedgerEntry{
		UserID:        rt.UserID,
		Kind:          rt.Kind,
		Amount:        rt.Amount,
		Currency:      rt.Currency,
		CategoryID:    rt.CategoryID,
		Description:   rt.Name + RecurringSuffix,
		Date:          date,
		CreditCardID:  rt.CreditCardID,
		BankAccountID: rt.BankAccountID,
		RecurringID:   rt.ID,
	}
}

func (c CreditCard) Validate() error {
	if len(strings.TrimSpace(c.Name)) == 0 {
		return ErrEmptyName
	}
	if c.Limit.Cents < 0 || c.Limit.Cents > MaxAmountCents {
		return ErrInvalidAmount
	}
	if err := c.Currency.Validate(); err != nil {
		return err
	}
	if c.CutOffDay < 1 || c.CutOffDay > 31 || c.PaymentDay < 1 || c.PaymentDay > 31 {
		return ErrInvalidDay
	}
	return nil
}

// Used returns the consumed amount in the given currency.
func (c CreditCard) Used(cur Currency) Money {
	return c.Usage.Get(cur)
}

// Available is the remaining limit in the card's own currency.
func (c CreditCard) Available() Money {
	return Money{Cents: c.Limit.Cents - c.Usage.Get(c.Currency).Cents}
}

func (a BankAccount) Validate() error {
	if len(strings.TrimSpace(a.Name)) == 0 {
		return ErrEmptyName
	}
	if a.Balance.Cents > MaxAmountCents || -a.Balance.Cents > MaxAmountCents {
		return ErrAmountTooLarge
	}
	return a.Currency.Validate()
}

func (p CreditCardPayment) Validate() error {
	if strings.TrimSpace(p.CreditCardID) == "" {
		return errors.New("credit card is required")
	}
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	if err := p.Currency.Validate(); err != nil {
		return err
	}
	return p.Date.Validate()
}
