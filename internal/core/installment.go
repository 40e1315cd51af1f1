package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Installment is a purchase paid in equal monthly quotas on a credit card.
// It is tracked for planning only and does not feed the card's usage.
type Installment struct {
	ID                 string
	UserID             string
	CreditCardID       string
	Description        string
	TotalAmount        Money
	Currency           Currency
	TotalInstallments  int
	CurrentInstallment int
	StartDate          Date
	Active             bool
	CreatedAt          time.Time
}

func (in Installment) Validate() error {
	if strings.TrimSpace(in.CreditCardID) == "" {
		return errors.New("credit card is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		return ErrEmptyDescription
	}
	if err := in.TotalAmount.Validate(); err != nil {
		return err
	}
	if err := in.Currency.Validate(); err != nil {
		return err
	}
	if in.TotalInstallments < 1 {
		return errors.New("total installments must be at least 1")
	}
	if in.CurrentInstallment < 1 || in.CurrentInstallment > in.TotalInstallments {
		return errors.New("current installment out of range")
	}
	return in.StartDate.Validate()
}

// MonthlyAmount is the total split evenly across installments, rounded to cents.
func (in Installment) MonthlyAmount() Money {
	if in.TotalInstallments <= 0 {
		return Money{}
	}
	return MoneyFromDecimal(in.TotalAmount.Decimal().Div(decimal.NewFromInt(int64(in.TotalInstallments))))
}

// RemainingAmount counts the current installment as still owed.
func (in Installment) RemainingAmount() Money {
	left := in.TotalInstallments - in.CurrentInstallment + 1
	if left <= 0 {
		return Money{}
	}
	return Money{Cents: in.MonthlyAmount().Cents * int64(left)}
}
