package core

import (
	"errors"

	"github.com/shopspring/decimal"
)

// DefaultExchangeRate is soles per dollar used until the user sets their own.
var DefaultExchangeRate = decimal.RequireFromString("3.7500")

// UserSettings holds per-user preferences.
type UserSettings struct {
	UserID       string
	ExchangeRate decimal.Decimal // PEN per USD
}

func DefaultSettings(userID string) UserSettings {
	return UserSettings{UserID: userID, ExchangeRate: DefaultExchangeRate}
}

func (s UserSettings) Validate() error {
	if !s.ExchangeRate.IsPositive() {
		return errors.New("exchange rate must be positive")
	}
	return nil
}

// ToPEN converts m expressed in cur into soles using the user's rate.
func (s UserSettings) ToPEN(m Money, cur Currency) Money {
	if cur != USD {
		return m
	}
	return MoneyFromDecimal(m.Decimal().Mul(s.ExchangeRate))
}
