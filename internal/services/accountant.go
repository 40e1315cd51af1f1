package services

import (
	"context"
	"fmt"

	"gastos/internal/core"
	"gastos/internal/storage"
)

// Accountant keeps credit card usage consistent with the ledger. It is the
// only code path that writes a card's used amounts: every change goes
// through RecomputeCardUsage, which re-aggregates from the ledger instead of
// applying deltas. All methods run on the caller's transaction.
type Accountant struct{}

func NewAccountant() *Accountant {
	return &Accountant{}
}

// RecomputeCardUsage locks the card and stores, per currency,
// max(0, linked expenses - linked payments).
func (a *Accountant) RecomputeCardUsage(ctx context.Context, s *storage.Store, cardID string) (core.CardUsage, error) {
	if cardID == "" {
		return core.CardUsage{}, nil
	}
	if _, err := s.LockCreditCard(ctx, cardID); err != nil {
		return core.CardUsage{}, err
	}

	expenses, err := s.SumCardExpenses(ctx, cardID)
	if err != nil {
		return core.CardUsage{}, err
	}
	payments, err := s.SumCardPayments(ctx, cardID)
	if err != nil {
		return core.CardUsage{}, err
	}

	usage := core.NewCardUsage(expenses, payments)
	if err := s.UpdateCardUsage(ctx, cardID, usage); err != nil {
		return core.CardUsage{}, err
	}
	return usage, nil
}

// EntryCreated applies a new ledger entry.
func (a *Accountant) EntryCreated(ctx context.Context, s *storage.Store, e core.LedgerEntry) error {
	return a.recompute(ctx, s, e.CreditCardID)
}

// EntryUpdated recomputes the previous card when the entry moved away from
// it or changed its amount or currency, then the current card.
func (a *Accountant) EntryUpdated(ctx context.Context, s *storage.Store, prev, cur core.LedgerEntry) error {
	if prev.CreditCardID != "" &&
		(prev.CreditCardID != cur.CreditCardID || prev.Currency != cur.Currency || prev.Amount != cur.Amount) {
		if err := a.recompute(ctx, s, prev.CreditCardID); err != nil {
			return err
		}
	}
	return a.recompute(ctx, s, cur.CreditCardID)
}

// EntryDeleted recomputes the former card after the entry is gone.
func (a *Accountant) EntryDeleted(ctx context.Context, s *storage.Store, prev core.LedgerEntry) error {
	return a.recompute(ctx, s, prev.CreditCardID)
}

// PaymentSaved recomputes the card a payment was moved from, if any, and the
// card it now belongs to. Pass a zero prev on create.
func (a *Accountant) PaymentSaved(ctx context.Context, s *storage.Store, prev, cur core.CreditCardPayment) error {
	if prev.CreditCardID != "" && prev.CreditCardID != cur.CreditCardID {
		if err := a.recompute(ctx, s, prev.CreditCardID); err != nil {
			return err
		}
	}
	return a.recompute(ctx, s, cur.CreditCardID)
}

func (a *Accountant) PaymentDeleted(ctx context.Context, s *storage.Store, prev core.CreditCardPayment) error {
	return a.recompute(ctx, s, prev.CreditCardID)
}

func (a *Accountant) recompute(ctx context.Context, s *storage.Store, cardID string) error {
	if _, err := a.RecomputeCardUsage(ctx, s, cardID); err != nil {
		return fmt.Errorf("recompute card %s usage: %w", cardID, err)
	}
	return nil
}
