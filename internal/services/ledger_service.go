package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gastos/internal/amqp"
	"gastos/internal/core"
	"gastos/internal/metrics"
	"gastos/internal/storage"
)

// LedgerService creates, edits and removes expenses, incomes and credit
// card payments. Every mutation and its card usage recompute share one
// database transaction.
type LedgerService struct {
	repo       *storage.Repository
	accountant *Accountant
	events     EventPublisher
	metrics    *metrics.Metrics
}

func NewLedgerService(repo *storage.Repository, accountant *Accountant, events EventPublisher, m *metrics.Metrics) *LedgerService {
	return &LedgerService{
		repo:       repo,
		accountant: accountant,
		events:     events,
		metrics:    m,
	}
}

func (s *LedgerService) CreateEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	ctx, span := tracer.Start(ctx, "LedgerService.CreateEntry")
	defer span.End()
	defer s.metrics.ObserveDuration("ledger.create_entry", time.Now())

	if err := e.Validate(); err != nil {
		return core.LedgerEntry{}, core.Invalid("entry", err)
	}

	err := s.repo.WithTx(ctx, func(st *storage.Store) error {
		if err := checkEntryRefs(ctx, st, e); err != nil {
			return err
		}
		if err := st.CreateEntry(ctx, &e); err != nil {
			return err
		}
		return s.accountant.EntryCreated(ctx, st, e)
	})
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("create %s: %w", e.Kind, err)
	}

	s.metrics.IncLedgerMutation(string(e.Kind), "create")
	slog.InfoContext(ctx, "Ledger entry created",
		"id", e.ID,
		"kind", e.Kind,
		"amount", e.Amount.String(),
		"currency", e.Currency,
		"credit_card_id", e.CreditCardID)
	publishEvent(ctx, s.events, amqp.EventCreated, string(e.Kind), e.ID, e.UserID)
	return e, nil
}

// UpdateEntry replaces the editable fields of an existing entry. The stored
// kind is kept; a non-empty e.Kind must match it.
func (s *LedgerService) UpdateEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	ctx, span := tracer.Start(ctx, "LedgerService.UpdateEntry")
	defer span.End()
	defer s.metrics.ObserveDuration("ledger.update_entry", time.Now())

	err := s.repo.WithTx(ctx, func(st *storage.Store) error {
		prev, err := ownedEntry(ctx, st, e.UserID, e.ID)
		if err != nil {
			return err
		}
		if e.Kind != "" && e.Kind != prev.Kind {
			return &core.ErrNotFound{Resource: string(e.Kind), ID: e.ID}
		}
		e.Kind = prev.Kind
		e.RecurringID = prev.RecurringID
		e.CreatedAt = prev.CreatedAt
		if err := e.Validate(); err != nil {
			return core.Invalid("entry", err)
		}
		if err := checkEntryRefs(ctx, st, e); err != nil {
			return err
		}
		if err := st.UpdateEntry(ctx, e); err != nil {
			return err
		}
		return s.accountant.EntryUpdated(ctx, st, prev, e)
	})
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("update entry: %w", err)
	}

	s.metrics.IncLedgerMutation(string(e.Kind), "update")
	publishEvent(ctx, s.events, amqp.EventUpdated, string(e.Kind), e.ID, e.UserID)
	return e, nil
}

func (s *LedgerService) DeleteEntry(ctx context.Context, userID, id string) error {
	ctx, span := tracer.Start(ctx, "LedgerService.DeleteEntry")
	defer span.End()

	var prev core.LedgerEntry
	err := s.repo.WithTx(ctx, func(st *storage.Store) error {
		var err error
		if prev, err = ownedEntry(ctx, st, userID, id); err != nil {
			return err
		}
		if err := st.DeleteEntry(ctx, id); err != nil {
			return err
		}
		return s.accountant.EntryDeleted(ctx, st, prev)
	})
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}

	s.metrics.IncLedgerMutation(string(prev.Kind), "delete")
	publishEvent(ctx, s.events, amqp.EventDeleted, string(prev.Kind), id, userID)
	return nil
}

func (s *LedgerService) GetEntry(ctx context.Context, userID, id string) (core.LedgerEntry, error) {
	return ownedEntry(ctx, s.repo.Store, userID, id)
}

func (s *LedgerService) ListEntries(ctx context.Context, f storage.EntryFilter) ([]core.LedgerEntry, error) {
	return s.repo.ListEntries(ctx, f)
}

func (s *LedgerService) CreatePayment(ctx context.Context, p core.CreditCardPayment) (core.CreditCardPayment, error) {
	ctx, span := tracer.Start(ctx, "LedgerService.CreatePayment")
	defer span.End()

	if err := p.Validate(); err != nil {
		return core.CreditCardPayment{}, core.Invalid("payment", err)
	}

	err := s.repo.WithTx(ctx, func(st *storage.Store) error {
		if err := checkPaymentRefs(ctx, st, p); err != nil {
			return err
		}
		if err := st.CreatePayment(ctx, &p); err != nil {
			return err
		}
		return s.accountant.PaymentSaved(ctx, st, core.CreditCardPayment{}, p)
	})
	if err != nil {
		return core.CreditCardPayment{}, fmt.Errorf("create payment: %w", err)
	}

	s.metrics.IncLedgerMutation("payment", "create")
	publishEvent(ctx, s.events, amqp.EventCreated, "payment", p.ID, p.UserID)
	return p, nil
}

func (s *LedgerService) UpdatePayment(ctx context.Context, p core.CreditCardPayment) (core.CreditCardPayment, error) {
	ctx, span := tracer.Start(ctx, "LedgerService.UpdatePayment")
	defer span.End()

	if err := p.Validate(); err != nil {
		return core.CreditCardPayment{}, core.Invalid("payment", err)
	}

	err := s.repo.WithTx(ctx, func(st *storage.Store) error {
		prev, err := ownedPayment(ctx, st, p.UserID, p.ID)
		if err != nil {
			return err
		}
		p.CreatedAt = prev.CreatedAt
		if err := checkPaymentRefs(ctx, st, p); err != nil {
			return err
		}
		if err := st.UpdatePayment(ctx, p); err != nil {
			return err
		}
		return s.accountant.PaymentSaved(ctx, st, prev, p)
	})
	if err != nil {
		return core.CreditCardPayment{}, fmt.Errorf("update payment: %w", err)
	}

	s.metrics.IncLedgerMutation("payment", "update")
	publishEvent(ctx, s.events, amqp.EventUpdated, "payment", p.ID, p.UserID)
	return p, nil
}

func (s *LedgerService) DeletePayment(ctx context.Context, userID, id string) error {
	ctx, span := tracer.Start(ctx, "LedgerService.DeletePayment")
	defer span.End()

	err := s.repo.WithTx(ctx, func(st *storage.Store) error {
		prev, err := ownedPayment(ctx, st, userID, id)
		if err != nil {
			return err
		}
		if err := st.DeletePayment(ctx, id); err != nil {
			return err
		}
		return s.accountant.PaymentDeleted(ctx, st, prev)
	})
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}

	s.metrics.IncLedgerMutation("payment", "delete")
	publishEvent(ctx, s.events, amqp.EventDeleted, "payment", id, userID)
	return nil
}

func (s *LedgerService) ListPayments(ctx context.Context, userID, cardID string) ([]core.CreditCardPayment, error) {
	return s.repo.ListPayments(ctx, userID, cardID)
}

// ownedEntry loads an entry and hides entries of other users.
func ownedEntry(ctx context.Context, st *storage.Store, userID, id string) (core.LedgerEntry, error) {
	e, err := st.GetEntry(ctx, id)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	if e.UserID != userID {
		return core.LedgerEntry{}, &core.ErrNotFound{Resource: "ledger entry", ID: id}
	}
	return e, nil
}

func ownedPayment(ctx context.Context, st *storage.Store, userID, id string) (core.CreditCardPayment, error) {
	p, err := st.GetPayment(ctx, id)
	if err != nil {
		return core.CreditCardPayment{}, err
	}
	if p.UserID != userID {
		return core.CreditCardPayment{}, &core.ErrNotFound{Resource: "credit card payment", ID: id}
	}
	return p, nil
}

func ownedCard(ctx context.Context, st *storage.Store, userID, id string) (core.CreditCard, error) {
	c, err := st.GetCreditCard(ctx, id)
	if err != nil {
		return core.CreditCard{}, err
	}
	if c.UserID != userID {
		return core.CreditCard{}, &core.ErrNotFound{Resource: "credit card", ID: id}
	}
	return c, nil
}

func ownedAccount(ctx context.Context, st *storage.Store, userID, id string) (core.BankAccount, error) {
	a, err := st.GetBankAccount(ctx, id)
	if err != nil {
		return core.BankAccount{}, err
	}
	if a.UserID != userID {
		return core.BankAccount{}, &core.ErrNotFound{Resource: "bank account", ID: id}
	}
	return a, nil
}

func checkEntryRefs(ctx context.Context, st *storage.Store, e core.LedgerEntry) error {
	ok, err := st.CategoryExists(ctx, e.CategoryID)
	if err != nil {
		return err
	}
	if !ok {
		return &core.ErrValidation{Field: "category_id", Message: fmt.Sprintf("unknown category %q", e.CategoryID)}
	}
	if e.CreditCardID != "" {
		if _, err := ownedCard(ctx, st, e.UserID, e.CreditCardID); err != nil {
			return err
		}
	}
	if e.BankAccountID != "" {
		if _, err := ownedAccount(ctx, st, e.UserID, e.BankAccountID); err != nil {
			return err
		}
	}
	return nil
}

func checkPaymentRefs(ctx context.Context, st *storage.Store, p core.CreditCardPayment) error {
	if _, err := ownedCard(ctx, st, p.UserID, p.CreditCardID); err != nil {
		return err
	}
	if p.BankAccountID != "" {
		if _, err := ownedAccount(ctx, st, p.UserID, p.BankAccountID); err != nil {
			return err
		}
	}
	return nil
}
