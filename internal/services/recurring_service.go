package services

import (
	"context"
	"fmt"

	"gastos/internal/core"
	"gastos/internal/storage"
)

// RecurringService manages fixed transaction definitions.
type RecurringService struct {
	repo *storage.Repository
}

func NewRecurringService(repo *storage.Repository) *RecurringService {
	return &RecurringService{repo: repo}
}

// Create stores a new active definition after checking its references
// belong to the user.
func (s *RecurringService) Create(ctx context.Context, rt core.RecurringTransaction) (core.RecurringTransaction, error) {
	rt.Active = true
	rt.LastProcessedDate = nil
	if err := rt.Validate(); err != nil {
		return core.RecurringTransaction{}, core.Invalid("recurring_transaction", err)
	}

	err := s.repo.WithTx(ctx, func(st *storage.Store) error {
		if err := checkRecurringRefs(ctx, st, rt); err != nil {
			return err
		}
		return st.CreateRecurring(ctx, &rt)
	})
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("create recurring transaction: %w", err)
	}
	return rt, nil
}

// Update replaces the editable fields of a definition: kind, name, amount,
// currency, day, category and instrument. Active state, creation time and
// the processing watermark are kept from the stored row.
func (s *RecurringService) Update(ctx context.Context, rt core.RecurringTransaction) (core.RecurringTransaction, error) {
	var out core.RecurringTransaction
	err := s.repo.WithTx(ctx, func(st *storage.Store) error {
		prev, err := st.LockRecurring(ctx, rt.ID)
		if err != nil {
			return err
		}
		if prev.UserID != rt.UserID {
			return &core.ErrNotFound{Resource: "recurring transaction", ID: rt.ID}
		}
		rt.Active = prev.Active
		rt.CreatedAt = prev.CreatedAt
		rt.LastProcessedDate = prev.LastProcessedDate
		if err := rt.Validate(); err != nil {
			return core.Invalid("recurring_transaction", err)
		}
		if err := checkRecurringRefs(ctx, st, rt); err != nil {
			return err
		}
		if err := st.UpdateRecurring(ctx, rt); err != nil {
			return err
		}
		out = rt
		return nil
	})
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("update recurring transaction: %w", err)
	}
	return out, nil
}

// Delete removes a definition. Entries it already materialized stay in the
// ledger and lose their link.
func (s *RecurringService) Delete(ctx context.Context, userID, id string) error {
	return s.repo.WithTx(ctx, func(st *storage.Store) error {
		if _, err := ownedRecurring(ctx, st, userID, id); err != nil {
			return err
		}
		return st.DeleteRecurring(ctx, id)
	})
}

func (s *RecurringService) Get(ctx context.Context, userID, id string) (core.RecurringTransaction, error) {
	return ownedRecurring(ctx, s.repo.Store, userID, id)
}

func (s *RecurringService) List(ctx context.Context, userID string, activeOnly bool) ([]core.RecurringTransaction, error) {
	return s.repo.ListRecurring(ctx, userID, activeOnly)
}

func (s *RecurringService) SetActive(ctx context.Context, userID, id string, active bool) (core.RecurringTransaction, error) {
	rt, err := ownedRecurring(ctx, s.repo.Store, userID, id)
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	if err := s.repo.SetRecurringActive(ctx, id, active); err != nil {
		return core.RecurringTransaction{}, err
	}
	rt.Active = active
	return rt, nil
}

func ownedRecurring(ctx context.Context, st *storage.Store, userID, id string) (core.RecurringTransaction, error) {
	rt, err := st.GetRecurring(ctx, id)
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	if rt.UserID != userID {
		return core.RecurringTransaction{}, &core.ErrNotFound{Resource: "recurring transaction", ID: id}
	}
	return rt, nil
}

func checkRecurringRefs(ctx context.Context, st *storage.Store, rt core.RecurringTransaction) error {
	ok, err := st.CategoryExists(ctx, rt.CategoryID)
	if err != nil {
		return err
	}
	if !ok {
		return &core.ErrValidation{Field: "category_id", Message: fmt.Sprintf("unknown category %q", rt.CategoryID)}
	}
	if rt.CreditCardID != "" {
		if _, err := ownedCard(ctx, st, rt.UserID, rt.CreditCardID); err != nil {
			return err
		}
	}
	if rt.BankAccountID != "" {
		if _, err := ownedAccount(ctx, st, rt.UserID, rt.BankAccountID); err != nil {
			return err
		}
	}
	return nil
}
