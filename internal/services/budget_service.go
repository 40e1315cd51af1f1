package services

import (
	"context"
	"fmt"

	"gastos/internal/core"
	"gastos/internal/storage"
)

// BudgetService manages per-category spending caps and measures them
// against the ledger.
type BudgetService struct {
	repo  *storage.Repository
	stats *StatsService
}

func NewBudgetService(repo *storage.Repository, stats *StatsService) *BudgetService {
	return &BudgetService{repo: repo, stats: stats}
}

func (s *BudgetService) Create(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, core.Invalid("budget", err)
	}
	err := s.repo.WithTx(ctx, func(st *storage.Store) error {
		if err := checkBudgetCategory(ctx, st, b); err != nil {
			return err
		}
		return st.CreateBudget(ctx, &b)
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	return b, nil
}

// Update replaces category, amount, period and start date. Moving a budget
// onto a category that already has one is rejected.
func (s *BudgetService) Update(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, core.Invalid("budget", err)
	}
	err := s.repo.WithTx(ctx, func(st *storage.Store) error {
		prev, err := ownedBudget(ctx, st, b.UserID, b.ID)
		if err != nil {
			return err
		}
		if err := checkBudgetCategory(ctx, st, b); err != nil {
			return err
		}
		b.CreatedAt = prev.CreatedAt
		return st.UpdateBudget(ctx, &b)
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	return b, nil
}

func (s *BudgetService) Delete(ctx context.Context, userID, id string) error {
	return s.repo.WithTx(ctx, func(st *storage.Store) error {
		if _, err := ownedBudget(ctx, st, userID, id); err != nil {
			return err
		}
		return st.DeleteBudget(ctx, id)
	})
}

func (s *BudgetService) Get(ctx context.Context, userID, id string) (core.Budget, error) {
	return ownedBudget(ctx, s.repo.Store, userID, id)
}

func (s *BudgetService) List(ctx context.Context, userID string) ([]core.Budget, error) {
	return s.repo.ListBudgets(ctx, userID)
}

// Status measures every budget of the user against the expenses of the
// period containing today. Dollar expenses count at the user's rate.
func (s *BudgetService) Status(ctx context.Context, userID string, today core.Date) ([]core.BudgetStatus, error) {
	budgets, err := s.repo.ListBudgets(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(budgets) == 0 {
		return []core.BudgetStatus{}, nil
	}
	settings, err := s.stats.Settings(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]core.BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		from, to := b.Window(today)
		sums, _, err := s.repo.CategorySums(ctx, userID, core.KindExpense, from, to)
		if err != nil {
			return nil, fmt.Errorf("budget %s: %w", b.ID, err)
		}
		var spent core.Money
		for _, sum := range sums {
			if sum.CategoryID == b.CategoryID {
				spent = spent.Add(settings.ToPEN(sum.Amount, sum.Currency))
			}
		}
		out = append(out, core.NewBudgetStatus(b, from, to, spent))
	}
	return out, nil
}

func ownedBudget(ctx context.Context, st *storage.Store, userID, id string) (core.Budget, error) {
	b, err := st.GetBudget(ctx, id)
	if err != nil {
		return core.Budget{}, err
	}
	if b.UserID != userID {
		return core.Budget{}, &core.ErrNotFound{Resource: "budget", ID: id}
	}
	return b, nil
}

// checkBudgetCategory requires a known category with no other budget of
// the same user on it.
func checkBudgetCategory(ctx context.Context, st *storage.Store, b core.Budget) error {
	ok, err := st.CategoryExists(ctx, b.CategoryID)
	if err != nil {
		return err
	}
	if !ok {
		return &core.ErrValidation{Field: "category_id", Message: fmt.Sprintf("unknown category %q", b.CategoryID)}
	}
	existing, err := st.BudgetIDForCategory(ctx, b.UserID, b.CategoryID)
	if err != nil {
		return err
	}
	if existing != "" && existing != b.ID {
		return &core.ErrValidation{Field: "category_id", Message: fmt.Sprintf("a budget for category %q already exists", b.CategoryID)}
	}
	return nil
}
