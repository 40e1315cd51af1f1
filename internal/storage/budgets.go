package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gastos/internal/core"
)

type budgetRow struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	CategoryID  string    `db:"category_id"`
	AmountCents int64     `db:"amount_cents"`
	Period      string    `db:"period"`
	StartDate   core.Date `db:"start_date"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

const budgetColumns = `id, user_id, category_id, amount_cents, period, start_date, created_at, updated_at`

func (r budgetRow) toCore() core.Budget {
	return core.Budget{
		ID:         r.ID,
		UserID:     r.UserID,
		CategoryID: r.CategoryID,
		Amount:     core.Money{Cents: r.AmountCents},
		Period:     core.BudgetPeriod(r.Period),
		StartDate:  r.StartDate,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func (s *Store) CreateBudget(ctx context.Context, b *core.Budget) error {
	b.ID = newID(b.ID)
	b.CreatedAt = now()
	b.UpdatedAt = b.CreatedAt
	_, err := s.exec(ctx, `
		INSERT INTO budgets (`+budgetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.CategoryID, b.Amount.Cents, string(b.Period), b.StartDate, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return infraErr("create budget", err)
	}
	return nil
}

func (s *Store) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	var row budgetRow
	if err := s.get(ctx, &row, `SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id); err != nil {
		return core.Budget{}, lookupErr("budget", id, err)
	}
	return row.toCore(), nil
}

// BudgetIDForCategory returns the id of the user's budget on a category, or
// "" when there is none.
func (s *Store) BudgetIDForCategory(ctx context.Context, userID, categoryID string) (string, error) {
	var id string
	err := s.get(ctx, &id, `SELECT id FROM budgets WHERE user_id = ? AND category_id = ?`, userID, categoryID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", infraErr("find budget", err)
	}
	return id, nil
}

// ListBudgets returns a user's budgets ordered by category.
func (s *Store) ListBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	var rows []budgetRow
	err := s.selectAll(ctx, &rows, `
		SELECT `+budgetColumns+` FROM budgets
		WHERE user_id = ?
		ORDER BY category_id, id`, userID)
	if err != nil {
		return nil, infraErr("list budgets", err)
	}
	out := make([]core.Budget, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toCore())
	}
	return out, nil
}

func (s *Store) UpdateBudget(ctx context.Context, b *core.Budget) error {
	b.UpdatedAt = now()
	n, err := s.exec(ctx, `
		UPDATE budgets
		SET category_id = ?, amount_cents = ?, period = ?, start_date = ?, updated_at = ?
		WHERE id = ?`,
		b.CategoryID, b.Amount.Cents, string(b.Period), b.StartDate, b.UpdatedAt, b.ID)
	if err != nil {
		return infraErr("update budget", err)
	}
	if n == 0 {
		return &core.ErrNotFound{Resource: "budget", ID: b.ID}
	}
	return nil
}

func (s *Store) DeleteBudget(ctx context.Context, id string) error {
	n, err := s.exec(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return infraErr("delete budget", err)
	}
	if n == 0 {
		return &core.ErrNotFound{Resource: "budget", ID: id}
	}
	return nil
}
