package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gastos/internal/core"

	"github.com/shopspring/decimal"
)

type userRow struct {
	ID           string          `db:"id"`
	Email        string          `db:"email"`
	ExchangeRate decimal.Decimal `db:"exchange_rate"`
	CreatedAt    time.Time       `db:"created_at"`
}

// CreateUser registers a user with the default exchange rate. Creating an
// existing user is a no-op.
func (s *Store) CreateUser(ctx context.Context, id, email string) error {
	_, err := s.exec(ctx, `
		INSERT INTO users (id, email, exchange_rate, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		id, email, core.DefaultExchangeRate, now())
	if err != nil {
		return infraErr("create user", err)
	}
	return nil
}

// ListUserIDs returns every user, oldest first.
func (s *Store) ListUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.selectAll(ctx, &ids, `SELECT id FROM users ORDER BY created_at, id`); err != nil {
		return nil, infraErr("list users", err)
	}
	return ids, nil
}

// GetSettings returns the user's settings, falling back to defaults for
// users the store does not know.
func (s *Store) GetSettings(ctx context.Context, userID string) (core.UserSettings, error) {
	var row userRow
	err := s.get(ctx, &row, `SELECT id, email, exchange_rate, created_at FROM users WHERE id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DefaultSettings(userID), nil
	}
	if err != nil {
		return core.UserSettings{}, infraErr("get user settings", err)
	}
	return core.UserSettings{UserID: row.ID, ExchangeRate: row.ExchangeRate}, nil
}

func (s *Store) UpdateExchangeRate(ctx context.Context, userID string, rate decimal.Decimal) error {
	n, err := s.exec(ctx, `UPDATE users SET exchange_rate = ? WHERE id = ?`, rate.StringFixed(4), userID)
	if err != nil {
		return infraErr("update exchange rate", err)
	}
	if n == 0 {
		return &core.ErrNotFound{Resource: "user", ID: userID}
	}
	return nil
}

// CreateCategory stores a category reference. userID may be empty for
// categories shared by every user.
func (s *Store) CreateCategory(ctx context.Context, id, userID, name string) error {
	_, err := s.exec(ctx, `
		INSERT INTO categories (id, user_id, name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		id, nullable(userID), name, now())
	if err != nil {
		return infraErr("create category", err)
	}
	return nil
}

func (s *Store) CategoryExists(ctx context.Context, id string) (bool, error) {
	var n int
	if err := s.get(ctx, &n, `SELECT COUNT(*) FROM categories WHERE id = ?`, id); err != nil {
		return false, infraErr("check category", err)
	}
	return n > 0, nil
}
