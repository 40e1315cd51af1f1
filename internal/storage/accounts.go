package storage

import (
	"context"
	"database/sql"
	"time"

	"gastos/internal/core"
)

type bankAccountRow struct {
	ID               string       `db:"id"`
	UserID           string       `db:"user_id"`
	Name             string       `db:"name"`
	LastFourDigits   string       `db:"last_four_digits"`
	BalanceCents     int64        `db:"balance_cents"`
	Currency         string       `db:"currency"`
	SubtractExpenses bool         `db:"subtract_expenses"`
	AddIncomes       bool         `db:"add_incomes"`
	BalanceResetAt   sql.NullTime `db:"balance_reset_at"`
	CreatedAt        time.Time    `db:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at"`
}

const bankAccountColumns = `id, user_id, name, last_four_digits, balance_cents, currency,
	subtract_expenses, add_incomes, balance_reset_at, created_at, updated_at`

func (r bankAccountRow) toCore() core.BankAccount {
	a := core.BankAccount{
		ID:               r.ID,
		UserID:           r.UserID,
		Name:             r.Name,
		LastFourDigits:   r.LastFourDigits,
		Balance:          core.Money{Cents: r.BalanceCents},
		Currency:         core.Currency(r.Currency),
		SubtractExpenses: r.SubtractExpenses,
		AddIncomes:       r.AddIncomes,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.BalanceResetAt.Valid {
		t := r.BalanceResetAt.Time
		a.BalanceResetAt = &t
	}
	return a
}

func (s *Store) CreateBankAccount(ctx context.Context, a *core.BankAccount) error {
	a.ID = newID(a.ID)
	a.CreatedAt = now()
	a.UpdatedAt = a.CreatedAt
	var resetAt sql.NullTime
	if a.BalanceResetAt != nil {
		resetAt = sql.NullTime{Time: a.BalanceResetAt.UTC(), Valid: true}
	}
	_, err := s.exec(ctx, `
		INSERT INTO bank_accounts (`+bankAccountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, a.LastFourDigits, a.Balance.Cents, string(a.Currency),
		a.SubtractExpenses, a.AddIncomes, resetAt, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return infraErr("create bank account", err)
	}
	return nil
}

func (s *Store) GetBankAccount(ctx context.Context, id string) (core.BankAccount, error) {
	var row bankAccountRow
	if err := s.get(ctx, &row, `SELECT `+bankAccountColumns+` FROM bank_accounts WHERE id = ?`, id); err != nil {
		return core.BankAccount{}, lookupErr("bank account", id, err)
	}
	return row.toCore(), nil
}

// LockBankAccount reads the account and holds its row lock until the
// surrounding transaction ends.
func (s *Store) LockBankAccount(ctx context.Context, id string) (core.BankAccount, error) {
	var row bankAccountRow
	q := s.forUpdate(`SELECT ` + bankAccountColumns + ` FROM bank_accounts WHERE id = ?`)
	if err := s.get(ctx, &row, q, id); err != nil {
		return core.BankAccount{}, lookupErr("bank account", id, err)
	}
	return row.toCore(), nil
}

func (s *Store) ListBankAccounts(ctx context.Context, userID string) ([]core.BankAccount, error) {
	var rows []bankAccountRow
	err := s.selectAll(ctx, &rows, `
		SELECT `+bankAccountColumns+` FROM bank_accounts
		WHERE user_id = ?
		ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, infraErr("list bank accounts", err)
	}
	out := make([]core.BankAccount, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toCore())
	}
	return out, nil
}

// FirstBankAccount returns the user's oldest account in currency, if any.
func (s *Store) FirstBankAccount(ctx context.Context, userID string, currency core.Currency) (core.BankAccount, bool, error) {
	var rows []bankAccountRow
	err := s.selectAll(ctx, &rows, `
		SELECT `+bankAccountColumns+` FROM bank_accounts
		WHERE user_id = ? AND currency = ?
		ORDER BY created_at, id
		LIMIT 1`, userID, string(currency))
	if err != nil {
		return core.BankAccount{}, false, infraErr("find bank account", err)
	}
	if len(rows) == 0 {
		return core.BankAccount{}, false, nil
	}
	return rows[0].toCore(), true, nil
}

// SetBankBalance overwrites the stored balance. A non-nil resetAt also moves
// the reset timestamp, so only entries dated from then on count toward the
// computed balance.
func (s *Store) SetBankBalance(ctx context.Context, id string, balance core.Money, resetAt *time.Time) error {
	var (
		n   int64
		err error
	)
	if resetAt != nil {
		n, err = s.exec(ctx, `
			UPDATE bank_accounts SET balance_cents = ?, balance_reset_at = ?, updated_at = ?
			WHERE id = ?`, balance.Cents, resetAt.UTC(), now(), id)
	} else {
		n, err = s.exec(ctx, `
			UPDATE bank_accounts SET balance_cents = ?, updated_at = ?
			WHERE id = ?`, balance.Cents, now(), id)
	}
	if err != nil {
		return infraErr("update bank balance", err)
	}
	if n == 0 {
		return &core.ErrNotFound{Resource: "bank account", ID: id}
	}
	return nil
}

// EnableAddIncomes turns on income inclusion for every account that has it
// off and reports how many were changed.
func (s *Store) EnableAddIncomes(ctx context.Context) (int64, error) {
	n, err := s.exec(ctx, `UPDATE bank_accounts SET add_incomes = ?, updated_at = ? WHERE add_incomes = ?`, true, now(), false)
	if err != nil {
		return 0, infraErr("enable add incomes", err)
	}
	return n, nil
}
