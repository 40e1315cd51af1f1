package storage

import (
	"context"
	"database/sql"
	"time"

	"gastos/internal/core"
)

type recurringRow struct {
	ID                string         `db:"id"`
	UserID            string         `db:"user_id"`
	Kind              string         `db:"kind"`
	Name              string         `db:"name"`
	AmountCents       int64          `db:"amount_cents"`
	Currency          string         `db:"currency"`
	DayOfMonth        int            `db:"day_of_month"`
	CategoryID        string         `db:"category_id"`
	CreditCardID      sql.NullString `db:"credit_card_id"`
	BankAccountID     sql.NullString `db:"bank_account_id"`
	Active            bool           `db:"active"`
	CreatedAt         time.Time      `db:"created_at"`
	LastProcessedDate *core.Date     `db:"last_processed_date"`
}

const recurringColumns = `id, user_id, kind, name, amount_cents, currency, day_of_month, category_id,
	credit_card_id, bank_account_id, active, created_at, last_processed_date`

func (r recurringRow) toCore() core.RecurringTransaction {
	return core.RecurringTransaction{
		ID:                r.ID,
		UserID:            r.UserID,
		Kind:              core.EntryKind(r.Kind),
		Name:              r.Name,
		Amount:            core.Money{Cents: r.AmountCents},
		Currency:          core.Currency(r.Currency),
		DayOfMonth:        r.DayOfMonth,
		CategoryID:        r.CategoryID,
		CreditCardID:      r.CreditCardID.String,
		BankAccountID:     r.BankAccountID.String,
		Active:            r.Active,
		CreatedAt:         r.CreatedAt,
		LastProcessedDate: r.LastProcessedDate,
	}
}

func collectRecurring(rows []recurringRow) []core.RecurringTransaction {
	out := make([]core.RecurringTransaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toCore())
	}
	return out
}

// CreateRecurring stores a definition. A zero CreatedAt is set to now; a
// caller-provided one is kept so definitions can be back-dated.
func (s *Store) CreateRecurring(ctx context.Context, rt *core.RecurringTransaction) error {
	rt.ID = newID(rt.ID)
	if rt.CreatedAt.IsZero() {
		rt.CreatedAt = now()
	}
	_, err := s.exec(ctx, `
		INSERT INTO recurring_transactions (`+recurringColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rt.ID, rt.UserID, string(rt.Kind), rt.Name, rt.Amount.Cents, string(rt.Currency), rt.DayOfMonth,
		rt.CategoryID, nullable(rt.CreditCardID), nullable(rt.BankAccountID), rt.Active,
		rt.CreatedAt.UTC(), rt.LastProcessedDate)
	if err != nil {
		return infraErr("create recurring transaction", err)
	}
	return nil
}

func (s *Store) GetRecurring(ctx context.Context, id string) (core.RecurringTransaction, error) {
	var row recurringRow
	if err := s.get(ctx, &row, `SELECT `+recurringColumns+` FROM recurring_transactions WHERE id = ?`, id); err != nil {
		return core.RecurringTransaction{}, lookupErr("recurring transaction", id, err)
	}
	return row.toCore(), nil
}

// LockRecurring reads the definition and holds its row lock until the
// surrounding transaction ends.
func (s *Store) LockRecurring(ctx context.Context, id string) (core.RecurringTransaction, error) {
	var row recurringRow
	q := s.forUpdate(`SELECT ` + recurringColumns + ` FROM recurring_transactions WHERE id = ?`)
	if err := s.get(ctx, &row, q, id); err != nil {
		return core.RecurringTransaction{}, lookupErr("recurring transaction", id, err)
	}
	return row.toCore(), nil
}

// UpdateRecurring rewrites the user-editable fields of a definition. The
// owner, creation time and processing watermark are left as stored.
func (s *Store) UpdateRecurring(ctx context.Context, rt core.RecurringTransaction) error {
	n, err := s.exec(ctx, `
		UPDATE recurring_transactions
		SET kind = ?, name = ?, amount_cents = ?, currency = ?, day_of_month = ?, category_id = ?,
			credit_card_id = ?, bank_account_id = ?, active = ?
		WHERE id = ?`,
		string(rt.Kind), rt.Name, rt.Amount.Cents, string(rt.Currency), rt.DayOfMonth, rt.CategoryID,
		nullable(rt.CreditCardID), nullable(rt.BankAccountID), rt.Active, rt.ID)
	if err != nil {
		return infraErr("update recurring transaction", err)
	}
	if n == 0 {
		return &core.ErrNotFound{Resource: "recurring transaction", ID: rt.ID}
	}
	return nil
}

func (s *Store) DeleteRecurring(ctx context.Context, id string) error {
	n, err := s.exec(ctx, `DELETE FROM recurring_transactions WHERE id = ?`, id)
	if err != nil {
		return infraErr("delete recurring transaction", err)
	}
	if n == 0 {
		return &core.ErrNotFound{Resource: "recurring transaction", ID: id}
	}
	return nil
}

// ListRecurring returns a user's definitions ordered by day of month.
func (s *Store) ListRecurring(ctx context.Context, userID string, activeOnly bool) ([]core.RecurringTransaction, error) {
	q := `SELECT ` + recurringColumns + ` FROM recurring_transactions WHERE user_id = ?`
	args := []any{userID}
	if activeOnly {
		q += ` AND active = ?`
		args = append(args, true)
	}
	q += ` ORDER BY day_of_month, name, id`

	var rows []recurringRow
	if err := s.selectAll(ctx, &rows, q, args...); err != nil {
		return nil, infraErr("list recurring transactions", err)
	}
	return collectRecurring(rows), nil
}

// ListAccountFixed returns the active definitions linked to a bank account in
// currency whose day of month is at most maxDay.
func (s *Store) ListAccountFixed(ctx context.Context, accountID string, currency core.Currency, maxDay int) ([]core.RecurringTransaction, error) {
	var rows []recurringRow
	err := s.selectAll(ctx, &rows, `
		SELECT `+recurringColumns+` FROM recurring_transactions
		WHERE bank_account_id = ? AND currency = ? AND active = ? AND day_of_month <= ?
		ORDER BY day_of_month, id`, accountID, string(currency), true, maxDay)
	if err != nil {
		return nil, infraErr("list account fixed transactions", err)
	}
	return collectRecurring(rows), nil
}

// ListUnassignedRecurring returns definitions linked to neither a card nor a
// bank account.
func (s *Store) ListUnassignedRecurring(ctx context.Context) ([]core.RecurringTransaction, error) {
	var rows []recurringRow
	err := s.selectAll(ctx, &rows, `
		SELECT `+recurringColumns+` FROM recurring_transactions
		WHERE bank_account_id IS NULL AND credit_card_id IS NULL
		ORDER BY user_id, created_at, id`)
	if err != nil {
		return nil, infraErr("list unassigned recurring transactions", err)
	}
	return collectRecurring(rows), nil
}

func (s *Store) SetRecurringAccount(ctx context.Context, id, accountID string) error {
	n, err := s.exec(ctx, `UPDATE recurring_transactions SET bank_account_id = ? WHERE id = ?`, accountID, id)
	if err != nil {
		return infraErr("assign recurring account", err)
	}
	if n == 0 {
		return &core.ErrNotFound{Resource: "recurring transaction", ID: id}
	}
	return nil
}

func (s *Store) SetRecurringActive(ctx context.Context, id string, active bool) error {
	n, err := s.exec(ctx, `UPDATE recurring_transactions SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return infraErr("set recurring active", err)
	}
	if n == 0 {
		return &core.ErrNotFound{Resource: "recurring transaction", ID: id}
	}
	return nil
}

// SetLastProcessedDate moves the processing watermark of a definition.
func (s *Store) SetLastProcessedDate(ctx context.Context, id string, d core.Date) error {
	n, err := s.exec(ctx, `UPDATE recurring_transactions SET last_processed_date = ? WHERE id = ?`, d, id)
	if err != nil {
		return infraErr("set last processed date", err)
	}
	if n == 0 {
		return &core.ErrNotFound{Resource: "recurring transaction", ID: id}
	}
	return nil
}
