package storage

import (
	"context"
	"database/sql"
	"time"

	"gastos/internal/core"
)

type entryRow struct {
	ID            string         `db:"id"`
	UserID        string         `db:"user_id"`
	Kind          string         `db:"kind"`
	AmountCents   int64          `db:"amount_cents"`
	Currency      string         `db:"currency"`
	CategoryID    string         `db:"category_id"`
	Description   string         `db:"description"`
	Date          core.Date      `db:"date"`
	CreditCardID  sql.NullString `db:"credit_card_id"`
	BankAccountID sql.NullString `db:"bank_account_id"`
	RecurringID   sql.NullString `db:"recurring_id"`
	CreatedAt     time.Time      `db:"created_at"`
}

const entryColumns = `id, user_id, kind, amount_cents, currency, category_id, description,
	date, credit_card_id, bank_account_id, recurring_id, created_at`

func (r entryRow) toCore() core.LedgerEntry {
	return core.LedgerEntry{
		ID:            r.ID,
		UserID:        r.UserID,
		Kind:          core.EntryKind(r.Kind),
		Amount:        core.Money{Cents: r.AmountCents},
		Currency:      core.Currency(r.Currency),
		CategoryID:    r.CategoryID,
		Description:   r.Description,
		Date:          r.Date,
		CreditCardID:  r.CreditCardID.String,
		BankAccountID: r.BankAccountID.String,
		RecurringID:   r.RecurringID.String,
		CreatedAt:     r.CreatedAt,
	}
}

// EntryFilter narrows ListEntries. Zero values match everything.
type EntryFilter struct {
	UserID       string
	Kind         core.EntryKind
	From, To     core.Date // inclusive
	CreditCardID string
	CategoryID   string
	Limit        int
}

func (s *Store) CreateEntry(ctx context.Context, e *core.LedgerEntry) error {
	e.ID = newID(e.ID)
	e.CreatedAt = now()
	_, err := s.exec(ctx, `
		INSERT INTO ledger_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, string(e.Kind), e.Amount.Cents, string(e.Currency), e.CategoryID, e.Description,
		e.Date, nullable(e.CreditCardID), nullable(e.BankAccountID), nullable(e.RecurringID), e.CreatedAt)
	if err != nil {
		return infraErr("create ledger entry", err)
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, id string) (core.LedgerEntry, error) {
	var row entryRow
	if err := s.get(ctx, &row, `SELECT `+entryColumns+` FROM ledger_entries WHERE id = ?`, id); err != nil {
		return core.LedgerEntry{}, lookupErr("ledger entry", id, err)
	}
	return row.toCore(), nil
}

// UpdateEntry rewrites the mutable fields of an entry. Kind, owner and the
// recurring link never change.
func (s *Store) UpdateEntry(ctx context.Context, e core.LedgerEntry) error {
	n, err := s.exec(ctx, `
		UPDATE ledger_entries SET
			amount_cents = ?, currency = ?, category_id = ?, description = ?, date = ?,
			credit_card_id = ?, bank_account_id = ?
		WHERE id = ?`,
		e.Amount.Cents, string(e.Currency), e.CategoryID, e.Description, e.Date,
		nullable(e.CreditCardID), nullable(e.BankAccountID), e.ID)
	if err != nil {
		return infraErr("update ledger entry", err)
	}
	if n == 0 {
		return &core.ErrNotFound{Resource: "ledger entry", ID: e.ID}
	}
	return nil
}

func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	n, err := s.exec(ctx, `DELETE FROM ledger_entries WHERE id = ?`, id)
	if err != nil {
		return infraErr("delete ledger entry", err)
	}
	if n == 0 {
		return &core.ErrNotFound{Resource: "ledger entry", ID: id}
	}
	return nil
}

// ListEntries returns entries newest first.
func (s *Store) ListEntries(ctx context.Context, f EntryFilter) ([]core.LedgerEntry, error) {
	q := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE user_id = ?`
	args := []any{f.UserID}
	if f.Kind != "" {
		q += ` AND kind = ?`
		args = append(args, string(f.Kind))
	}
	if f.CategoryID != "" {
		q += ` AND category_id = ?`
		args = append(args, f.CategoryID)
	}
	if !f.From.IsZero() {
		q += ` AND date >= ?`
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		q += ` AND date <= ?`
		args = append(args, f.To)
	}
	if f.CreditCardID != "" {
		q += ` AND credit_card_id = ?`
		args = append(args, f.CreditCardID)
	}
	q += ` ORDER BY date DESC, created_at DESC`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	var rows []entryRow
	if err := s.selectAll(ctx, &rows, q, args...); err != nil {
		return nil, infraErr("list ledger entries", err)
	}
	out := make([]core.LedgerEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toCore())
	}
	return out, nil
}

// SumAccountEntries totals entries of kind linked to a bank account in
// currency, dated on or after since (zero since means no lower bound).
func (s *Store) SumAccountEntries(ctx context.Context, accountID string, kind core.EntryKind, currency core.Currency, since core.Date) (core.Money, error) {
	q := `
		SELECT COALESCE(SUM(amount_cents), 0) FROM ledger_entries
		WHERE bank_account_id = ? AND kind = ? AND currency = ?`
	args := []any{accountID, string(kind), string(currency)}
	if !since.IsZero() {
		q += ` AND date >= ?`
		args = append(args, since)
	}
	var total int64
	if err := s.get(ctx, &total, q, args...); err != nil {
		return core.Money{}, infraErr("sum account entries", err)
	}
	return core.Money{Cents: total}, nil
}

// CategorySums aggregates a user's entries of kind between from and to,
// grouped by category and currency, and returns the number of entries.
func (s *Store) CategorySums(ctx context.Context, userID string, kind core.EntryKind, from, to core.Date) ([]core.CategoryAmount, int, error) {
	var rows []struct {
		CategoryID string `db:"category_id"`
		Currency   string `db:"currency"`
		Total      int64  `db:"total"`
		Count      int    `db:"n"`
	}
	err := s.selectAll(ctx, &rows, `
		SELECT category_id, currency, COALESCE(SUM(amount_cents), 0) AS total, COUNT(*) AS n
		FROM ledger_entries
		WHERE user_id = ? AND kind = ? AND date >= ? AND date <= ?
		GROUP BY category_id, currency
		ORDER BY total DESC, category_id`, userID, string(kind), from, to)
	if err != nil {
		return nil, 0, infraErr("sum categories", err)
	}
	out := make([]core.CategoryAmount, 0, len(rows))
	count := 0
	for _, r := range rows {
		out = append(out, core.CategoryAmount{
			CategoryID: r.CategoryID,
			Currency:   core.Currency(r.Currency),
			Amount:     core.Money{Cents: r.Total},
		})
		count += r.Count
	}
	return out, count, nil
}
