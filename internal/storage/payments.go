package storage

import (
	"context"
	"database/sql"
	"time"

	"gastos/internal/core"
)

type paymentRow struct {
	ID            string         `db:"id"`
	UserID        string         `db:"user_id"`
	CreditCardID  string         `db:"credit_card_id"`
	BankAccountID sql.NullString `db:"bank_account_id"`
	AmountCents   int64          `db:"amount_cents"`
	Currency      string         `db:"currency"`
	Date          core.Date      `db:"date"`
	CreatedAt     time.Time      `db:"created_at"`
}

const paymentColumns = `id, user_id, credit_card_id, bank_account_id, amount_cents, currency, date, created_at`

func (r paymentRow) toCore() core.CreditCardPayment {
	return core.CreditCardPayment{
		ID:            r.ID,
		UserID:        r.UserID,
		CreditCardID:  r.CreditCardID,
		BankAccountID: r.BankAccountID.String,
		Amount:        core.Money{Cents: r.AmountCents},
		Currency:      core.Currency(r.Currency),
		Date:          r.Date,
		CreatedAt:     r.CreatedAt,
	}
}

func (s *Store) CreatePayment(ctx context.Context, p *core.CreditCardPayment) error {
	p.ID = newID(p.ID)
	p.CreatedAt = now()
	_, err := s.exec(ctx, `
		INSERT INTO credit_card_payments (`+paymentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.CreditCardID, nullable(p.BankAccountID), p.Amount.Cents, string(p.Currency), p.Date, p.CreatedAt)
	if err != nil {
		return infraErr("create credit card payment", err)
	}
	return nil
}

func (s *Store) GetPayment(ctx context.Context, id string) (core.CreditCardPayment, error) {
	var row paymentRow
	if err := s.get(ctx, &row, `SELECT `+paymentColumns+` FROM credit_card_payments WHERE id = ?`, id); err != nil {
		return core.CreditCardPayment{}, lookupErr("credit card payment", id, err)
	}
	return row.toCore(), nil
}

func (s *Store) UpdatePayment(ctx context.Context, p core.CreditCardPayment) error {
	n, err := s.exec(ctx, `
		UPDATE credit_card_payments SET
			credit_card_id = ?, bank_account_id = ?, amount_cents = ?, currency = ?, date = ?
		WHERE id = ?`,
		p.CreditCardID, nullable(p.BankAccountID), p.Amount.Cents, string(p.Currency), p.Date, p.ID)
	if err != nil {
		return infraErr("update credit card payment", err)
	}
	if n == 0 {
		return &core.ErrNotFound{Resource: "credit card payment", ID: p.ID}
	}
	return nil
}

func (s *Store) DeletePayment(ctx context.Context, id string) error {
	n, err := s.exec(ctx, `DELETE FROM credit_card_payments WHERE id = ?`, id)
	if err != nil {
		return infraErr("delete credit card payment", err)
	}
	if n == 0 {
		return &core.ErrNotFound{Resource: "credit card payment", ID: id}
	}
	return nil
}

// ListPayments returns a user's payments newest first, optionally for one card.
func (s *Store) ListPayments(ctx context.Context, userID, cardID string) ([]core.CreditCardPayment, error) {
	q := `SELECT ` + paymentColumns + ` FROM credit_card_payments WHERE user_id = ?`
	args := []any{userID}
	if cardID != "" {
		q += ` AND credit_card_id = ?`
		args = append(args, cardID)
	}
	q += ` ORDER BY date DESC, created_at DESC`

	var rows []paymentRow
	if err := s.selectAll(ctx, &rows, q, args...); err != nil {
		return nil, infraErr("list credit card payments", err)
	}
	out := make([]core.CreditCardPayment, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toCore())
	}
	return out, nil
}
