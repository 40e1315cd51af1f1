package storage

import (
	"context"
	"time"

	"gastos/internal/core"
)

type creditCardRow struct {
	ID             string    `db:"id"`
	UserID         string    `db:"user_id"`
	Name           string    `db:"name"`
	LastFourDigits string    `db:"last_four_digits"`
	LimitCents     int64     `db:"limit_cents"`
	Currency       string    `db:"currency"`
	UsedPENCents   int64     `db:"used_pen_cents"`
	UsedUSDCents   int64     `db:"used_usd_cents"`
	CutOffDay      int       `db:"cut_off_day"`
	PaymentDay     int       `db:"payment_day"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

const creditCardColumns = `id, user_id, name, last_four_digits, limit_cents, currency,
	used_pen_cents, used_usd_cents, cut_off_day, payment_day, created_at, updated_at`

func (r creditCardRow) toCore() core.CreditCard {
	return core.CreditCard{
		ID:             r.ID,
		UserID:         r.UserID,
		Name:           r.Name,
		LastFourDigits: r.LastFourDigits,
		Limit:          core.Money{Cents: r.LimitCents},
		Currency:       core.Currency(r.Currency),
		Usage: core.CardUsage{
			PEN: core.Money{Cents: r.UsedPENCents},
			USD: core.Money{Cents: r.UsedUSDCents},
		},
		CutOffDay:  r.CutOffDay,
		PaymentDay: r.PaymentDay,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// CreateCreditCard inserts a card with zero usage; usage is only ever
// written by UpdateCardUsage.
func (s *Store) CreateCreditCard(ctx context.Context, c *core.CreditCard) error {
	c.ID = newID(c.ID)
	c.Usage = core.CardUsage{}
	c.CreatedAt = now()
	c.UpdatedAt = c.CreatedAt
	_, err := s.exec(ctx, `
		INSERT INTO credit_cards (`+creditCardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, 0, 0, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.LastFourDigits, c.Limit.Cents, string(c.Currency),
		c.CutOffDay, c.PaymentDay, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return infraErr("create credit card", err)
	}
	return nil
}

func (s *Store) GetCreditCard(ctx context.Context, id string) (core.CreditCard, error) {
	var row creditCardRow
	if err := s.get(ctx, &row, `SELECT `+creditCardColumns+` FROM credit_cards WHERE id = ?`, id); err != nil {
		return core.CreditCard{}, lookupErr("credit card", id, err)
	}
	return row.toCore(), nil
}

// LockCreditCard reads the card and holds its row lock until the surrounding
// transaction ends.
func (s *Store) LockCreditCard(ctx context.Context, id string) (core.CreditCard, error) {
	var row creditCardRow
	q := s.forUpdate(`SELECT ` + creditCardColumns + ` FROM credit_cards WHERE id = ?`)
	if err := s.get(ctx, &row, q, id); err != nil {
		return core.CreditCard{}, lookupErr("credit card", id, err)
	}
	return row.toCore(), nil
}

func (s *Store) ListCreditCards(ctx context.Context, userID string) ([]core.CreditCard, error) {
	var rows []creditCardRow
	err := s.selectAll(ctx, &rows, `
		SELECT `+creditCardColumns+` FROM credit_cards
		WHERE user_id = ?
		ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, infraErr("list credit cards", err)
	}
	out := make([]core.CreditCard, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toCore())
	}
	return out, nil
}

func (s *Store) UpdateCardUsage(ctx context.Context, id string, u core.CardUsage) error {
	n, err := s.exec(ctx, `
		UPDATE credit_cards SET used_pen_cents = ?, used_usd_cents = ?, updated_at = ?
		WHERE id = ?`, u.PEN.Cents, u.USD.Cents, now(), id)
	if err != nil {
		return infraErr("update card usage", err)
	}
	if n == 0 {
		return &core.ErrNotFound{Resource: "credit card", ID: id}
	}
	return nil
}

type currencySum struct {
	Currency string `db:"currency"`
	Cents    int64  `db:"total"`
}

func (s *Store) sumByCurrency(ctx context.Context, op, query string, args ...any) (map[core.Currency]core.Money, error) {
	var rows []currencySum
	if err := s.selectAll(ctx, &rows, query, args...); err != nil {
		return nil, infraErr(op, err)
	}
	out := make(map[core.Currency]core.Money, len(rows))
	for _, r := range rows {
		out[core.Currency(r.Currency)] = core.Money{Cents: r.Cents}
	}
	return out, nil
}

// SumCardExpenses totals the expenses charged to a card, per currency.
func (s *Store) SumCardExpenses(ctx context.Context, cardID string) (map[core.Currency]core.Money, error) {
	return s.sumByCurrency(ctx, "sum card expenses", `
		SELECT currency, COALESCE(SUM(amount_cents), 0) AS total
		FROM ledger_entries
		WHERE credit_card_id = ? AND kind = ?
		GROUP BY currency`, cardID, string(core.KindExpense))
}

// SumCardPayments totals the payments made to a card, per currency.
func (s *Store) SumCardPayments(ctx context.Context, cardID string) (map[core.Currency]core.Money, error) {
	return s.sumByCurrency(ctx, "sum card payments", `
		SELECT currency, COALESCE(SUM(amount_cents), 0) AS total
		FROM credit_card_payments
		WHERE credit_card_id = ?
		GROUP BY currency`, cardID)
}
