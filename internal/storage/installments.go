package storage

import (
	"context"
	"time"

	"gastos/internal/core"
)

type installmentRow struct {
	ID                 string    `db:"id"`
	UserID             string    `db:"user_id"`
	CreditCardID       string    `db:"credit_card_id"`
	Description        string    `db:"description"`
	TotalAmountCents   int64     `db:"total_amount_cents"`
	Currency           string    `db:"currency"`
	TotalInstallments  int       `db:"total_installments"`
	CurrentInstallment int       `db:"current_installment"`
	StartDate          core.Date `db:"start_date"`
	Active             bool      `db:"active"`
	CreatedAt          time.Time `db:"created_at"`
}

const installmentColumns = `id, user_id, credit_card_id, description, total_amount_cents, currency,
	total_installments, current_installment, start_date, active, created_at`

func (s *Store) CreateInstallment(ctx context.Context, in *core.Installment) error {
	in.ID = newID(in.ID)
	in.CreatedAt = now()
	_, err := s.exec(ctx, `
		INSERT INTO installments (`+installmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.UserID, in.CreditCardID, in.Description, in.TotalAmount.Cents, string(in.Currency),
		in.TotalInstallments, in.CurrentInstallment, in.StartDate, in.Active, in.CreatedAt)
	if err != nil {
		return infraErr("create installment", err)
	}
	return nil
}

// ListInstallments returns a user's installment plans, newest first.
func (s *Store) ListInstallments(ctx context.Context, userID string, activeOnly bool) ([]core.Installment, error) {
	q := `SELECT ` + installmentColumns + ` FROM installments WHERE user_id = ?`
	args := []any{userID}
	if activeOnly {
		q += ` AND active = ?`
		args = append(args, true)
	}
	q += ` ORDER BY created_at DESC, id`

	var rows []installmentRow
	if err := s.selectAll(ctx, &rows, q, args...); err != nil {
		return nil, infraErr("list installments", err)
	}
	out := make([]core.Installment, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.Installment{
			ID:                 r.ID,
			UserID:             r.UserID,
			CreditCardID:       r.CreditCardID,
			Description:        r.Description,
			TotalAmount:        core.Money{Cents: r.TotalAmountCents},
			Currency:           core.Currency(r.Currency),
			TotalInstallments:  r.TotalInstallments,
			CurrentInstallment: r.CurrentInstallment,
			StartDate:          r.StartDate,
			Active:             r.Active,
			CreatedAt:          r.CreatedAt,
		})
	}
	return out, nil
}
