package services

import (
	"context"
	"fmt"

	"gastos/internal/core"
	"gastos/internal/storage"
)

type InstallmentService struct {
	repo *storage.Repository
}

func NewInstallmentService(repo *storage.Repository) *InstallmentService {
	return &InstallmentService{repo: repo}
}

// Create records a new installment plan on one of the user's cards. Plans
// start at installment 1 unless told otherwise.
func (s *InstallmentService) Create(ctx context.Context, in core.Installment) (core.Installment, error) {
	if in.CurrentInstallment == 0 {
		in.CurrentInstallment = 1
	}
	in.Active = true
	if err := in.Validate(); err != nil {
		return core.Installment{}, core.Invalid("installment", err)
	}

	err := s.repo.WithTx(ctx, func(st *storage.Store) error {
		if _, err := ownedCard(ctx, st, in.UserID, in.CreditCardID); err != nil {
			return err
		}
		return st.CreateInstallment(ctx, &in)
	})
	if err != nil {
		return core.Installment{}, fmt.Errorf("create installment: %w", err)
	}
	return in, nil
}

func (s *InstallmentService) List(ctx context.Context, userID string, activeOnly bool) ([]core.Installment, error) {
	return s.repo.ListInstallments(ctx, userID, activeOnly)
}
