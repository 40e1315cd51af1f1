package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gastos/internal/core"
	"gastos/internal/storage"
)

// AccountService manages bank accounts and credit cards and derives bank
// balances.
type AccountService struct {
	repo *storage.Repository
}

func NewAccountService(repo *storage.Repository) *AccountService {
	return &AccountService{repo: repo}
}

func (s *AccountService) CreateBankAccount(ctx context.Context, a core.BankAccount) (core.BankAccount, error) {
	if err := a.Validate(); err != nil {
		return core.BankAccount{}, core.Invalid("bank_account", err)
	}
	if err := s.repo.CreateBankAccount(ctx, &a); err != nil {
		return core.BankAccount{}, fmt.Errorf("create bank account: %w", err)
	}
	return a, nil
}

func (s *AccountService) ListBankAccounts(ctx context.Context, userID string) ([]core.BankAccount, error) {
	return s.repo.ListBankAccounts(ctx, userID)
}

func (s *AccountService) CreateCreditCard(ctx context.Context, c core.CreditCard) (core.CreditCard, error) {
	if err := c.Validate(); err != nil {
		return core.CreditCard{}, core.Invalid("credit_card", err)
	}
	if err := s.repo.CreateCreditCard(ctx, &c); err != nil {
		return core.CreditCard{}, fmt.Errorf("create credit card: %w", err)
	}
	return c, nil
}

func (s *AccountService) GetCreditCard(ctx context.Context, userID, id string) (core.CreditCard, error) {
	return ownedCard(ctx, s.repo.Store, userID, id)
}

func (s *AccountService) ListCreditCards(ctx context.Context, userID string) ([]core.CreditCard, error) {
	return s.repo.ListCreditCards(ctx, userID)
}

// ComputeBalance derives the account balance as of today. Nothing is
// written.
func (s *AccountService) ComputeBalance(ctx context.Context, userID, accountID string, today core.Date) (core.BankBalance, error) {
	ctx, span := tracer.Start(ctx, "AccountService.ComputeBalance")
	defer span.End()

	acc, err := ownedAccount(ctx, s.repo.Store, userID, accountID)
	if err != nil {
		return core.BankBalance{}, err
	}

	in := core.BalanceInputs{Account: acc, Today: today}
	since := acc.ResetCutoff()
	if acc.SubtractExpenses {
		if in.LinkedExpenses, err = s.repo.SumAccountEntries(ctx, acc.ID, core.KindExpense, acc.Currency, since); err != nil {
			return core.BankBalance{}, err
		}
	}
	if acc.AddIncomes {
		if in.LinkedIncomes, err = s.repo.SumAccountEntries(ctx, acc.ID, core.KindIncome, acc.Currency, since); err != nil {
			return core.BankBalance{}, err
		}
	}
	if in.Fixed, err = s.repo.ListAccountFixed(ctx, acc.ID, acc.Currency, today.Day()); err != nil {
		return core.BankBalance{}, err
	}

	return core.ComputeBankBalance(in), nil
}

// Deduct lowers the stored balance by amount. The result may go negative.
func (s *AccountService) Deduct(ctx context.Context, userID, accountID string, amount core.Money) (core.BankAccount, error) {
	if err := amount.Validate(); err != nil {
		return core.BankAccount{}, core.Invalid("amount", err)
	}

	var acc core.BankAccount
	err := s.repo.WithTx(ctx, func(st *storage.Store) error {
		locked, err := st.LockBankAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if locked.UserID != userID {
			return &core.ErrNotFound{Resource: "bank account", ID: accountID}
		}
		locked.Balance = locked.Balance.Sub(amount)
		if err := locked.Validate(); err != nil {
			return core.Invalid("amount", err)
		}
		if err := st.SetBankBalance(ctx, accountID, locked.Balance, nil); err != nil {
			return err
		}
		acc = locked
		return nil
	})
	if err != nil {
		return core.BankAccount{}, fmt.Errorf("deduct from bank account: %w", err)
	}
	return acc, nil
}

// ResetBalance sets a new stored balance and starts counting linked entries
// from at onwards.
func (s *AccountService) ResetBalance(ctx context.Context, userID, accountID string, balance core.Money, at time.Time) (core.BankAccount, error) {
	var acc core.BankAccount
	err := s.repo.WithTx(ctx, func(st *storage.Store) error {
		locked, err := st.LockBankAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if locked.UserID != userID {
			return &core.ErrNotFound{Resource: "bank account", ID: accountID}
		}
		locked.Balance = balance
		locked.BalanceResetAt = &at
		if err := locked.Validate(); err != nil {
			return core.Invalid("balance", err)
		}
		if err := st.SetBankBalance(ctx, accountID, balance, &at); err != nil {
			return err
		}
		acc = locked
		return nil
	})
	if err != nil {
		return core.BankAccount{}, fmt.Errorf("reset bank balance: %w", err)
	}
	return acc, nil
}

// AssignDefaultAccounts links every fixed transaction without an instrument
// to its owner's oldest bank account in the same currency. It returns the
// number of expense and income definitions updated.
func (s *AccountService) AssignDefaultAccounts(ctx context.Context) (expenses, incomes int, err error) {
	defs, err := s.repo.ListUnassignedRecurring(ctx)
	if err != nil {
		return 0, 0, err
	}

	for _, rt := range defs {
		acc, ok, err := s.repo.FirstBankAccount(ctx, rt.UserID, rt.Currency)
		if err != nil {
			return expenses, incomes, err
		}
		if !ok {
			continue
		}
		if err := s.repo.SetRecurringAccount(ctx, rt.ID, acc.ID); err != nil {
			return expenses, incomes, err
		}
		slog.InfoContext(ctx, "Assigned bank account to recurring transaction",
			"recurring_id", rt.ID,
			"name", rt.Name,
			"currency", rt.Currency,
			"bank_account", acc.Name)
		if rt.Kind == core.KindIncome {
			incomes++
		} else {
			expenses++
		}
	}
	return expenses, incomes, nil
}

// EnableAddIncomes switches income inclusion on for every bank account.
func (s *AccountService) EnableAddIncomes(ctx context.Context) (int64, error) {
	return s.repo.EnableAddIncomes(ctx)
}
