package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gastos/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, DriverSQLite, SQLiteDSN(filepath.Join(t.TempDir(), "gastos.db")))
	require.NoError(t, err)
	repo := NewRepository(db, 5*time.Second)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.CreateUser(ctx, "u1", "u1@example.com"))
	require.NoError(t, repo.CreateCategory(ctx, "food", "", "Food"))
	return repo
}

func TestOpenRunsMigrationsIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gastos.db")
	ctx := context.Background()

	db, err := Open(ctx, DriverSQLite, SQLiteDSN(path))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(ctx, DriverSQLite, SQLiteDSN(path))
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "whatever")
	assert.Error(t, err)
}

func TestUserSettings(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	s, err := repo.GetSettings(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, s.ExchangeRate.Equal(core.DefaultExchangeRate))

	require.NoError(t, repo.UpdateExchangeRate(ctx, "u1", decimal.RequireFromString("3.8125")))
	s, err = repo.GetSettings(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "3.8125", s.ExchangeRate.StringFixed(4))

	s, err = repo.GetSettings(ctx, "ghost")
	require.NoError(t, err)
	assert.True(t, s.ExchangeRate.Equal(core.DefaultExchangeRate))

	ids, err := repo.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, ids)
}

func TestRecurringRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rt := core.RecurringTransaction{
		UserID:     "u1",
		Kind:       core.KindExpense,
		Name:       "Gym",
		Amount:     core.Money{Cents: 12000},
		Currency:   core.PEN,
		DayOfMonth: 31,
		CategoryID: "food",
		Active:     true,
		CreatedAt:  time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.CreateRecurring(ctx, &rt))
	require.NotEmpty(t, rt.ID)

	got, err := repo.GetRecurring(ctx, rt.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LastProcessedDate)
	assert.Equal(t, 31, got.DayOfMonth)
	assert.True(t, got.Active)
	assert.Equal(t, "2024-01-10", core.DateOf(got.CreatedAt).String())

	require.NoError(t, repo.SetLastProcessedDate(ctx, rt.ID, core.NewDate(2024, 3, 31)))
	got, err = repo.GetRecurring(ctx, rt.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastProcessedDate)
	assert.Equal(t, "2024-03-31", got.LastProcessedDate.String())

	require.NoError(t, repo.SetRecurringActive(ctx, rt.ID, false))
	active, err := repo.ListRecurring(ctx, "u1", true)
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = repo.GetRecurring(ctx, "missing")
	assert.True(t, core.IsNotFound(err))
}

func TestCardSums(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	card := core.CreditCard{UserID: "u1", Name: "Visa", Limit: core.Money{Cents: 500000}, Currency: core.PEN, CutOffDay: 20, PaymentDay: 5}
	require.NoError(t, repo.CreateCreditCard(ctx, &card))

	for _, e := range []core.LedgerEntry{
		{Amount: core.Money{Cents: 1000}, Currency: core.PEN},
		{Amount: core.Money{Cents: 2500}, Currency: core.PEN},
		{Amount: core.Money{Cents: 700}, Currency: core.USD},
	} {
		e.UserID, e.Kind, e.CategoryID, e.Description = "u1", core.KindExpense, "food", "x"
		e.Date = core.NewDate(2024, 6, 1)
		e.CreditCardID = card.ID
		require.NoError(t, repo.CreateEntry(ctx, &e))
	}
	pay := core.CreditCardPayment{UserID: "u1", CreditCardID: card.ID, Amount: core.Money{Cents: 500}, Currency: core.PEN, Date: core.NewDate(2024, 6, 2)}
	require.NoError(t, repo.CreatePayment(ctx, &pay))

	exp, err := repo.SumCardExpenses(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3500), exp[core.PEN].Cents)
	assert.Equal(t, int64(700), exp[core.USD].Cents)

	paid, err := repo.SumCardPayments(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), paid[core.PEN].Cents)
	assert.Zero(t, paid[core.USD].Cents)

	require.NoError(t, repo.UpdateCardUsage(ctx, card.ID, core.NewCardUsage(exp, paid)))
	got, err := repo.GetCreditCard(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), got.Used(core.PEN).Cents)
	assert.Equal(t, int64(700), got.Used(core.USD).Cents)
}

func TestSumAccountEntriesHonoursResetDate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	acc := core.BankAccount{UserID: "u1", Name: "BCP", Balance: core.Money{Cents: 100000}, Currency: core.PEN, SubtractExpenses: true}
	require.NoError(t, repo.CreateBankAccount(ctx, &acc))

	for _, d := range []core.Date{core.NewDate(2024, 5, 31), core.NewDate(2024, 6, 1), core.NewDate(2024, 6, 15)} {
		e := core.LedgerEntry{UserID: "u1", Kind: core.KindExpense, Amount: core.Money{Cents: 1000}, Currency: core.PEN,
			CategoryID: "food", Description: "x", Date: d, BankAccountID: acc.ID}
		require.NoError(t, repo.CreateEntry(ctx, &e))
	}
	usd := core.LedgerEntry{UserID: "u1", Kind: core.KindExpense, Amount: core.Money{Cents: 9999}, Currency: core.USD,
		CategoryID: "food", Description: "x", Date: core.NewDate(2024, 6, 15), BankAccountID: acc.ID}
	require.NoError(t, repo.CreateEntry(ctx, &usd))

	all, err := repo.SumAccountEntries(ctx, acc.ID, core.KindExpense, core.PEN, core.Date{})
	require.NoError(t, err)
	assert.Equal(t, int64(3000), all.Cents)

	since, err := repo.SumAccountEntries(ctx, acc.ID, core.KindExpense, core.PEN, core.NewDate(2024, 6, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(2000), since.Cents)
}

func TestWithTxRollsBack(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.WithTx(ctx, func(s *Store) error {
		e := core.LedgerEntry{UserID: "u1", Kind: core.KindIncome, Amount: core.Money{Cents: 100}, Currency: core.PEN,
			CategoryID: "food", Description: "salary", Date: core.NewDate(2024, 6, 1)}
		if err := s.CreateEntry(ctx, &e); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	entries, err := repo.ListEntries(ctx, EntryFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAccountMaintenance(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	acc := core.BankAccount{UserID: "u1", Name: "BCP", Currency: core.USD}
	require.NoError(t, repo.CreateBankAccount(ctx, &acc))

	n, err := repo.EnableAddIncomes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.EnableAddIncomes(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	first, ok, err := repo.FirstBankAccount(ctx, "u1", core.USD)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, acc.ID, first.ID)
	assert.True(t, first.AddIncomes)

	_, ok, err = repo.FirstBankAccount(ctx, "u1", core.PEN)
	require.NoError(t, err)
	assert.False(t, ok)

	reset := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SetBankBalance(ctx, acc.ID, core.Money{Cents: 4200}, &reset))
	got, err := repo.GetBankAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4200), got.Balance.Cents)
	assert.Equal(t, "2024-06-01", got.ResetCutoff().String())
}

func TestListEntriesByCategory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateCategory(ctx, "rent", "", "Rent"))

	for _, cat := range []string{"food", "rent", "food"} {
		e := core.LedgerEntry{UserID: "u1", Kind: core.KindExpense, Amount: core.Money{Cents: 1000}, Currency: core.PEN,
			CategoryID: cat, Description: cat, Date: core.NewDate(2024, 6, 1)}
		require.NoError(t, repo.CreateEntry(ctx, &e))
	}

	tests := []struct {
		category string
		want     int
	}{
		{"food", 2},
		{"rent", 1},
		{"travel", 0},
		{"", 3},
	}
	for _, tt := range tests {
		t.Run("category="+tt.category, func(t *testing.T) {
			entries, err := repo.ListEntries(ctx, EntryFilter{UserID: "u1", CategoryID: tt.category})
			require.NoError(t, err)
			assert.Len(t, entries, tt.want)
			for _, e := range entries {
				if tt.category != "" {
					assert.Equal(t, tt.category, e.CategoryID)
				}
			}
		})
	}
}

func TestRecurringUpdateAndDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rt := core.RecurringTransaction{UserID: "u1", Kind: core.KindExpense, Name: "Gym", Amount: core.Money{Cents: 12000},
		Currency: core.PEN, DayOfMonth: 5, CategoryID: "food", Active: true}
	require.NoError(t, repo.CreateRecurring(ctx, &rt))
	require.NoError(t, repo.SetLastProcessedDate(ctx, rt.ID, core.NewDate(2024, 6, 5)))

	rt.Name, rt.Amount, rt.DayOfMonth = "Gym plus", core.Money{Cents: 15000}, 10
	require.NoError(t, repo.UpdateRecurring(ctx, rt))

	got, err := repo.LockRecurring(ctx, rt.ID)
	require.NoError(t, err)
	assert.Equal(t, "Gym plus", got.Name)
	assert.Equal(t, int64(15000), got.Amount.Cents)
	assert.Equal(t, 10, got.DayOfMonth)
	require.NotNil(t, got.LastProcessedDate)
	assert.Equal(t, "2024-06-05", got.LastProcessedDate.String())

	e := rt.Materialize(core.NewDate(2024, 6, 10))
	require.NoError(t, repo.CreateEntry(ctx, &e))

	require.NoError(t, repo.DeleteRecurring(ctx, rt.ID))
	_, err = repo.GetRecurring(ctx, rt.ID)
	assert.True(t, core.IsNotFound(err))
	assert.True(t, core.IsNotFound(repo.DeleteRecurring(ctx, rt.ID)))

	kept, err := repo.GetEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.Empty(t, kept.RecurringID)

	rt.ID = "ghost"
	assert.True(t, core.IsNotFound(repo.UpdateRecurring(ctx, rt)))
}

func TestBudgetStorage(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateCategory(ctx, "rent", "", "Rent"))

	b := core.Budget{UserID: "u1", CategoryID: "rent", Amount: core.Money{Cents: 150000},
		Period: core.PeriodMonthly, StartDate: core.NewDate(2024, 1, 1)}
	require.NoError(t, repo.CreateBudget(ctx, &b))
	other := core.Budget{UserID: "u1", CategoryID: "food", Amount: core.Money{Cents: 20000},
		Period: core.PeriodWeekly, StartDate: core.NewDate(2024, 6, 3)}
	require.NoError(t, repo.CreateBudget(ctx, &other))

	dup := core.Budget{UserID: "u1", CategoryID: "rent", Amount: core.Money{Cents: 1},
		Period: core.PeriodMonthly, StartDate: core.NewDate(2024, 1, 1)}
	assert.Error(t, repo.CreateBudget(ctx, &dup), "one budget per user and category")

	id, err := repo.BudgetIDForCategory(ctx, "u1", "rent")
	require.NoError(t, err)
	assert.Equal(t, b.ID, id)
	id, err = repo.BudgetIDForCategory(ctx, "u1", "travel")
	require.NoError(t, err)
	assert.Empty(t, id)

	list, err := repo.ListBudgets(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "food", list[0].CategoryID)
	assert.Equal(t, "rent", list[1].CategoryID)

	b.Amount, b.Period = core.Money{Cents: 160000}, core.PeriodBiweekly
	require.NoError(t, repo.UpdateBudget(ctx, &b))
	got, err := repo.GetBudget(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(160000), got.Amount.Cents)
	assert.Equal(t, core.PeriodBiweekly, got.Period)
	assert.Equal(t, "2024-01-01", got.StartDate.String())

	require.NoError(t, repo.DeleteBudget(ctx, b.ID))
	_, err = repo.GetBudget(ctx, b.ID)
	assert.True(t, core.IsNotFound(err))
	assert.True(t, core.IsNotFound(repo.DeleteBudget(ctx, b.ID)))
}
