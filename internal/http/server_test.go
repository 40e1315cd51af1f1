package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/core"
	"gastos/internal/metrics"
	"gastos/internal/services"
	"gastos/internal/storage"
)

type testAPI struct {
	t       *testing.T
	handler http.Handler
	repo    *storage.Repository
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(ctx, storage.DriverSQLite, storage.SQLiteDSN(filepath.Join(t.TempDir(), "gastos.db")))
	require.NoError(t, err)
	repo := storage.NewRepository(db, 5*time.Second)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.CreateUser(ctx, "u1", "u1@example.com"))
	require.NoError(t, repo.CreateCategory(ctx, "food", "", "Food"))

	m := metrics.New()
	accountant := services.NewAccountant()
	stats := services.NewStatsService(repo)
	srv := NewServer(":0", Services{
		Ledger:       services.NewLedgerService(repo, accountant, nil, m),
		Accounts:     services.NewAccountService(repo),
		Recurring:    services.NewRecurringService(repo),
		Processor:    services.NewRecurringProcessor(repo, accountant, nil, m, 1),
		Stats:        stats,
		Installments: services.NewInstallmentService(repo),
		Budgets:      services.NewBudgetService(repo, stats),
		Store:        repo,
		Metrics:      m,
	}, nil)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	return &testAPI{t: t, handler: srv.Handler, repo: repo}
}

func (a *testAPI) do(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rec := api.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
	rec := api.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestExpenseLifecycleUpdatesCard(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/v1/users/u1/credit-cards", map[string]any{
		"name": "Visa", "limit": "1000.00", "currency": "PEN", "cut_off_day": 20, "payment_day": 5,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cardID := decode[map[string]any](t, rec)["id"].(string)

	rec = api.do(http.MethodPost, "/v1/users/u1/expenses", map[string]any{
		"amount": "150.50", "currency": "PEN", "category_id": "food", "description": "Groceries",
		"date": "2024-06-03", "credit_card_id": cardID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	exp := decode[entryResponse](t, rec)
	assert.Equal(t, core.KindExpense, exp.Kind)
	assert.Equal(t, "150.50", exp.Amount.String())

	rec = api.do(http.MethodGet, "/v1/users/u1/credit-cards/"+cardID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[map[string]any](t, rec)
	assert.Equal(t, "150.50", got["used_pen"])
	assert.Equal(t, "849.50", got["available"])

	rec = api.do(http.MethodPost, "/v1/users/u1/credit-card-payments", map[string]any{
		"credit_card_id": cardID, "amount": "200", "currency": "PEN", "date": "2024-06-10",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(http.MethodGet, "/v1/users/u1/credit-cards/"+cardID, nil)
	got = decode[map[string]any](t, rec)
	assert.Equal(t, "0.00", got["used_pen"])

	// An income route does not expose expenses.
	rec = api.do(http.MethodGet, "/v1/users/u1/incomes/"+exp.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = api.do(http.MethodDelete, "/v1/users/u1/incomes/"+exp.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodDelete, "/v1/users/u1/expenses/"+exp.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(http.MethodGet, "/v1/users/u1/expenses", nil)
	assert.Empty(t, decode[[]entryResponse](t, rec))
}

func TestCreateExpenseValidation(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"zero amount", map[string]any{"amount": "0", "currency": "PEN", "category_id": "food", "description": "x", "date": "2024-06-03"}, http.StatusBadRequest},
		{"bad currency", map[string]any{"amount": "1", "currency": "EUR", "category_id": "food", "description": "x", "date": "2024-06-03"}, http.StatusBadRequest},
		{"unknown field", map[string]any{"amount": "1", "currency": "PEN", "category_id": "food", "description": "x", "date": "2024-06-03", "tip": 1}, http.StatusBadRequest},
		{"unknown category", map[string]any{"amount": "1", "currency": "PEN", "category_id": "nope", "description": "x", "date": "2024-06-03"}, http.StatusBadRequest},
		{"missing card", map[string]any{"amount": "1", "currency": "PEN", "category_id": "food", "description": "x", "date": "2024-06-03", "credit_card_id": "ghost"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(http.MethodPost, "/v1/users/u1/expenses", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestProcessRecurringEndpoint(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()

	rt := core.RecurringTransaction{
		UserID: "u1", Kind: core.KindExpense, Name: "Rent", Amount: core.Money{Cents: 20000},
		Currency: core.PEN, DayOfMonth: 31, CategoryID: "food", Active: true,
		CreatedAt: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, api.repo.CreateRecurring(ctx, &rt))

	rec := api.do(http.MethodPost, "/v1/users/u1/recurring/process?lookback_months=2&today=2024-03-31", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[processResponse](t, rec)
	assert.Equal(t, 3, res.ProcessedCount)
	assert.Len(t, res.CreatedEntryIDs, 3)
	assert.Equal(t, "2024-03-31", res.Today)

	rec = api.do(http.MethodPost, "/v1/users/u1/recurring/process?lookback_months=2&today=2024-03-31", nil)
	res = decode[processResponse](t, rec)
	assert.Zero(t, res.ProcessedCount)

	rec = api.do(http.MethodPost, "/v1/users/u1/recurring/process?lookback_months=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = api.do(http.MethodPost, "/v1/users/u1/recurring/process?today=31-03-2024", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBankAccountBalanceEndpoints(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/v1/users/u1/bank-accounts", map[string]any{
		"name": "BCP", "balance": "1000", "currency": "PEN", "add_incomes": false,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	acc := decode[bankAccountResponse](t, rec)
	assert.True(t, acc.SubtractExpenses)
	assert.False(t, acc.AddIncomes)

	rec = api.do(http.MethodPost, "/v1/users/u1/expenses", map[string]any{
		"amount": "100", "currency": "PEN", "category_id": "food", "description": "Market",
		"date": "2024-06-02", "bank_account_id": acc.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(http.MethodPost, "/v1/users/u1/recurring", map[string]any{
		"kind": "expense", "name": "Water", "amount": "50", "currency": "PEN", "day_of_month": 5,
		"category_id": "food", "bank_account_id": acc.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(http.MethodGet, "/v1/users/u1/bank-accounts/"+acc.ID+"/balance?today=2024-06-10", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	bal := decode[map[string]any](t, rec)
	assert.Equal(t, "850.00", bal["computed_balance"])

	rec = api.do(http.MethodPost, "/v1/users/u1/bank-accounts/"+acc.ID+"/deduct", map[string]any{"amount": "1200"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "-200.00", decode[map[string]any](t, rec)["balance"])

	rec = api.do(http.MethodPost, "/v1/users/u1/bank-accounts/"+acc.ID+"/reset", map[string]any{"balance": "0"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "0.00", decode[map[string]any](t, rec)["balance"])

	rec = api.do(http.MethodGet, "/v1/users/u2/bank-accounts/"+acc.ID+"/balance", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatsAndSettings(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPut, "/v1/users/u1/settings/exchange-rate", map[string]any{"exchange_rate": "4"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "4.0000", decode[settingsResponse](t, rec).ExchangeRate)

	rec = api.do(http.MethodPut, "/v1/users/u1/settings/exchange-rate", map[string]any{"exchange_rate": "-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/v1/users/u1/expenses", map[string]any{
		"amount": "10", "currency": "USD", "category_id": "food", "description": "Book", "date": "2024-06-02",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(http.MethodGet, "/v1/users/u1/expenses/stats?year=2024&month=6", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st := decode[map[string]any](t, rec)
	assert.Equal(t, float64(1), st["count"])
	assert.Equal(t, "40.00", st["total_in_pen"])

	rec = api.do(http.MethodGet, "/v1/users/u1/expenses/stats?month=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInstallmentEndpoints(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/v1/users/u1/credit-cards", map[string]any{
		"name": "Visa", "limit": "5000", "currency": "PEN", "cut_off_day": 20, "payment_day": 5,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	cardID := decode[map[string]any](t, rec)["id"].(string)

	rec = api.do(http.MethodPost, "/v1/users/u1/installments", map[string]any{
		"credit_card_id": cardID, "description": "Phone", "total_amount": "1000", "currency": "PEN",
		"total_installments": 3, "start_date": "2024-06-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	in := decode[map[string]any](t, rec)
	assert.Equal(t, "333.33", in["monthly_amount"])

	rec = api.do(http.MethodGet, "/v1/users/u1/installments", nil)
	assert.Len(t, decode[[]installmentResponse](t, rec), 1)
}

func TestRecurringCrudEndpoints(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()
	require.NoError(t, api.repo.CreateUser(ctx, "u2", "u2@example.com"))

	rec := api.do(http.MethodPost, "/v1/users/u1/recurring", map[string]any{
		"kind": "expense", "name": "Rent", "amount": "1200", "currency": "PEN", "day_of_month": 1, "category_id": "food",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[recurringResponse](t, rec).ID
	require.NoError(t, api.repo.SetLastProcessedDate(ctx, id, core.NewDate(2024, 6, 1)))

	rec = api.do(http.MethodPut, "/v1/users/u1/recurring/"+id, map[string]any{
		"kind": "expense", "name": "Rent 2025", "amount": "1300", "currency": "PEN", "day_of_month": 5, "category_id": "food",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[recurringResponse](t, rec)
	assert.Equal(t, "Rent 2025", got.Name)
	assert.Equal(t, "1300.00", got.Amount.String())
	assert.Equal(t, 5, got.DayOfMonth)
	assert.True(t, got.Active)
	require.NotNil(t, got.LastProcessedDate)
	assert.Equal(t, "2024-06-01", got.LastProcessedDate.String())

	rec = api.do(http.MethodGet, "/v1/users/u1/recurring/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Rent 2025", decode[recurringResponse](t, rec).Name)

	tests := []struct {
		name string
		path string
		body map[string]any
		want int
	}{
		{"unknown category", "/v1/users/u1/recurring/" + id,
			map[string]any{"kind": "expense", "name": "Rent", "amount": "1", "currency": "PEN", "day_of_month": 1, "category_id": "travel"}, http.StatusBadRequest},
		{"other user", "/v1/users/u2/recurring/" + id,
			map[string]any{"kind": "expense", "name": "Rent", "amount": "1", "currency": "PEN", "day_of_month": 1, "category_id": "food"}, http.StatusNotFound},
		{"unknown id", "/v1/users/u1/recurring/ghost",
			map[string]any{"kind": "expense", "name": "Rent", "amount": "1", "currency": "PEN", "day_of_month": 1, "category_id": "food"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(http.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	rec = api.do(http.MethodDelete, "/v1/users/u2/recurring/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = api.do(http.MethodDelete, "/v1/users/u1/recurring/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(http.MethodGet, "/v1/users/u1/recurring/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListExpensesByCategory(t *testing.T) {
	api := newTestAPI(t)
	require.NoError(t, api.repo.CreateCategory(context.Background(), "rent", "", "Rent"))

	for _, cat := range []string{"food", "rent", "food"} {
		rec := api.do(http.MethodPost, "/v1/users/u1/expenses", map[string]any{
			"amount": "10", "currency": "PEN", "category_id": cat, "description": cat, "date": "2024-06-03",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := api.do(http.MethodGet, "/v1/users/u1/expenses?category=food", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]entryResponse](t, rec)
	require.Len(t, list, 2)
	for _, e := range list {
		assert.Equal(t, "food", e.CategoryID)
	}

	rec = api.do(http.MethodGet, "/v1/users/u1/expenses?category=rent", nil)
	assert.Len(t, decode[[]entryResponse](t, rec), 1)
	rec = api.do(http.MethodGet, "/v1/users/u1/expenses", nil)
	assert.Len(t, decode[[]entryResponse](t, rec), 3)
}

func TestBudgetEndpoints(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/v1/users/u1/budgets", map[string]any{
		"category_id": "food", "amount": "500", "period": "monthly", "start_date": "2024-01-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[map[string]any](t, rec)["id"].(string)

	rec = api.do(http.MethodPost, "/v1/users/u1/budgets", map[string]any{
		"category_id": "food", "amount": "100", "period": "weekly", "start_date": "2024-01-01",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "one budget per category")
	rec = api.do(http.MethodPost, "/v1/users/u1/budgets", map[string]any{
		"category_id": "food", "amount": "100", "period": "yearly", "start_date": "2024-01-01",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/v1/users/u1/expenses", map[string]any{
		"amount": "620.25", "currency": "PEN", "category_id": "food", "description": "Market", "date": "2024-06-03",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(http.MethodGet, "/v1/users/u1/budgets/status?today=2024-06-20", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	status := decode[[]map[string]any](t, rec)
	require.Len(t, status, 1)
	assert.Equal(t, "2024-06-01", status[0]["from"])
	assert.Equal(t, "2024-06-30", status[0]["to"])
	assert.Equal(t, "620.25", status[0]["spent"])
	assert.Equal(t, "-120.25", status[0]["remaining"])
	assert.Equal(t, true, status[0]["exceeded"])

	rec = api.do(http.MethodPut, "/v1/users/u1/budgets/"+id, map[string]any{
		"category_id": "food", "amount": "800", "period": "biweekly", "start_date": "2024-06-03",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[map[string]any](t, rec)
	assert.Equal(t, "800.00", updated["amount"])
	assert.Equal(t, "biweekly", updated["period"])

	rec = api.do(http.MethodGet, "/v1/users/u1/budgets/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(http.MethodGet, "/v1/users/u1/budgets", nil)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = api.do(http.MethodDelete, "/v1/users/u1/budgets/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(http.MethodGet, "/v1/users/u1/budgets/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
