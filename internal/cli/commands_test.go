package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gastos/internal/config"
	"gastos/internal/core"
	applog "gastos/internal/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DatabaseDriver:       "sqlite",
		SQLiteDBPath:         filepath.Join(t.TempDir(), "data", "gastos.db"),
		QueryTimeout:         5 * time.Second,
		AMQPExchange:         "gastos",
		AMQPQueue:            "process_recurring",
		RecurringConcurrency: 2,
		LogLevel:             "error",
	}
}

// seed creates a user with one fixed expense and one bank account, then
// closes the database so commands open it themselves.
func seed(t *testing.T, cfg *config.Config) (rtID, accountID string) {
	t.Helper()
	ctx := context.Background()
	repo, err := OpenRepository(ctx, cfg)
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.CreateUser(ctx, "u1", "u1@example.com"))
	require.NoError(t, repo.CreateCategory(ctx, "home", "", "Home"))

	rt := core.RecurringTransaction{
		UserID:     "u1",
		Kind:       core.KindExpense,
		Name:       "Rent",
		Amount:     core.Money{Cents: 120000},
		Currency:   core.PEN,
		DayOfMonth: 31,
		CategoryID: "home",
		Active:     true,
		CreatedAt:  time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.CreateRecurring(ctx, &rt))

	acc := core.BankAccount{UserID: "u1", Name: "BCP", Currency: core.PEN, SubtractExpenses: true}
	require.NoError(t, repo.CreateBankAccount(ctx, &acc))
	return rt.ID, acc.ID
}

func run(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := Execute(context.Background(), cfg, &out, args)
	return out.String(), err
}

func TestProcessCommand(t *testing.T) {
	cfg := testConfig(t)
	seed(t, cfg)

	out, err := run(t, cfg, "process", "--user", "u1", "--today", "2024-03-31", "--lookback", "2")
	require.NoError(t, err)

	var res struct {
		ProcessedCount  int      `json:"processed_count"`
		CreatedEntryIDs []string `json:"created_entry_ids"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 3, res.ProcessedCount)
	assert.Len(t, res.CreatedEntryIDs, 3)

	out, err = run(t, cfg, "process", "--all-users", "--today", "2024-03-31")
	require.NoError(t, err)
	var sweep struct {
		Users          int `json:"users"`
		ProcessedCount int `json:"processed_count"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &sweep))
	assert.Equal(t, 1, sweep.Users)
	assert.Zero(t, sweep.ProcessedCount)
}

func TestProcessCommandRejectsBadFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no target", []string{"process"}, "exactly one of --user or --all-users"},
		{"both targets", []string{"process", "--user", "u1", "--all-users"}, "exactly one of --user or --all-users"},
		{"negative lookback", []string{"process", "--user", "u1", "--lookback=-1"}, "--lookback cannot be negative"},
		{"bad date", []string{"process", "--user", "u1", "--today", "31/03/2024"}, "invalid --today"},
		{"publish without broker", []string{"process", "--all-users", "--publish"}, "requires AMQP_URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, testConfig(t), tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAssignAccountsCommand(t *testing.T) {
	cfg := testConfig(t)
	rtID, accountID := seed(t, cfg)

	out, err := run(t, cfg, "assign-accounts")
	require.NoError(t, err)
	assert.JSONEq(t, `{"expenses":1,"incomes":0}`, out)

	repo, err := OpenRepository(context.Background(), cfg)
	require.NoError(t, err)
	defer repo.Close()
	rt, err := repo.GetRecurring(context.Background(), rtID)
	require.NoError(t, err)
	assert.Equal(t, accountID, rt.BankAccountID)
}

func TestEnableAddIncomesCommand(t *testing.T) {
	cfg := testConfig(t)
	_, accountID := seed(t, cfg)

	out, err := run(t, cfg, "enable-add-incomes")
	require.NoError(t, err)
	assert.JSONEq(t, `{"accounts":1}`, out)

	repo, err := OpenRepository(context.Background(), cfg)
	require.NoError(t, err)
	defer repo.Close()
	acc, err := repo.GetBankAccount(context.Background(), accountID)
	require.NoError(t, err)
	assert.True(t, acc.AddIncomes)
}

func TestMigrateCommandCreatesDatabase(t *testing.T) {
	cfg := testConfig(t)
	_, err := run(t, cfg, "migrate")
	require.NoError(t, err)
	assert.FileExists(t, cfg.SQLiteDBPath)
}

func TestDSN(t *testing.T) {
	cfg := &config.Config{DatabaseDriver: "postgres", DatabaseURL: "postgres://u:p@db/gastos"}
	assert.Equal(t, "postgres://u:p@db/gastos", DSN(cfg))

	cfg = &config.Config{DatabaseDriver: "sqlite", SQLiteDBPath: "/tmp/g.db"}
	assert.Contains(t, DSN(cfg), "file:/tmp/g.db?")
}

func TestConnectAMQPDisabled(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentHTTP, Output: &buf})

	client, events := ConnectAMQP(testConfig(t), logger)
	assert.Nil(t, client)
	assert.Nil(t, events)
	assert.Contains(t, buf.String(), "component=amqp")
	assert.Equal(t, 1, strings.Count(buf.String(), "component="))
}

func TestBudgetsWiredIntoStack(t *testing.T) {
	cfg := testConfig(t)
	repo, err := OpenRepository(context.Background(), cfg)
	require.NoError(t, err)
	defer repo.Close()

	stack := NewStack(cfg, repo, nil, nil)
	require.NotNil(t, stack.Budgets)
	list, err := stack.Budgets.List(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
}
