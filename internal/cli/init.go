// Package cli provides the initialization shared by cmd/gastos,
// cmd/recurring-worker and cmd/gastosctl.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gastos/internal/amqp"
	"gastos/internal/config"
	applog "gastos/internal/log"
	"gastos/internal/metrics"
	"gastos/internal/services"
	"gastos/internal/storage"

	"github.com/joho/godotenv"
)

// SetupLogger builds the process logger at the configured level and installs
// it as the slog default.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	lc := applog.DefaultConfig()
	lc.Level = cfg.SlogLevel()
	lc.Component = component
	logger := applog.New(lc)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and exits the process when it
// does not validate.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		applog.New(applog.DefaultConfig()).Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// DSN returns the connection string for the configured driver.
func DSN(cfg *config.Config) string {
	if cfg.DatabaseDriver == storage.DriverPostgres {
		return cfg.DatabaseURL
	}
	return storage.SQLiteDSN(cfg.SQLiteDBPath)
}

// OpenRepository connects to the configured database, migrating it to the
// latest schema.
func OpenRepository(ctx context.Context, cfg *config.Config) (*storage.Repository, error) {
	db, err := storage.Open(ctx, cfg.DatabaseDriver, DSN(cfg))
	if err != nil {
		return nil, err
	}
	return storage.NewRepository(db, cfg.QueryTimeout), nil
}

// ConnectAMQP dials the broker when one is configured. The returned publisher
// is a nil interface whenever the client is nil, so services can test it.
func ConnectAMQP(cfg *config.Config, logger *applog.Logger) (*amqp.Client, services.EventPublisher) {
	logger = logger.WithComponent(applog.ComponentAMQP)
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled - ledger events will not be published")
		return nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		return nil, nil
	}
	logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, client
}

// Stack holds the wired services over one repository.
type Stack struct {
	Repo         *storage.Repository
	Metrics      *metrics.Metrics
	Ledger       *services.LedgerService
	Accounts     *services.AccountService
	Recurring    *services.RecurringService
	Processor    *services.RecurringProcessor
	Stats        *services.StatsService
	Installments *services.InstallmentService
	Budgets      *services.BudgetService
}

func NewStack(cfg *config.Config, repo *storage.Repository, events services.EventPublisher, m *metrics.Metrics) *Stack {
	accountant := services.NewAccountant()
	stats := services.NewStatsService(repo)
	return &Stack{
		Repo:         repo,
		Metrics:      m,
		Ledger:       services.NewLedgerService(repo, accountant, events, m),
		Accounts:     services.NewAccountService(repo),
		Recurring:    services.NewRecurringService(repo),
		Processor:    services.NewRecurringProcessor(repo, accountant, events, m, cfg.RecurringConcurrency),
		Stats:        stats,
		Installments: services.NewInstallmentService(repo),
		Budgets:      services.NewBudgetService(repo, stats),
	}
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. After
// the signal, cleanup runs with a context bounded by timeout and done is
// closed once it returns.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
