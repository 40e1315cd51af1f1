package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"gastos/internal/cli"
	apphttp "gastos/internal/http"
	applog "gastos/internal/log"
	"gastos/internal/metrics"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentHTTP)

	repo, err := cli.OpenRepository(context.Background(), cfg)
	if err != nil {
		logger.LogError(context.Background(), "Failed to open database", err, applog.OpStartup, applog.LogFields{"driver": cfg.DatabaseDriver})
		os.Exit(1)
	}
	defer repo.Close()

	client, events := cli.ConnectAMQP(cfg, logger)
	if client != nil {
		defer client.Close()
	}

	stack := cli.NewStack(cfg, repo, events, metrics.New())
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Services{
		Ledger:       stack.Ledger,
		Accounts:     stack.Accounts,
		Recurring:    stack.Recurring,
		Processor:    stack.Processor,
		Stats:        stack.Stats,
		Installments: stack.Installments,
		Budgets:      stack.Budgets,
		Store:        repo,
		Metrics:      stack.Metrics,
	}, logger)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.LogError(ctx, "Server shutdown error", err, applog.OpShutdown, nil)
		}
	})

	logger.Info("Starting gastos server", "port", cfg.Port, "driver", cfg.DatabaseDriver)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
