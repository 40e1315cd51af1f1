package main

import (
	"context"
	"errors"
	"os"
	"time"

	"gastos/internal/amqp"
	"gastos/internal/cli"
	"gastos/internal/core"
	applog "gastos/internal/log"
	"gastos/internal/metrics"
	"gastos/internal/services"

	"golang.org/x/sync/errgroup"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentScheduler)

	logger.Info("Starting recurring-worker")

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
	processor := stack.Processor

	logger.Info("Recurring processor configured",
		"interval", cfg.RecurringInterval,
		"lookback_months", cfg.RecurringLookbackMonths,
		"concurrency", cfg.RecurringConcurrency)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sweepLoop(gctx, logger, processor, cfg.RecurringInterval, cfg.RecurringLookbackMonths)
		return nil
	})
	if client != nil {
		g.Go(func() error {
			err := client.ConsumeProcessRequests(gctx, handleProcessRequest(logger, processor))
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Process request consumer stopped", "error", err)
			}
			return nil
		})
	}

	_ = g.Wait()
	cli.WaitForShutdown(ctx, done)
	logger.Info("Recurring-worker shutdown complete")
}

// sweepLoop runs a full sweep on startup and then once per interval.
func sweepLoop(ctx context.Context, logger *applog.Logger, processor *services.RecurringProcessor, interval time.Duration, lookback int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Running initial recurring sweep...")
	sweep(ctx, logger, processor, lookback)

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			sweep(ctx, logger, processor, lookback)
			logger.Info("Next recurring sweep scheduled", "next_check", now.Add(interval).Format("15:04:05"))
		}
	}
}

func sweep(ctx context.Context, logger *applog.Logger, processor *services.RecurringProcessor, lookback int) {
	res, err := processor.ProcessAll(ctx, core.Today(), lookback)
	if err != nil {
		logger.LogError(ctx, "Recurring sweep failed", err, applog.OpProcess, nil)
		return
	}
	logger.Info("Recurring sweep complete",
		"users", res.Users,
		"entries_created", res.ProcessedCount,
		"failures", res.Failures)
}

func handleProcessRequest(logger *applog.Logger, processor *services.RecurringProcessor) func(context.Context, *amqp.ProcessRecurringMessage) error {
	return func(ctx context.Context, msg *amqp.ProcessRecurringMessage) error {
		today := msg.Today
		if today.IsZero() {
			today = core.Today()
		}
		if msg.AllUsers {
			_, err := processor.ProcessAll(ctx, today, msg.LookbackMonths)
			return err
		}
		_, err := processor.ProcessUser(ctx, msg.UserID, today, msg.LookbackMonths)
		if core.IsValidation(err) || core.IsNotFound(err) {
			// Redelivery cannot fix these.
			logger.Warn("Dropping process request", "user_id", msg.UserID, "error", err)
			return nil
		}
		return err
	}
}
