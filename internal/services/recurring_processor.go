package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"gastos/internal/amqp"
	"gastos/internal/core"
	applog "gastos/internal/log"
	"gastos/internal/metrics"
	"gastos/internal/storage"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("gastos/services")

// Failure records a fixed transaction that could not be processed.
type Failure struct {
	RecurringID string `json:"recurring_id"`
	Reason      string `json:"reason"`
}

// ProcessResult summarizes one scheduler run for a user.
type ProcessResult struct {
	ProcessedCount  int       `json:"processed_count"`
	CreatedEntryIDs []string  `json:"created_entry_ids"`
	Failures        []Failure `json:"failures"`
}

// SweepResult summarizes a run over every user.
type SweepResult struct {
	Users          int `json:"users"`
	ProcessedCount int `json:"processed_count"`
	Failures       int `json:"failures"`
	UserErrors     int `json:"user_errors"`
}

// RecurringProcessor materializes fixed transactions into ledger entries.
type RecurringProcessor struct {
	repo        *storage.Repository
	accountant  *Accountant
	events      EventPublisher
	metrics     *metrics.Metrics
	concurrency int
}

// NewRecurringProcessor creates a processor. events and m may be nil;
// concurrency bounds how many users ProcessAll handles at once.
func NewRecurringProcessor(repo *storage.Repository, accountant *Accountant, events EventPublisher, m *metrics.Metrics, concurrency int) *RecurringProcessor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &RecurringProcessor{
		repo:        repo,
		accountant:  accountant,
		events:      events,
		metrics:     m,
		concurrency: concurrency,
	}
}

// ProcessUser runs the scheduler over every active fixed transaction of a
// user. Each transaction is handled in its own database transaction: its
// entries, their card usage and its watermark are committed together or not
// at all. A failing transaction is reported in the result and does not stop
// the others.
func (p *RecurringProcessor) ProcessUser(ctx context.Context, userID string, today core.Date, lookbackMonths int) (ProcessResult, error) {
	ctx, span := tracer.Start(ctx, "RecurringProcessor.ProcessUser")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("today", today.String()),
		attribute.Int("lookback_months", lookbackMonths),
	)
	defer p.metrics.ObserveDuration("recurring.process_user", time.Now())

	result := ProcessResult{CreatedEntryIDs: []string{}, Failures: []Failure{}}
	if lookbackMonths < 0 {
		return result, &core.ErrValidation{Field: "lookback_months", Message: "cannot be negative"}
	}
	if err := today.Validate(); err != nil {
		return result, core.Invalid("today", err)
	}

	defs, err := p.repo.ListRecurring(ctx, userID, true)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return result, fmt.Errorf("list active recurring transactions: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring transactions",
		"user_id", userID,
		"total_active", len(defs),
		"today", today.String(),
		"lookback_months", lookbackMonths)

	var created []core.LedgerEntry
	for _, rt := range defs {
		entries, err := p.processOne(ctx, rt, today, lookbackMonths)
		if err != nil {
			fields := applog.NewFields().
				WithEntry(userID, string(rt.Kind), rt.Amount.Cents, string(rt.Currency)).
				WithRecurring(rt.ID)
			applog.FromContext(ctx).LogError(ctx, "Failed to process recurring transaction", err, applog.OpProcess, fields)
			result.Failures = append(result.Failures, Failure{RecurringID: rt.ID, Reason: err.Error()})
			continue
		}
		if len(entries) == 0 {
			continue
		}

		first, last := entries[0].Date, entries[len(entries)-1].Date
		slog.InfoContext(ctx, "Created entries from recurring transaction",
			"recurring_id", rt.ID,
			"name", rt.Name,
			"kind", rt.Kind,
			"entries", len(entries),
			"from", first.String(),
			"to", last.String())
		created = append(created, entries...)
	}

	for _, e := range created {
		result.CreatedEntryIDs = append(result.CreatedEntryIDs, e.ID)
		publishEvent(ctx, p.events, amqp.EventCreated, string(e.Kind), e.ID, e.UserID)
	}
	result.ProcessedCount = len(result.CreatedEntryIDs)

	p.metrics.AddRecurringCreated(result.ProcessedCount)
	p.metrics.AddRecurringFailures(len(result.Failures))
	span.SetAttributes(
		attribute.Int("processed_count", result.ProcessedCount),
		attribute.Int("failures", len(result.Failures)),
	)

	slog.InfoContext(ctx, "Recurring processing complete",
		"user_id", userID,
		"processed", result.ProcessedCount,
		"failures", len(result.Failures),
		"total_checked", len(defs))

	return result, nil
}

// processOne materializes the due instances of one definition. The listed
// copy only names the row: dates are computed from the row as locked inside
// the transaction, so overlapping runs never create the same month twice.
func (p *RecurringProcessor) processOne(ctx context.Context, listed core.RecurringTransaction, today core.Date, lookbackMonths int) ([]core.LedgerEntry, error) {
	var created []core.LedgerEntry
	err := p.repo.WithTx(ctx, func(s *storage.Store) error {
		rt, err := s.LockRecurring(ctx, listed.ID)
		if core.IsNotFound(err) {
			return nil // deleted since it was listed
		}
		if err != nil {
			return err
		}
		dates := slices.Collect(DueDates(rt, today, lookbackMonths))
		if len(dates) == 0 {
			return nil
		}
		if err := rt.Currency.Validate(); err != nil {
			return core.Invalid("currency", err)
		}
		ok, err := s.CategoryExists(ctx, rt.CategoryID)
		if err != nil {
			return err
		}
		if !ok {
			return &core.ErrValidation{Field: "category_id", Message: fmt.Sprintf("unknown category %q", rt.CategoryID)}
		}

		for _, d := range dates {
			e := rt.Materialize(d)
			if err := e.Validate(); err != nil {
				return core.Invalid("entry", err)
			}
			if err := s.CreateEntry(ctx, &e); err != nil {
				return err
			}
			if err := p.accountant.EntryCreated(ctx, s, e); err != nil {
				return err
			}
			created = append(created, e)
		}

		return s.SetLastProcessedDate(ctx, rt.ID, today)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ProcessAll runs ProcessUser for every user, at most concurrency users at a
// time. Per-user errors are logged and counted; only cancellation of ctx is
// returned.
func (p *RecurringProcessor) ProcessAll(ctx context.Context, today core.Date, lookbackMonths int) (SweepResult, error) {
	ctx, span := tracer.Start(ctx, "RecurringProcessor.ProcessAll")
	defer span.End()
	defer p.metrics.ObserveDuration("recurring.process_all", time.Now())

	var sweep SweepResult
	userIDs, err := p.repo.ListUserIDs(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return sweep, fmt.Errorf("list users: %w", err)
	}
	sweep.Users = len(userIDs)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(p.concurrency)

	for _, userID := range userIDs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := p.ProcessUser(ctx, userID, today, lookbackMonths)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.ErrorContext(ctx, "Failed to process user", "user_id", userID, "error", err)
				sweep.UserErrors++
				return nil
			}
			sweep.ProcessedCount += res.ProcessedCount
			sweep.Failures += len(res.Failures)
			return nil
		})
	}
	_ = g.Wait()

	slog.InfoContext(ctx, "Recurring sweep complete",
		"users", sweep.Users,
		"processed", sweep.ProcessedCount,
		"failures", sweep.Failures,
		"user_errors", sweep.UserErrors)

	return sweep, ctx.Err()
}
