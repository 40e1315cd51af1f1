package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gastos/internal/amqp"
	"gastos/internal/config"
	"gastos/internal/core"
	applog "gastos/internal/log"
	"gastos/internal/metrics"

	"github.com/spf13/cobra"
)

// app carries the state shared by the gastosctl subcommands. The stack is
// opened lazily so commands that only talk to the broker never touch the
// database.
type app struct {
	cfg    *config.Config
	out    io.Writer
	logger *applog.Logger
	stack  *Stack
	client *amqp.Client
}

func (a *app) open(ctx context.Context) (*Stack, error) {
	if a.stack != nil {
		return a.stack, nil
	}
	repo, err := OpenRepository(ctx, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	client, events := ConnectAMQP(a.cfg, a.logger)
	a.client = client
	a.stack = NewStack(a.cfg, repo, events, metrics.New())
	return a.stack, nil
}

func (a *app) close() {
	if a.client != nil {
		a.client.Close()
	}
	if a.stack != nil {
		a.stack.Repo.Close()
	}
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Execute runs gastosctl with args over cfg, writing command results to out.
func Execute(ctx context.Context, cfg *config.Config, out io.Writer, args []string) error {
	a := &app{cfg: cfg, out: out}
	defer a.close()

	root := newRootCommand(a)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCommand(a *app) *cobra.Command {
	cfg := a.cfg
	root := &cobra.Command{
		Use:           "gastosctl",
		Short:         "Maintenance commands for the gastos ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if a.logger == nil {
				lc := applog.DefaultConfig()
				lc.Level = cfg.SlogLevel()
				lc.Component = applog.ComponentCLI
				lc.Output = cmd.ErrOrStderr()
				a.logger = applog.New(lc)
			}
		},
	}
	root.SetOut(a.out)

	root.AddCommand(
		newProcessCommand(a),
		newAssignAccountsCommand(a),
		newEnableAddIncomesCommand(a),
		newMigrateCommand(a),
	)
	return root
}

func newProcessCommand(a *app) *cobra.Command {
	var (
		userID   string
		allUsers bool
		lookback int
		today    string
		publish  bool
	)
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Materialize due recurring transactions",
		Long: `Materialize every recurring transaction instance that is due up to today.

Exactly one of --user or --all-users is required. With --publish the request
is queued for the recurring worker instead of being processed in place.`,
		Example: `  # Catch up one user, looking back three months
  gastosctl process --user 42 --lookback 3

  # Ask the worker to sweep every user as of a fixed date
  gastosctl process --all-users --today 2024-03-31 --publish`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (userID == "") == !allUsers {
				return errors.New("exactly one of --user or --all-users is required")
			}
			if lookback < 0 {
				return errors.New("--lookback cannot be negative")
			}
			var day core.Date
			if today != "" {
				d, err := core.ParseDate(today)
				if err != nil {
					return fmt.Errorf("invalid --today %q: %w", today, err)
				}
				day = d
			}
			ctx := cmd.Context()

			if publish {
				return a.publishProcess(ctx, userID, day, lookback)
			}

			st, err := a.open(ctx)
			if err != nil {
				return err
			}
			if day.IsZero() {
				day = core.Today()
			}
			if allUsers {
				res, err := st.Processor.ProcessAll(ctx, day, lookback)
				if err != nil {
					return err
				}
				return a.printJSON(res)
			}
			res, err := st.Processor.ProcessUser(ctx, userID, day, lookback)
			if err != nil {
				return err
			}
			return a.printJSON(res)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Process a single user")
	cmd.Flags().BoolVar(&allUsers, "all-users", false, "Process every user")
	cmd.Flags().IntVar(&lookback, "lookback", a.cfg.RecurringLookbackMonths, "Months before the current one to catch up")
	cmd.Flags().StringVar(&today, "today", "", "Reference date (YYYY-MM-DD), defaults to the current date")
	cmd.Flags().BoolVar(&publish, "publish", false, "Queue the request for the recurring worker")
	return cmd
}

func (a *app) publishProcess(ctx context.Context, userID string, day core.Date, lookback int) error {
	if a.cfg.AMQPURL == "" {
		return errors.New("--publish requires AMQP_URL")
	}
	client, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	a.client = client

	msg := amqp.NewProcessAllMessage(lookback)
	if userID != "" {
		msg = amqp.NewProcessUserMessage(userID, lookback)
	}
	msg.Today = day
	if err := client.PublishProcessRequest(ctx, msg); err != nil {
		return err
	}
	a.logger.Info("Process request published", "user_id", userID, "all_users", msg.AllUsers, "lookback_months", lookback)
	return nil
}

func newAssignAccountsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "assign-accounts",
		Short: "Link unassigned recurring transactions to the user's first bank account",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			expenses, incomes, err := st.Accounts.AssignDefaultAccounts(cmd.Context())
			if err != nil {
				return err
			}
			return a.printJSON(map[string]int{"expenses": expenses, "incomes": incomes})
		},
	}
}

func newEnableAddIncomesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "enable-add-incomes",
		Short: "Turn on income accumulation for every bank account",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			n, err := st.Accounts.EnableAddIncomes(cmd.Context())
			if err != nil {
				return err
			}
			return a.printJSON(map[string]int64{"accounts": n})
		},
	}
}

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Opening the repository migrates it.
			if _, err := a.open(cmd.Context()); err != nil {
				return err
			}
			a.logger.Info("Database schema up to date",
				applog.FieldOperation, applog.OpMigrate,
				"driver", a.cfg.DatabaseDriver)
			return nil
		},
	}
}
