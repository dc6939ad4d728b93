package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/ledger-fx/pkg/currconv"
	"github.com/shunichi-ikebuchi/ledger-fx/pkg/db"
	"github.com/shunichi-ikebuchi/ledger-fx/pkg/reconcile"
	"github.com/shunichi-ikebuchi/ledger-fx/pkg/ynab"
)

var (
	commit                  bool
	startDate               string
	autoApproveTransactions bool
	autoApproveAdjustments  bool
	noColor                 bool
)

// syncCmd represents the sync command.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Create and update difference transactions",
	Long: `Sync the difference accounts of the budget.

This command:
1. Fetches the transactions changed since the last run
2. Converts foreign currency transactions at the rate of their date
3. Creates or updates their difference transactions
4. Adds exchange rate adjustments at today's rate
5. Records the sync state in SQLite

Without --yes nothing is saved.

Example:
  fx-sync sync
  fx-sync sync --start-date 2024-01-01 --yes`,
	Run: runSync,
}

func init() {
	// Flags
	syncCmd.Flags().BoolVarP(&commit, "yes", "y", false, "save the changes to YNAB")
	syncCmd.Flags().StringVar(&startDate, "start-date", "", "first date to sync (YYYY-MM-DD), only on the first run for a budget")
	syncCmd.Flags().BoolVar(&autoApproveTransactions, "auto-approve-transactions", false, "approve created difference transactions")
	syncCmd.Flags().BoolVar(&autoApproveAdjustments, "auto-approve-adjustments", false, "approve created adjustment transactions")
	syncCmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

func runSync(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	exitOnError(err, "failed to load configuration")

	if err := cfg.Validate(
		[]string{"ynab", "accessToken"},
		[]string{"ynab", "budgetId"},
		[]string{"ynab", "apiUrl"},
		[]string{"currencyConverter", "apiKey"},
		[]string{"currencyConverter", "baseUrl"},
		[]string{"database", "file"},
	); err != nil {
		exitOnError(err, "invalid configuration")
	}

	opts := reconcile.Options{
		BudgetID:                cfg.YNAB.BudgetID,
		Commit:                  commit,
		AutoApproveTransactions: autoApproveTransactions || cfg.AutoApproveTransactions,
		AutoApproveAdjustments:  autoApproveAdjustments || cfg.AutoApproveAdjustments,
		Color:                   !noColor && !color.NoColor,
		Now:                     time.Now,
	}
	if startDate != "" {
		start, err := time.Parse(db.DateLayout, startDate)
		exitOnError(err, "invalid --start-date")
		opts.StartDate = &start
	}

	slog.Info("Starting sync", "budget_id", opts.BudgetID, "commit", opts.Commit)

	slog.Debug("Opening database", "path", cfg.DatabaseFile)
	conn, err := db.Open(cfg.DatabaseFile)
	exitOnError(err, "failed to open database")
	defer conn.Close()

	client := ynab.NewClient(ynab.ClientConfig{
		APIURL:                    cfg.YNAB.APIURL,
		AccessToken:               cfg.YNAB.AccessToken,
		BudgetID:                  cfg.YNAB.BudgetID,
		Timeout:                   cfg.HTTPTimeout,
		MaxTransactionsPerRequest: cfg.YNAB.MaxTransactionsPerRequest,
	})
	provider := currconv.NewClient(currconv.ClientConfig{
		BaseURL:            cfg.CurrencyConverter.BaseURL,
		APIKey:             cfg.CurrencyConverter.APIKey,
		MaxPairsPerRequest: cfg.CurrencyConverter.MaxPairsPerRequest,
		Timeout:            cfg.HTTPTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	syncer := reconcile.NewSyncer(client, db.NewStore(conn), provider, os.Stdout)
	report, err := syncer.Run(ctx, opts)
	if err != nil {
		// Deferred calls do not run on os.Exit.
		stop()
		conn.Close()
		exitOnError(err, "sync failed")
	}

	if report.Result != nil {
		slog.Info("Sync completed",
			"run_id", report.Result.RunID,
			"creates", report.Result.Creates,
			"updates", report.Result.Updates,
			"deletes", report.Result.Deletes,
			"adjustments", report.Result.Adjustments,
		)
	}
}
