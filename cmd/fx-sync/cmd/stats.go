package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/ledger-fx/pkg/db"
)

var statsRuns int

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display sync statistics",
	Long: `Display statistics about the synced budget.

Shows:
- Number of tracked difference transactions
- Number of cached exchange rates
- Last run date and server knowledge
- The most recent sync runs

Example:
  fx-sync stats`,
	Run: runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsRuns, "runs", 5, "number of recent sync runs to show")
}

func runStats(cmd *cobra.Command, args []string) {
	slog.Info("Loading configuration")

	cfg, err := loadConfig()
	exitOnError(err, "failed to load configuration")

	if err := cfg.Validate(
		[]string{"ynab", "budgetId"},
		[]string{"database", "file"},
	); err != nil {
		exitOnError(err, "invalid configuration")
	}

	slog.Debug("Opening database", "path", cfg.DatabaseFile)
	conn, err := db.Open(cfg.DatabaseFile)
	exitOnError(err, "failed to open database")
	defer conn.Close()

	store := db.NewStore(conn)

	budget, err := store.GetBudget(cfg.YNAB.BudgetID)
	exitOnError(err, "failed to get budget")
	if budget == nil {
		fmt.Printf("Budget %s has not been synced yet\n", cfg.YNAB.BudgetID)
		return
	}

	stats, err := store.GetStats(budget.ID)
	exitOnError(err, "failed to get statistics")

	runs, err := store.ListSyncRuns(budget.ID, statsRuns)
	exitOnError(err, "failed to list sync runs")

	// Display statistics
	fmt.Println("\n=== Sync Statistics ===")
	fmt.Printf("Budget:                  %s\n", budget.YNABBudgetID)
	fmt.Printf("Start date:              %s\n", budget.StartDate.Format(db.DateLayout))
	fmt.Printf("Difference transactions: %d\n", stats.DifferenceTransactions)
	fmt.Printf("Exchange rates:          %d\n", stats.ExchangeRates)
	fmt.Printf("Sync runs:               %d\n", stats.SyncRuns)

	if stats.LastRunDate.Valid {
		fmt.Printf("Last run:                %s\n", stats.LastRunDate.String)
	} else {
		fmt.Printf("Last run:                (never)\n")
	}
	if stats.ServerKnowledge.Valid {
		fmt.Printf("Server knowledge:        %d\n", stats.ServerKnowledge.Int64)
	}

	if len(runs) > 0 {
		fmt.Println("\n=== Recent Runs ===")
		for _, run := range runs {
			fmt.Printf("%s  %s  creates=%d updates=%d deletes=%d adjustments=%d\n",
				run.StartedAt.Local().Format("2006-01-02 15:04:05"),
				run.RunID,
				run.Creates, run.Updates, run.Deletes, run.Adjustments,
			)
		}
	}

	fmt.Println()

	slog.Info("Statistics displayed successfully")
}
