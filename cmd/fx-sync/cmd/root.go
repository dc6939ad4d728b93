// Package cmd provides CLI commands for fx-sync.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/ledger-fx/pkg/config"
)

var (
	cfgFile      string
	settingsFile string
	databaseFile string
	debug        bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "fx-sync",
	Short: "Track foreign currency accounts of a YNAB budget in the local currency",
	Long: `fx-sync keeps foreign currency accounts of a YNAB budget valued in the
budget's currency.

For every transaction in an account tagged with a currency, e.g. "Euro <EUR>",
it books the exchange difference into the matching difference account,
e.g. "Euro <EUR DIFFERENCE>", and revalues the balances at today's rate.

Example:
  fx-sync sync            # show what would change
  fx-sync sync --yes      # save the changes to YNAB
  fx-sync stats`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Setup logging
		logLevel := slog.LevelInfo
		if debug {
			logLevel = slog.LevelDebug
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "env file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&settingsFile, "config-file", "", "YAML settings file (default is "+config.DefaultConfigFile+" if present)")
	rootCmd.PersistentFlags().StringVar(&databaseFile, "database-file", "", "SQLite database file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	// Add subcommands
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statsCmd)
}

// loadConfig loads the configuration and applies the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFile(settingsFile, cfgFile)
	if err != nil {
		return nil, err
	}
	if databaseFile != "" {
		cfg.DatabaseFile = databaseFile
	}
	return cfg, nil
}

// Helper function to handle errors and exit.
func exitOnError(err error, msg string) {
	if err != nil {
		slog.Error(msg, "error", err)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}
