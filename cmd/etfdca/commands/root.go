package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	dataDir      string
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "etfdca",
	Short: "ETF 定投信号与下单引擎",
	Long: `Daily buy-signal and allocation engine for a fixed ETF portfolio.

Evaluates the post-close trigger state machine against the benchmark,
sizes a CNY buy across the portfolio by target weight, submits orders
to a paper or Alpaca broker and mails a daily report.

Examples:
  etfdca daily
  etfdca daily --date 2026-08-21
  etfdca init --seed-holdings
  etfdca schedule
  etfdca api`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy YAML path (default from STRATEGY_FILE)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default from DATA_DIR)")
}
