package commands

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var (
	initDate         string
	initSeedHoldings bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Build the one-shot equal-weight initial order sheet",
	Long: `Splits the configured initial CNY amount evenly across the
portfolio and down-rounds each slice to whole shares. Writes the order
sheet to the data directory; with --seed-holdings the resulting share
counts become the starting holdings file.

Example:
  etfdca init
  etfdca init --seed-holdings --date 2026-01-05`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initDate, "date", "", "price as of this date (YYYY-MM-DD)")
	initCmd.Flags().BoolVar(&initSeedHoldings, "seed-holdings", false, "write the resulting shares as holdings.csv")
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	asof, err := parseDateFlag(initDate)
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.runner.RunBootstrap(ctx, asof, initSeedHoldings)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
