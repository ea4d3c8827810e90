package commands

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var rebalanceDate string

var rebalanceCmd = &cobra.Command{
	Use:   "rebalance",
	Short: "Plan the back-to-target rebalance (never auto-submits)",
	Long: `Computes, per ticker, the BUY or SELL that would bring the position
back to its target weight of the current portfolio value. The plan is
written to a dated JSON file for manual review; nothing is submitted.

Example:
  etfdca rebalance
  etfdca rebalance --date 2026-08-28`,
	RunE: runRebalance,
}

func init() {
	rootCmd.AddCommand(rebalanceCmd)
	rebalanceCmd.Flags().StringVar(&rebalanceDate, "date", "", "price as of this date (YYYY-MM-DD)")
}

func runRebalance(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	asof, err := parseDateFlag(rebalanceDate)
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	plan, err := a.runner.PlanRebalance(ctx, asof)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(plan)
}
