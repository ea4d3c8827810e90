package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/minghuang/etfdca/internal/contracts"
	"github.com/minghuang/etfdca/internal/holdings"
)

var statusVerify bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the reserve balance, recent trades and holdings",
	Long: `Prints the reserve cash balance folded from the trade log, the most
recent trades and the current holdings.

With --verify the full log is replayed and checked against the reserve
and monthly-cap invariants.

Example:
  etfdca status
  etfdca status --verify`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusVerify, "verify", false, "replay the log and check invariants")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.store.Load(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Strategy:        %s\n", a.strategy.Meta.StrategyID)
	fmt.Printf("Trades logged:   %d\n", len(entries))
	fmt.Printf("Reserve balance: %.2f CNY\n", contracts.ReserveBalance(entries))

	if n := len(entries); n > 0 {
		fmt.Println("\nRecent trades:")
		start := n - 5
		if start < 0 {
			start = 0
		}
		for _, e := range entries[start:] {
			fmt.Printf("  %s  %-12s deployed %.2f CNY, reserve %.2f CNY\n",
				e.Date.Format("2006-01-02"), e.Trigger, e.DeployedCNY, e.ReserveAfterCNY)
		}
	}

	hold, err := holdings.Load(filepath.Join(a.cfg.DataDir, "holdings.csv"))
	if err == nil {
		fmt.Println("\nHoldings:")
		for _, t := range a.strategy.Symbols.Portfolio {
			fmt.Printf("  %-6s %.4f shares\n", t, hold[t])
		}
	}

	if statusVerify {
		audit, err := a.runner.AuditLog(ctx)
		if err != nil {
			return err
		}
		if audit.OK() {
			fmt.Println("\nAudit: OK")
		} else {
			fmt.Println("\nAudit: FAILED")
			for _, p := range audit.Problems {
				fmt.Printf("  - %s\n", p)
			}
			return fmt.Errorf("trade log audit failed with %d problem(s)", len(audit.Problems))
		}
	}
	return nil
}
