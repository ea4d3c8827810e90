package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/minghuang/etfdca/internal/calendar"
)

var dailyDate string

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Run the post-close signal evaluation and order flow once",
	Long: `Evaluates the trigger state machine against the benchmark close,
allocates any recommended buy across the portfolio, submits orders and
appends the trade log.

Without --date the most recent completed trading session is used.

Example:
  etfdca daily
  etfdca daily --date 2026-08-21`,
	RunE: runDaily,
}

func init() {
	rootCmd.AddCommand(dailyCmd)
	dailyCmd.Flags().StringVar(&dailyDate, "date", "", "evaluate as of this date (YYYY-MM-DD)")
}

func parseDateFlag(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("invalid --date %q, want YYYY-MM-DD", s)
	}
	d = calendar.Normalize(d)
	return &d, nil
}

func runDaily(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	asof, err := parseDateFlag(dailyDate)
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.runner.RunDaily(ctx, asof)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
