package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/minghuang/etfdca/internal/scheduler"
	"github.com/minghuang/etfdca/internal/scheduler/jobs"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the daily job on its cron schedule",
	Long: `Starts the scheduler and runs the daily signal flow on the cron
expression from SCHEDULE_CRON. The default fires at 16:30 ET on
weekdays, after the close; non-trading days evaluate to a no-op.

Runs until interrupted.

Example:
  etfdca schedule`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sched := scheduler.New(a.log)
	if err := sched.AddJob(jobs.NewDailyJob(a.runner, a.cfg, a.log)); err != nil {
		return err
	}

	sched.Start()
	defer sched.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	a.log.Info("Shutdown signal received")
	return nil
}
