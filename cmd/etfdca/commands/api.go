package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/minghuang/etfdca/internal/api"
	"github.com/minghuang/etfdca/internal/api/handlers"
	"github.com/minghuang/etfdca/internal/scheduler"
	"github.com/minghuang/etfdca/internal/scheduler/jobs"
	"github.com/minghuang/etfdca/internal/strategyconfig"
)

var (
	apiPort          string
	apiWithScheduler bool
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Serve the read-only status API",
	Long: `Starts the HTTP status server and, unless disabled, the daily
scheduler alongside it.

Endpoints:
  GET  /health               - health check
  GET  /api/reserve          - reserve balance folded from the log
  GET  /api/log              - trade log (?month=YYYY-MM)
  GET  /api/holdings         - current share counts
  GET  /api/summary/{date}   - persisted run summary
  GET  /api/strategy         - active strategy and its hash
  POST /api/run              - trigger the daily job now

Example:
  etfdca api
  etfdca api --port 8086 --scheduler=false`,
	RunE: runAPIServer,
}

func init() {
	rootCmd.AddCommand(apiCmd)
	apiCmd.Flags().StringVar(&apiPort, "port", "", "listen port (default from PORT)")
	apiCmd.Flags().BoolVar(&apiWithScheduler, "scheduler", true, "run the daily scheduler in-process")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	var jobRunner handlers.JobRunner
	if apiWithScheduler {
		sched := scheduler.New(a.log)
		if err := sched.AddJob(jobs.NewDailyJob(a.runner, a.cfg, a.log)); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
		jobRunner = sched
	}

	hash, err := strategyconfig.Hash(a.strategy)
	if err != nil {
		return fmt.Errorf("hash strategy: %w", err)
	}

	status := handlers.NewStatusHandler(a.store, a.cfg.DataDir, hash, a.strategy, jobRunner, a.log)
	server := api.New(a.cfg, a.log, api.NewRouter(status, a.log))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	a.log.Info("Shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
