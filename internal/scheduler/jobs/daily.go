package jobs

import (
	"context"
	"fmt"

	"github.com/minghuang/etfdca/internal/runner"
	"github.com/minghuang/etfdca/pkg/config"
	"github.com/minghuang/etfdca/pkg/logger"
)

// DailyJob runs the post-close signal evaluation and order flow.
type DailyJob struct {
	runner *runner.Runner
	config *config.Config
	logger *logger.Logger
}

func NewDailyJob(r *runner.Runner, cfg *config.Config, log *logger.Logger) *DailyJob {
	return &DailyJob{
		runner: r,
		config: cfg,
		logger: log,
	}
}

func (j *DailyJob) Name() string {
	return "daily_signal"
}

// Schedule comes from configuration; the default fires at 16:30 ET on
// weekdays, after the asof cutoff so the run evaluates today's close.
func (j *DailyJob) Schedule() string {
	return j.config.ScheduleCron
}

func (j *DailyJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled daily run")

	summary, err := j.runner.RunDaily(ctx, nil)
	if err != nil {
		return fmt.Errorf("daily run: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"date":    summary.Date,
		"trigger": summary.Trigger,
		"orders":  len(summary.Orders),
	}).Info("Scheduled daily run completed")
	return nil
}
