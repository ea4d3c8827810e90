package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minghuang/etfdca/pkg/logger"
)

type fakeJob struct {
	name     string
	schedule string
	done     chan struct{}
}

func (j *fakeJob) Name() string     { return j.name }
func (j *fakeJob) Schedule() string { return j.schedule }

func (j *fakeJob) Run(context.Context) error {
	close(j.done)
	return nil
}

func newFakeJob(name string) *fakeJob {
	// A schedule far in the future so only RunNow triggers it.
	return &fakeJob{name: name, schedule: "0 0 0 1 1 *", done: make(chan struct{})}
}

func TestAddJobRejectsDuplicates(t *testing.T) {
	s := New(logger.Nop())

	require.NoError(t, s.AddJob(newFakeJob("daily_signal")))
	err := s.AddJob(newFakeJob("daily_signal"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestAddJobRejectsBadCron(t *testing.T) {
	job := newFakeJob("broken")
	job.schedule = "not a cron line"

	err := New(logger.Nop()).AddJob(job)
	require.Error(t, err)
}

func TestRunNow(t *testing.T) {
	s := New(logger.Nop())
	job := newFakeJob("daily_signal")
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunNow("daily_signal"))
	select {
	case <-job.done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}

	// History catches up shortly after the job returns.
	require.Eventually(t, func() bool {
		h, err := s.History("daily_signal")
		return err == nil && len(h.Results) == 1 && h.Results[0].Success
	}, 2*time.Second, 10*time.Millisecond)

	stats := s.Stats()
	require.Contains(t, stats, "daily_signal")
	assert.Equal(t, 1, stats["daily_signal"].TotalRuns)
	assert.Equal(t, 1.0, stats["daily_signal"].SuccessRate)
}

func TestRunNowUnknownJob(t *testing.T) {
	err := New(logger.Nop()).RunNow("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
