package scheduler

import (
	"testing"

	"rental-car-dashboard/internal/config"
	"rental-car-dashboard/internal/events"
	"rental-car-dashboard/internal/jobs"
	"rental-car-dashboard/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runner(sched config.SchedulerConfig) *jobs.JobRunner {
	cfg := &config.Config{Scheduler: sched}
	return jobs.NewJobRunner(memory.NewStore(), events.NewBus(nil), cfg)
}

func TestNewScheduler(t *testing.T) {
	s, err := NewScheduler(runner(config.SchedulerConfig{
		FlagOverdueReturns:      "0 */15 * * * *",
		RemindUnassignedPickups: "0 0 8,17 * * *",
	}))
	require.NoError(t, err)
	assert.Equal(t, 2, s.Entries())

	s.Start()
	s.Stop()
}

func TestNewScheduler_InvalidSpec(t *testing.T) {
	_, err := NewScheduler(runner(config.SchedulerConfig{
		FlagOverdueReturns:      "every now and then",
		RemindUnassignedPickups: "0 0 8 * * *",
	}))
	assert.Error(t, err)
}
