package jobs

import (
	"context"
	"time"

	"rental-car-dashboard/internal/config"
	"rental-car-dashboard/internal/domain"
	"rental-car-dashboard/internal/logger"
	"rental-car-dashboard/internal/repository"
	"rental-car-dashboard/internal/service"
)

const listPageSize = 100

// systemActor is recorded on events raised by scheduled jobs.
var systemActor = domain.Actor{Email: "scheduler", Role: domain.RoleAdmin}

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	store  repository.Store
	bus    service.Emitter
	config *config.Config
	now    func() time.Time
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(store repository.Store, bus service.Emitter, cfg *config.Config) *JobRunner {
	return &JobRunner{
		store:  store,
		bus:    bus,
		config: cfg,
		now:    time.Now,
	}
}

func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// listAll pages through every reservation matching filter.
func (jr *JobRunner) listAll(ctx context.Context, filter domain.ReservationFilter) ([]domain.Reservation, error) {
	filter.PageSize = listPageSize
	var out []domain.Reservation
	for page := int32(1); ; page++ {
		filter.Page = page
		batch, total, err := jr.store.Reservations().List(ctx, filter)
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
		if len(batch) == 0 || int32(len(out)) >= total {
			return out, nil
		}
	}
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.FlagOverdueReturns()
	jr.RemindUnassignedPickups()
}
