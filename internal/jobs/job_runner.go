package jobs

import (
	"context"
	"fmt"
	"time"

	"equipment-rental-backend/internal/config"
	"equipment-rental-backend/internal/logger"
	"equipment-rental-backend/internal/service"
)

const JobMarkOverdueReservations = "mark-overdue-reservations"

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	reservations service.ReservationService
	config       *config.Config
	now          func() time.Time
	timeout      time.Duration
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(reservations service.ReservationService, cfg *config.Config) *JobRunner {
	return &JobRunner{
		reservations: reservations,
		config:       cfg,
		now:          func() time.Time { return time.Now().UTC() },
		timeout:      5 * time.Minute,
	}
}

// Config returns the configuration the jobs were built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// RunOnce runs the named job synchronously
func (jr *JobRunner) RunOnce(name string) error {
	switch name {
	case JobMarkOverdueReservations:
		return jr.markOverdueReservations()
	default:
		return fmt.Errorf("unknown job %q, available jobs: %s", name, JobMarkOverdueReservations)
	}
}

// runWithRecovery wraps job execution with panic recovery. A panic comes
// back as an error.
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
			err = fmt.Errorf("job %s panicked: %v", jobName, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jr.timeout)
	defer cancel()

	logger.Info("Starting job", "job", jobName)
	start := time.Now()
	if err := jobFunc(ctx); err != nil {
		logger.Error("Job failed", "job", jobName, "error", err, "duration_ms", time.Since(start).Milliseconds())
		return err
	}
	logger.Info("Job completed", "job", jobName, "duration_ms", time.Since(start).Milliseconds())
	return nil
}
