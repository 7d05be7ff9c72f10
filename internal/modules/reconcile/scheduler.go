package reconcile

import (
	"context"
	"fmt"
	"time"

	"anoa.com/shuttleapi/pkg/logger"
	"github.com/robfig/cron/v3"
)

// Job is a unit of scheduled background work.
type Job interface {
	GetName() string
	// GetSchedule returns a cron expression such as "@every 6h" or "0 3 * * *".
	// An empty schedule registers the job without running it.
	GetSchedule() string
	Execute(ctx context.Context) error
}

// Scheduler runs registered jobs on their cron schedules. A job that is still
// running when its next tick fires skips that tick.
type Scheduler struct {
	cron *cron.Cron
	jobs []Job
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		jobs: make([]Job, 0),
	}
}

func (s *Scheduler) Register(job Job) error {
	schedule := job.GetSchedule()
	if schedule != "" {
		_, err := s.cron.AddFunc(schedule, func() {
			start := time.Now()
			log := logger.With("scheduler")
			log.Info().Str("job", job.GetName()).Msg("starting scheduled job")
			if err := job.Execute(context.Background()); err != nil {
				log.Error().Err(err).Str("job", job.GetName()).Msg("scheduled job failed")
				return
			}
			log.Info().Str("job", job.GetName()).Dur("took", time.Since(start)).Msg("scheduled job completed")
		})
		if err != nil {
			return fmt.Errorf("schedule %s with %q: %w", job.GetName(), schedule, err)
		}
	}

	s.jobs = append(s.jobs, job)
	logger.Info().Str("job", job.GetName()).Str("schedule", schedule).Msg("job registered")
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info().Int("jobs", len(s.jobs)).Msg("scheduler started")
}

// Stop halts new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		logger.Warn().Msg("scheduler stopped before running jobs finished")
	}
}
