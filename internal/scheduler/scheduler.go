// Package scheduler triggers pipeline runs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	batchModel "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context) (*batchModel.RunExecution, error)
}

// Scheduler runs the pipeline on every tick of its cron expression. A tick that fires while
// the previous run is still going is skipped.
type Scheduler struct {
	spec       string
	runOnStart bool
	runner     Runner
	cron       *cron.Cron
	chain      cron.Chain
}

// New creates a Scheduler. Ticks are evaluated in the configured pipeline timezone.
func New(cfg *config.Config, runner Runner) *Scheduler {
	cronLogger := logger.NewCronLoggerAdapter()
	return &Scheduler{
		spec:       cfg.ETL.Schedule.Cron,
		runOnStart: cfg.ETL.Schedule.RunOnStart,
		runner:     runner,
		cron:       cron.New(cron.WithLocation(cfg.Location()), cron.WithLogger(cronLogger)),
		chain:      cron.NewChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	}
}

// Start schedules the pipeline and blocks until ctx is done. On return no run is in progress.
func (s *Scheduler) Start(ctx context.Context) error {
	// The run-on-start job shares the chain, so it also blocks overlapping ticks.
	job := s.chain.Then(cron.FuncJob(func() { s.runOnce(ctx) }))
	if _, err := s.cron.AddJob(s.spec, job); err != nil {
		return exception.NewBatchError("Scheduler", fmt.Sprintf("invalid cron expression '%s'", s.spec), err, false, false)
	}

	logger.Infof("Scheduler started with schedule: %s", s.spec)
	s.cron.Start()
	var startup sync.WaitGroup
	if s.runOnStart {
		startup.Add(1)
		go func() {
			defer startup.Done()
			job.Run()
		}()
	}

	<-ctx.Done()
	logger.Infof("Scheduler stopping, waiting for a running pipeline to finish...")
	<-s.cron.Stop().Done()
	startup.Wait()
	logger.Infof("Scheduler stopped.")
	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	run, err := s.runner.Run(ctx)
	if err != nil {
		logger.Warnf("Scheduled run finished with failures: %s", exception.ExtractErrorMessage(err))
	}
	if run != nil {
		logger.Debugf("Scheduled run '%s' took %s.", run.ID, run.Duration())
	}
}
