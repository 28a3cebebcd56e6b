package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/weather-etl/internal/domain/model"
	batchModel "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	port "github.com/tigerroll/weather-etl/pkg/batch/core/ports"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

const module = "Orchestrator"

// Orchestrator runs the city pipeline once for every configured city.
type Orchestrator struct {
	name        string
	cities      []model.City
	parallelism int
	cfg         config.PipelineConfig
	city        *CityPipeline
	syncer      SubscriberSyncer
	listener    port.PipelineListener
	now         func() time.Time
}

// NewOrchestrator creates an Orchestrator. A nil syncer skips the subscriber refresh.
func NewOrchestrator(cfg *config.Config, city *CityPipeline, syncer SubscriberSyncer, listener port.PipelineListener) *Orchestrator {
	if listener == nil {
		listener = port.NoOpListener{}
	}
	if syncer == nil {
		syncer = NoOpSyncer{}
	}
	parallelism := cfg.ETL.Pipeline.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}
	return &Orchestrator{
		name:        cfg.ETL.Pipeline.Name,
		cities:      model.CitiesFromConfig(cfg.ETL.Pipeline.Cities),
		parallelism: parallelism,
		cfg:         cfg.ETL.Pipeline,
		city:        city,
		syncer:      syncer,
		listener:    listener,
		now:         time.Now,
	}
}

// WithClock sets the source of the run start time, which decides what "tomorrow" is for every city.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// Run processes every city and returns the finished run. The error aggregates the per-city
// failures; it is nil only when every city completed.
func (o *Orchestrator) Run(ctx context.Context) (*batchModel.RunExecution, error) {
	run := batchModel.NewRunExecution(o.name, len(o.cities))
	run.StartTime = o.now()
	ctx = o.listener.BeforeRun(ctx, run)
	run.MarkAsStarted()

	if n, err := o.syncer.Sync(ctx); err != nil {
		logger.Warnf("Subscriber sync failed, broadcasting to the known registry: %s", exception.ExtractErrorMessage(err))
	} else if n > 0 {
		logger.Infof("Registered %d new subscriber(s).", n)
	}

	// Executions are created up front so their order follows the configuration.
	executions := make([]*batchModel.CityExecution, len(o.cities))
	for i, c := range o.cities {
		executions[i] = run.NewCityExecution(c.Name)
	}

	var (
		mu   sync.Mutex
		merr *multierror.Error
	)
	collect := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		merr = multierror.Append(merr, err)
		mu.Unlock()
	}

	if o.parallelism == 1 {
		for i, c := range o.cities {
			collect(o.processCity(ctx, run, executions[i], c))
		}
	} else {
		sem := make(chan struct{}, o.parallelism)
		var wg sync.WaitGroup
		for i, c := range o.cities {
			wg.Add(1)
			sem <- struct{}{}
			go func(ce *batchModel.CityExecution, c model.City) {
				defer wg.Done()
				defer func() { <-sem }()
				collect(o.processCity(ctx, run, ce, c))
			}(executions[i], c)
		}
		wg.Wait()
	}

	run.Finish()
	logger.Infof("Pipeline completed: %s cities processed", run.Summary())
	o.listener.AfterRun(ctx, run)

	return run, merr.ErrorOrNil()
}

// processCity isolates one city: its own deadline, its own panic boundary.
func (o *Orchestrator) processCity(ctx context.Context, run *batchModel.RunExecution, ce *batchModel.CityExecution, c model.City) (err error) {
	cityCtx := o.listener.BeforeCity(ctx, ce)
	ce.MarkAsStarted()
	defer o.listener.AfterCity(cityCtx, ce)

	if o.cfg.CityTimeout > 0 {
		var cancel context.CancelFunc
		cityCtx, cancel = context.WithTimeout(cityCtx, o.cfg.CityTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("City '%s' panicked at step %s: %v\n%s", c.Name, ce.CurrentStep, r, debug.Stack())
			err = exception.NewTerminalError(module, fmt.Sprintf("panic in city '%s'", c.Name), fmt.Errorf("%v", r))
			if n := len(ce.StepExecutions); n > 0 && !ce.StepExecutions[n-1].Status.IsFinished() {
				ce.StepExecutions[n-1].Complete(batchModel.NewStepResult(ce.CurrentStep, err, 1, 0, 0))
			}
			ce.MarkAsFailed(ce.CurrentStep, err)
		}
		if err != nil {
			err = fmt.Errorf("%s: %w", c.Name, err)
		}
	}()

	return o.city.Process(cityCtx, ce, c, run.StartTime)
}
