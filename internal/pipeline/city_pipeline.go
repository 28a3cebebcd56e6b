package pipeline

import (
	"context"
	"time"

	"github.com/tigerroll/weather-etl/internal/domain/model"
	batchModel "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	port "github.com/tigerroll/weather-etl/pkg/batch/core/ports"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// CityPipeline drives one city through FETCH, ARCHIVE, TRANSFORM_HOURLY, TRANSFORM_DAILY,
// LOAD_HOURLY, LOAD_DAILY and NOTIFY. The first failing step collapses the city to FAILED.
type CityPipeline struct {
	fetcher  Fetcher
	archiver Archiver
	hourly   HourlyTransformer
	daily    DailyTransformer
	loader   Loader
	notifier Notifier
	listener port.PipelineListener
}

// NewCityPipeline creates a CityPipeline. A nil listener is replaced with a no-op.
func NewCityPipeline(
	fetcher Fetcher,
	archiver Archiver,
	hourly HourlyTransformer,
	daily DailyTransformer,
	loader Loader,
	notifier Notifier,
	listener port.PipelineListener,
) *CityPipeline {
	if listener == nil {
		listener = port.NoOpListener{}
	}
	return &CityPipeline{
		fetcher:  fetcher,
		archiver: archiver,
		hourly:   hourly,
		daily:    daily,
		loader:   loader,
		notifier: notifier,
		listener: listener,
	}
}

// cityState carries values between steps.
type cityState struct {
	payload *model.RawForecastPayload
	records []model.HourlyRecord
	summary *model.DailySummary
}

// stepFunc runs one step and returns the attempt count and the number of items it handled.
type stepFunc func(ctx context.Context) (attempts, items int, err error)

// Process runs every step for city. runTime fixes what "tomorrow" means for the run.
// ce must be started; Process marks it COMPLETED or FAILED and returns the failing error.
func (p *CityPipeline) Process(ctx context.Context, ce *batchModel.CityExecution, city model.City, runTime time.Time) error {
	st := &cityState{}

	steps := []struct {
		name batchModel.StepName
		run  stepFunc
	}{
		{batchModel.StepFetch, func(ctx context.Context) (int, int, error) {
			payload, attempts, err := p.fetcher.FetchWithAttempts(ctx, city)
			st.payload = payload
			return attempts, 1, err
		}},
		{batchModel.StepArchive, func(ctx context.Context) (int, int, error) {
			key, err := p.archiver.Archive(ctx, st.payload)
			ce.ArchiveKey = key
			return 1, 1, err
		}},
		{batchModel.StepTransformHourly, func(ctx context.Context) (int, int, error) {
			records, err := p.hourly.Transform(st.payload, runTime)
			st.records = records
			return 1, len(records), err
		}},
		{batchModel.StepTransformDaily, func(ctx context.Context) (int, int, error) {
			summary, err := p.daily.Transform(st.payload, runTime)
			st.summary = summary
			return 1, 1, err
		}},
		{batchModel.StepLoadHourly, func(ctx context.Context) (int, int, error) {
			n, err := p.loader.SaveHourly(ctx, st.records)
			ce.HourlyRows = n
			return 1, n, err
		}},
		{batchModel.StepLoadDaily, func(ctx context.Context) (int, int, error) {
			if err := p.loader.SaveDaily(ctx, st.summary); err != nil {
				return 1, 0, err
			}
			ce.DailyRows = 1
			return 1, 1, nil
		}},
		{batchModel.StepNotify, func(ctx context.Context) (int, int, error) {
			tally, err := p.notifier.Broadcast(ctx, st.summary)
			ce.Delivered = tally.Delivered
			ce.Undelivered = tally.Failed
			return 1, tally.Delivered, err
		}},
	}

	for _, s := range steps {
		result := p.runStep(ctx, ce, s.name, s.run)
		if result.Outcome.IsFailure() {
			logger.Errorf("City '%s' failed at step %s: %s", city.Name, s.name, exception.ExtractErrorMessage(result.Err))
			ce.MarkAsFailed(s.name, result.Err)
			return result.Err
		}
		if result.Outcome == batchModel.OutcomeNoOp && result.Err != nil {
			logger.Infof("City '%s': %s skipped: %s", city.Name, s.name, exception.ExtractErrorMessage(result.Err))
		}
	}

	ce.MarkAsCompleted()
	return nil
}

func (p *CityPipeline) runStep(ctx context.Context, ce *batchModel.CityExecution, name batchModel.StepName, run stepFunc) batchModel.StepResult {
	se := ce.NewStepExecution(name)
	stepCtx := p.listener.BeforeStep(ctx, se)
	se.MarkAsStarted()

	start := time.Now()
	attempts, items, err := run(stepCtx)
	if err == nil && ctx.Err() != nil {
		// The step finished but the city's deadline passed; do not start the next one.
		err = exception.NewTerminalError(string(name), "city context done", ctx.Err())
	}
	result := batchModel.NewStepResult(name, err, attempts, items, time.Since(start))
	se.Complete(result)

	p.listener.AfterStep(stepCtx, se)
	return result
}
