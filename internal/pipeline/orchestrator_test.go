package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/weather-etl/internal/domain/model"
	"github.com/tigerroll/weather-etl/internal/pipeline"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	batchModel "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	port "github.com/tigerroll/weather-etl/pkg/batch/core/ports"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
)

// stubFetcher returns an empty payload, or runs fn when set.
type stubFetcher struct {
	fn func(ctx context.Context, city model.City) error
}

func (f stubFetcher) FetchWithAttempts(ctx context.Context, city model.City) (*model.RawForecastPayload, int, error) {
	if f.fn != nil {
		if err := f.fn(ctx, city); err != nil {
			return nil, 1, err
		}
	}
	return &model.RawForecastPayload{City: city.Name}, 1, nil
}

type stubArchiver struct{}

func (stubArchiver) Archive(ctx context.Context, p *model.RawForecastPayload) (string, error) {
	return p.City + "_20240310_093015.json", nil
}

type stubHourly struct {
	panicFor string
}

func (s stubHourly) Transform(p *model.RawForecastPayload, _ time.Time) ([]model.HourlyRecord, error) {
	if p.City == s.panicFor {
		panic("index out of range")
	}
	return []model.HourlyRecord{{City: p.City}, {City: p.City}}, nil
}

type stubDaily struct{}

func (stubDaily) Transform(p *model.RawForecastPayload, _ time.Time) (*model.DailySummary, error) {
	return &model.DailySummary{City: p.City}, nil
}

type stubLoader struct {
	mu     sync.Mutex
	hourly map[string]int
}

func (l *stubLoader) SaveHourly(ctx context.Context, records []model.HourlyRecord) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range records {
		l.hourly[r.City]++
	}
	return len(records), nil
}

func (l *stubLoader) SaveDaily(ctx context.Context, s *model.DailySummary) error { return nil }

type stubNotifier struct{ err error }

func (n stubNotifier) Broadcast(ctx context.Context, s *model.DailySummary) (model.BroadcastTally, error) {
	return model.BroadcastTally{}, n.err
}

type failingSyncer struct{ calls atomic.Int32 }

func (s *failingSyncer) Sync(ctx context.Context) (int, error) {
	s.calls.Add(1)
	return 0, errors.New("getUpdates: 409 Conflict")
}

// eventListener counts lifecycle events.
type eventListener struct {
	port.NoOpListener
	mu     sync.Mutex
	events []string
}

func (l *eventListener) add(e string) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventListener) BeforeRun(ctx context.Context, run *batchModel.RunExecution) context.Context {
	l.add("run:start")
	return ctx
}

func (l *eventListener) AfterRun(ctx context.Context, run *batchModel.RunExecution) {
	l.add("run:" + run.Status.String())
}

func (l *eventListener) AfterCity(ctx context.Context, city *batchModel.CityExecution) {
	l.add(city.City + ":" + city.Status.String())
}

func (l *eventListener) AfterStep(ctx context.Context, step *batchModel.StepExecution) {
	l.add(step.CityExecution.City + ":" + step.StepName.String())
}

func (l *eventListener) count(prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if len(e) >= len(prefix) && e[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func newConfig(names ...string) *config.Config {
	cfg := config.NewConfig()
	cfg.ETL.Pipeline.Cities = nil
	for i, name := range names {
		cfg.ETL.Pipeline.Cities = append(cfg.ETL.Pipeline.Cities, config.CityConfig{Name: name, Latitude: float64(i)})
	}
	return cfg
}

func newOrchestrator(cfg *config.Config, f pipeline.Fetcher, h pipeline.HourlyTransformer, n pipeline.Notifier, s pipeline.SubscriberSyncer, l port.PipelineListener) (*pipeline.Orchestrator, *stubLoader) {
	loader := &stubLoader{hourly: map[string]int{}}
	city := pipeline.NewCityPipeline(f, stubArchiver{}, h, stubDaily{}, loader, n, l)
	return pipeline.NewOrchestrator(cfg, city, s, l), loader
}

func TestPanicIsIsolatedToItsCity(t *testing.T) {
	listener := &eventListener{}
	orch, loader := newOrchestrator(newConfig("Kazan", "Samara", "Ufa"), stubFetcher{}, stubHourly{panicFor: "Samara"}, stubNotifier{}, nil, listener)

	run, err := orch.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Samara")
	assert.Equal(t, "2/3", run.Summary())

	samara := run.CityExecutions[1]
	assert.Equal(t, batchModel.BatchStatusFailed, samara.Status)
	assert.Equal(t, batchModel.StepTransformHourly, samara.FailedStep)
	last := samara.StepExecutions[len(samara.StepExecutions)-1]
	assert.Equal(t, batchModel.BatchStatusFailed, last.Status)
	assert.Equal(t, batchModel.OutcomeTerminalFailure, last.Result.Outcome)

	assert.Equal(t, 2, loader.hourly["Kazan"])
	assert.Equal(t, 0, loader.hourly["Samara"])
	assert.Equal(t, 2, loader.hourly["Ufa"])

	assert.Equal(t, 1, listener.count("run:start"))
	assert.Equal(t, 1, listener.count("run:FAILED"))
	assert.Equal(t, 1, listener.count("Samara:FAILED"))
	assert.Equal(t, len(batchModel.PipelineSteps), listener.count("Kazan:")-1, "one event per step plus AfterCity")
}

func TestParallelismBoundsConcurrentCities(t *testing.T) {
	cfg := newConfig("A", "B", "C", "D", "E", "F")
	cfg.ETL.Pipeline.Parallelism = 2

	var inFlight, peak atomic.Int32
	fetcher := stubFetcher{fn: func(ctx context.Context, city model.City) error {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return nil
	}}

	orch, loader := newOrchestrator(cfg, fetcher, stubHourly{}, stubNotifier{}, nil, nil)
	run, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "6/6", run.Summary())
	assert.LessOrEqual(t, peak.Load(), int32(2))
	for i, name := range []string{"A", "B", "C", "D", "E", "F"} {
		assert.Equal(t, name, run.CityExecutions[i].City, "executions keep configuration order")
		assert.Equal(t, 2, loader.hourly[name])
	}
}

func TestCityTimeoutFailsOnlyTheSlowCity(t *testing.T) {
	cfg := newConfig("Slow", "Fast")
	cfg.ETL.Pipeline.CityTimeout = 50 * time.Millisecond

	fetcher := stubFetcher{fn: func(ctx context.Context, city model.City) error {
		if city.Name != "Slow" {
			return nil
		}
		<-ctx.Done()
		return exception.NewTerminalError("openmeteo", "request cancelled", ctx.Err())
	}}

	orch, _ := newOrchestrator(cfg, fetcher, stubHourly{}, stubNotifier{}, nil, nil)
	run, err := orch.Run(context.Background())
	require.Error(t, err)

	assert.Equal(t, batchModel.BatchStatusFailed, run.CityExecutions[0].Status)
	assert.Equal(t, batchModel.StepFetch, run.CityExecutions[0].FailedStep)
	assert.Equal(t, batchModel.BatchStatusCompleted, run.CityExecutions[1].Status)
	assert.Equal(t, "1/2", run.Summary())
}

func TestSyncFailureDoesNotStopTheRun(t *testing.T) {
	syncer := &failingSyncer{}
	orch, _ := newOrchestrator(newConfig("Samara"), stubFetcher{}, stubHourly{}, stubNotifier{}, syncer, nil)

	run, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, syncer.calls.Load())
	assert.Equal(t, batchModel.BatchStatusCompleted, run.Status)
}

func TestEmptyRegistryIsNoOp(t *testing.T) {
	orch, _ := newOrchestrator(newConfig("Samara"), stubFetcher{}, stubHourly{}, stubNotifier{err: exception.ErrNoSubscribers}, nil, nil)

	run, err := orch.Run(context.Background())
	require.NoError(t, err)

	ce := run.CityExecutions[0]
	assert.Equal(t, batchModel.BatchStatusCompleted, ce.Status)
	assert.Equal(t, batchModel.BatchStatusNoOp, ce.StepExecutions[len(ce.StepExecutions)-1].Status)
}

func TestNotifyFailureFailsTheCity(t *testing.T) {
	notifier := stubNotifier{err: exception.NewRetryableError("telegram", "list subscribers", errors.New("database is locked"))}
	orch, _ := newOrchestrator(newConfig("Samara"), stubFetcher{}, stubHourly{}, notifier, nil, nil)

	run, err := orch.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, batchModel.StepNotify, run.CityExecutions[0].FailedStep)
	assert.Equal(t, "0/1", run.Summary())
}
