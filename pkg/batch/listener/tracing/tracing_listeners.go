package tracing

import (
	"context"
	"sync"

	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/weather-etl/pkg/batch/core/metrics"
	port "github.com/tigerroll/weather-etl/pkg/batch/core/ports"
)

// TracingListener manages spans for runs, cities and steps.
// Cities run concurrently, so the end functions are guarded.
type TracingListener struct {
	tracer metrics.Tracer

	mu sync.Mutex
	// execution ID -> span end function
	spanEndFuncs map[string]func()
}

func NewTracingListener(tracer metrics.Tracer) *TracingListener {
	return &TracingListener{
		tracer:       tracer,
		spanEndFuncs: make(map[string]func()),
	}
}

func (l *TracingListener) store(id string, endFunc func()) {
	l.mu.Lock()
	l.spanEndFuncs[id] = endFunc
	l.mu.Unlock()
}

func (l *TracingListener) end(id string) {
	l.mu.Lock()
	endFunc, ok := l.spanEndFuncs[id]
	delete(l.spanEndFuncs, id)
	l.mu.Unlock()
	if ok {
		endFunc()
	}
}

func (l *TracingListener) BeforeRun(ctx context.Context, run *model.RunExecution) context.Context {
	ctx, endFunc := l.tracer.StartRunSpan(ctx, run)
	l.store(run.ID, endFunc)
	return ctx
}

func (l *TracingListener) AfterRun(ctx context.Context, run *model.RunExecution) {
	l.end(run.ID)
}

func (l *TracingListener) BeforeCity(ctx context.Context, city *model.CityExecution) context.Context {
	ctx, endFunc := l.tracer.StartCitySpan(ctx, city)
	l.store(city.ID, endFunc)
	return ctx
}

func (l *TracingListener) AfterCity(ctx context.Context, city *model.CityExecution) {
	l.end(city.ID)
}

func (l *TracingListener) BeforeStep(ctx context.Context, step *model.StepExecution) context.Context {
	ctx, endFunc := l.tracer.StartStepSpan(ctx, step)
	l.store(step.ID, endFunc)
	return ctx
}

func (l *TracingListener) AfterStep(ctx context.Context, step *model.StepExecution) {
	if step.Result != nil && step.Result.Err != nil {
		l.tracer.RecordError(ctx, string(step.StepName), step.Result.Err)
	}
	if step.Result != nil && step.Result.Attempts > 1 {
		l.tracer.RecordEvent(ctx, "retried", map[string]interface{}{"attempts": step.Result.Attempts})
	}
	l.end(step.ID)
}

var _ port.PipelineListener = (*TracingListener)(nil)
