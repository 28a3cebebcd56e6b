package tracing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	infraMetrics "github.com/tigerroll/weather-etl/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/weather-etl/pkg/batch/listener/tracing"
)

func TestTracingListenerEndsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	l := tracing.NewTracingListener(infraMetrics.NewOpenTelemetryTracer(provider))

	run := model.NewRunExecution("weather_etl", 1)
	city := run.NewCityExecution("Moscow")
	step := city.NewStepExecution(model.StepFetch)

	runCtx := l.BeforeRun(context.Background(), run)
	cityCtx := l.BeforeCity(runCtx, city)
	stepCtx := l.BeforeStep(cityCtx, step)
	step.Complete(model.NewStepResult(model.StepFetch, errors.New("timeout"), 2, 0, time.Second))
	l.AfterStep(stepCtx, step)
	city.MarkAsFailed(model.StepFetch, errors.New("timeout"))
	l.AfterCity(cityCtx, city)
	run.Finish()
	l.AfterRun(runCtx, run)

	// A second AfterRun for the same ID is a no-op.
	l.AfterRun(runCtx, run)

	spans := recorder.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, "step FETCH", spans[0].Name())
	assert.Len(t, spans[0].Events(), 2)
	assert.Equal(t, "city Moscow", spans[1].Name())
	assert.Equal(t, "run weather_etl", spans[2].Name())
	assert.Equal(t, spans[0].SpanContext().TraceID(), spans[2].SpanContext().TraceID())
}
