package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/weather-etl/pkg/batch/core/metrics"
	logger "github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// OpenTelemetryTracer is an implementation of metrics.Tracer using OpenTelemetry.
// Spans nest run > city > step through the returned contexts.
type OpenTelemetryTracer struct {
	tracer trace.Tracer
}

// NewOpenTelemetryTracer creates a tracer from provider.
func NewOpenTelemetryTracer(provider trace.TracerProvider) *OpenTelemetryTracer {
	return &OpenTelemetryTracer{tracer: provider.Tracer(instrumentationName)}
}

// StartRunSpan starts a new span for a RunExecution.
func (t *OpenTelemetryTracer) StartRunSpan(ctx context.Context, run *model.RunExecution) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "run "+run.PipelineName, trace.WithAttributes(
		attribute.String("run.id", run.ID),
		attribute.Int("run.total_cities", run.TotalCities),
	))
	logger.Debugf("Tracer: started span for run '%s'", run.ID)
	return ctx, func() {
		span.SetAttributes(
			attribute.String("run.status", string(run.Status)),
			attribute.Int("run.completed_cities", run.CompletedCities),
		)
		if run.Status == model.BatchStatusFailed {
			span.SetStatus(codes.Error, fmt.Sprintf("%s cities processed", run.Summary()))
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// StartCitySpan starts a new span for a CityExecution.
func (t *OpenTelemetryTracer) StartCitySpan(ctx context.Context, city *model.CityExecution) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "city "+city.City, trace.WithAttributes(
		attribute.String("city.name", city.City),
		attribute.String("run.id", city.RunExecutionID),
	))
	return ctx, func() {
		span.SetAttributes(attribute.String("city.status", string(city.Status)))
		if city.Status == model.BatchStatusFailed {
			span.SetAttributes(attribute.String("city.failed_step", string(city.FailedStep)))
			span.SetStatus(codes.Error, "failed at step "+string(city.FailedStep))
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// StartStepSpan starts a new span for a StepExecution.
func (t *OpenTelemetryTracer) StartStepSpan(ctx context.Context, step *model.StepExecution) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "step "+string(step.StepName), trace.WithAttributes(
		attribute.String("step.name", string(step.StepName)),
	))
	return ctx, func() {
		if r := step.Result; r != nil {
			span.SetAttributes(
				attribute.String("step.outcome", string(r.Outcome)),
				attribute.Int("step.attempts", r.Attempts),
				attribute.Int("step.items", r.Items),
			)
			if r.Outcome.IsFailure() {
				span.SetStatus(codes.Error, string(r.Outcome))
			}
		}
		span.End()
	}
}

// RecordError records an error in the current span.
func (t *OpenTelemetryTracer) RecordError(ctx context.Context, module string, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() || err == nil {
		return
	}
	span.RecordError(err, trace.WithAttributes(attribute.String("module", module)))
}

// RecordEvent records an event in the current span.
func (t *OpenTelemetryTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprint(val)))
		}
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

var _ metrics.Tracer = (*OpenTelemetryTracer)(nil)
