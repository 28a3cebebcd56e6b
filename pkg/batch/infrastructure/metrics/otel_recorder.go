package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/weather-etl/pkg/batch/core/metrics"
	logger "github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

const instrumentationName = "github.com/tigerroll/weather-etl"

// OpenTelemetryRecorder records pipeline metrics through an OpenTelemetry Meter.
// Instruments mirror the Prometheus recorder.
type OpenTelemetryRecorder struct {
	runDuration       otelmetric.Float64Histogram
	runStatus         otelmetric.Int64Counter
	runCities         otelmetric.Int64Counter
	cityStatus        otelmetric.Int64Counter
	stepDuration      otelmetric.Float64Histogram
	stepOutcome       otelmetric.Int64Counter
	stepRetry         otelmetric.Int64Counter
	notification      otelmetric.Int64Counter
	operationDuration otelmetric.Float64Histogram
}

// NewOpenTelemetryRecorder creates every instrument on a meter obtained from provider.
func NewOpenTelemetryRecorder(provider otelmetric.MeterProvider) (*OpenTelemetryRecorder, error) {
	meter := provider.Meter(instrumentationName)
	r := &OpenTelemetryRecorder{}
	var err error

	if r.runDuration, err = meter.Float64Histogram("weather_etl.run.duration",
		otelmetric.WithDescription("Duration of pipeline runs."), otelmetric.WithUnit("s")); err != nil {
		return nil, err
	}
	if r.runStatus, err = meter.Int64Counter("weather_etl.run.status",
		otelmetric.WithDescription("Pipeline runs by status.")); err != nil {
		return nil, err
	}
	if r.runCities, err = meter.Int64Counter("weather_etl.run.cities",
		otelmetric.WithDescription("Cities processed by finished runs, split by completed.")); err != nil {
		return nil, err
	}
	if r.cityStatus, err = meter.Int64Counter("weather_etl.city.status",
		otelmetric.WithDescription("City pipelines by status and failed step.")); err != nil {
		return nil, err
	}
	if r.stepDuration, err = meter.Float64Histogram("weather_etl.step.duration",
		otelmetric.WithDescription("Duration of pipeline steps."), otelmetric.WithUnit("s")); err != nil {
		return nil, err
	}
	if r.stepOutcome, err = meter.Int64Counter("weather_etl.step.outcome",
		otelmetric.WithDescription("Step results by outcome.")); err != nil {
		return nil, err
	}
	if r.stepRetry, err = meter.Int64Counter("weather_etl.step.retry",
		otelmetric.WithDescription("Re-attempts by step.")); err != nil {
		return nil, err
	}
	if r.notification, err = meter.Int64Counter("weather_etl.notification",
		otelmetric.WithDescription("Per-recipient notification deliveries by result.")); err != nil {
		return nil, err
	}
	if r.operationDuration, err = meter.Float64Histogram("weather_etl.operation.duration",
		otelmetric.WithDescription("Duration of individual operations such as API calls."), otelmetric.WithUnit("s")); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *OpenTelemetryRecorder) RecordRunStart(ctx context.Context, run *model.RunExecution) {
	r.runStatus.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("pipeline", run.PipelineName),
		attribute.String("status", string(model.BatchStatusStarted)),
	))
}

func (r *OpenTelemetryRecorder) RecordRunEnd(ctx context.Context, run *model.RunExecution) {
	if run.EndTime == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("pipeline", run.PipelineName),
		attribute.String("status", string(run.Status)),
	}
	r.runDuration.Record(ctx, run.Duration().Seconds(), otelmetric.WithAttributes(attrs...))
	r.runStatus.Add(ctx, 1, otelmetric.WithAttributes(attrs...))
	r.runCities.Add(ctx, int64(run.CompletedCities), otelmetric.WithAttributes(
		attribute.String("pipeline", run.PipelineName), attribute.Bool("completed", true)))
	r.runCities.Add(ctx, int64(run.TotalCities-run.CompletedCities), otelmetric.WithAttributes(
		attribute.String("pipeline", run.PipelineName), attribute.Bool("completed", false)))
	logger.Debugf("Metrics: Run '%s' ended (%s).", run.ID, run.Summary())
}

func (r *OpenTelemetryRecorder) RecordCityEnd(ctx context.Context, city *model.CityExecution) {
	r.cityStatus.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("city", city.City),
		attribute.String("status", string(city.Status)),
		attribute.String("failed_step", string(city.FailedStep)),
	))
}

func (r *OpenTelemetryRecorder) RecordStepEnd(ctx context.Context, step *model.StepExecution) {
	if step.Result == nil {
		return
	}
	city := ""
	if step.CityExecution != nil {
		city = step.CityExecution.City
	}
	outcome := string(step.Result.Outcome)
	r.stepDuration.Record(ctx, step.Result.Duration.Seconds(), otelmetric.WithAttributes(
		attribute.String("step", string(step.StepName)),
		attribute.String("outcome", outcome),
	))
	r.stepOutcome.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("city", city),
		attribute.String("step", string(step.StepName)),
		attribute.String("outcome", outcome),
	))
}

func (r *OpenTelemetryRecorder) RecordRetry(ctx context.Context, step model.StepName, city string) {
	r.stepRetry.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("city", city),
		attribute.String("step", string(step)),
	))
}

func (r *OpenTelemetryRecorder) RecordNotification(ctx context.Context, city string, delivered, failed int) {
	r.notification.Add(ctx, int64(delivered), otelmetric.WithAttributes(
		attribute.String("city", city), attribute.String("result", "delivered")))
	r.notification.Add(ctx, int64(failed), otelmetric.WithAttributes(
		attribute.String("city", city), attribute.String("result", "failed")))
}

func (r *OpenTelemetryRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	attrs := make([]attribute.KeyValue, 0, len(tags)+1)
	attrs = append(attrs, attribute.String("name", name))
	for k, v := range tags {
		attrs = append(attrs, attribute.String(k, v))
	}
	r.operationDuration.Record(ctx, duration.Seconds(), otelmetric.WithAttributes(attrs...))
}

var _ metrics.MetricRecorder = (*OpenTelemetryRecorder)(nil)
