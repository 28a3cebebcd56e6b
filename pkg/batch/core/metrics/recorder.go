package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
)

// MetricRecorder is an abstract interface for recording pipeline metrics.
//
// Implementations exist for Prometheus and for OpenTelemetry metrics exported over OTLP.
type MetricRecorder interface {
	// RecordRunStart records the start of a RunExecution.
	RecordRunStart(ctx context.Context, run *model.RunExecution)

	// RecordRunEnd records the completed/total city counts and the duration of a finished run.
	RecordRunEnd(ctx context.Context, run *model.RunExecution)

	// RecordCityEnd records the final status of one city, labelled with the failed step if any.
	RecordCityEnd(ctx context.Context, city *model.CityExecution)

	// RecordStepEnd records the outcome, attempts and duration of a single step.
	RecordStepEnd(ctx context.Context, step *model.StepExecution)

	// RecordRetry records one re-attempt of step for city.
	RecordRetry(ctx context.Context, step model.StepName, city string)

	// RecordNotification records the per-recipient delivery tally of one broadcast.
	RecordNotification(ctx context.Context, city string, delivered, failed int)

	// RecordDuration records the execution time of an arbitrary operation.
	//
	// tags: additional labels, e.g. {"api": "open-meteo", "status": "200"}.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}
