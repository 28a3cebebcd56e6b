package metrics

import (
	"context"

	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
)

// Tracer is an abstract interface for distributed tracing of runs, cities and steps.
//
// Each Start method returns a context carrying the new span and a function that ends it.
// The end function reads the execution's final status, so call it after the execution is marked.
type Tracer interface {
	StartRunSpan(ctx context.Context, run *model.RunExecution) (context.Context, func())
	StartCitySpan(ctx context.Context, city *model.CityExecution) (context.Context, func())
	StartStepSpan(ctx context.Context, step *model.StepExecution) (context.Context, func())

	// RecordError records an error in the current span.
	RecordError(ctx context.Context, module string, err error)

	// RecordEvent records an event in the current span.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
