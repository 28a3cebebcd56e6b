package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
)

// NoOpMetricRecorder is an implementation of MetricRecorder that does nothing.
// It is used when metrics are disabled or during testing.
type NoOpMetricRecorder struct{}

// NewNoOpMetricRecorder creates a new instance of NoOpMetricRecorder.
func NewNoOpMetricRecorder() MetricRecorder {
	return &NoOpMetricRecorder{}
}

func (r *NoOpMetricRecorder) RecordRunStart(ctx context.Context, run *model.RunExecution)       {}
func (r *NoOpMetricRecorder) RecordRunEnd(ctx context.Context, run *model.RunExecution)         {}
func (r *NoOpMetricRecorder) RecordCityEnd(ctx context.Context, city *model.CityExecution)      {}
func (r *NoOpMetricRecorder) RecordStepEnd(ctx context.Context, step *model.StepExecution)      {}
func (r *NoOpMetricRecorder) RecordRetry(ctx context.Context, step model.StepName, city string) {}
func (r *NoOpMetricRecorder) RecordNotification(ctx context.Context, city string, delivered, failed int) {
}
func (r *NoOpMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
}

var _ MetricRecorder = (*NoOpMetricRecorder)(nil)

// --- NoOpTracer ---

// NoOpTracer is an implementation of Tracer that does nothing.
type NoOpTracer struct{}

// NewNoOpTracer creates a new instance of NoOpTracer.
func NewNoOpTracer() Tracer {
	return &NoOpTracer{}
}

func (t *NoOpTracer) StartRunSpan(ctx context.Context, run *model.RunExecution) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) StartCitySpan(ctx context.Context, city *model.CityExecution) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) StartStepSpan(ctx context.Context, step *model.StepExecution) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) RecordError(ctx context.Context, module string, err error) {}

func (t *NoOpTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
}

var _ Tracer = (*NoOpTracer)(nil)
