package metrics

import (
	"context"

	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/weather-etl/pkg/batch/core/metrics"
	port "github.com/tigerroll/weather-etl/pkg/batch/core/ports"
)

// MetricsListener forwards lifecycle events to a MetricRecorder.
type MetricsListener struct {
	port.NoOpListener
	recorder metrics.MetricRecorder
}

func NewMetricsListener(recorder metrics.MetricRecorder) *MetricsListener {
	return &MetricsListener{recorder: recorder}
}

func (l *MetricsListener) BeforeRun(ctx context.Context, run *model.RunExecution) context.Context {
	l.recorder.RecordRunStart(ctx, run)
	return ctx
}

func (l *MetricsListener) AfterRun(ctx context.Context, run *model.RunExecution) {
	l.recorder.RecordRunEnd(ctx, run)
}

func (l *MetricsListener) AfterCity(ctx context.Context, city *model.CityExecution) {
	l.recorder.RecordCityEnd(ctx, city)
	if city.Delivered > 0 || city.Undelivered > 0 {
		l.recorder.RecordNotification(ctx, city.City, city.Delivered, city.Undelivered)
	}
}

// AfterStep records the step and one retry per attempt beyond the first.
func (l *MetricsListener) AfterStep(ctx context.Context, step *model.StepExecution) {
	l.recorder.RecordStepEnd(ctx, step)
	if step.Result == nil || step.Result.Attempts <= 1 {
		return
	}
	city := ""
	if step.CityExecution != nil {
		city = step.CityExecution.City
	}
	for i := 1; i < step.Result.Attempts; i++ {
		l.recorder.RecordRetry(ctx, step.StepName, city)
	}
}

var _ port.PipelineListener = (*MetricsListener)(nil)
