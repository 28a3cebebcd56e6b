package metrics

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/weather-etl/pkg/batch/core/ports"
)

// Module contributes the MetricsListener and makes the configured recorder asynchronous.
var Module = fx.Options(
	// The recorder is provided by infrastructure/metrics; fx.Decorate wraps it here.
	fx.Decorate(NewAsyncMetricRecorderWrapper),

	fx.Provide(fx.Annotate(
		NewMetricsListener,
		fx.As(new(port.PipelineListener)),
		fx.ResultTags(port.PipelineListenerGroup),
	)),
)
