package tracing

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/weather-etl/pkg/batch/core/ports"
)

// Module contributes the TracingListener. The Tracer itself comes from infrastructure/metrics.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewTracingListener,
		fx.As(new(port.PipelineListener)),
		fx.ResultTags(port.PipelineListenerGroup),
	)),
)
