package logging

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/weather-etl/pkg/batch/core/ports"
)

// Module contributes the LoggingListener to the pipeline listener group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewLoggingListener,
		fx.As(new(port.PipelineListener)),
		fx.ResultTags(port.PipelineListenerGroup),
	)),
)
