package history

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/weather-etl/pkg/batch/core/ports"
)

// Module contributes the HistoryListener. The RunRepository is provided by the repository modules.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewHistoryListener,
		fx.As(new(port.PipelineListener)),
		fx.ResultTags(port.PipelineListenerGroup),
	)),
)
