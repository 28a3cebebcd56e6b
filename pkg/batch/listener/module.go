package listener

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/weather-etl/pkg/batch/core/ports"
	"github.com/tigerroll/weather-etl/pkg/batch/listener/history"
	"github.com/tigerroll/weather-etl/pkg/batch/listener/logging"
	"github.com/tigerroll/weather-etl/pkg/batch/listener/metrics"
	"github.com/tigerroll/weather-etl/pkg/batch/listener/tracing"
)

// CompositeParams collects every listener contributed to the group.
type CompositeParams struct {
	fx.In
	Listeners []port.PipelineListener `group:"pipeline_listeners"`
}

// NewCompositeListenerFromGroup builds the listener the orchestrator receives.
func NewCompositeListenerFromGroup(p CompositeParams) port.PipelineListener {
	return NewCompositeListener(p.Listeners...)
}

// Module aggregates all listener modules.
var Module = fx.Options(
	logging.Module,
	metrics.Module,
	tracing.Module,
	history.Module,
	fx.Provide(NewCompositeListenerFromGroup),
)
