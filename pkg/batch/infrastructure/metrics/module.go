package metrics

import (
	"context"
	"net/http"

	"go.uber.org/fx"

	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	metrics "github.com/tigerroll/weather-etl/pkg/batch/core/metrics"
	logger "github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// MetricsEndpoint carries the scrape handler for the status server.
// Handler is nil when metrics are pushed over OTLP instead.
type MetricsEndpoint struct {
	Handler http.Handler
}

// RecorderResult is the output of NewMetricRecorder.
type RecorderResult struct {
	fx.Out
	Recorder metrics.MetricRecorder
	Endpoint MetricsEndpoint
}

// NewMetricRecorder selects the backend named by observability.metrics_backend.
func NewMetricRecorder(lc fx.Lifecycle, cfg *config.Config) (RecorderResult, error) {
	obs := cfg.ETL.Observability
	switch obs.MetricsBackend {
	case "otlp":
		provider, err := NewOTLPMeterProvider(context.Background(), obs)
		if err != nil {
			return RecorderResult{}, err
		}
		recorder, err := NewOpenTelemetryRecorder(provider)
		if err != nil {
			return RecorderResult{}, err
		}
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				logger.Infof("Flushing OTLP metrics.")
				return provider.Shutdown(ctx)
			},
		})
		logger.Infof("Metrics: exporting over OTLP/%s to '%s'.", obs.OTLP.Protocol, obs.OTLP.Endpoint)
		return RecorderResult{Recorder: recorder}, nil
	default:
		recorder := NewPrometheusRecorder()
		logger.Infof("Metrics: Prometheus registry enabled.")
		return RecorderResult{Recorder: recorder, Endpoint: MetricsEndpoint{Handler: recorder.Handler()}}, nil
	}
}

// NewTracer returns an OTLP-backed tracer when tracing is enabled, a no-op tracer otherwise.
func NewTracer(lc fx.Lifecycle, cfg *config.Config) (metrics.Tracer, error) {
	obs := cfg.ETL.Observability
	if !obs.TracingEnabled {
		return metrics.NewNoOpTracer(), nil
	}
	provider, err := NewOTLPTracerProvider(context.Background(), obs)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Infof("Flushing pending spans.")
			return provider.Shutdown(ctx)
		},
	})
	return NewOpenTelemetryTracer(provider), nil
}

// Module is an Fx module that provides the configured MetricRecorder and Tracer.
var Module = fx.Options(
	fx.Provide(NewMetricRecorder),
	fx.Provide(NewTracer),
)
