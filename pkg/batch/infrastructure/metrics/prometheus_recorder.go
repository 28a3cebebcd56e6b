package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/weather-etl/pkg/batch/core/metrics"
	logger "github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// PrometheusRecorder is a Prometheus implementation of the metrics.MetricRecorder interface.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	// Run Metrics
	runDurationSeconds *prometheus.HistogramVec
	runStatusCounter   *prometheus.CounterVec
	runCitiesCompleted *prometheus.GaugeVec
	runCitiesTotal     *prometheus.GaugeVec

	// City Metrics
	cityStatusCounter *prometheus.CounterVec

	// Step Metrics
	stepDurationSeconds *prometheus.HistogramVec
	stepOutcomeCounter  *prometheus.CounterVec
	stepRetryCounter    *prometheus.CounterVec

	// Notification Metrics
	notificationCounter *prometheus.CounterVec

	operationDurationSeconds *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder with its own registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	// Register Go standard metrics and process/OS metrics.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		runDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "weather_etl_run_duration_seconds",
			Help:    "Duration of pipeline runs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"pipeline", "status"}),
		runStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_etl_run_status_total",
			Help: "Total number of pipeline runs by status.",
		}, []string{"pipeline", "status"}),
		runCitiesCompleted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "weather_etl_run_cities_completed",
			Help: "Cities completed by the latest run.",
		}, []string{"pipeline"}),
		runCitiesTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "weather_etl_run_cities_total",
			Help: "Cities attempted by the latest run.",
		}, []string{"pipeline"}),
		cityStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_etl_city_status_total",
			Help: "Total number of city pipelines by status and failed step.",
		}, []string{"city", "status", "failed_step"}),
		stepDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "weather_etl_step_duration_seconds",
			Help:    "Duration of pipeline steps.",
			Buckets: prometheus.DefBuckets,
		}, []string{"step", "outcome"}),
		stepOutcomeCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_etl_step_outcome_total",
			Help: "Total number of step results by outcome.",
		}, []string{"city", "step", "outcome"}),
		stepRetryCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_etl_step_retry_total",
			Help: "Total re-attempts by step.",
		}, []string{"city", "step"}),
		notificationCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_etl_notification_total",
			Help: "Total per-recipient notification deliveries by result.",
		}, []string{"city", "result"}),
		operationDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "weather_etl_operation_duration_seconds",
			Help:    "Duration of individual operations such as API calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"name", "status"}),
	}

	registry.MustRegister(
		r.runDurationSeconds,
		r.runStatusCounter,
		r.runCitiesCompleted,
		r.runCitiesTotal,
		r.cityStatusCounter,
		r.stepDurationSeconds,
		r.stepOutcomeCounter,
		r.stepRetryCounter,
		r.notificationCounter,
		r.operationDurationSeconds,
	)
	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// Handler exposes the registry in the text exposition format.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// RecordRunStart records the start of a RunExecution.
func (r *PrometheusRecorder) RecordRunStart(ctx context.Context, run *model.RunExecution) {
	r.runStatusCounter.WithLabelValues(run.PipelineName, string(model.BatchStatusStarted)).Inc()
	logger.Debugf("Metrics: Run '%s' started.", run.ID)
}

// RecordRunEnd records the end of a RunExecution.
func (r *PrometheusRecorder) RecordRunEnd(ctx context.Context, run *model.RunExecution) {
	if run.EndTime == nil {
		return
	}
	duration := run.Duration().Seconds()
	status := string(run.Status)

	r.runDurationSeconds.WithLabelValues(run.PipelineName, status).Observe(duration)
	r.runStatusCounter.WithLabelValues(run.PipelineName, status).Inc()
	r.runCitiesCompleted.WithLabelValues(run.PipelineName).Set(float64(run.CompletedCities))
	r.runCitiesTotal.WithLabelValues(run.PipelineName).Set(float64(run.TotalCities))

	logger.Debugf("Metrics: Run '%s' ended. Duration: %.3fs", run.ID, duration)
}

// RecordCityEnd records the final status of a CityExecution.
func (r *PrometheusRecorder) RecordCityEnd(ctx context.Context, city *model.CityExecution) {
	r.cityStatusCounter.WithLabelValues(city.City, string(city.Status), string(city.FailedStep)).Inc()
}

// RecordStepEnd records the end of a StepExecution.
func (r *PrometheusRecorder) RecordStepEnd(ctx context.Context, step *model.StepExecution) {
	if step.Result == nil {
		return
	}
	outcome := string(step.Result.Outcome)
	city := ""
	if step.CityExecution != nil {
		city = step.CityExecution.City
	}

	r.stepDurationSeconds.WithLabelValues(string(step.StepName), outcome).Observe(step.Result.Duration.Seconds())
	r.stepOutcomeCounter.WithLabelValues(city, string(step.StepName), outcome).Inc()

	logger.Debugf("Metrics: Step '%s' for '%s' ended with %s.", step.StepName, city, outcome)
}

// RecordRetry records one re-attempt of a step.
func (r *PrometheusRecorder) RecordRetry(ctx context.Context, step model.StepName, city string) {
	r.stepRetryCounter.WithLabelValues(city, string(step)).Inc()
}

// RecordNotification records the delivery tally of one broadcast.
func (r *PrometheusRecorder) RecordNotification(ctx context.Context, city string, delivered, failed int) {
	r.notificationCounter.WithLabelValues(city, "delivered").Add(float64(delivered))
	r.notificationCounter.WithLabelValues(city, "failed").Add(float64(failed))
}

// RecordDuration records the execution time of a specific operation.
// The "status" tag becomes a label; other tags are ignored to bound cardinality.
func (r *PrometheusRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	status := tags["status"]
	if status == "" {
		status = "none"
	}
	r.operationDurationSeconds.WithLabelValues(name, status).Observe(duration.Seconds())
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
