package logging

import (
	"context"

	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	port "github.com/tigerroll/weather-etl/pkg/batch/core/ports"
	logger "github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// LoggingListener writes a line per run and city, and a debug line per step.
type LoggingListener struct{}

func NewLoggingListener() *LoggingListener {
	return &LoggingListener{}
}

func (l *LoggingListener) BeforeRun(ctx context.Context, run *model.RunExecution) context.Context {
	logger.Infof("RunListener: BeforeRun - Pipeline: %s, ID: %s, Cities: %d", run.PipelineName, run.ID, run.TotalCities)
	return ctx
}

func (l *LoggingListener) AfterRun(ctx context.Context, run *model.RunExecution) {
	logger.Infof("RunListener: AfterRun - Pipeline: %s, ID: %s, Status: %s, Duration: %s", run.PipelineName, run.ID, run.Status, run.Duration())
}

func (l *LoggingListener) BeforeCity(ctx context.Context, city *model.CityExecution) context.Context {
	logger.Debugf("CityListener: BeforeCity - City: %s, ID: %s", city.City, city.ID)
	return ctx
}

func (l *LoggingListener) AfterCity(ctx context.Context, city *model.CityExecution) {
	if city.Status == model.BatchStatusFailed {
		logger.Debugf("CityListener: AfterCity - City: %s, Status: %s, FailedStep: %s", city.City, city.Status, city.FailedStep)
		return
	}
	logger.Infof("CityListener: AfterCity - City: %s, Status: %s, Archive: %s, Hourly: %d, Daily: %d, Delivered: %d, Undelivered: %d",
		city.City, city.Status, city.ArchiveKey, city.HourlyRows, city.DailyRows, city.Delivered, city.Undelivered)
}

func (l *LoggingListener) BeforeStep(ctx context.Context, step *model.StepExecution) context.Context {
	logger.Debugf("StepListener: BeforeStep - StepName: %s, ID: %s", step.StepName, step.ID)
	return ctx
}

func (l *LoggingListener) AfterStep(ctx context.Context, step *model.StepExecution) {
	if step.Result == nil {
		return
	}
	logger.Debugf("StepListener: AfterStep - StepName: %s, Status: %s, Outcome: %s, Attempts: %d, Items: %d",
		step.StepName, step.Status, step.Result.Outcome, step.Result.Attempts, step.Result.Items)
}

var _ port.PipelineListener = (*LoggingListener)(nil)
