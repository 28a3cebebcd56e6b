// Package ports declares the callbacks the orchestrator emits around runs, cities and steps.
package ports

import (
	"context"

	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
)

// RunListener observes a whole run. The context returned by BeforeRun is used for the run
// and passed back to AfterRun.
type RunListener interface {
	BeforeRun(ctx context.Context, run *model.RunExecution) context.Context
	AfterRun(ctx context.Context, run *model.RunExecution)
}

// CityListener observes one city's state machine.
type CityListener interface {
	BeforeCity(ctx context.Context, city *model.CityExecution) context.Context
	AfterCity(ctx context.Context, city *model.CityExecution)
}

// StepListener observes a single step. AfterStep sees step.Result set.
type StepListener interface {
	BeforeStep(ctx context.Context, step *model.StepExecution) context.Context
	AfterStep(ctx context.Context, step *model.StepExecution)
}

// PipelineListener receives every event. Embed NoOpListener to implement only some of them.
type PipelineListener interface {
	RunListener
	CityListener
	StepListener
}

// PipelineListenerGroup is the Fx group that collects listeners for the orchestrator.
const PipelineListenerGroup = `group:"pipeline_listeners"`

// NoOpListener implements PipelineListener with empty methods.
type NoOpListener struct{}

func (NoOpListener) BeforeRun(ctx context.Context, _ *model.RunExecution) context.Context {
	return ctx
}
func (NoOpListener) AfterRun(context.Context, *model.RunExecution) {}
func (NoOpListener) BeforeCity(ctx context.Context, _ *model.CityExecution) context.Context {
	return ctx
}
func (NoOpListener) AfterCity(context.Context, *model.CityExecution) {}
func (NoOpListener) BeforeStep(ctx context.Context, _ *model.StepExecution) context.Context {
	return ctx
}
func (NoOpListener) AfterStep(context.Context, *model.StepExecution) {}

var _ PipelineListener = NoOpListener{}
