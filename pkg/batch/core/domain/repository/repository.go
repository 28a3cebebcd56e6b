// Package repository declares persistence ports for pipeline execution metadata.
package repository

import (
	"context"
	"errors"
	"time"

	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
)

// ErrRunExecutionNotFound is returned when no run matches the lookup.
var ErrRunExecutionNotFound = errors.New("run execution not found")

func init() {
	exception.RegisterErrorType("ErrRunExecutionNotFound", ErrRunExecutionNotFound)
}

// RunSnapshot is the persisted view of a finished RunExecution.
type RunSnapshot struct {
	ID              string            `json:"id"`
	PipelineName    string            `json:"pipeline_name"`
	Status          model.BatchStatus `json:"status"`
	StartTime       time.Time         `json:"start_time"`
	EndTime         *time.Time        `json:"end_time,omitempty"`
	CompletedCities int               `json:"completed_cities"`
	TotalCities     int               `json:"total_cities"`
	Failures        model.FailureList `json:"failures"`
}

// SnapshotOf captures the persisted fields of run.
func SnapshotOf(run *model.RunExecution) RunSnapshot {
	failures := make(model.FailureList, len(run.Failures))
	copy(failures, run.Failures)
	return RunSnapshot{
		ID:              run.ID,
		PipelineName:    run.PipelineName,
		Status:          run.Status,
		StartTime:       run.StartTime,
		EndTime:         run.EndTime,
		CompletedCities: run.CompletedCities,
		TotalCities:     run.TotalCities,
		Failures:        failures,
	}
}

// RunRepository persists run history.
type RunRepository interface {
	// SaveRunExecution inserts or replaces the run identified by run.ID.
	SaveRunExecution(ctx context.Context, run *model.RunExecution) error

	// FindRecentRunExecutions returns up to limit runs, newest first.
	FindRecentRunExecutions(ctx context.Context, limit int) ([]RunSnapshot, error)

	// FindLatestRunExecution returns the newest run or ErrRunExecutionNotFound.
	FindLatestRunExecution(ctx context.Context) (*RunSnapshot, error)
}
