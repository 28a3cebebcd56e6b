package sql

import (
	"time"

	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
)

// PipelineRunEntity is a schema model used for persistence.
type PipelineRunEntity struct {
	ID              string            `gorm:"column:id;primaryKey"`
	PipelineName    string            `gorm:"column:pipeline_name"`
	Status          model.BatchStatus `gorm:"column:status"`
	StartTime       time.Time         `gorm:"column:start_time"`
	EndTime         *time.Time        `gorm:"column:end_time"`
	CompletedCities int               `gorm:"column:completed_cities"`
	TotalCities     int               `gorm:"column:total_cities"`
	Failures        model.FailureList `gorm:"column:failures"`
}

func (PipelineRunEntity) TableName() string {
	return "pipeline_runs"
}

// runColumns are overwritten when a run with the same id is saved again.
var runColumns = []string{"pipeline_name", "status", "start_time", "end_time", "completed_cities", "total_cities", "failures"}

// createRunsTableDDL maps database type to idempotent DDL for pipeline_runs.
var createRunsTableDDL = map[string]string{
	"sqlite": `CREATE TABLE IF NOT EXISTS pipeline_runs (
    id TEXT PRIMARY KEY,
    pipeline_name TEXT NOT NULL,
    status TEXT NOT NULL,
    start_time DATETIME NOT NULL,
    end_time DATETIME NULL,
    completed_cities INTEGER NOT NULL DEFAULT 0,
    total_cities INTEGER NOT NULL DEFAULT 0,
    failures TEXT NOT NULL DEFAULT '[]'
)`,
	"postgres": `CREATE TABLE IF NOT EXISTS pipeline_runs (
    id VARCHAR(36) PRIMARY KEY,
    pipeline_name VARCHAR(255) NOT NULL,
    status VARCHAR(32) NOT NULL,
    start_time TIMESTAMPTZ NOT NULL,
    end_time TIMESTAMPTZ NULL,
    completed_cities INTEGER NOT NULL DEFAULT 0,
    total_cities INTEGER NOT NULL DEFAULT 0,
    failures TEXT NOT NULL DEFAULT '[]'
)`,
	"mysql": `CREATE TABLE IF NOT EXISTS pipeline_runs (
    id VARCHAR(36) PRIMARY KEY,
    pipeline_name VARCHAR(255) NOT NULL,
    status VARCHAR(32) NOT NULL,
    start_time DATETIME(3) NOT NULL,
    end_time DATETIME(3) NULL,
    completed_cities INT NOT NULL DEFAULT 0,
    total_cities INT NOT NULL DEFAULT 0,
    failures TEXT NOT NULL
)`,
	"clickhouse": `CREATE TABLE IF NOT EXISTS pipeline_runs (
    id String,
    pipeline_name String,
    status LowCardinality(String),
    start_time DateTime64(3),
    end_time Nullable(DateTime64(3)),
    completed_cities UInt32,
    total_cities UInt32,
    failures String
) ENGINE = ReplacingMergeTree
ORDER BY id`,
}

func fromDomainRunExecution(run *model.RunExecution) *PipelineRunEntity {
	if run == nil {
		return nil
	}
	failures := run.Failures
	if failures == nil {
		failures = model.FailureList{}
	}
	return &PipelineRunEntity{
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
