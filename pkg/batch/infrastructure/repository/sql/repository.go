// Package sql persists run history through a named DBConnection.
package sql

import (
	"context"
	"fmt"

	"github.com/tigerroll/weather-etl/pkg/batch/adapter/database"
	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/weather-etl/pkg/batch/core/domain/repository"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

const module = "SQLRunRepository"

// SQLRunRepository implements repository.RunRepository on the pipeline_runs table.
type SQLRunRepository struct {
	dbResolver database.DBConnectionResolver
	// dbName is the adapter.database connection name (e.g., "registry").
	dbName string
}

// NewSQLRunRepository creates a new instance of SQLRunRepository.
func NewSQLRunRepository(dbResolver database.DBConnectionResolver, dbName string) *SQLRunRepository {
	return &SQLRunRepository{dbResolver: dbResolver, dbName: dbName}
}

func (r *SQLRunRepository) getDBConnection(ctx context.Context) (database.DBConnection, error) {
	conn, err := r.dbResolver.ResolveDBConnection(ctx, r.dbName)
	if err != nil {
		return nil, exception.NewBatchError(module, fmt.Sprintf("Failed to resolve DB connection '%s'", r.dbName), err, false, false)
	}
	return conn, nil
}

// EnsureSchema creates pipeline_runs if it does not exist.
func (r *SQLRunRepository) EnsureSchema(ctx context.Context) error {
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return err
	}
	ddl, ok := createRunsTableDDL[conn.Type()]
	if !ok {
		return exception.NewBatchErrorf(module, "no pipeline_runs DDL for database type '%s'", conn.Type())
	}
	if _, err := conn.ExecuteRaw(ctx, ddl); err != nil {
		return exception.NewBatchError(module, "failed to create pipeline_runs", err, false, false)
	}
	logger.Debugf("Ensured table pipeline_runs on '%s'.", r.dbName)
	return nil
}

// SaveRunExecution upserts the run by id. ClickHouse has no ON CONFLICT, so it relies
// on ReplacingMergeTree to collapse repeated inserts.
func (r *SQLRunRepository) SaveRunExecution(ctx context.Context, run *model.RunExecution) error {
	const op = "SQLRunRepository.SaveRunExecution"
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return err
	}
	entity := fromDomainRunExecution(run)

	if conn.Type() == "clickhouse" {
		_, err = conn.ExecuteUpdate(ctx, entity, "CREATE", entity.TableName(), nil)
	} else {
		_, err = conn.ExecuteUpsert(ctx, entity, entity.TableName(), []string{"id"}, runColumns)
	}
	if err != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to save run (ID: %s)", run.ID), err, false, true)
	}
	return nil
}

// FindRecentRunExecutions returns up to limit runs, newest first.
func (r *SQLRunRepository) FindRecentRunExecutions(ctx context.Context, limit int) ([]repository.RunSnapshot, error) {
	const op = "SQLRunRepository.FindRecentRunExecutions"
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}

	var entities []PipelineRunEntity
	if err := conn.ExecuteQueryAdvanced(ctx, &entities, nil, "start_time DESC", limit); err != nil {
		if conn.IsTableNotExistError(err) {
			return []repository.RunSnapshot{}, nil
		}
		return nil, exception.NewBatchError(op, "failed to query pipeline_runs", err, false, true)
	}

	out := make([]repository.RunSnapshot, 0, len(entities))
	for i := range entities {
		out = append(out, toSnapshot(&entities[i]))
	}
	return out, nil
}

// FindLatestRunExecution returns the newest run.
func (r *SQLRunRepository) FindLatestRunExecution(ctx context.Context) (*repository.RunSnapshot, error) {
	recent, err := r.FindRecentRunExecutions(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(recent) == 0 {
		return nil, repository.ErrRunExecutionNotFound
	}
	return &recent[0], nil
}

func toSnapshot(e *PipelineRunEntity) repository.RunSnapshot {
	return repository.RunSnapshot{
		ID:              e.ID,
		PipelineName:    e.PipelineName,
		Status:          e.Status,
		StartTime:       e.StartTime,
		EndTime:         e.EndTime,
		CompletedCities: e.CompletedCities,
		TotalCities:     e.TotalCities,
		Failures:        e.Failures,
	}
}

var _ repository.RunRepository = (*SQLRunRepository)(nil)
