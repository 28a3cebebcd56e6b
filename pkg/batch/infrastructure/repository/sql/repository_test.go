package sql_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gormadapter "github.com/tigerroll/weather-etl/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/database/gorm/sqlite"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/weather-etl/pkg/batch/core/domain/repository"
	sqlrepo "github.com/tigerroll/weather-etl/pkg/batch/infrastructure/repository/sql"
)

func setupRepository(t *testing.T) *sqlrepo.SQLRunRepository {
	t.Helper()
	cfg := config.NewConfig()
	cfg.ETL.AdapterConfigs = map[string]interface{}{
		"database": map[string]interface{}{
			"registry": map[string]interface{}{"type": "sqlite", "database": filepath.Join(t.TempDir(), "registry.db")},
		},
	}
	resolver := gormadapter.NewResolverFromProviders(cfg, sqlite.NewProvider(cfg))
	t.Cleanup(func() { _ = resolver.CloseAll() })
	return sqlrepo.NewSQLRunRepository(resolver, "registry")
}

func TestSQLRunRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t)

	// Before the schema exists the history is simply empty.
	recent, err := repo.FindRecentRunExecutions(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, recent)

	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.EnsureSchema(ctx))

	_, err = repo.FindLatestRunExecution(ctx)
	assert.ErrorIs(t, err, repository.ErrRunExecutionNotFound)

	older := model.NewRunExecution("weather_etl", 2)
	older.StartTime = time.Now().Add(-time.Hour)
	older.MarkAsStarted()
	a := older.NewCityExecution("Moscow")
	a.MarkAsStarted()
	a.MarkAsFailed(model.StepFetch, assert.AnError)
	b := older.NewCityExecution("Samara")
	b.MarkAsStarted()
	b.MarkAsCompleted()
	older.Finish()
	require.NoError(t, repo.SaveRunExecution(ctx, older))

	newer := model.NewRunExecution("weather_etl", 2)
	newer.MarkAsStarted()
	require.NoError(t, repo.SaveRunExecution(ctx, newer))
	newer.Finish()
	require.NoError(t, repo.SaveRunExecution(ctx, newer), "saving the same run twice updates it")

	recent, err = repo.FindRecentRunExecutions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, newer.ID, recent[0].ID)
	assert.Equal(t, model.BatchStatusFailed, recent[0].Status)
	assert.NotNil(t, recent[0].EndTime)

	assert.Equal(t, older.ID, recent[1].ID)
	assert.Equal(t, 1, recent[1].CompletedCities)
	assert.Equal(t, 2, recent[1].TotalCities)
	assert.Equal(t, model.FailureList{"Moscow: " + assert.AnError.Error()}, recent[1].Failures)

	latest, err := repo.FindLatestRunExecution(ctx)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)
}
