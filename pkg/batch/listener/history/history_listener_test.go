package history_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/weather-etl/pkg/batch/core/domain/repository"
	"github.com/tigerroll/weather-etl/pkg/batch/infrastructure/repository/inmemory"
	"github.com/tigerroll/weather-etl/pkg/batch/listener/history"
)

func TestHistoryListenerSavesStartAndEnd(t *testing.T) {
	repo := inmemory.NewInMemoryRunRepository()
	l := history.NewHistoryListener(repo)

	run := model.NewRunExecution("weather_etl", 2)
	run.MarkAsStarted()
	ctx, cancel := context.WithCancel(context.Background())
	ctx = l.BeforeRun(ctx, run)

	latest, err := repo.FindLatestRunExecution(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusStarted, latest.Status)

	city := run.NewCityExecution("Moscow")
	city.MarkAsStarted()
	city.MarkAsCompleted()
	failed := run.NewCityExecution("Samara")
	failed.MarkAsStarted()
	failed.MarkAsFailed(model.StepFetch, errors.New("HTTP 500"))
	run.Finish()

	// The final save still happens after the run context is cancelled.
	cancel()
	l.AfterRun(ctx, run)

	latest, err = repo.FindLatestRunExecution(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusFailed, latest.Status)
	assert.Equal(t, 1, latest.CompletedCities)
	assert.Equal(t, 2, latest.TotalCities)
	assert.Equal(t, model.FailureList{"Samara: HTTP 500"}, latest.Failures)
}

type failingRepo struct {
	repository.RunRepository
}

func (failingRepo) SaveRunExecution(ctx context.Context, run *model.RunExecution) error {
	return errors.New("database is locked")
}

func TestHistoryListenerIgnoresSaveErrors(t *testing.T) {
	l := history.NewHistoryListener(failingRepo{})
	run := model.NewRunExecution("weather_etl", 1)
	assert.NotPanics(t, func() {
		ctx := l.BeforeRun(context.Background(), run)
		l.AfterRun(ctx, run)
	})
}
