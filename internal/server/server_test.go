package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/weather-etl/internal/server"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	batchModel "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/weather-etl/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/weather-etl/pkg/batch/infrastructure/repository/inmemory"
)

type staticCounter struct {
	n   int
	err error
}

func (c staticCounter) Count(ctx context.Context) (int, error) { return c.n, c.err }

func finishedRun(t *testing.T, completed, total int) *batchModel.RunExecution {
	t.Helper()
	run := batchModel.NewRunExecution("weather_etl", total)
	run.MarkAsStarted()
	for i := 0; i < total; i++ {
		ce := run.NewCityExecution("City")
		ce.MarkAsStarted()
		if i < completed {
			ce.MarkAsCompleted()
		} else {
			ce.MarkAsFailed(batchModel.StepFetch, errors.New("HTTP 500"))
		}
	}
	run.Finish()
	return run
}

func get(t *testing.T, s *server.Server, path string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	body := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp.StatusCode, body
}

func TestHealthFollowsLatestRun(t *testing.T) {
	repo := inmemory.NewInMemoryRunRepository()
	s := server.New(config.NewConfig(), repo, staticCounter{}, nil)

	code, body := get(t, s, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	require.NoError(t, repo.SaveRunExecution(context.Background(), finishedRun(t, 1, 2)))
	code, _ = get(t, s, "/health")
	assert.Equal(t, http.StatusOK, code, "a partial failure is still healthy")

	require.NoError(t, repo.SaveRunExecution(context.Background(), finishedRun(t, 0, 2)))
	code, body = get(t, s, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "failing", body["status"])
}

func TestStatusAndRuns(t *testing.T) {
	repo := inmemory.NewInMemoryRunRepository()
	s := server.New(config.NewConfig(), repo, staticCounter{}, nil)

	code, _ := get(t, s, "/api/v1/status")
	assert.Equal(t, http.StatusNotFound, code)

	require.NoError(t, repo.SaveRunExecution(context.Background(), finishedRun(t, 1, 2)))
	require.NoError(t, repo.SaveRunExecution(context.Background(), finishedRun(t, 2, 2)))

	code, body := get(t, s, "/api/v1/status")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "2/2", body["summary"])

	code, body = get(t, s, "/api/v1/runs?limit=1")
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["count"])

	code, body = get(t, s, "/api/v1/runs")
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["count"])
}

func TestRunsLimitValidation(t *testing.T) {
	s := server.New(config.NewConfig(), inmemory.NewInMemoryRunRepository(), staticCounter{}, nil)

	for _, q := range []string{"0", "501", "-3", "ten"} {
		code, body := get(t, s, "/api/v1/runs?limit="+q)
		assert.Equal(t, http.StatusBadRequest, code, q)
		assert.Equal(t, true, body["error"], q)
	}
}

func TestSubscriberCount(t *testing.T) {
	s := server.New(config.NewConfig(), inmemory.NewInMemoryRunRepository(), staticCounter{n: 3}, nil)
	code, body := get(t, s, "/api/v1/subscribers/count")
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 3, body["subscribers"])

	s = server.New(config.NewConfig(), inmemory.NewInMemoryRunRepository(), staticCounter{err: errors.New("no such table")}, nil)
	code, _ = get(t, s, "/api/v1/subscribers/count")
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestMetricsEndpoint(t *testing.T) {
	recorder := metrics.NewPrometheusRecorder()
	recorder.RecordRunStart(context.Background(), batchModel.NewRunExecution("weather_etl", 1))
	s := server.New(config.NewConfig(), inmemory.NewInMemoryRunRepository(), staticCounter{}, recorder.Handler())

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(raw), "weather_etl_"), "exposes pipeline metrics")

	s = server.New(config.NewConfig(), inmemory.NewInMemoryRunRepository(), staticCounter{}, nil)
	code, _ := get(t, s, "/metrics")
	assert.Equal(t, http.StatusNotFound, code)
}
