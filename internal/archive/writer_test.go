package archive_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/weather-etl/internal/archive"
	"github.com/tigerroll/weather-etl/internal/domain/model"
	"github.com/tigerroll/weather-etl/internal/testutil"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/test"
)

func samaraPayload(t *testing.T, fetchedAt time.Time) *model.RawForecastPayload {
	t.Helper()
	body := testutil.TwoDayForecastJSON(fetchedAt)
	var forecast model.OpenMeteoForecast
	require.NoError(t, json.Unmarshal(body, &forecast))
	return &model.RawForecastPayload{City: "Samara", FetchedAt: fetchedAt, Forecast: forecast, Body: body}
}

func TestObjectKeyUsesConfiguredTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)
	fetchedAt := time.Date(2024, 12, 31, 21, 5, 9, 0, time.UTC)

	assert.Equal(t, "Samara_20250101_000509.json", archive.ObjectKey("Samara", fetchedAt, loc))
	assert.Equal(t, "Samara_20241231_210509.json", archive.ObjectKey("Samara", fetchedAt, time.UTC))
}

func TestArchiveWritesIndentedDocument(t *testing.T) {
	cfg := config.NewConfig()
	resolver, dir := test.NewLocalStorageResolver(t, cfg, cfg.ETL.Archive.StorageRef)
	writer := archive.NewWriter(cfg, resolver)

	fetchedAt := time.Date(2024, 3, 10, 6, 30, 15, 0, time.UTC)
	key, err := writer.Archive(context.Background(), samaraPayload(t, fetchedAt))
	require.NoError(t, err)
	assert.Equal(t, "Samara_20240310_093015.json", key)

	raw, err := os.ReadFile(filepath.Join(dir, "weather-raw", key))
	require.NoError(t, err)
	text := string(raw)

	assert.True(t, strings.HasPrefix(text, "{\n  \""), "two-space indent")
	assert.Contains(t, text, "°C", "non-ASCII is written verbatim")

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "Samara", doc["city"])
	assert.Equal(t, "2024-03-10T09:30:15+03:00", doc["fetched_at"])
	hourly, ok := doc["hourly"].(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, hourly["time"], 48)
}

func TestArchiveNeverOverwrites(t *testing.T) {
	cfg := config.NewConfig()
	resolver, dir := test.NewLocalStorageResolver(t, cfg, cfg.ETL.Archive.StorageRef)
	writer := archive.NewWriter(cfg, resolver)

	first := time.Date(2024, 3, 10, 6, 30, 15, 0, time.UTC)
	k1, err := writer.Archive(context.Background(), samaraPayload(t, first))
	require.NoError(t, err)
	k2, err := writer.Archive(context.Background(), samaraPayload(t, first.Add(time.Second)))
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)

	entries, err := os.ReadDir(filepath.Join(dir, "weather-raw"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestArchiveUnknownStorage(t *testing.T) {
	cfg := config.NewConfig()
	resolver, _ := test.NewLocalStorageResolver(t, cfg, "other")
	writer := archive.NewWriter(cfg, resolver)

	_, err := writer.Archive(context.Background(), samaraPayload(t, time.Now()))
	assert.ErrorContains(t, err, "failed to resolve storage connection 'archive'")
}

func TestArchiveRejectsNonObjectBody(t *testing.T) {
	cfg := config.NewConfig()
	resolver, _ := test.NewLocalStorageResolver(t, cfg, cfg.ETL.Archive.StorageRef)
	writer := archive.NewWriter(cfg, resolver)

	_, err := writer.Archive(context.Background(), &model.RawForecastPayload{City: "Samara", FetchedAt: time.Now(), Body: []byte(`[1,2]`)})
	assert.ErrorContains(t, err, "not a JSON object")
}
