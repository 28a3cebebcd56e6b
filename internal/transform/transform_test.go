package transform_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/weather-etl/internal/domain/model"
	"github.com/tigerroll/weather-etl/internal/testutil"
	"github.com/tigerroll/weather-etl/internal/transform"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	batchModel "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
)

func moscow(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)
	return loc
}

func payloadFor(t *testing.T, today time.Time) *model.RawForecastPayload {
	t.Helper()
	body := testutil.TwoDayForecastJSON(today)
	var forecast model.OpenMeteoForecast
	require.NoError(t, json.Unmarshal(body, &forecast))
	return &model.RawForecastPayload{City: "Samara", FetchedAt: today, Forecast: forecast, Body: body}
}

func TestTomorrowCrossesMonthAndZone(t *testing.T) {
	loc := moscow(t)
	// 22:30 UTC on Jan 31 is already Feb 1 in Moscow.
	got := transform.Tomorrow(time.Date(2024, 1, 31, 22, 30, 0, 0, time.UTC), loc)
	assert.Equal(t, time.Date(2024, 2, 2, 0, 0, 0, 0, loc), got)
}

func TestHourlyKeepsTomorrowInOrder(t *testing.T) {
	loc := moscow(t)
	runTime := time.Date(2024, 3, 10, 12, 0, 0, 0, loc)
	records, err := transform.NewHourlyTransformer(config.NewConfig()).Transform(payloadFor(t, runTime), runTime)
	require.NoError(t, err)

	require.Len(t, records, 24)
	for i, r := range records {
		assert.Equal(t, "Samara", r.City)
		assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, loc), r.Date)
		assert.Equal(t, time.Date(2024, 3, 11, i, 0, 0, 0, loc), r.Hour)
		assert.Equal(t, float32(float64(24+i)/2), r.Temperature)
	}
	assert.Equal(t, int32((24*15)%360), records[0].WindDirection)
	assert.Equal(t, float32(2+47.0/4), records[23].WindSpeed)
}

func TestHourlyEmptyWhenTomorrowAbsent(t *testing.T) {
	loc := moscow(t)
	fixtureDay := time.Date(2024, 3, 10, 12, 0, 0, 0, loc)
	runTime := fixtureDay.AddDate(0, 0, 5)

	records, err := transform.NewHourlyTransformer(config.NewConfig()).Transform(payloadFor(t, fixtureDay), runTime)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestHourlyMismatchedLengthsIsTerminal(t *testing.T) {
	loc := moscow(t)
	runTime := time.Date(2024, 3, 10, 12, 0, 0, 0, loc)
	payload := payloadFor(t, runTime)
	payload.Forecast.Hourly.Precipitation = payload.Forecast.Hourly.Precipitation[:47]

	_, err := transform.NewHourlyTransformer(config.NewConfig()).Transform(payload, runTime)
	require.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrMalformedPayload)
	assert.Contains(t, err.Error(), "precipitation=47")
	assert.False(t, exception.IsTemporary(err))
}

func TestDailySummaryForTomorrow(t *testing.T) {
	loc := moscow(t)
	runTime := time.Date(2024, 3, 10, 23, 59, 0, 0, loc)
	summary, err := transform.NewDailyTransformer(config.NewConfig()).Transform(payloadFor(t, runTime), runTime)
	require.NoError(t, err)

	assert.Equal(t, "Samara", summary.City)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, loc), summary.Date)
	assert.Equal(t, float32(testutil.DailyMin[1]), summary.TempMin)
	assert.Equal(t, float32(testutil.DailyMax[1]), summary.TempMax)
	assert.Equal(t, float32(transform.RoundToTenth((testutil.DailyMin[1]+testutil.DailyMax[1])/2)), summary.TempAvg)
	assert.Equal(t, float32(4.7), summary.TempAvg)
	assert.Equal(t, float32(3.2), summary.PrecipitationTotal)
	assert.Zero(t, summary.WindMax)
}

func TestDailyMissingTomorrow(t *testing.T) {
	loc := moscow(t)
	fixtureDay := time.Date(2024, 3, 10, 12, 0, 0, 0, loc)

	_, err := transform.NewDailyTransformer(config.NewConfig()).Transform(payloadFor(t, fixtureDay), fixtureDay.AddDate(0, 0, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrNoForecastForTomorrow)
	assert.Equal(t, batchModel.OutcomeTerminalFailure, batchModel.OutcomeOf(err))
}

func TestDailyMismatchedLengths(t *testing.T) {
	loc := moscow(t)
	runTime := time.Date(2024, 3, 10, 12, 0, 0, 0, loc)
	payload := payloadFor(t, runTime)
	payload.Forecast.Daily.Temperature2MMin = payload.Forecast.Daily.Temperature2MMin[:1]

	_, err := transform.NewDailyTransformer(config.NewConfig()).Transform(payload, runTime)
	assert.ErrorIs(t, err, exception.ErrMalformedPayload)
}

func TestRoundToTenth(t *testing.T) {
	cases := map[float64]float64{
		4.7:    4.7,
		4.74:   4.7,
		4.76:   4.8,
		-1.26:  -1.3,
		0.0:    0.0,
		12.349: 12.3,
	}
	for in, want := range cases {
		assert.InDelta(t, want, transform.RoundToTenth(in), 1e-9, "round(%v)", in)
	}
}
