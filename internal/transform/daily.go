package transform

import (
	"fmt"
	"time"

	"github.com/tigerroll/weather-etl/internal/domain/model"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
)

// DailyTransformer derives the single summary row for tomorrow.
type DailyTransformer struct {
	location *time.Location
}

// NewDailyTransformer creates a DailyTransformer for the configured timezone.
func NewDailyTransformer(cfg *config.Config) *DailyTransformer {
	return &DailyTransformer{location: locationOf(cfg)}
}

// Transform returns tomorrow's summary, or ErrNoForecastForTomorrow when the daily series lacks it.
func (t *DailyTransformer) Transform(payload *model.RawForecastPayload, runTime time.Time) (*model.DailySummary, error) {
	d := payload.Forecast.Daily
	if err := checkLengths("daily", len(d.Time), map[string]int{
		"temperature_2m_max": len(d.Temperature2MMax),
		"temperature_2m_min": len(d.Temperature2MMin),
		"precipitation_sum":  len(d.PrecipitationSum),
	}); err != nil {
		return nil, err
	}

	tomorrow := Tomorrow(runTime, t.location)
	want := tomorrow.Format(dateLayout)
	idx := -1
	for i, day := range d.Time {
		if day == want {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, exception.NewTerminalError(moduleName,
			fmt.Sprintf("daily series for %s has no entry for %s", payload.City, want),
			exception.ErrNoForecastForTomorrow)
	}

	tMin, tMax := d.Temperature2MMin[idx], d.Temperature2MMax[idx]
	return &model.DailySummary{
		City:               payload.City,
		Date:               tomorrow,
		TempMin:            float32(tMin),
		TempMax:            float32(tMax),
		TempAvg:            float32(RoundToTenth((tMin + tMax) / 2)),
		PrecipitationTotal: float32(d.PrecipitationSum[idx]),
		WindMax:            0,
	}, nil
}
