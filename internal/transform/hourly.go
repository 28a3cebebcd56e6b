package transform

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tigerroll/weather-etl/internal/domain/model"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// HourlyTransformer keeps the hourly points that fall on tomorrow.
type HourlyTransformer struct {
	location *time.Location
}

// NewHourlyTransformer creates a HourlyTransformer for the configured timezone.
func NewHourlyTransformer(cfg *config.Config) *HourlyTransformer {
	return &HourlyTransformer{location: locationOf(cfg)}
}

// Transform returns tomorrow's hourly records in source order. An empty result is not an error.
func (t *HourlyTransformer) Transform(payload *model.RawForecastPayload, runTime time.Time) ([]model.HourlyRecord, error) {
	h := payload.Forecast.Hourly
	n := len(h.Time)
	if err := checkLengths("hourly", n, map[string]int{
		"temperature_2m":     len(h.Temperature2M),
		"precipitation":      len(h.Precipitation),
		"wind_speed_10m":     len(h.WindSpeed10M),
		"wind_direction_10m": len(h.WindDirection10M),
	}); err != nil {
		return nil, err
	}

	tomorrow := Tomorrow(runTime, t.location)
	prefix := tomorrow.Format(dateLayout)

	records := make([]model.HourlyRecord, 0, 24)
	for i, ts := range h.Time {
		if !strings.HasPrefix(ts, prefix) {
			continue
		}
		hour, err := time.ParseInLocation(hourLayout, ts, t.location)
		if err != nil {
			return nil, exception.NewTerminalError(moduleName, fmt.Sprintf("failed to parse hourly time '%s'", ts), err)
		}
		records = append(records, model.HourlyRecord{
			City:          payload.City,
			Date:          tomorrow,
			Hour:          hour,
			Temperature:   float32(h.Temperature2M[i]),
			Precipitation: float32(h.Precipitation[i]),
			WindSpeed:     float32(h.WindSpeed10M[i]),
			WindDirection: int32(math.Round(h.WindDirection10M[i])),
		})
	}

	if len(records) == 0 {
		logger.Warnf("No hourly forecast for %s on %s.", payload.City, prefix)
	}
	return records, nil
}
