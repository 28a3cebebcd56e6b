// Package transform reduces a two-day forecast to tomorrow's hourly rows and daily summary.
package transform

import (
	"fmt"
	"math"
	"strings"
	"time"

	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
)

const moduleName = "transform"

const (
	// hourLayout is the format of hourly.time entries.
	hourLayout = "2006-01-02T15:04"
	// dateLayout is the format of daily.time entries.
	dateLayout = "2006-01-02"
)

// Tomorrow returns the calendar day after runTime in loc, at midnight.
func Tomorrow(runTime time.Time, loc *time.Location) time.Time {
	local := runTime.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
}

// RoundToTenth rounds x to one decimal, halves away from zero.
func RoundToTenth(x float64) float64 {
	return math.Round(x*10) / 10
}

func locationOf(cfg *config.Config) *time.Location {
	if cfg == nil {
		return time.UTC
	}
	return cfg.Location()
}

// checkLengths fails when any series disagrees with the length of the time axis.
func checkLengths(series string, want int, arrays map[string]int) error {
	var bad []string
	for name, n := range arrays {
		if n != want {
			bad = append(bad, fmt.Sprintf("%s=%d", name, n))
		}
	}
	if len(bad) == 0 {
		return nil
	}
	return exception.NewTerminalError(moduleName,
		fmt.Sprintf("%s arrays disagree with time axis of length %d: %s", series, want, strings.Join(bad, ", ")),
		exception.ErrMalformedPayload)
}
