// Package testutil builds synthetic Open-Meteo responses and a fake Bot API server for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"time"
)

// Daily values of the two-day fixture, index 0 is today and index 1 tomorrow.
var (
	DailyMin    = []float64{-2.5, 1.0}
	DailyMax    = []float64{3.5, 8.4}
	DailyPrecip = []float64{0.0, 3.2}
)

// TwoDayForecast returns a forecast response for today and the next day: 48 hourly points
// and 2 daily points. Hourly temperature at index i is i/2, precipitation i/10, wind speed
// 2+i/4 and wind direction (i*15)%360.
func TwoDayForecast(today time.Time) map[string]interface{} {
	day0 := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	times := make([]string, 0, 48)
	temps := make([]float64, 0, 48)
	precip := make([]float64, 0, 48)
	speed := make([]float64, 0, 48)
	dir := make([]int, 0, 48)
	for i := 0; i < 48; i++ {
		ts := day0.Add(time.Duration(i) * time.Hour)
		times = append(times, ts.Format("2006-01-02T15:04"))
		temps = append(temps, float64(i)/2)
		precip = append(precip, float64(i)/10)
		speed = append(speed, 2+float64(i)/4)
		dir = append(dir, (i*15)%360)
	}
	return map[string]interface{}{
		"latitude":  53.1959,
		"longitude": 50.1002,
		"timezone":  today.Location().String(),
		"hourly_units": map[string]string{
			"temperature_2m": "°C",
		},
		"hourly": map[string]interface{}{
			"time":               times,
			"temperature_2m":     temps,
			"precipitation":      precip,
			"wind_speed_10m":     speed,
			"wind_direction_10m": dir,
		},
		"daily": map[string]interface{}{
			"time":               []string{day0.Format("2006-01-02"), day0.AddDate(0, 0, 1).Format("2006-01-02")},
			"temperature_2m_max": DailyMax,
			"temperature_2m_min": DailyMin,
			"precipitation_sum":  DailyPrecip,
		},
	}
}

// TwoDayForecastJSON is TwoDayForecast encoded as JSON.
func TwoDayForecastJSON(today time.Time) []byte {
	body, err := json.Marshal(TwoDayForecast(today))
	if err != nil {
		panic(fmt.Sprintf("testutil: encode forecast: %v", err))
	}
	return body
}
