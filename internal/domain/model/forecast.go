// Package model holds the weather domain types: the decoded forecast payload and the
// rows written to the analytical store.
package model

import (
	"encoding/json"
	"time"

	"github.com/tigerroll/weather-etl/pkg/batch/core/config"
)

// City is one entry of the static city table.
type City struct {
	Name      string
	Latitude  float64
	Longitude float64
}

// CitiesFromConfig converts the configured city table, keeping its order.
func CitiesFromConfig(cfgs []config.CityConfig) []City {
	cities := make([]City, 0, len(cfgs))
	for _, c := range cfgs {
		cities = append(cities, City{Name: c.Name, Latitude: c.Latitude, Longitude: c.Longitude})
	}
	return cities
}

// HourlySeries holds the parallel hourly arrays of an Open-Meteo response, indexed by Time.
type HourlySeries struct {
	Time             []string  `json:"time"`
	Temperature2M    []float64 `json:"temperature_2m"`
	Precipitation    []float64 `json:"precipitation"`
	WindSpeed10M     []float64 `json:"wind_speed_10m"`
	WindDirection10M []float64 `json:"wind_direction_10m"`
}

// DailySeries holds the parallel daily arrays of an Open-Meteo response, indexed by Time.
type DailySeries struct {
	Time             []string  `json:"time"`
	Temperature2MMax []float64 `json:"temperature_2m_max"`
	Temperature2MMin []float64 `json:"temperature_2m_min"`
	PrecipitationSum []float64 `json:"precipitation_sum"`
}

// OpenMeteoForecast is the subset of the forecast response the transforms read.
type OpenMeteoForecast struct {
	Latitude  float64      `json:"latitude"`
	Longitude float64      `json:"longitude"`
	Timezone  string       `json:"timezone"`
	Hourly    HourlySeries `json:"hourly"`
	Daily     DailySeries  `json:"daily"`
}

// RawForecastPayload is one successful fetch: the decoded series plus the verbatim body,
// so the archive stores exactly what the API returned.
type RawForecastPayload struct {
	City      string
	FetchedAt time.Time
	Forecast  OpenMeteoForecast
	Body      json.RawMessage
}
