package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tigerroll/weather-etl/internal/domain/model"
)

// FormatMessage renders the broadcast text for one daily summary.
func FormatMessage(s *model.DailySummary) string {
	return fmt.Sprintf("Weather forecast for tomorrow (%s)\nCity: %s\n\nTemperature:\nMin: %s°C\nMax: %s°C\nAvg: %s°C\n\nPrecipitation: %s mm",
		s.Date.Format("2006-01-02"),
		s.City,
		formatNumber(s.TempMin),
		formatNumber(s.TempMax),
		formatNumber(s.TempAvg),
		formatNumber(s.PrecipitationTotal),
	)
}

// formatNumber prints the shortest decimal form, always with a fractional part: 8.4, 1.0, -0.5.
func formatNumber(v float32) string {
	s := strconv.FormatFloat(float64(v), 'f', -1, 32)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
