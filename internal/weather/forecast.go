package weather

import (
	"fmt"
	"time"
)

// Normalized condition groups, mapped from the provider's weather codes.
const (
	ConditionClear   = "clear"
	ConditionCloudy  = "cloudy"
	ConditionRain    = "rain"
	ConditionSnow    = "snow"
	ConditionStorm   = "storm"
	ConditionUnknown = "unknown"
)

// DailyForecast is the normalized forecast for one city on one calendar day.
// It is a value type: two forecasts are equal iff every tracked field
// matches. Comparison deliberately ignores the raw provider response.
type DailyForecast struct {
	City        string
	Date        time.Time
	Condition   string
	Description string
	TempMin     float64
	TempMax     float64
	PrecipProb  float64
}

// Equal reports whether two forecasts match on every tracked field.
// A nil forecast is only equal to another nil forecast.
func (f *DailyForecast) Equal(other *DailyForecast) bool {
	if f == nil || other == nil {
		return f == other
	}
	return f.Condition == other.Condition &&
		f.Description == other.Description &&
		f.TempMin == other.TempMin &&
		f.TempMax == other.TempMax &&
		f.PrecipProb == other.PrecipProb
}

// Summary renders the forecast as a short human-readable line for chat
// messages, e.g. "light rain, 10.3…14.1°C, precipitation 45%".
func (f *DailyForecast) Summary() string {
	desc := f.Description
	if desc == "" {
		desc = f.Condition
	}
	return fmt.Sprintf("%s, %.1f…%.1f°C, precipitation %.0f%%",
		desc, f.TempMin, f.TempMax, f.PrecipProb*100)
}

// DateOnly truncates a timestamp to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
