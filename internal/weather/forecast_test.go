package weather_test

import (
	"testing"
	"time"

	"github.com/vashchuk/skycast/internal/weather"
)

func TestDailyForecast_Equal(t *testing.T) {
	t.Parallel()

	base := func() *weather.DailyForecast {
		return &weather.DailyForecast{
			City:        "Berlin",
			Condition:   weather.ConditionRain,
			Description: "light rain",
			TempMin:     10.3,
			TempMax:     14.1,
			PrecipProb:  0.45,
		}
	}

	tests := []struct {
		name   string
		modify func(f *weather.DailyForecast)
		want   bool
	}{
		{"identical", func(f *weather.DailyForecast) {}, true},
		{"condition differs", func(f *weather.DailyForecast) { f.Condition = weather.ConditionClear }, false},
		{"description differs", func(f *weather.DailyForecast) { f.Description = "heavy rain" }, false},
		{"temp min differs", func(f *weather.DailyForecast) { f.TempMin = 9.9 }, false},
		{"temp max differs", func(f *weather.DailyForecast) { f.TempMax = 15.0 }, false},
		{"precip differs", func(f *weather.DailyForecast) { f.PrecipProb = 0.5 }, false},
		// City and date identify the subscription, not the forecast content.
		{"city differs", func(f *weather.DailyForecast) { f.City = "Paris" }, true},
		{"date differs", func(f *weather.DailyForecast) { f.Date = f.Date.AddDate(0, 0, 1) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			other := base()
			tt.modify(other)
			if got := base().Equal(other); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDailyForecast_EqualNil(t *testing.T) {
	t.Parallel()

	var nilForecast *weather.DailyForecast
	f := &weather.DailyForecast{Condition: weather.ConditionClear}

	if !nilForecast.Equal(nil) {
		t.Error("nil.Equal(nil) = false, want true")
	}
	if f.Equal(nil) {
		t.Error("f.Equal(nil) = true, want false")
	}
	if nilForecast.Equal(f) {
		t.Error("nil.Equal(f) = true, want false")
	}
}

func TestDailyForecast_Summary(t *testing.T) {
	t.Parallel()

	f := &weather.DailyForecast{
		Condition:   weather.ConditionRain,
		Description: "light rain",
		TempMin:     10.3,
		TempMax:     14.1,
		PrecipProb:  0.45,
	}
	want := "light rain, 10.3…14.1°C, precipitation 45%"
	if got := f.Summary(); got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}

	// Falls back to the condition when the provider gave no description.
	f.Description = ""
	want = "rain, 10.3…14.1°C, precipitation 45%"
	if got := f.Summary(); got != want {
		t.Errorf("Summary() without description = %q, want %q", got, want)
	}
}

func TestDateOnly(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("CEST", 2*60*60)
	in := time.Date(2026, time.August, 27, 1, 30, 0, 0, loc) // 2026-08-26 23:30 UTC
	got := weather.DateOnly(in)
	want := time.Date(2026, time.August, 26, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("DateOnly(%v) = %v, want %v", in, got, want)
	}
}
