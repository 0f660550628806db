// Package weather provides a client for the OpenWeatherMap forecast API.
// It normalizes the provider's 3-hour forecast slots into one comparable
// daily forecast per requested city and date.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/vashchuk/skycast/internal/config"
)

// Sentinel errors surfaced to callers. Each maps to a distinct failure mode
// so the notifier can decide whether to skip, retry, or inform the user.
var (
	// ErrCityNotFound indicates the provider could not resolve the city name.
	ErrCityNotFound = errors.New("city not found")

	// ErrDateOutOfRange indicates the requested date is outside the
	// provider's forecast horizon.
	ErrDateOutOfRange = errors.New("date outside forecast horizon")

	// ErrUnavailable indicates a transient provider failure (network error,
	// server error, or open circuit breaker).
	ErrUnavailable = errors.New("weather service unavailable")
)

// Client fetches a normalized daily forecast for a city and date.
type Client interface {
	Forecast(ctx context.Context, city string, date time.Time) (*DailyForecast, error)
}

// OWMClient implements Client against the OpenWeatherMap 5-day/3-hour
// forecast endpoint. Calls go through a circuit breaker so a flapping
// provider does not burn a network call per subscription per cycle.
type OWMClient struct {
	apiKey      string
	baseURL     string
	horizonDays int
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker
	logger      *slog.Logger
}

// NewOWMClient creates a new OpenWeatherMap client from configuration.
func NewOWMClient(cfg config.WeatherConfig, logger *slog.Logger) *OWMClient {
	if logger == nil {
		logger = slog.Default()
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweathermap",
		MaxRequests: 5,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &OWMClient{
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		horizonDays: cfg.HorizonDays,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		breaker:     cb,
		logger:      logger.With("component", "weather_client"),
	}
}

// forecastResponse mirrors the subset of the OpenWeatherMap response we use.
type forecastResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			TempMin float64 `json:"temp_min"`
			TempMax float64 `json:"temp_max"`
		} `json:"main"`
		Weather []struct {
			Main        string `json:"main"`
			Description string `json:"description"`
		} `json:"weather"`
		Pop float64 `json:"pop"`
	} `json:"list"`
}

// Forecast fetches the forecast for the given city and aggregates the 3-hour
// slots falling on the requested date. It returns ErrDateOutOfRange without a
// network call when the date is outside the configured horizon.
func (c *OWMClient) Forecast(ctx context.Context, city string, date time.Time) (*DailyForecast, error) {
	day := DateOnly(date)
	today := DateOnly(time.Now().UTC())

	if day.Before(today) || day.After(today.AddDate(0, 0, c.horizonDays)) {
		return nil, fmt.Errorf("%w: %s", ErrDateOutOfRange, day.Format(time.DateOnly))
	}

	body, err := c.fetch(ctx, city)
	if err != nil {
		return nil, err
	}

	var payload forecastResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrUnavailable, err)
	}

	forecast, ok := aggregate(city, day, &payload)
	if !ok {
		// The provider resolved the city but returned no slots for the date.
		return nil, fmt.Errorf("%w: no forecast slots for %s", ErrDateOutOfRange, day.Format(time.DateOnly))
	}

	c.logger.DebugContext(ctx, "Fetched forecast",
		"city", city, "date", day.Format(time.DateOnly), "condition", forecast.Condition)
	return forecast, nil
}

// fetch performs the HTTP request through the circuit breaker and returns
// the raw response body.
func (c *OWMClient) fetch(ctx context.Context, city string) ([]byte, error) {
	values := url.Values{}
	values.Set("q", city)
	values.Set("appid", c.apiKey)
	values.Set("units", "metric")

	reqURL := fmt.Sprintf("%s?%s", c.baseURL, values.Encode())

	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, ErrCityNotFound
		case resp.StatusCode == http.StatusUnauthorized:
			return nil, fmt.Errorf("%w: invalid API key", ErrUnavailable)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return nil, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
		}

		return io.ReadAll(resp.Body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit breaker open", ErrUnavailable)
		}
		return nil, err
	}

	body, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected breaker result type", ErrUnavailable)
	}
	return body, nil
}

// aggregate folds the 3-hour slots for one calendar day (UTC) into a single
// DailyForecast. It reports false when no slot falls on the requested day.
func aggregate(city string, day time.Time, payload *forecastResponse) (*DailyForecast, bool) {
	var (
		found       bool
		tempMin     float64
		tempMax     float64
		precipProb  float64
		counts      = make(map[string]int)
		description string
		bestDist    = int(^uint(0) >> 1)
	)

	for _, slot := range payload.List {
		ts := time.Unix(slot.Dt, 0).UTC()
		if !DateOnly(ts).Equal(day) {
			continue
		}

		if !found {
			tempMin = slot.Main.TempMin
			tempMax = slot.Main.TempMax
		} else {
			if slot.Main.TempMin < tempMin {
				tempMin = slot.Main.TempMin
			}
			if slot.Main.TempMax > tempMax {
				tempMax = slot.Main.TempMax
			}
		}
		if slot.Pop > precipProb {
			precipProb = slot.Pop
		}

		if len(slot.Weather) > 0 {
			counts[mapCondition(slot.Weather[0].Main)]++

			// Prefer the description of the slot closest to midday.
			dist := ts.Hour() - 12
			if dist < 0 {
				dist = -dist
			}
			if dist < bestDist {
				bestDist = dist
				description = slot.Weather[0].Description
			}
		}

		found = true
	}

	if !found {
		return nil, false
	}

	condition := ConditionUnknown
	best := 0
	for cond, n := range counts {
		if n > best {
			best = n
			condition = cond
		}
	}

	return &DailyForecast{
		City:        city,
		Date:        day,
		Condition:   condition,
		Description: description,
		TempMin:     tempMin,
		TempMax:     tempMax,
		PrecipProb:  precipProb,
	}, true
}

func mapCondition(main string) string {
	switch main {
	case "Clear":
		return ConditionClear
	case "Clouds":
		return ConditionCloudy
	case "Rain", "Drizzle":
		return ConditionRain
	case "Snow":
		return ConditionSnow
	case "Thunderstorm":
		return ConditionStorm
	default:
		return ConditionUnknown
	}
}
