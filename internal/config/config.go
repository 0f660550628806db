// Package config provides configuration loading, validation, and management
// for the skycast bot. It reads defaults, an optional YAML file, and
// BOT_-prefixed environment variables, then validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config defines the application configuration for all components:
// logging, Telegram, the weather provider, storage, and scheduled tasks.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Weather   WeatherConfig   `mapstructure:"weather"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LoggerConfig controls log level and output format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the bot token. The token is a required secret and is
// normally supplied via the BOT_TELEGRAM_TOKEN environment variable.
type TelegramConfig struct {
	Token string `mapstructure:"token" validate:"required"`
}

// WeatherConfig configures the forecast provider client.
type WeatherConfig struct {
	// APIKey is a required secret, normally BOT_WEATHER_API_KEY.
	APIKey      string        `mapstructure:"api_key"      validate:"required"`
	BaseURL     string        `mapstructure:"base_url"     validate:"required,url"`
	Timeout     time.Duration `mapstructure:"timeout"      validate:"min=1s,max=2m"`
	HorizonDays int           `mapstructure:"horizon_days" validate:"min=1,max=16"`
}

// DatabaseConfig holds the SQLite database location.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// TaskConfig configures a single scheduled task.
type TaskConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval" validate:"omitempty,min=1m"`
}

// SchedulerConfig maps task names to their schedules. The keys must match
// the task names registered in the task registry.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// MessagesConfig holds the user-facing message templates.
type MessagesConfig struct {
	AskCity         string `mapstructure:"ask_city"`
	AskDate         string `mapstructure:"ask_date"`
	Subscribed      string `mapstructure:"subscribed"`
	Duplicate       string `mapstructure:"duplicate"`
	Cancelled       string `mapstructure:"cancelled"`
	NothingToCancel string `mapstructure:"nothing_to_cancel"`
	Help            string `mapstructure:"help"`
	NoSubscriptions string `mapstructure:"no_subscriptions"`
	ListHeader      string `mapstructure:"list_header"`
	ForecastChanged string `mapstructure:"forecast_changed"`
	CityNotFound    string `mapstructure:"city_not_found"`
	GeneralError    string `mapstructure:"general_error"`
}

// LoadConfig reads configuration from the given YAML file (optional), layered
// over defaults and under BOT_* environment variables, and validates it.
// It returns an error for malformed files and for missing required secrets.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The config file is optional; environment variables alone are enough.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.json", true)

	// Secrets default to empty so AutomaticEnv can fill them; validation
	// rejects the empty value.
	v.SetDefault("telegram.token", "")
	v.SetDefault("weather.api_key", "")

	v.SetDefault("weather.base_url", "https://api.openweathermap.org/data/2.5/forecast")
	v.SetDefault("weather.timeout", 10*time.Second)
	v.SetDefault("weather.horizon_days", 5)

	v.SetDefault("database.path", "skycast.db")

	v.SetDefault("scheduler.tasks.forecast_check.enabled", true)
	v.SetDefault("scheduler.tasks.forecast_check.interval", 30*time.Minute)
	v.SetDefault("scheduler.tasks.sql_maintenance.enabled", true)
	v.SetDefault("scheduler.tasks.sql_maintenance.interval", 24*time.Hour)

	v.SetDefault("messages.ask_city", "Which city would you like a forecast for?")
	v.SetDefault("messages.ask_date", "Pick a date for %s:")
	v.SetDefault("messages.subscribed", "Subscribed! Forecast for %s on %s:\n%s\nI'll message you if it changes.")
	v.SetDefault("messages.duplicate", "You are already subscribed to %s on %s.")
	v.SetDefault("messages.cancelled", "Okay, cancelled. Send /start to begin again.")
	v.SetDefault("messages.nothing_to_cancel", "Nothing to cancel. Send /start to subscribe to a forecast.")
	v.SetDefault("messages.help", "Send /start to subscribe to a weather forecast for a city and date.\n/list shows your subscriptions, /cancel aborts the current dialog.")
	v.SetDefault("messages.no_subscriptions", "You have no active subscriptions.")
	v.SetDefault("messages.list_header", "Your active subscriptions:\n")
	v.SetDefault("messages.forecast_changed", "Updated forecast for %s on %s:\n%s")
	v.SetDefault("messages.city_not_found", "I couldn't find that city. Please try another name.")
	v.SetDefault("messages.general_error", "Something went wrong. Please try again later.")
}
