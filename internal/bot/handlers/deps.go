package handlers

import (
	"log/slog"

	"github.com/vashchuk/skycast/internal/config"
	"github.com/vashchuk/skycast/internal/database"
	"github.com/vashchuk/skycast/internal/flow"
	"github.com/vashchuk/skycast/internal/weather"
)

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger  *slog.Logger
	Config  *config.Config
	Store   database.Store
	Weather weather.Client
	Flows   *flow.Manager
}
