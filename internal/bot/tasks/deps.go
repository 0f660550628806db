// Package tasks implements the bot's scheduled background tasks: the
// forecast re-check loop and database maintenance.
package tasks

import (
	"context"
	"log/slog"

	"github.com/vashchuk/skycast/internal/config"
	"github.com/vashchuk/skycast/internal/database"
	"github.com/vashchuk/skycast/internal/weather"
)

// Sender abstracts outbound chat messages so tasks can be tested without a
// live Telegram connection.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger  *slog.Logger
	Store   database.Store
	Weather weather.Client
	Sender  Sender
	Config  *config.Config
}
