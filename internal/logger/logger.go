// Package logger provides structured logging for the skycast bot.
// It uses Go's slog package with configurable level and output format.
package logger

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewLogger creates a new slog Logger with the specified level and format.
// If jsonOutput is true, logs are emitted as JSON, otherwise as text.
func NewLogger(levelStr string, jsonOutput bool) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// Middleware creates a logging middleware for the Telegram bot. It logs each
// incoming update (text message or calendar callback) and its handling time.
func Middleware(log *slog.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			start := time.Now()
			entry := log.With("update_id", update.ID)

			switch {
			case update.Message != nil:
				var userID int64
				if update.Message.From != nil {
					userID = update.Message.From.ID
				}
				entry = entry.With(
					"update_type", "message",
					"chat_id", update.Message.Chat.ID,
					"user_id", userID,
					"text_preview", truncate(update.Message.Text, 50),
				)
			case update.CallbackQuery != nil:
				entry = entry.With(
					"update_type", "callback_query",
					"user_id", update.CallbackQuery.From.ID,
					"data", update.CallbackQuery.Data,
				)
			default:
				entry = entry.With("update_type", "other")
			}

			entry.DebugContext(ctx, "Processing update")
			next(ctx, b, update)
			entry.DebugContext(ctx, "Finished processing update", "duration", time.Since(start))
		}
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}
