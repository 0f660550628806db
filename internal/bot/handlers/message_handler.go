package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/vashchuk/skycast/internal/flow"
)

// NewMessageHandler returns the default handler for free-form text. It routes
// the message through the chat's dialog state: a city name while the bot is
// asking for one, a typed YYYY-MM-DD date as an alternative to the calendar,
// and a gentle hint otherwise.
func NewMessageHandler(deps HandlerDeps) bot.HandlerFunc {
	return messageHandler{deps}.Handle
}

type messageHandler struct {
	deps HandlerDeps
}

func (h messageHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "message")

	if update.Message == nil || update.Message.From == nil {
		return
	}

	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)
	if text == "" || strings.HasPrefix(text, "/") {
		// Unknown commands fall through to here; stay quiet.
		return
	}

	switch h.deps.Flows.State(chatID) {
	case flow.StateAwaitingCity:
		h.handleCity(ctx, b, chatID, text, log)
	case flow.StateAwaitingDate:
		h.handleTypedDate(ctx, b, chatID, text, log)
	default:
		h.send(ctx, b, chatID, h.deps.Config.Messages.Help, log)
	}
}

func (h messageHandler) handleCity(ctx context.Context, b *bot.Bot, chatID int64, city string, log *slog.Logger) {
	if !h.deps.Flows.SetCity(chatID, city) {
		h.send(ctx, b, chatID, h.deps.Config.Messages.AskCity, log)
		return
	}

	log.InfoContext(ctx, "City selected, asking for date", "chat_id", chatID, "city", city)

	now := time.Now()
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        fmt.Sprintf(h.deps.Config.Messages.AskDate, city),
		ReplyMarkup: BuildCalendar(now, now, h.deps.Config.Weather.HorizonDays),
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send calendar", "error", err, "chat_id", chatID)
	}
}

func (h messageHandler) handleTypedDate(ctx context.Context, b *bot.Bot, chatID int64, text string, log *slog.Logger) {
	date, err := time.Parse(time.DateOnly, text)
	if err != nil {
		h.send(ctx, b, chatID, "Please pick a date from the calendar, or type it as YYYY-MM-DD.", log)
		return
	}

	finalizeSubscription(ctx, b, h.deps, chatID, date, log)
}

func (h messageHandler) send(ctx context.Context, b *bot.Bot, chatID int64, text string, log *slog.Logger) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.ErrorContext(ctx, "Failed to send message", "error", err, "chat_id", chatID)
	}
}
