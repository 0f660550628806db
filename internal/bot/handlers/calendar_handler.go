package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewCalendarHandler returns a handler for calendar callback queries:
// month navigation and day selection.
func NewCalendarHandler(deps HandlerDeps) bot.HandlerFunc {
	return calendarHandler{deps}.Handle
}

type calendarHandler struct {
	deps HandlerDeps
}

func (h calendarHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "calendar")

	cb := update.CallbackQuery
	if cb == nil {
		return
	}

	// Acknowledge the tap so the client stops its spinner, whatever happens next.
	if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cb.ID}); err != nil {
		log.WarnContext(ctx, "Failed to answer callback query", "error", err)
	}

	msg := cb.Message.Message
	if msg == nil {
		// The keyboard's message is no longer accessible; nothing to edit.
		log.WarnContext(ctx, "Calendar callback for inaccessible message", "user_id", cb.From.ID)
		return
	}
	chatID := msg.Chat.ID

	action, arg, ok := parseCallback(cb.Data)
	if !ok {
		return
	}

	switch action {
	case actionNoop:
		return

	case actionPrev, actionNext:
		month, err := time.Parse(monthLayout, arg)
		if err != nil {
			log.WarnContext(ctx, "Malformed calendar navigation data", "data", cb.Data)
			return
		}
		h.redraw(ctx, b, chatID, msg.ID, month, log)

	case actionDay:
		date, err := time.Parse(time.DateOnly, arg)
		if err != nil {
			log.WarnContext(ctx, "Malformed calendar day data", "data", cb.Data)
			return
		}

		// Retire the keyboard before finalizing so a double-tap cannot race
		// a second create.
		if _, err := b.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
			ChatID:    chatID,
			MessageID: msg.ID,
		}); err != nil {
			log.DebugContext(ctx, "Failed to remove calendar keyboard", "error", err, "chat_id", chatID)
		}

		finalizeSubscription(ctx, b, h.deps, chatID, date, log)
	}
}

func (h calendarHandler) redraw(ctx context.Context, b *bot.Bot, chatID int64, messageID int, month time.Time, log *slog.Logger) {
	now := time.Now()
	markup := BuildCalendar(month, now, h.deps.Config.Weather.HorizonDays)

	_, err := b.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
		ChatID:      chatID,
		MessageID:   messageID,
		ReplyMarkup: markup,
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to redraw calendar", "error", err, "chat_id", chatID)
	}
}
