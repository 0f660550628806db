package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewCancelHandler returns a handler for the /cancel command. It aborts the
// chat's subscription dialog, if one is in progress.
func NewCancelHandler(deps HandlerDeps) bot.HandlerFunc {
	return cancelHandler{deps}.Handle
}

type cancelHandler struct {
	deps HandlerDeps
}

func (h cancelHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "cancel")

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	text := h.deps.Config.Messages.NothingToCancel
	if h.deps.Flows.Reset(chatID) {
		text = h.deps.Config.Messages.Cancelled
		log.InfoContext(ctx, "Subscription dialog cancelled", "chat_id", chatID)
	}

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.ErrorContext(ctx, "Failed to send cancel confirmation", "error", err, "chat_id", chatID)
	}
}
