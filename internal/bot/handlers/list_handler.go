package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewListHandler returns a handler for the /list command, showing the chat's
// active subscriptions with the last observed forecast for each.
func NewListHandler(deps HandlerDeps) bot.HandlerFunc {
	return listHandler{deps}.Handle
}

type listHandler struct {
	deps HandlerDeps
}

func (h listHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "list")

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	subs, err := h.deps.Store.ListSubscriptionsByChat(ctx, chatID, time.Now())
	if err != nil {
		log.ErrorContext(ctx, "Failed to list subscriptions", "error", err, "chat_id", chatID)
		h.reply(ctx, b, chatID, h.deps.Config.Messages.GeneralError, log)
		return
	}

	if len(subs) == 0 {
		h.reply(ctx, b, chatID, h.deps.Config.Messages.NoSubscriptions, log)
		return
	}

	var sb strings.Builder
	sb.WriteString(h.deps.Config.Messages.ListHeader)
	for _, sub := range subs {
		if snapshot := sub.Snapshot(); snapshot != nil {
			fmt.Fprintf(&sb, "• %s on %s — %s\n", sub.City, sub.TargetDate, snapshot.Summary())
		} else {
			fmt.Fprintf(&sb, "• %s on %s — no forecast yet\n", sub.City, sub.TargetDate)
		}
	}

	h.reply(ctx, b, chatID, sb.String(), log)
}

func (h listHandler) reply(ctx context.Context, b *bot.Bot, chatID int64, text string, log *slog.Logger) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.ErrorContext(ctx, "Failed to send subscription list", "error", err, "chat_id", chatID)
	}
}
