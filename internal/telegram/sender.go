package telegram

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
)

// Sender sends plain text messages through a live bot instance. It adapts
// *bot.Bot to the narrow interface the scheduled tasks depend on.
type Sender struct {
	bot *bot.Bot
}

// NewSender wraps a bot instance for outbound messaging.
func NewSender(b *bot.Bot) *Sender {
	return &Sender{bot: b}
}

// SendMessage delivers a text message to the given chat.
func (s *Sender) SendMessage(ctx context.Context, chatID int64, text string) error {
	_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("failed to send message to chat %d: %w", chatID, err)
	}
	return nil
}
