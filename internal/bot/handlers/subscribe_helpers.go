package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"

	"github.com/vashchuk/skycast/internal/database"
	"github.com/vashchuk/skycast/internal/weather"
)

// finalizeSubscription completes the dialog for a chat that picked a date:
// it validates the date against the forecast horizon, creates the
// subscription, fetches the first forecast for the confirmation message, and
// stores it as the initial snapshot.
func finalizeSubscription(ctx context.Context, b *bot.Bot, deps HandlerDeps, chatID int64, date time.Time, log *slog.Logger) {
	conv := deps.Flows.Get(chatID)
	if conv == nil || conv.City == "" {
		send(ctx, b, chatID, deps.Config.Messages.Help, log)
		return
	}
	city := conv.City

	day := weather.DateOnly(date)
	today := weather.DateOnly(time.Now())
	if day.Before(today) || day.After(today.AddDate(0, 0, deps.Config.Weather.HorizonDays)) {
		// The calendar disables these; typed dates can still get here.
		send(ctx, b, chatID,
			fmt.Sprintf("That date is outside the forecast range (up to %d days ahead). Please pick another.",
				deps.Config.Weather.HorizonDays), log)
		return
	}

	sub := &database.Subscription{
		ChatID:     chatID,
		City:       city,
		TargetDate: day.Format(time.DateOnly),
	}

	if err := deps.Store.CreateSubscription(ctx, sub); err != nil {
		if errors.Is(err, database.ErrDuplicateSubscription) {
			log.InfoContext(ctx, "Duplicate subscription attempt",
				"chat_id", chatID, "city", city, "target_date", sub.TargetDate)
			send(ctx, b, chatID,
				fmt.Sprintf(deps.Config.Messages.Duplicate, city, sub.TargetDate), log)
			return
		}
		log.ErrorContext(ctx, "Failed to create subscription",
			"error", err, "chat_id", chatID, "city", city)
		send(ctx, b, chatID, deps.Config.Messages.GeneralError, log)
		return
	}

	deps.Flows.Confirm(chatID)

	// First fetch right away so the confirmation carries a forecast. Failure
	// here is not fatal: the snapshot stays empty and the notifier delivers
	// the first forecast once the provider responds.
	forecastText := "The forecast isn't available yet; I'll send it as soon as I have it."
	if forecast, err := deps.Weather.Forecast(ctx, city, day); err != nil {
		log.WarnContext(ctx, "Initial forecast fetch failed",
			"error", err, "chat_id", chatID, "city", city, "target_date", sub.TargetDate)

		if errors.Is(err, weather.ErrCityNotFound) {
			// An unresolvable city would never produce a forecast. Undo the
			// subscription and ask for the city again.
			if derr := deps.Store.DeactivateSubscription(ctx, sub.ID); derr != nil {
				log.ErrorContext(ctx, "Failed to undo subscription for unknown city",
					"error", derr, "subscription_id", sub.ID)
			}
			deps.Flows.Begin(chatID)
			send(ctx, b, chatID, deps.Config.Messages.CityNotFound, log)
			return
		}
	} else {
		forecastText = forecast.Summary()
		if err := deps.Store.UpdateSnapshot(ctx, sub.ID, forecast); err != nil {
			log.ErrorContext(ctx, "Failed to store initial snapshot",
				"error", err, "subscription_id", sub.ID)
		}
	}

	log.InfoContext(ctx, "Subscription created",
		"subscription_id", sub.ID, "chat_id", chatID, "city", city, "target_date", sub.TargetDate)

	send(ctx, b, chatID,
		fmt.Sprintf(deps.Config.Messages.Subscribed, city, sub.TargetDate, forecastText), log)
}

func send(ctx context.Context, b *bot.Bot, chatID int64, text string, log *slog.Logger) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.ErrorContext(ctx, "Failed to send message", "error", err, "chat_id", chatID)
	}
}
