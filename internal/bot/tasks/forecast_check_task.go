package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vashchuk/skycast/internal/database"
	"github.com/vashchuk/skycast/internal/weather"
)

// newForecastCheckTask creates the notifier cycle: for every active
// subscription it re-fetches the forecast, messages the user when it changed,
// and retires subscriptions whose date has passed. Every subscription is
// checked independently; one failure never affects the others.
func newForecastCheckTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "forecast_check")

	return func(ctx context.Context) error {
		now := time.Now()

		if _, err := deps.Store.DeactivateExpired(ctx, now); err != nil {
			log.ErrorContext(ctx, "Failed to deactivate expired subscriptions", "error", err)
			// The listing below filters expired rows anyway; keep going.
		}

		subs, err := deps.Store.ListActiveSubscriptions(ctx, now)
		if err != nil {
			return fmt.Errorf("failed to list active subscriptions: %w", err)
		}
		if len(subs) == 0 {
			log.DebugContext(ctx, "No active subscriptions to check")
			return nil
		}

		log.InfoContext(ctx, "Checking forecasts", "subscriptions", len(subs))

		var notified, skipped int
		for i := range subs {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if checkSubscription(ctx, deps, &subs[i], now, log) {
				notified++
			} else {
				skipped++
			}
		}

		log.InfoContext(ctx, "Forecast check finished",
			"subscriptions", len(subs), "notified", notified, "unchanged_or_skipped", skipped)
		return nil
	}
}

// checkSubscription performs one subscription's check and reports whether a
// notification was sent. All failures are logged and swallowed so the cycle
// continues with the next subscription.
func checkSubscription(ctx context.Context, deps TaskDeps, sub *database.Subscription, now time.Time, log *slog.Logger) bool {
	target, err := sub.Date()
	if err != nil {
		log.ErrorContext(ctx, "Subscription has malformed target date",
			"subscription_id", sub.ID, "target_date", sub.TargetDate, "error", err)
		return false
	}

	if target.Before(weather.DateOnly(now)) {
		if err := deps.Store.DeactivateSubscription(ctx, sub.ID); err != nil {
			log.ErrorContext(ctx, "Failed to deactivate expired subscription",
				"subscription_id", sub.ID, "error", err)
		}
		return false
	}

	forecast, err := deps.Weather.Forecast(ctx, sub.City, target)
	if err != nil {
		// Unavailable or failed this cycle; the next cycle retries.
		log.WarnContext(ctx, "Forecast fetch failed, skipping subscription for this cycle",
			"subscription_id", sub.ID, "city", sub.City, "error", err)
		return false
	}

	if forecast.Equal(sub.Snapshot()) {
		return false
	}

	text := fmt.Sprintf(deps.Config.Messages.ForecastChanged, sub.City, sub.TargetDate, forecast.Summary())
	if err := deps.Sender.SendMessage(ctx, sub.ChatID, text); err != nil {
		// Keep the old snapshot so the change is re-announced next cycle.
		log.ErrorContext(ctx, "Failed to send forecast notification",
			"subscription_id", sub.ID, "chat_id", sub.ChatID, "error", err)
		return false
	}

	if err := deps.Store.UpdateSnapshot(ctx, sub.ID, forecast); err != nil {
		log.ErrorContext(ctx, "Failed to update forecast snapshot",
			"subscription_id", sub.ID, "error", err)
	}

	log.InfoContext(ctx, "Forecast change notification sent",
		"subscription_id", sub.ID, "chat_id", sub.ChatID, "city", sub.City)
	return true
}
