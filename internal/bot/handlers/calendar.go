package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/vashchuk/skycast/internal/weather"
)

// Callback data layout: "cal|day|2026-08-27", "cal|prev|2026-08",
// "cal|next|2026-08", "cal|noop". Telegram limits callback data to 64 bytes,
// which these fit comfortably.
const (
	callbackPrefix = "cal|"

	actionDay  = "day"
	actionPrev = "prev"
	actionNext = "next"
	actionNoop = "noop"
)

const monthLayout = "2006-01"

var weekdayLabels = [7]string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}

func dayCallback(day time.Time) string {
	return callbackPrefix + actionDay + "|" + day.Format(time.DateOnly)
}

func navCallback(action string, month time.Time) string {
	return callbackPrefix + action + "|" + month.Format(monthLayout)
}

func noopButton(text string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: text, CallbackData: callbackPrefix + actionNoop}
}

// BuildCalendar renders an inline month calendar. Days outside
// [today, today+horizonDays] are rendered as inert buttons so past dates and
// dates beyond the provider's forecast horizon cannot be selected.
func BuildCalendar(month time.Time, now time.Time, horizonDays int) *models.InlineKeyboardMarkup {
	today := weather.DateOnly(now)
	horizonEnd := today.AddDate(0, 0, horizonDays)
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)

	var rows [][]models.InlineKeyboardButton

	// Header: navigation arrows around the month label. Arrows outside the
	// selectable window degrade to no-ops.
	prev := noopButton(" ")
	if first.After(time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)) {
		prev = models.InlineKeyboardButton{Text: "<", CallbackData: navCallback(actionPrev, first.AddDate(0, -1, 0))}
	}
	next := noopButton(" ")
	if first.AddDate(0, 1, 0).Sub(horizonEnd) <= 0 {
		next = models.InlineKeyboardButton{Text: ">", CallbackData: navCallback(actionNext, first.AddDate(0, 1, 0))}
	}
	rows = append(rows, []models.InlineKeyboardButton{
		prev,
		noopButton(first.Format("January 2006")),
		next,
	})

	week := make([]models.InlineKeyboardButton, 0, 7)
	for _, label := range weekdayLabels {
		week = append(week, noopButton(label))
	}
	rows = append(rows, week)

	// Day grid, weeks starting on Monday.
	offset := (int(first.Weekday()) + 6) % 7
	daysInMonth := first.AddDate(0, 1, -1).Day()

	row := make([]models.InlineKeyboardButton, 0, 7)
	for i := 0; i < offset; i++ {
		row = append(row, noopButton(" "))
	}
	for day := 1; day <= daysInMonth; day++ {
		date := first.AddDate(0, 0, day-1)
		if date.Before(today) || date.After(horizonEnd) {
			row = append(row, noopButton(" "))
		} else {
			row = append(row, models.InlineKeyboardButton{
				Text:         fmt.Sprintf("%d", day),
				CallbackData: dayCallback(date),
			})
		}
		if len(row) == 7 {
			rows = append(rows, row)
			row = make([]models.InlineKeyboardButton, 0, 7)
		}
	}
	if len(row) > 0 {
		for len(row) < 7 {
			row = append(row, noopButton(" "))
		}
		rows = append(rows, row)
	}

	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// parseCallback splits calendar callback data into its action and argument.
// It reports false for data that does not belong to the calendar.
func parseCallback(data string) (action, arg string, ok bool) {
	rest, found := strings.CutPrefix(data, callbackPrefix)
	if !found {
		return "", "", false
	}
	action, arg, _ = strings.Cut(rest, "|")
	return action, arg, true
}
