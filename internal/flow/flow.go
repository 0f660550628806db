// Package flow implements the per-chat conversational state machine for
// creating a forecast subscription: the bot first asks for a city, then for
// a date via an inline calendar, then confirms.
package flow

import (
	"strings"
	"sync"
	"time"
)

// State identifies where a chat currently is in the subscription dialog.
type State int

const (
	// StateIdle means no dialog is in progress for the chat.
	StateIdle State = iota
	// StateAwaitingCity means the bot asked for a city name.
	StateAwaitingCity
	// StateAwaitingDate means the bot rendered the calendar and waits for a
	// day selection.
	StateAwaitingDate
	// StateConfirmed means the subscription was created; the dialog is over.
	StateConfirmed
)

// String returns a readable state name for logging.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingCity:
		return "awaiting_city"
	case StateAwaitingDate:
		return "awaiting_date"
	case StateConfirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

// Conversation holds the data collected so far for one chat's dialog.
type Conversation struct {
	State     State
	City      string
	StartedAt time.Time
}

// Manager tracks conversation state per chat. State is in-memory only:
// a restart simply drops unfinished dialogs, subscriptions themselves are
// durable. Flows for different chats are independent.
type Manager struct {
	mu    sync.Mutex
	chats map[int64]*Conversation
}

// NewManager creates an empty conversation manager.
func NewManager() *Manager {
	return &Manager{chats: make(map[int64]*Conversation)}
}

// Begin starts (or restarts) the dialog for a chat. Starting over while
// mid-flow resets any collected data: last input wins.
func (m *Manager) Begin(chatID int64) *Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv := &Conversation{State: StateAwaitingCity, StartedAt: time.Now()}
	m.chats[chatID] = conv
	return conv
}

// Get returns the chat's current conversation, or nil when no dialog is in
// progress.
func (m *Manager) Get(chatID int64) *Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.chats[chatID]
}

// State returns the chat's current state, StateIdle when no dialog exists.
func (m *Manager) State(chatID int64) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if conv, ok := m.chats[chatID]; ok {
		return conv.State
	}
	return StateIdle
}

// SetCity records the city for a chat awaiting city input and advances the
// dialog to date selection. It reports false when the input is rejected:
// blank text, or the chat is not awaiting a city.
func (m *Manager) SetCity(chatID int64, city string) bool {
	city = strings.TrimSpace(city)
	if city == "" {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.chats[chatID]
	if !ok || conv.State != StateAwaitingCity {
		return false
	}

	conv.City = city
	conv.State = StateAwaitingDate
	return true
}

// Confirm marks the chat's dialog as completed and returns the collected
// city. It reports false when the chat is not awaiting a date selection.
func (m *Manager) Confirm(chatID int64) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.chats[chatID]
	if !ok || conv.State != StateAwaitingDate {
		return "", false
	}

	conv.State = StateConfirmed
	return conv.City, true
}

// Reset drops the chat's dialog entirely. It reports whether a dialog was
// actually in progress.
func (m *Manager) Reset(chatID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.chats[chatID]
	delete(m.chats, chatID)
	return ok && conv.State != StateConfirmed
}
