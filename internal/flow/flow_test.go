package flow_test

import (
	"testing"

	"github.com/vashchuk/skycast/internal/flow"
)

func TestManager_HappyPath(t *testing.T) {
	t.Parallel()

	m := flow.NewManager()
	chatID := int64(100)

	if got := m.State(chatID); got != flow.StateIdle {
		t.Fatalf("State() before Begin = %v, want %v", got, flow.StateIdle)
	}

	m.Begin(chatID)
	if got := m.State(chatID); got != flow.StateAwaitingCity {
		t.Fatalf("State() after Begin = %v, want %v", got, flow.StateAwaitingCity)
	}

	if !m.SetCity(chatID, "Berlin") {
		t.Fatal("SetCity() = false, want true")
	}
	if got := m.State(chatID); got != flow.StateAwaitingDate {
		t.Fatalf("State() after SetCity = %v, want %v", got, flow.StateAwaitingDate)
	}

	city, ok := m.Confirm(chatID)
	if !ok {
		t.Fatal("Confirm() = false, want true")
	}
	if city != "Berlin" {
		t.Errorf("Confirm() city = %q, want %q", city, "Berlin")
	}
	if got := m.State(chatID); got != flow.StateConfirmed {
		t.Errorf("State() after Confirm = %v, want %v", got, flow.StateConfirmed)
	}
}

func TestManager_SetCityRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(m *flow.Manager, chatID int64)
		city  string
	}{
		{
			name:  "no dialog in progress",
			setup: func(m *flow.Manager, chatID int64) {},
			city:  "Berlin",
		},
		{
			name: "blank city",
			setup: func(m *flow.Manager, chatID int64) {
				m.Begin(chatID)
			},
			city: "   ",
		},
		{
			name: "already awaiting date",
			setup: func(m *flow.Manager, chatID int64) {
				m.Begin(chatID)
				m.SetCity(chatID, "Berlin")
			},
			city: "Paris",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := flow.NewManager()
			chatID := int64(7)
			tt.setup(m, chatID)

			if m.SetCity(chatID, tt.city) {
				t.Errorf("SetCity(%q) = true, want false", tt.city)
			}
		})
	}
}

func TestManager_CityIsTrimmed(t *testing.T) {
	t.Parallel()

	m := flow.NewManager()
	m.Begin(1)
	if !m.SetCity(1, "  Kyiv  ") {
		t.Fatal("SetCity() = false, want true")
	}

	city, ok := m.Confirm(1)
	if !ok || city != "Kyiv" {
		t.Errorf("Confirm() = (%q, %v), want (%q, true)", city, ok, "Kyiv")
	}
}

func TestManager_BeginRestartsDialog(t *testing.T) {
	t.Parallel()

	m := flow.NewManager()
	m.Begin(1)
	m.SetCity(1, "Berlin")

	// Starting over mid-flow drops the collected city.
	m.Begin(1)
	if got := m.State(1); got != flow.StateAwaitingCity {
		t.Fatalf("State() after restart = %v, want %v", got, flow.StateAwaitingCity)
	}
	if conv := m.Get(1); conv.City != "" {
		t.Errorf("City after restart = %q, want empty", conv.City)
	}
}

func TestManager_Reset(t *testing.T) {
	t.Parallel()

	m := flow.NewManager()

	if m.Reset(1) {
		t.Error("Reset() with no dialog = true, want false")
	}

	m.Begin(1)
	m.SetCity(1, "Berlin")
	if !m.Reset(1) {
		t.Error("Reset() mid-flow = false, want true")
	}
	if got := m.State(1); got != flow.StateIdle {
		t.Errorf("State() after Reset = %v, want %v", got, flow.StateIdle)
	}

	m.Begin(1)
	m.SetCity(1, "Berlin")
	m.Confirm(1)
	if m.Reset(1) {
		t.Error("Reset() after Confirm = true, want false")
	}
}

func TestManager_ChatsAreIndependent(t *testing.T) {
	t.Parallel()

	m := flow.NewManager()
	m.Begin(1)
	m.Begin(2)
	m.SetCity(1, "Berlin")

	if got := m.State(1); got != flow.StateAwaitingDate {
		t.Errorf("chat 1 state = %v, want %v", got, flow.StateAwaitingDate)
	}
	if got := m.State(2); got != flow.StateAwaitingCity {
		t.Errorf("chat 2 state = %v, want %v", got, flow.StateAwaitingCity)
	}

	m.Reset(1)
	if got := m.State(2); got != flow.StateAwaitingCity {
		t.Errorf("chat 2 state after resetting chat 1 = %v, want %v", got, flow.StateAwaitingCity)
	}
}
