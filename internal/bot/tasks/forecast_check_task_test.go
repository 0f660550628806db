package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/vashchuk/skycast/internal/config"
	"github.com/vashchuk/skycast/internal/database"
	"github.com/vashchuk/skycast/internal/weather"
)

type fakeStore struct {
	database.Store

	subs          []database.Subscription
	deactivated   []int64
	snapshots     map[int64]*weather.DailyForecast
	expiredCalled bool
	listErr       error
	updateErr     error
}

func (s *fakeStore) ListActiveSubscriptions(ctx context.Context, now time.Time) ([]database.Subscription, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.subs, nil
}

func (s *fakeStore) UpdateSnapshot(ctx context.Context, id int64, forecast *weather.DailyForecast) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	if s.snapshots == nil {
		s.snapshots = make(map[int64]*weather.DailyForecast)
	}
	s.snapshots[id] = forecast
	return nil
}

func (s *fakeStore) DeactivateSubscription(ctx context.Context, id int64) error {
	s.deactivated = append(s.deactivated, id)
	return nil
}

func (s *fakeStore) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	s.expiredCalled = true
	return 0, nil
}

type fakeWeather struct {
	forecasts map[string]*weather.DailyForecast
	errs      map[string]error
	calls     []string
}

func (w *fakeWeather) Forecast(ctx context.Context, city string, date time.Time) (*weather.DailyForecast, error) {
	w.calls = append(w.calls, city)
	if err, ok := w.errs[city]; ok {
		return nil, err
	}
	if f, ok := w.forecasts[city]; ok {
		return f, nil
	}
	return nil, weather.ErrCityNotFound
}

type fakeSender struct {
	sent    []sentMessage
	sendErr error
}

type sentMessage struct {
	chatID int64
	text   string
}

func (s *fakeSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func testDeps(store *fakeStore, w *fakeWeather, sender *fakeSender) TaskDeps {
	return TaskDeps{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Store:   store,
		Weather: w,
		Sender:  sender,
		Config: &config.Config{
			Messages: config.MessagesConfig{
				ForecastChanged: "Updated forecast for %s on %s:\n%s",
			},
		},
	}
}

func activeSub(id, chatID int64, city string, daysAhead int) database.Subscription {
	return database.Subscription{
		ID:         id,
		ChatID:     chatID,
		City:       city,
		TargetDate: time.Now().UTC().AddDate(0, 0, daysAhead).Format(time.DateOnly),
		Active:     true,
	}
}

func withSnapshot(sub database.Subscription, f *weather.DailyForecast) database.Subscription {
	sub.SnapshotCondition = sql.NullString{String: f.Condition, Valid: true}
	sub.SnapshotDescription = sql.NullString{String: f.Description, Valid: true}
	sub.SnapshotTempMin = sql.NullFloat64{Float64: f.TempMin, Valid: true}
	sub.SnapshotTempMax = sql.NullFloat64{Float64: f.TempMax, Valid: true}
	sub.SnapshotPrecipProb = sql.NullFloat64{Float64: f.PrecipProb, Valid: true}
	return sub
}

func rainForecast() *weather.DailyForecast {
	return &weather.DailyForecast{
		Condition:   weather.ConditionRain,
		Description: "light rain",
		TempMin:     10.0,
		TempMax:     14.0,
		PrecipProb:  0.4,
	}
}

func TestForecastCheck_NotifiesOnChange(t *testing.T) {
	t.Parallel()

	oldForecast := rainForecast()
	newForecast := rainForecast()
	newForecast.TempMax = 18.5

	store := &fakeStore{subs: []database.Subscription{
		withSnapshot(activeSub(1, 100, "Berlin", 2), oldForecast),
	}}
	w := &fakeWeather{forecasts: map[string]*weather.DailyForecast{"Berlin": newForecast}}
	sender := &fakeSender{}

	task := newForecastCheckTask(testDeps(store, w, sender))
	if err := task(context.Background()); err != nil {
		t.Fatalf("task error = %v", err)
	}

	if !store.expiredCalled {
		t.Error("DeactivateExpired was not called")
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}
	if sender.sent[0].chatID != 100 {
		t.Errorf("notified chat %d, want 100", sender.sent[0].chatID)
	}
	if !store.snapshots[1].Equal(newForecast) {
		t.Errorf("stored snapshot = %+v, want the new forecast", store.snapshots[1])
	}
}

func TestForecastCheck_NoNotificationWhenUnchanged(t *testing.T) {
	t.Parallel()

	forecast := rainForecast()
	store := &fakeStore{subs: []database.Subscription{
		withSnapshot(activeSub(1, 100, "Berlin", 2), forecast),
	}}
	w := &fakeWeather{forecasts: map[string]*weather.DailyForecast{"Berlin": rainForecast()}}
	sender := &fakeSender{}

	task := newForecastCheckTask(testDeps(store, w, sender))
	if err := task(context.Background()); err != nil {
		t.Fatalf("task error = %v", err)
	}

	if len(sender.sent) != 0 {
		t.Errorf("sent %d messages, want 0", len(sender.sent))
	}
	if len(store.snapshots) != 0 {
		t.Errorf("snapshot was rewritten for an unchanged forecast")
	}
}

func TestForecastCheck_FirstForecastCountsAsChange(t *testing.T) {
	t.Parallel()

	// No snapshot yet: the first successful fetch is always delivered.
	store := &fakeStore{subs: []database.Subscription{activeSub(1, 100, "Berlin", 2)}}
	w := &fakeWeather{forecasts: map[string]*weather.DailyForecast{"Berlin": rainForecast()}}
	sender := &fakeSender{}

	task := newForecastCheckTask(testDeps(store, w, sender))
	if err := task(context.Background()); err != nil {
		t.Fatalf("task error = %v", err)
	}

	if len(sender.sent) != 1 {
		t.Errorf("sent %d messages, want 1", len(sender.sent))
	}
}

func TestForecastCheck_OneFailureDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	store := &fakeStore{subs: []database.Subscription{
		activeSub(1, 100, "Atlantis", 2),
		activeSub(2, 200, "Berlin", 2),
	}}
	w := &fakeWeather{
		forecasts: map[string]*weather.DailyForecast{"Berlin": rainForecast()},
		errs:      map[string]error{"Atlantis": weather.ErrUnavailable},
	}
	sender := &fakeSender{}

	task := newForecastCheckTask(testDeps(store, w, sender))
	if err := task(context.Background()); err != nil {
		t.Fatalf("task error = %v", err)
	}

	if len(sender.sent) != 1 || sender.sent[0].chatID != 200 {
		t.Errorf("sent = %+v, want exactly one message to chat 200", sender.sent)
	}
	if len(w.calls) != 2 {
		t.Errorf("provider calls = %d, want 2", len(w.calls))
	}
}

func TestForecastCheck_SendFailureKeepsOldSnapshot(t *testing.T) {
	t.Parallel()

	newForecast := rainForecast()
	newForecast.Condition = weather.ConditionStorm

	store := &fakeStore{subs: []database.Subscription{
		withSnapshot(activeSub(1, 100, "Berlin", 2), rainForecast()),
	}}
	w := &fakeWeather{forecasts: map[string]*weather.DailyForecast{"Berlin": newForecast}}
	sender := &fakeSender{sendErr: fmt.Errorf("telegram: chat unreachable")}

	task := newForecastCheckTask(testDeps(store, w, sender))
	if err := task(context.Background()); err != nil {
		t.Fatalf("task error = %v", err)
	}

	// The snapshot must survive so the change is re-announced next cycle.
	if len(store.snapshots) != 0 {
		t.Errorf("snapshot updated despite failed send: %+v", store.snapshots)
	}
}

func TestForecastCheck_DeactivatesPastSubscriptions(t *testing.T) {
	t.Parallel()

	// A past-dated row that slipped through the bulk expiry still gets
	// deactivated individually, with no provider call.
	store := &fakeStore{subs: []database.Subscription{activeSub(1, 100, "Berlin", -1)}}
	w := &fakeWeather{}
	sender := &fakeSender{}

	task := newForecastCheckTask(testDeps(store, w, sender))
	if err := task(context.Background()); err != nil {
		t.Fatalf("task error = %v", err)
	}

	if len(store.deactivated) != 1 || store.deactivated[0] != 1 {
		t.Errorf("deactivated = %v, want [1]", store.deactivated)
	}
	if len(w.calls) != 0 {
		t.Errorf("provider calls = %d, want 0", len(w.calls))
	}
	if len(sender.sent) != 0 {
		t.Errorf("sent %d messages, want 0", len(sender.sent))
	}
}

func TestForecastCheck_ListFailureAbortsCycle(t *testing.T) {
	t.Parallel()

	store := &fakeStore{listErr: errors.New("database locked")}
	task := newForecastCheckTask(testDeps(store, &fakeWeather{}, &fakeSender{}))

	if err := task(context.Background()); err == nil {
		t.Error("task error = nil, want non-nil when listing fails")
	}
}

func TestForecastCheck_NoSubscriptionsIsNoOp(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	w := &fakeWeather{}
	sender := &fakeSender{}

	task := newForecastCheckTask(testDeps(store, w, sender))
	if err := task(context.Background()); err != nil {
		t.Fatalf("task error = %v", err)
	}
	if len(w.calls) != 0 || len(sender.sent) != 0 {
		t.Error("no-op cycle performed work")
	}
}
