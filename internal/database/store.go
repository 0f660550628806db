package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vashchuk/skycast/internal/weather"
)

var (
	// ErrDuplicateSubscription indicates an identical active
	// (chat, city, date) subscription already exists.
	ErrDuplicateSubscription = errors.New("subscription already exists")

	// ErrPastDate indicates the target date was already over at creation time.
	ErrPastDate = errors.New("target date is in the past")
)

// Store defines the interface for subscription persistence.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// CreateSubscription inserts a new active subscription. It returns
	// ErrDuplicateSubscription when an identical active (chat_id, city,
	// target_date) triple exists and ErrPastDate when the date is over.
	CreateSubscription(ctx context.Context, sub *Subscription) error

	// ListActiveSubscriptions returns all active subscriptions whose target
	// date is not strictly before now's date. It has no side effects.
	ListActiveSubscriptions(ctx context.Context, now time.Time) ([]Subscription, error)

	// ListSubscriptionsByChat returns a chat's active, not yet expired
	// subscriptions ordered by target date.
	ListSubscriptionsByChat(ctx context.Context, chatID int64, now time.Time) ([]Subscription, error)

	// UpdateSnapshot stores the most recently observed forecast for a
	// subscription.
	UpdateSnapshot(ctx context.Context, id int64, forecast *weather.DailyForecast) error

	// DeactivateSubscription marks a single subscription inactive.
	DeactivateSubscription(ctx context.Context, id int64) error

	// DeactivateExpired marks every active subscription whose target date is
	// strictly before now's date as inactive and returns the affected count.
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateSubscription inserts a new active subscription after checking for an
// existing identical active triple inside the same transaction. The partial
// unique index on (chat_id, city, target_date) backs up the check.
func (s *sqlxStore) CreateSubscription(ctx context.Context, sub *Subscription) error {
	if sub == nil {
		return fmt.Errorf("cannot save nil subscription")
	}
	if sub.ChatID == 0 {
		return fmt.Errorf("subscription must have a non-zero chat_id")
	}
	if sub.City == "" {
		return fmt.Errorf("subscription must have a non-empty city")
	}

	target, err := sub.Date()
	if err != nil {
		return fmt.Errorf("invalid target date %q: %w", sub.TargetDate, err)
	}
	if target.Before(weather.DateOnly(time.Now())) {
		return fmt.Errorf("%w: %s", ErrPastDate, sub.TargetDate)
	}

	now := time.Now().UTC()
	sub.CreatedAt = now
	sub.UpdatedAt = now
	sub.Active = true

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for creating subscription",
			"chat_id", sub.ChatID, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	var exists bool
	err = tx.GetContext(ctx, &exists,
		`SELECT 1 FROM subscriptions WHERE chat_id = ? AND city = ? AND target_date = ? AND active = 1 LIMIT 1`,
		sub.ChatID, sub.City, sub.TargetDate)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.logger.ErrorContext(ctx, "Error checking for existing subscription",
			"chat_id", sub.ChatID, "error", err)
		return fmt.Errorf("failed to check for existing subscription: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: chat %d, %s on %s", ErrDuplicateSubscription, sub.ChatID, sub.City, sub.TargetDate)
	}

	query := `
        INSERT INTO subscriptions (
            created_at, updated_at, chat_id, city, target_date, active,
            snapshot_condition, snapshot_description, snapshot_temp_min,
            snapshot_temp_max, snapshot_precip_prob, snapshot_taken_at
        ) VALUES (
            :created_at, :updated_at, :chat_id, :city, :target_date, :active,
            :snapshot_condition, :snapshot_description, :snapshot_temp_min,
            :snapshot_temp_max, :snapshot_precip_prob, :snapshot_taken_at
        );
    `
	result, err := tx.NamedExecContext(ctx, query, sub)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error creating subscription",
			"chat_id", sub.ChatID, "city", sub.City, "error", err)
		return fmt.Errorf("failed to create subscription (chat %d): %w", sub.ChatID, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		sub.ID = id
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after creating subscription",
			"chat_id", sub.ChatID, "error", err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction",
			"chat_id", sub.ChatID, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Subscription created successfully",
		"subscription_id", sub.ID, "chat_id", sub.ChatID, "city", sub.City, "target_date", sub.TargetDate)
	return nil
}

// ListActiveSubscriptions returns active subscriptions that have not expired.
func (s *sqlxStore) ListActiveSubscriptions(ctx context.Context, now time.Time) ([]Subscription, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var subs []Subscription
	query := `
        SELECT * FROM subscriptions
        WHERE active = 1 AND target_date >= ?
        ORDER BY id;
    `

	today := weather.DateOnly(now).Format(time.DateOnly)
	if err := s.db.SelectContext(ctx, &subs, query, today); err != nil {
		s.logger.ErrorContext(ctx, "Error listing active subscriptions", "error", err)
		return nil, fmt.Errorf("failed to list active subscriptions: %w", err)
	}

	s.logger.DebugContext(ctx, "Listed active subscriptions", "count", len(subs))
	return subs, nil
}

// ListSubscriptionsByChat returns a chat's active, not yet expired subscriptions.
func (s *sqlxStore) ListSubscriptionsByChat(ctx context.Context, chatID int64, now time.Time) ([]Subscription, error) {
	if chatID == 0 {
		return nil, fmt.Errorf("chat_id cannot be zero")
	}

	var subs []Subscription
	query := `
        SELECT * FROM subscriptions
        WHERE chat_id = ? AND active = 1 AND target_date >= ?
        ORDER BY target_date, city;
    `

	today := weather.DateOnly(now).Format(time.DateOnly)
	if err := s.db.SelectContext(ctx, &subs, query, chatID, today); err != nil {
		s.logger.ErrorContext(ctx, "Error listing subscriptions for chat", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("failed to list subscriptions for chat %d: %w", chatID, err)
	}

	return subs, nil
}

// UpdateSnapshot stores the latest observed forecast for a subscription.
// Updates are single-record; concurrent calls for different subscriptions
// never interfere.
func (s *sqlxStore) UpdateSnapshot(ctx context.Context, id int64, forecast *weather.DailyForecast) error {
	if forecast == nil {
		return fmt.Errorf("cannot store nil forecast snapshot")
	}

	query := `
        UPDATE subscriptions SET
            snapshot_condition = ?,
            snapshot_description = ?,
            snapshot_temp_min = ?,
            snapshot_temp_max = ?,
            snapshot_precip_prob = ?,
            snapshot_taken_at = ?,
            updated_at = ?
        WHERE id = ?;
    `

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, query,
		forecast.Condition, forecast.Description, forecast.TempMin,
		forecast.TempMax, forecast.PrecipProb, now, now, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error updating forecast snapshot", "subscription_id", id, "error", err)
		return fmt.Errorf("failed to update snapshot for subscription %d: %w", id, err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected != 1 {
		s.logger.WarnContext(ctx, "Unexpected number of rows affected when updating snapshot",
			"subscription_id", id, "affected", affected)
	}

	s.logger.DebugContext(ctx, "Forecast snapshot updated", "subscription_id", id)
	return nil
}

// DeactivateSubscription marks a single subscription inactive.
func (s *sqlxStore) DeactivateSubscription(ctx context.Context, id int64) error {
	query := `UPDATE subscriptions SET active = 0, updated_at = ? WHERE id = ? AND active = 1;`

	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deactivating subscription", "subscription_id", id, "error", err)
		return fmt.Errorf("failed to deactivate subscription %d: %w", id, err)
	}

	if affected, _ := result.RowsAffected(); affected > 0 {
		s.logger.InfoContext(ctx, "Subscription deactivated", "subscription_id", id)
	}
	return nil
}

// DeactivateExpired marks every active subscription with a past target date
// as inactive.
func (s *sqlxStore) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE subscriptions SET active = 0, updated_at = ? WHERE active = 1 AND target_date < ?;`

	today := weather.DateOnly(now).Format(time.DateOnly)
	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), today)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deactivating expired subscriptions", "error", err)
		return 0, fmt.Errorf("failed to deactivate expired subscriptions: %w", err)
	}

	count, _ := result.RowsAffected()
	if count > 0 {
		s.logger.InfoContext(ctx, "Deactivated expired subscriptions", "count", count)
	}
	return count, nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite.
	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	return nil
}
