package database

import (
	"database/sql"
	"time"

	"github.com/vashchuk/skycast/internal/weather"
)

// Subscription represents one user's request to be notified about the
// forecast for a city on a specific calendar date. The snapshot columns hold
// the last forecast the user was told about; they are NULL until the first
// successful fetch.
type Subscription struct {
	ID        int64     `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	ChatID     int64  `db:"chat_id"`
	City       string `db:"city"`
	TargetDate string `db:"target_date"` // YYYY-MM-DD, UTC
	Active     bool   `db:"active"`

	SnapshotCondition   sql.NullString  `db:"snapshot_condition"`
	SnapshotDescription sql.NullString  `db:"snapshot_description"`
	SnapshotTempMin     sql.NullFloat64 `db:"snapshot_temp_min"`
	SnapshotTempMax     sql.NullFloat64 `db:"snapshot_temp_max"`
	SnapshotPrecipProb  sql.NullFloat64 `db:"snapshot_precip_prob"`
	SnapshotTakenAt     sql.NullTime    `db:"snapshot_taken_at"`
}

// Date parses the subscription's target date.
func (s *Subscription) Date() (time.Time, error) {
	return time.Parse(time.DateOnly, s.TargetDate)
}

// Snapshot reconstructs the stored forecast snapshot, or nil when no
// forecast has been observed yet.
func (s *Subscription) Snapshot() *weather.DailyForecast {
	if !s.SnapshotCondition.Valid {
		return nil
	}

	date, err := s.Date()
	if err != nil {
		date = time.Time{}
	}

	return &weather.DailyForecast{
		City:        s.City,
		Date:        date,
		Condition:   s.SnapshotCondition.String,
		Description: s.SnapshotDescription.String,
		TempMin:     s.SnapshotTempMin.Float64,
		TempMax:     s.SnapshotTempMax.Float64,
		PrecipProb:  s.SnapshotPrecipProb.Float64,
	}
}

// SetSnapshot fills the snapshot columns from a fetched forecast.
func (s *Subscription) SetSnapshot(f *weather.DailyForecast, takenAt time.Time) {
	s.SnapshotCondition = sql.NullString{String: f.Condition, Valid: true}
	s.SnapshotDescription = sql.NullString{String: f.Description, Valid: true}
	s.SnapshotTempMin = sql.NullFloat64{Float64: f.TempMin, Valid: true}
	s.SnapshotTempMax = sql.NullFloat64{Float64: f.TempMax, Valid: true}
	s.SnapshotPrecipProb = sql.NullFloat64{Float64: f.PrecipProb, Valid: true}
	s.SnapshotTakenAt = sql.NullTime{Time: takenAt.UTC(), Valid: true}
}
