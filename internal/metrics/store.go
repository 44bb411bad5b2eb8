// Package metrics records lightweight usage counters to SQLite.
package metrics

import (
	"context"
	"fmt"
	"time"

	"trip-planner/internal/database"

	"github.com/jmoiron/sqlx"
)

// Event names recorded by the rest of the application.
const (
	EventDocumentWrite     = "document_write"
	EventDebouncedSave     = "debounced_save"
	EventGeocodeLookup     = "geocode_lookup"
	EventSnapshotDelivered = "snapshot_delivered"
	EventTripExported      = "trip_exported"
	EventTripPublished     = "trip_published"
)

// Store handles persistence of usage events to SQLite.
type Store struct {
	db *sqlx.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(d *database.DB) *Store {
	return &Store{db: d.SQL}
}

// Record saves one occurrence of an event. Metrics are best-effort;
// callers typically ignore the returned error.
func (s *Store) Record(event string) error {
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO usage_events (event, timestamp) VALUES (?, ?)`,
		event, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record %s event: %w", event, err)
	}
	return nil
}

// DailyUsage represents event totals for a single day.
type DailyUsage struct {
	Date  string `db:"date"`
	Event string `db:"event"`
	Count int    `db:"count"`
}

// GetDailyUsage returns per-event counts for the last N days, most
// recent day first.
func (s *Store) GetDailyUsage(days int) ([]DailyUsage, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)

	var usage []DailyUsage
	err := s.db.Select(&usage,
		`SELECT date(timestamp) AS date, event, COUNT(*) AS count
		 FROM usage_events
		 WHERE timestamp >= ?
		 GROUP BY date(timestamp), event
		 ORDER BY date DESC, event ASC`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	return usage, nil
}

// Cleanup deletes events older than the retention window and returns
// the number of rows removed.
func (s *Store) Cleanup(days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	res, err := s.db.Exec(`DELETE FROM usage_events WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up usage events: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
