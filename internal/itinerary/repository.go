package itinerary

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"trip-planner/internal/database"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository provides access to the locations of a plan and implements
// the ordering operations.
type Repository struct {
	db  *sqlx.DB
	hub *database.Hub
}

// NewRepository creates a new location repository.
func NewRepository(d *database.DB) *Repository {
	return &Repository{db: d.SQL, hub: d.Hub}
}

// locationRow mirrors the raw locations table; toLocation supplies
// defaults for every optional column at the storage boundary.
type locationRow struct {
	ID         string         `db:"id"`
	PlanID     string         `db:"plan_id"`
	Name       sql.NullString `db:"name"`
	VisitDate  string         `db:"visit_date"`
	Notes      sql.NullString `db:"notes"`
	PhotoURI   sql.NullString `db:"photo_uri"`
	Latitude   float64        `db:"latitude"`
	Longitude  float64        `db:"longitude"`
	OrderIndex sql.NullInt64  `db:"order_index"`
	CreatedAt  time.Time      `db:"created_at"`
}

func (r locationRow) toLocation() Location {
	visitDate, err := time.Parse(time.RFC3339, r.VisitDate)
	if err != nil {
		visitDate = r.CreatedAt
	}
	orderIndex := legacyOrderIndex
	if r.OrderIndex.Valid {
		orderIndex = int(r.OrderIndex.Int64)
	}
	return Location{
		ID:         r.ID,
		PlanID:     r.PlanID,
		Name:       r.Name.String,
		VisitDate:  visitDate,
		Notes:      r.Notes.String,
		PhotoURI:   r.PhotoURI.String,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		OrderIndex: orderIndex,
		CreatedAt:  r.CreatedAt,
	}
}

// Create validates and inserts a new location. New locations append to
// the end of the plan's ordering until the user explicitly reorders.
func (r *Repository) Create(ctx context.Context, planID string, draft Draft) (Location, error) {
	if err := draft.Validate(); err != nil {
		return Location{}, err
	}

	loc := Location{
		ID:        uuid.New().String(),
		PlanID:    planID,
		Name:      draft.Name,
		VisitDate: draft.VisitDate,
		Notes:     draft.Notes,
		PhotoURI:  draft.PhotoURI,
		Latitude:  draft.Latitude,
		Longitude: draft.Longitude,
		CreatedAt: time.Now().UTC(),
	}

	// The appended index is computed in the same statement so two
	// concurrent inserts cannot claim the same slot.
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO locations (id, plan_id, name, visit_date, notes, photo_uri, latitude, longitude, order_index, created_at)
		 SELECT ?, ?, ?, ?, ?, ?, ?, ?, COALESCE(MAX(order_index), -1) + 1, ?
		 FROM locations WHERE plan_id = ?`,
		loc.ID, loc.PlanID, loc.Name, loc.VisitDate.Format(time.RFC3339), loc.Notes,
		loc.PhotoURI, loc.Latitude, loc.Longitude, loc.CreatedAt, planID)
	if err != nil {
		return Location{}, fmt.Errorf("failed to create location: %w", err)
	}

	created, err := r.GetByID(ctx, planID, loc.ID)
	if err != nil {
		return Location{}, err
	}

	r.hub.Notify(database.CollectionLocations)
	return created, nil
}

// GetByID fetches a single location of a plan.
func (r *Repository) GetByID(ctx context.Context, planID, id string) (Location, error) {
	var row locationRow
	err := r.db.GetContext(ctx, &row,
		`SELECT * FROM locations WHERE plan_id = ? AND id = ?`, planID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Location{}, ErrNotFound
	}
	if err != nil {
		return Location{}, fmt.Errorf("failed to fetch location %s: %w", id, err)
	}
	return row.toLocation(), nil
}

// ListForPlan returns the locations of a plan in timeline order:
// order index ascending, unindexed legacy rows last, ties broken by
// insertion order.
func (r *Repository) ListForPlan(ctx context.Context, planID string) ([]Location, error) {
	var rows []locationRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM locations WHERE plan_id = ?
		 ORDER BY COALESCE(order_index, ?) ASC, created_at ASC, id ASC`,
		planID, legacyOrderIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations of plan %s: %w", planID, err)
	}

	locations := make([]Location, 0, len(rows))
	for _, row := range rows {
		locations = append(locations, row.toLocation())
	}
	return locations, nil
}

// Update replaces the editable fields of a location. The order index
// is untouched: editing a stop never moves it on the timeline.
func (r *Repository) Update(ctx context.Context, planID, id string, draft Draft) error {
	if err := draft.Validate(); err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE locations SET name = ?, visit_date = ?, notes = ?, photo_uri = ?, latitude = ?, longitude = ?
		 WHERE plan_id = ? AND id = ?`,
		draft.Name, draft.VisitDate.Format(time.RFC3339), draft.Notes, draft.PhotoURI,
		draft.Latitude, draft.Longitude, planID, id)
	if err != nil {
		return fmt.Errorf("failed to update location %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	r.hub.Notify(database.CollectionLocations)
	return nil
}

// Delete removes a single location.
func (r *Repository) Delete(ctx context.Context, planID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM locations WHERE plan_id = ? AND id = ?`, planID, id)
	if err != nil {
		return fmt.Errorf("failed to delete location %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	r.hub.Notify(database.CollectionLocations)
	return nil
}

// Reorder reassigns order indices to match the given id sequence
// (0-based by position) in a single transaction. Either every index is
// updated or none is: a concurrent reader never observes a partial
// reorder, and after a failure callers must refetch instead of
// trusting their optimistic local order.
func (r *Repository) Reorder(ctx context.Context, planID string, ids []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reorder of plan %s: %w", planID, err)
	}

	for i, id := range ids {
		res, err := tx.ExecContext(ctx,
			`UPDATE locations SET order_index = ? WHERE plan_id = ? AND id = ?`,
			i, planID, id)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to reorder plan %s: %w", planID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			tx.Rollback()
			return fmt.Errorf("failed to reorder plan %s: %w", planID, ErrNotFound)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reorder of plan %s: %w", planID, err)
	}

	r.hub.Notify(database.CollectionLocations)
	return nil
}
