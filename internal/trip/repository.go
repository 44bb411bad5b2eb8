package trip

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

// Repository provides access to stored plans. Every write notifies the
// change hub so live queries refresh.
type Repository struct {
	db  *sqlx.DB
	hub *database.Hub
}

// NewRepository creates a new plan repository.
func NewRepository(d *database.DB) *Repository {
	return &Repository{db: d.SQL, hub: d.Hub}
}

// planRow mirrors the raw plans table. Optional columns are nullable;
// toPlan supplies their defaults so callers never see the raw shape.
type planRow struct {
	ID            string         `db:"id"`
	Name          sql.NullString `db:"name"`
	StartDate     time.Time      `db:"start_date"`
	EndDate       time.Time      `db:"end_date"`
	Notes         sql.NullString `db:"notes"`
	CoverImageURI sql.NullString `db:"cover_image_uri"`
	Status        sql.NullString `db:"status"`
	CreatedAt     time.Time      `db:"created_at"`
}

func (r planRow) toPlan() Plan {
	status := r.Status.String
	if status == "" {
		status = StatusActive
	}
	return Plan{
		ID:            r.ID,
		Name:          r.Name.String,
		StartDate:     r.StartDate,
		EndDate:       r.EndDate,
		Notes:         r.Notes.String,
		CoverImageURI: r.CoverImageURI.String,
		Status:        status,
		CreatedAt:     r.CreatedAt,
	}
}

// Create validates and inserts a new plan with status active.
func (r *Repository) Create(ctx context.Context, draft Draft) (Plan, error) {
	if err := draft.Validate(); err != nil {
		return Plan{}, err
	}

	plan := Plan{
		ID:            uuid.New().String(),
		Name:          draft.Name,
		StartDate:     draft.StartDate,
		EndDate:       draft.EndDate,
		Notes:         draft.Notes,
		CoverImageURI: draft.CoverImageURI,
		Status:        StatusActive,
		CreatedAt:     time.Now().UTC(),
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO plans (id, name, start_date, end_date, notes, cover_image_uri, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		plan.ID, plan.Name, plan.StartDate, plan.EndDate, plan.Notes,
		plan.CoverImageURI, plan.Status, plan.CreatedAt)
	if err != nil {
		return Plan{}, fmt.Errorf("failed to create plan: %w", err)
	}

	r.hub.Notify(database.CollectionPlans)
	return plan, nil
}

// GetByID fetches a single plan.
func (r *Repository) GetByID(ctx context.Context, id string) (Plan, error) {
	var row planRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM plans WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Plan{}, ErrNotFound
	}
	if err != nil {
		return Plan{}, fmt.Errorf("failed to fetch plan %s: %w", id, err)
	}
	return row.toPlan(), nil
}

// ListByStatus returns all plans with the given status. The query is
// deliberately unordered; views sort each snapshot client-side.
func (r *Repository) ListByStatus(ctx context.Context, status string) ([]Plan, error) {
	var rows []planRow
	err := r.db.SelectContext(ctx, &rows, `SELECT * FROM plans WHERE status = ?`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s plans: %w", status, err)
	}

	plans := make([]Plan, 0, len(rows))
	for _, row := range rows {
		plans = append(plans, row.toPlan())
	}
	return plans, nil
}

// Update replaces the editable fields of a plan.
func (r *Repository) Update(ctx context.Context, id string, draft Draft) error {
	if err := draft.Validate(); err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE plans SET name = ?, start_date = ?, end_date = ?, notes = ?, cover_image_uri = ?
		 WHERE id = ?`,
		draft.Name, draft.StartDate, draft.EndDate, draft.Notes, draft.CoverImageURI, id)
	if err != nil {
		return fmt.Errorf("failed to update plan %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	r.hub.Notify(database.CollectionPlans)
	return nil
}

// UpdateStatus transitions a plan between active and completed.
func (r *Repository) UpdateStatus(ctx context.Context, id, status string) error {
	if status != StatusActive && status != StatusCompleted {
		return fmt.Errorf("invalid status %q", status)
	}

	res, err := r.db.ExecContext(ctx, `UPDATE plans SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update status of plan %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	r.hub.Notify(database.CollectionPlans)
	return nil
}

// Delete removes a plan and all of its locations in one transaction.
// A concurrent reader never observes the plan without its locations or
// the other way around.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete of plan %s: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM locations WHERE plan_id = ?`, id); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete locations of plan %s: %w", id, err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, id)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete plan %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		tx.Rollback()
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete of plan %s: %w", id, err)
	}

	r.hub.Notify(database.CollectionPlans)
	r.hub.Notify(database.CollectionLocations)
	return nil
}

// MigrateMissingStatus batch-sets status to active on legacy plans
// stored before the status column existed. Returns the number of
// plans repaired; safe to run more than once.
func (r *Repository) MigrateMissingStatus(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE plans SET status = ? WHERE status IS NULL OR status = ''`, StatusActive)
	if err != nil {
		return 0, fmt.Errorf("failed to migrate plan statuses: %w", err)
	}

	n, _ := res.RowsAffected()
	if n > 0 {
		r.hub.Notify(database.CollectionPlans)
	}
	return n, nil
}
