package trip

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Plan lifecycle statuses. A plan is created active and moves to
// completed when the trip is over; completed plans make up the
// history view.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// ErrNotFound is returned when a plan id does not exist.
var ErrNotFound = errors.New("plan not found")

// Plan represents a trip plan.
type Plan struct {
	ID            string    `db:"id"`
	Name          string    `db:"name"`
	StartDate     time.Time `db:"start_date"`
	EndDate       time.Time `db:"end_date"`
	Notes         string    `db:"notes"`
	CoverImageURI string    `db:"cover_image_uri"`
	Status        string    `db:"status"`
	CreatedAt     time.Time `db:"created_at"`
}

// Draft holds the user-entered fields of a plan before it is saved.
type Draft struct {
	Name          string
	StartDate     time.Time
	EndDate       time.Time
	Notes         string
	CoverImageURI string
}

// Validate checks the draft before any write is attempted.
func (d Draft) Validate() error {
	if d.Name == "" {
		return errors.New("plan name is required")
	}
	if d.StartDate.IsZero() || d.EndDate.IsZero() {
		return errors.New("start and end dates are required")
	}
	if d.EndDate.Before(d.StartDate) {
		return errors.New("end date must not be before start date")
	}
	return nil
}

// ByStartDateAsc orders the active plan list (soonest trip first).
func ByStartDateAsc(a, b Plan) bool {
	return a.StartDate.Before(b.StartDate)
}

// ByEndDateDesc orders the history view (most recently finished first).
func ByEndDateDesc(a, b Plan) bool {
	return a.EndDate.After(b.EndDate)
}

// SortPlans sorts a snapshot in place. Storage queries are unordered;
// every view applies its comparator to each snapshot it receives.
func SortPlans(plans []Plan, less func(a, b Plan) bool) {
	sort.SliceStable(plans, func(i, j int) bool { return less(plans[i], plans[j]) })
}

// FormatDateRange formats a date range into a readable string,
// collapsing equal years and days.
// Example: "1 Dec - 3 Dec, 2025" or "5 Jan 2025".
func FormatDateRange(start, end time.Time) string {
	if start.Year() != end.Year() {
		return fmt.Sprintf("%d %s %d - %d %s %d",
			start.Day(), start.Format("Jan"), start.Year(),
			end.Day(), end.Format("Jan"), end.Year())
	}
	if start.Month() != end.Month() || start.Day() != end.Day() {
		return fmt.Sprintf("%d %s - %d %s, %d",
			start.Day(), start.Format("Jan"),
			end.Day(), end.Format("Jan"), end.Year())
	}
	return fmt.Sprintf("%d %s %d", start.Day(), start.Format("Jan"), start.Year())
}
