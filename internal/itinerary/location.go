package itinerary

import (
	"errors"
	"sort"
	"time"
)

// legacyOrderIndex is the sentinel old documents carry when they were
// written before an explicit reorder. Rows without an order index sort
// after every legitimate index.
const legacyOrderIndex = 999

// ErrNotFound is returned when a location id does not exist.
var ErrNotFound = errors.New("location not found")

// Location represents a dated stop inside a plan.
type Location struct {
	ID         string    `db:"id"`
	PlanID     string    `db:"plan_id"`
	Name       string    `db:"name"`
	VisitDate  time.Time `db:"visit_date"`
	Notes      string    `db:"notes"`
	PhotoURI   string    `db:"photo_uri"`
	Latitude   float64   `db:"latitude"`
	Longitude  float64   `db:"longitude"`
	OrderIndex int       `db:"order_index"`
	CreatedAt  time.Time `db:"created_at"`
}

// Draft holds the user-entered fields of a location before it is saved.
type Draft struct {
	Name      string
	VisitDate time.Time
	Notes     string
	PhotoURI  string
	Latitude  float64
	Longitude float64
}

// Validate checks the draft before any write is attempted. Coordinates
// are required: a location without a map position cannot be placed.
func (d Draft) Validate() error {
	if d.Name == "" {
		return errors.New("location name is required")
	}
	if d.Latitude == 0 && d.Longitude == 0 {
		return errors.New("location coordinates are required")
	}
	if d.VisitDate.IsZero() {
		return errors.New("visit date is required")
	}
	return nil
}

// TimelineSection is one calendar day of the timeline: a date label
// plus the ordered locations visited that day. Derived on every
// render, never persisted.
type TimelineSection struct {
	Title     string
	Day       time.Time
	Locations []Location
}

// SortForTimeline orders locations by order index ascending, ties
// broken by insertion order and then id. Returns a new slice.
func SortForTimeline(locations []Location) []Location {
	sorted := make([]Location, len(locations))
	copy(sorted, locations)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].OrderIndex != sorted[j].OrderIndex {
			return sorted[i].OrderIndex < sorted[j].OrderIndex
		}
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// BuildTimeline groups locations into date sections. The input is
// sorted by order index first; sections appear in the order their
// first member is encountered in that sequence, not sorted by date,
// and within a section the relative order is preserved. Time of day
// is ignored for grouping but kept on the locations for item labels.
// Calendar days are taken in UTC so the same instant always lands in
// the same section regardless of the zone a date was parsed with.
func BuildTimeline(locations []Location) []TimelineSection {
	if len(locations) == 0 {
		return nil
	}

	sorted := SortForTimeline(locations)

	var sections []TimelineSection
	index := make(map[string]int)
	for _, loc := range sorted {
		day := loc.VisitDate.UTC()
		key := day.Format("2006-01-02")
		i, ok := index[key]
		if !ok {
			i = len(sections)
			index[key] = i
			sections = append(sections, TimelineSection{
				Title: day.Format("Monday, 2 Jan"),
				Day:   time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
			})
		}
		sections[i].Locations = append(sections[i].Locations, loc)
	}
	return sections
}

// Flatten concatenates the sections back into a single list in group
// encounter order.
func Flatten(sections []TimelineSection) []Location {
	var out []Location
	for _, s := range sections {
		out = append(out, s.Locations...)
	}
	return out
}
