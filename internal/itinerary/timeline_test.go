package itinerary

import (
	"testing"
	"time"
)

func loc(id string, orderIndex int, visit time.Time) Location {
	return Location{
		ID:         id,
		PlanID:     "plan-1",
		Name:       "Stop " + id,
		VisitDate:  visit,
		OrderIndex: orderIndex,
		CreatedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func day(d int, hour int) time.Time {
	return time.Date(2026, 3, d, hour, 0, 0, 0, time.UTC)
}

func TestBuildTimelineGroupsByEncounterOrder(t *testing.T) {
	// Ordering interleaves two days: the day-2 section must appear
	// first because its first member comes first in the sequence,
	// even though day 1 is earlier on the calendar.
	input := []Location{
		loc("a", 0, day(2, 9)),
		loc("b", 1, day(1, 10)),
		loc("c", 2, day(2, 14)),
	}

	sections := BuildTimeline(input)
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if sections[0].Day.Day() != 2 || sections[1].Day.Day() != 1 {
		t.Errorf("sections in wrong order: %v then %v", sections[0].Day, sections[1].Day)
	}
	if len(sections[0].Locations) != 2 || sections[0].Locations[0].ID != "a" || sections[0].Locations[1].ID != "c" {
		t.Errorf("unexpected day-2 members: %v", sections[0].Locations)
	}
	if len(sections[1].Locations) != 1 || sections[1].Locations[0].ID != "b" {
		t.Errorf("unexpected day-1 members: %v", sections[1].Locations)
	}
}

func TestBuildTimelineTitles(t *testing.T) {
	sections := BuildTimeline([]Location{loc("a", 0, day(2, 9))})
	if len(sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(sections))
	}
	if sections[0].Title != "Monday, 2 Mar" {
		t.Errorf("unexpected section title %q", sections[0].Title)
	}
}

func TestBuildTimelineIgnoresTimeOfDayForGrouping(t *testing.T) {
	sections := BuildTimeline([]Location{
		loc("a", 0, day(2, 8)),
		loc("b", 1, day(2, 22)),
	})
	if len(sections) != 1 {
		t.Fatalf("expected morning and evening in one section, got %d", len(sections))
	}
}

func TestBuildTimelineNormalizesZones(t *testing.T) {
	// The same instant expressed in different zones must land in one
	// section, keyed by its UTC calendar day.
	tokyo := time.FixedZone("UTC+9", 9*60*60)
	lima := time.FixedZone("UTC-5", -5*60*60)
	instant := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	sections := BuildTimeline([]Location{
		loc("a", 0, instant.In(tokyo)),
		loc("b", 1, instant.In(lima)),
	})
	if len(sections) != 1 {
		t.Fatalf("expected one section for the same instant, got %d", len(sections))
	}
	if !sections[0].Day.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected section day %v", sections[0].Day)
	}
	if sections[0].Day.Location() != time.UTC {
		t.Errorf("section day not in UTC: %v", sections[0].Day.Location())
	}
}

func TestBuildTimelineEmpty(t *testing.T) {
	if sections := BuildTimeline(nil); sections != nil {
		t.Errorf("expected no sections, got %v", sections)
	}
}

func TestFlattenReproducesTimelineOrder(t *testing.T) {
	input := []Location{
		loc("d", 3, day(1, 16)),
		loc("b", 1, day(2, 11)),
		loc("a", 0, day(1, 9)),
		loc("c", 2, day(3, 12)),
	}

	sorted := SortForTimeline(input)
	flat := Flatten(BuildTimeline(input))
	if len(flat) != len(sorted) {
		t.Fatalf("expected %d locations, got %d", len(sorted), len(flat))
	}
	// Day 1 holds positions 0 and 3, so grouping pulls "d" ahead of
	// "b" and "c": encounter order is a grouped permutation, not the
	// flat order itself.
	want := []string{"a", "d", "b", "c"}
	for i, id := range want {
		if flat[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, flat[i].ID)
		}
	}
}

func TestSortForTimelinePlacesLegacyRowsLast(t *testing.T) {
	legacy := loc("old", legacyOrderIndex, day(1, 8))
	fresh := loc("new", 0, day(3, 8))

	sorted := SortForTimeline([]Location{legacy, fresh})
	if sorted[0].ID != "new" || sorted[1].ID != "old" {
		t.Errorf("expected legacy row last, got %v", []string{sorted[0].ID, sorted[1].ID})
	}
}

func TestSortForTimelineTieBreaks(t *testing.T) {
	early := loc("b", 5, day(1, 9))
	early.CreatedAt = time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	late := loc("a", 5, day(1, 9))
	late.CreatedAt = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	sorted := SortForTimeline([]Location{late, early})
	if sorted[0].ID != "b" {
		t.Errorf("expected earlier insertion first on equal index, got %s", sorted[0].ID)
	}

	// Equal index and creation time falls back to id.
	x := loc("x", 1, day(1, 9))
	w := loc("w", 1, day(1, 9))
	sorted = SortForTimeline([]Location{x, w})
	if sorted[0].ID != "w" {
		t.Errorf("expected id tie-break, got %s", sorted[0].ID)
	}
}

func TestSortForTimelineDoesNotMutateInput(t *testing.T) {
	input := []Location{loc("b", 1, day(1, 9)), loc("a", 0, day(1, 9))}
	SortForTimeline(input)
	if input[0].ID != "b" {
		t.Error("input slice was reordered")
	}
}

func TestDraftValidate(t *testing.T) {
	valid := Draft{Name: "Museum", VisitDate: day(1, 9), Latitude: -8.65, Longitude: 115.21}
	if err := valid.Validate(); err != nil {
		t.Errorf("expected valid draft, got %v", err)
	}

	cases := []struct {
		name  string
		draft Draft
	}{
		{"missing name", Draft{VisitDate: day(1, 9), Latitude: 1, Longitude: 1}},
		{"null island", Draft{Name: "Nowhere", VisitDate: day(1, 9)}},
		{"missing date", Draft{Name: "Museum", Latitude: 1, Longitude: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.draft.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
