// Package export renders a plan and its ordered locations into a
// standalone HTML itinerary for sharing or printing.
package export

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"trip-planner/internal/itinerary"
	"trip-planner/internal/trip"
)

const itineraryTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Trip Plan: {{.Plan.Name}}</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; color: #2A2A2A; margin: 20px; }
    .header { text-align: center; border-bottom: 2px solid #A8C8FF; padding-bottom: 10px; margin-bottom: 20px; }
    h1 { color: #2A2A2A; margin: 0; }
    .sub-header { color: #555; font-size: 1.1em; }
    h2 { color: #2A2A2A; border-bottom: 1px solid #F2F4F7; padding-bottom: 5px; }
    .location-item { margin-bottom: 16px; padding: 12px; border: 1px solid #F2F4F7; border-radius: 8px; }
    .location-header { display: flex; align-items: center; gap: 10px; }
    .location-header h3 { margin: 0; }
    .location-index { background: #A8C8FF; color: #fff; border-radius: 50%; width: 24px; height: 24px; display: inline-flex; align-items: center; justify-content: center; font-weight: bold; }
    .notes { color: #555; }
    .journal { white-space: pre-wrap; color: #2A2A2A; }
  </style>
</head>
<body>
  <div class="header">
    <h1>{{.Plan.Name}}</h1>
    <div class="sub-header">{{.DateRange}}</div>
  </div>
  <h2>Itinerary</h2>
  {{if .Stops}}{{range .Stops}}
  <div class="location-item">
    <div class="location-header">
      <span class="location-index">{{.Number}}</span>
      <h3>{{.Name}}</h3>
    </div>
    <p><strong>When:</strong> {{.When}}</p>
    {{if .Notes}}<p class="notes"><strong>Notes:</strong> {{.Notes}}</p>{{end}}
  </div>
  {{end}}{{else}}<p>No locations added yet.</p>{{end}}
  {{if .Journal}}
  <h2>Journal</h2>
  <p class="journal">{{.Journal}}</p>
  {{end}}
</body>
</html>
`

var tmpl = template.Must(template.New("itinerary").Parse(itineraryTemplate))

type stopView struct {
	Number int
	Name   string
	When   string
	Notes  string
}

type pageView struct {
	Plan      trip.Plan
	DateRange string
	Stops     []stopView
	Journal   string
}

// RenderHTML produces the itinerary document. Locations are numbered
// in timeline order regardless of the order they are passed in.
func RenderHTML(plan trip.Plan, locations []itinerary.Location, journal string) (string, error) {
	sorted := itinerary.SortForTimeline(locations)

	stops := make([]stopView, 0, len(sorted))
	for i, loc := range sorted {
		stops = append(stops, stopView{
			Number: i + 1,
			Name:   loc.Name,
			When:   loc.VisitDate.Format("Monday, 2 January 2006 15:04"),
			Notes:  loc.Notes,
		})
	}

	view := pageView{
		Plan:      plan,
		DateRange: trip.FormatDateRange(plan.StartDate, plan.EndDate),
		Stops:     stops,
		Journal:   journal,
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, view); err != nil {
		return "", fmt.Errorf("failed to render itinerary: %w", err)
	}
	return sb.String(), nil
}

// WriteFile renders the itinerary and writes it under dir, returning
// the written path.
func WriteFile(dir string, plan trip.Plan, locations []itinerary.Location, journal string) (string, error) {
	html, err := RenderHTML(plan, locations, journal)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s.html", sanitizeName(plan.Name), time.Now().Format("2006-01-02"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		return "", fmt.Errorf("failed to write itinerary file: %w", err)
	}
	return path, nil
}

func sanitizeName(name string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, name)
	return strings.Trim(clean, "-")
}
