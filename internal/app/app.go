package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"trip-planner/internal/config"
	"trip-planner/internal/export"
	"trip-planner/internal/ghost"
	"trip-planner/internal/itinerary"
	"trip-planner/internal/llm"
	"trip-planner/internal/metrics"
	"trip-planner/internal/notes"
	"trip-planner/internal/trip"
)

// App holds the application's dependencies and implements the flows
// shared by the CLI and the Telegram bot.
type App struct {
	cfg          *config.Config
	planRepo     *trip.Repository
	locationRepo *itinerary.Repository
	notesStore   *notes.Store
	metricsStore *metrics.Store
	ghostClient  ghost.Client
	textGen      llm.TextGenerator
}

// NewApp creates and initializes a new App instance. The Ghost client
// and text generator are optional; the flows that need them report a
// clear error when they are missing.
func NewApp(
	cfg *config.Config,
	planRepo *trip.Repository,
	locationRepo *itinerary.Repository,
	notesStore *notes.Store,
	metricsStore *metrics.Store,
	ghostClient ghost.Client,
	textGen llm.TextGenerator,
) *App {
	return &App{
		cfg:          cfg,
		planRepo:     planRepo,
		locationRepo: locationRepo,
		notesStore:   notesStore,
		metricsStore: metricsStore,
		ghostClient:  ghostClient,
		textGen:      textGen,
	}
}

// ListPlans prints plans with the given status, sorted the way the
// corresponding view shows them: active trips soonest first, history
// most recently finished first.
func (a *App) ListPlans(ctx context.Context, status string) error {
	plans, err := a.planRepo.ListByStatus(ctx, status)
	if err != nil {
		return err
	}

	less := trip.ByStartDateAsc
	if status == trip.StatusCompleted {
		less = trip.ByEndDateDesc
	}
	trip.SortPlans(plans, less)

	if len(plans) == 0 {
		fmt.Printf("No %s plans.\n", status)
		return nil
	}
	for _, p := range plans {
		fmt.Printf("%s  %-24s %s\n", p.ID, p.Name, trip.FormatDateRange(p.StartDate, p.EndDate))
	}
	return nil
}

// ShowTimeline prints the day-by-day itinerary of a plan.
func (a *App) ShowTimeline(ctx context.Context, planID string) error {
	plan, err := a.planRepo.GetByID(ctx, planID)
	if err != nil {
		return err
	}
	locations, err := a.locationRepo.ListForPlan(ctx, planID)
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s)\n", plan.Name, trip.FormatDateRange(plan.StartDate, plan.EndDate))
	sections := itinerary.BuildTimeline(locations)
	if len(sections) == 0 {
		fmt.Println("  No locations added yet.")
		return nil
	}

	n := 0
	for _, section := range sections {
		fmt.Printf("\n%s\n", section.Title)
		for _, loc := range section.Locations {
			n++
			fmt.Printf("  %d. %s (%s)\n", n, loc.Name, loc.VisitDate.Format("15:04"))
			if loc.Notes != "" {
				fmt.Printf("     %s\n", loc.Notes)
			}
		}
	}
	return nil
}

// ExportTrip renders the itinerary and journal of a plan into an HTML
// file under the configured export directory and returns its path.
func (a *App) ExportTrip(ctx context.Context, planID string) (string, error) {
	plan, locations, journal, err := a.gather(ctx, planID)
	if err != nil {
		return "", err
	}

	path, err := export.WriteFile(a.cfg.ExportDir, plan, locations, journal)
	if err != nil {
		return "", err
	}

	if err := a.metricsStore.Record(metrics.EventTripExported); err != nil {
		log.Printf("Warning: failed to record export event: %v", err)
	}
	return path, nil
}

// PublishTrip renders the itinerary and journal of a plan and posts
// it to the configured Ghost blog. Returns the created post.
func (a *App) PublishTrip(ctx context.Context, planID string, publish bool) (*ghost.Post, error) {
	if a.ghostClient == nil {
		return nil, fmt.Errorf("publishing is not configured (set GHOST_API_URL and GHOST_ADMIN_API_KEY)")
	}

	plan, locations, journal, err := a.gather(ctx, planID)
	if err != nil {
		return nil, err
	}

	html, err := export.RenderHTML(plan, locations, journal)
	if err != nil {
		return nil, err
	}

	title := fmt.Sprintf("%s, %s", plan.Name, trip.FormatDateRange(plan.StartDate, plan.EndDate))
	post, err := a.ghostClient.CreatePost(title, html, publish)
	if err != nil {
		return nil, fmt.Errorf("failed to publish trip %s: %w", planID, err)
	}

	if err := a.metricsStore.Record(metrics.EventTripPublished); err != nil {
		log.Printf("Warning: failed to record publish event: %v", err)
	}
	return post, nil
}

// SuggestNotes asks the language model for short visit notes for each
// stop of a plan and returns the suggestion text.
func (a *App) SuggestNotes(ctx context.Context, planID string) (string, error) {
	if a.textGen == nil {
		return "", fmt.Errorf("suggestions are not configured (set GEMINI_API_KEY)")
	}

	plan, err := a.planRepo.GetByID(ctx, planID)
	if err != nil {
		return "", err
	}
	locations, err := a.locationRepo.ListForPlan(ctx, planID)
	if err != nil {
		return "", err
	}
	if len(locations) == 0 {
		return "", fmt.Errorf("plan %s has no locations to suggest notes for", planID)
	}

	var sb strings.Builder
	sb.WriteString("You are a concise travel assistant. For each stop of the trip below, ")
	sb.WriteString("suggest one or two sentences of practical visit notes (best time, what ")
	sb.WriteString("to see, what to book ahead). Answer as a plain numbered list, one entry ")
	sb.WriteString("per stop, no preamble.\n\n")
	sb.WriteString(fmt.Sprintf("Trip: %s (%s)\n", plan.Name, trip.FormatDateRange(plan.StartDate, plan.EndDate)))
	for i, loc := range itinerary.SortForTimeline(locations) {
		sb.WriteString(fmt.Sprintf("%d. %s on %s\n", i+1, loc.Name, loc.VisitDate.Format("Monday, 2 Jan")))
	}

	suggestion, err := a.textGen.GenerateContent(ctx, sb.String())
	if err != nil {
		return "", fmt.Errorf("failed to generate suggestions for plan %s: %w", planID, err)
	}
	return suggestion, nil
}

// MigratePlanStatuses repairs plans stored before the status field
// existed and prints the result.
func (a *App) MigratePlanStatuses(ctx context.Context) error {
	n, err := a.planRepo.MigrateMissingStatus(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Migration complete. Repaired %d plans.\n", n)
	return nil
}

func (a *App) gather(ctx context.Context, planID string) (trip.Plan, []itinerary.Location, string, error) {
	plan, err := a.planRepo.GetByID(ctx, planID)
	if err != nil {
		return trip.Plan{}, nil, "", err
	}
	locations, err := a.locationRepo.ListForPlan(ctx, planID)
	if err != nil {
		return trip.Plan{}, nil, "", err
	}
	journal, err := a.notesStore.Journal(planID)
	if err != nil {
		log.Printf("Warning: failed to load journal for plan %s: %v", planID, err)
		journal = ""
	}
	return plan, locations, journal, nil
}
