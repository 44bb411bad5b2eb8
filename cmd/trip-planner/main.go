package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"trip-planner/internal/app"
	"trip-planner/internal/clipper"
	"trip-planner/internal/config"
	"trip-planner/internal/database"
	"trip-planner/internal/feed"
	"trip-planner/internal/geocode"
	"trip-planner/internal/ghost"
	"trip-planner/internal/itinerary"
	"trip-planner/internal/llm"
	"trip-planner/internal/metrics"
	"trip-planner/internal/notes"
	"trip-planner/internal/trip"
	"trip-planner/internal/wishlist"
)

func main() {
	ctx := context.Background()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	kv, err := database.OpenKV(cfg.KeyValuePath)
	if err != nil {
		log.Fatalf("Failed to open key-value store: %v", err)
	}
	defer kv.Close()

	planRepo := trip.NewRepository(db)
	locationRepo := itinerary.NewRepository(db)
	notesStore := notes.NewStore(kv)
	metricsStore := metrics.NewStore(db)
	geocoder := geocode.NewClient(cfg.NominatimURL)

	wishStore := wishlist.NewStore(kv)
	if err := wishStore.Load(); err != nil {
		log.Fatalf("Failed to load wishlist: %v", err)
	}

	var ghostClient ghost.Client
	if cfg.GhostURL != "" && cfg.GhostAdminKey != "" {
		ghostClient = ghost.NewClient(cfg)
	}

	var textGen llm.TextGenerator
	if cfg.GeminiAPIKey != "" {
		textGen, err = llm.NewGeminiClient(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to initialize Gemini client: %v", err)
		}
		defer textGen.Close()
	}

	application := app.NewApp(cfg, planRepo, locationRepo, notesStore, metricsStore, ghostClient, textGen)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "plans":
		if err := application.ListPlans(ctx, trip.StatusActive); err != nil {
			log.Fatalf("Failed to list plans: %v", err)
		}
	case "history":
		if err := application.ListPlans(ctx, trip.StatusCompleted); err != nil {
			log.Fatalf("Failed to list history: %v", err)
		}
	case "new":
		newCmd := flag.NewFlagSet("new", flag.ExitOnError)
		name := newCmd.String("name", "", "Plan name")
		start := newCmd.String("start", "", "Start date (2026-03-01)")
		end := newCmd.String("end", "", "End date (2026-03-05)")
		planNotes := newCmd.String("notes", "", "Optional notes")
		newCmd.Parse(os.Args[2:])

		startDate, err1 := time.Parse("2006-01-02", *start)
		endDate, err2 := time.Parse("2006-01-02", *end)
		if err1 != nil || err2 != nil {
			log.Fatalf("Dates must look like 2026-03-01")
		}

		plan, err := planRepo.Create(ctx, trip.Draft{
			Name: *name, StartDate: startDate, EndDate: endDate, Notes: *planNotes,
		})
		if err != nil {
			log.Fatalf("Failed to create plan: %v", err)
		}
		fmt.Printf("Created plan %s (%s)\n", plan.Name, plan.ID)
	case "show":
		if err := application.ShowTimeline(ctx, arg(2, "show <plan>")); err != nil {
			log.Fatalf("Failed to show timeline: %v", err)
		}
	case "search":
		query := arg(2, "search <query>")
		if utf8.RuneCountInString(query) < geocode.MinQueryLength {
			log.Fatalf("Search needs at least %d characters", geocode.MinQueryLength)
		}
		places, err := geocoder.Search(ctx, query)
		if err != nil {
			log.Fatalf("Search failed: %v", err)
		}
		metricsStore.Record(metrics.EventGeocodeLookup)
		for _, p := range places {
			fmt.Printf("%-30s %9.4f %9.4f  %s\n", p.Name, p.Latitude, p.Longitude, p.DisplayName)
		}
	case "addstop":
		addCmd := flag.NewFlagSet("addstop", flag.ExitOnError)
		planID := addCmd.String("plan", "", "Plan id")
		query := addCmd.String("query", "", "Place to search for")
		date := addCmd.String("date", "", "Visit date and time (2026-03-02T09:00)")
		stopNotes := addCmd.String("notes", "", "Optional notes")
		addCmd.Parse(os.Args[2:])

		visit, err := time.Parse("2006-01-02T15:04", *date)
		if err != nil {
			log.Fatalf("Visit date must look like 2026-03-02T09:00")
		}
		if utf8.RuneCountInString(*query) < geocode.MinQueryLength {
			log.Fatalf("Place search needs at least %d characters", geocode.MinQueryLength)
		}

		places, err := geocoder.Search(ctx, *query)
		if err != nil {
			log.Fatalf("Search failed: %v", err)
		}
		metricsStore.Record(metrics.EventGeocodeLookup)
		if len(places) == 0 {
			log.Fatalf("No places found for %q", *query)
		}
		place := places[0]

		loc, err := locationRepo.Create(ctx, *planID, itinerary.Draft{
			Name:      place.Name,
			VisitDate: visit,
			Notes:     *stopNotes,
			Latitude:  place.Latitude,
			Longitude: place.Longitude,
		})
		if err != nil {
			log.Fatalf("Failed to add stop: %v", err)
		}
		fmt.Printf("Added %s as stop %d (%s)\n", loc.Name, loc.OrderIndex+1, place.DisplayName)
	case "reorder":
		planID := arg(2, "reorder <plan> 3,1,2")
		positions := arg(3, "reorder <plan> 3,1,2")

		locations, err := locationRepo.ListForPlan(ctx, planID)
		if err != nil {
			log.Fatalf("Failed to list stops: %v", err)
		}
		ids, err := idsByPosition(locations, positions)
		if err != nil {
			log.Fatalf("Bad positions: %v", err)
		}
		if err := locationRepo.Reorder(ctx, planID, ids); err != nil {
			log.Fatalf("Failed to reorder: %v", err)
		}
		application.ShowTimeline(ctx, planID)
	case "done":
		must(planRepo.UpdateStatus(ctx, arg(2, "done <plan>"), trip.StatusCompleted), "complete plan")
		fmt.Println("Plan moved to history.")
	case "reopen":
		must(planRepo.UpdateStatus(ctx, arg(2, "reopen <plan>"), trip.StatusActive), "reopen plan")
		fmt.Println("Plan is active again.")
	case "delete":
		must(planRepo.Delete(ctx, arg(2, "delete <plan>")), "delete plan")
		fmt.Println("Plan and all of its stops deleted.")
	case "wishlist":
		runWishlist(ctx, wishStore, geocoder, os.Args[2:])
	case "clip":
		placeClipper := clipper.NewClipper(wishStore)
		item, err := placeClipper.ClipURL(ctx, arg(2, "clip <url>"))
		if err != nil {
			log.Fatalf("Failed to clip: %v", err)
		}
		fmt.Printf("Saved %s (%.4f, %.4f) to the wishlist\n", item.Name, item.Latitude, item.Longitude)
	case "checklist":
		runChecklist(notesStore, os.Args[2:])
	case "journal":
		runJournal(ctx, notesStore, metricsStore, arg(2, "journal <plan>"))
	case "export":
		path, err := application.ExportTrip(ctx, arg(2, "export <plan>"))
		if err != nil {
			log.Fatalf("Export failed: %v", err)
		}
		fmt.Printf("Exported to %s\n", path)
	case "publish":
		post, err := application.PublishTrip(ctx, arg(2, "publish <plan>"), true)
		if err != nil {
			log.Fatalf("Publish failed: %v", err)
		}
		fmt.Printf("Published %q: %s\n", post.Title, post.URL)
	case "suggest":
		suggestion, err := application.SuggestNotes(ctx, arg(2, "suggest <plan>"))
		if err != nil {
			log.Fatalf("Suggestion failed: %v", err)
		}
		fmt.Println(suggestion)
	case "watch":
		runWatch(db, planRepo, metricsStore)
	case "migrate-status":
		if err := application.MigratePlanStatuses(ctx); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
		cleanupCmd.Parse(os.Args[2:])

		affected, err := metricsStore.Cleanup(*days)
		if err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
		fmt.Printf("Successfully removed %d old usage events.\n", affected)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func arg(i int, usage string) string {
	if len(os.Args) <= i {
		fmt.Printf("Usage: trip-planner %s\n", usage)
		os.Exit(1)
	}
	return os.Args[i]
}

func must(err error, action string) {
	if err != nil {
		log.Fatalf("Failed to %s: %v", action, err)
	}
}

// idsByPosition maps 1-based current timeline positions to location
// ids; every position must appear exactly once.
func idsByPosition(locations []itinerary.Location, positions string) ([]string, error) {
	parts := strings.Split(positions, ",")
	if len(parts) != len(locations) {
		return nil, fmt.Errorf("the plan has %d stops, got %d positions", len(locations), len(parts))
	}

	ids := make([]string, 0, len(parts))
	seen := make(map[int]bool)
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 1 || n > len(locations) || seen[n] {
			return nil, fmt.Errorf("positions must be each stop number exactly once")
		}
		seen[n] = true
		ids = append(ids, locations[n-1].ID)
	}
	return ids, nil
}

func runWishlist(ctx context.Context, store *wishlist.Store, geocoder *geocode.Client, args []string) {
	if len(args) == 0 {
		for _, item := range store.Items() {
			fmt.Printf("%s  %-24s %9.4f %9.4f  %s\n", item.ID, item.Name, item.Latitude, item.Longitude, item.Details)
		}
		return
	}

	switch args[0] {
	case "add":
		addCmd := flag.NewFlagSet("wishlist add", flag.ExitOnError)
		name := addCmd.String("name", "", "Place name (omit to reverse-geocode one)")
		lat := addCmd.Float64("lat", 0, "Latitude")
		lon := addCmd.Float64("lon", 0, "Longitude")
		details := addCmd.String("details", "", "Optional details")
		addCmd.Parse(args[1:])

		// With bare coordinates, ask the geocoder for a name; a failed
		// lookup leaves the name empty and validation reports it.
		if *name == "" {
			*name = geocoder.SuggestName(ctx, *lat, *lon)
		}

		item, err := store.Add(*name, *details, *lat, *lon)
		if err != nil {
			log.Fatalf("Failed to add wishlist item: %v", err)
		}
		fmt.Printf("Saved %s (%s)\n", item.Name, item.ID)
	case "remove":
		if len(args) < 2 {
			log.Fatalf("Usage: trip-planner wishlist remove <id>")
		}
		if err := store.Remove(args[1]); err != nil {
			log.Fatalf("Failed to remove wishlist item: %v", err)
		}
		fmt.Println("Removed.")
	default:
		log.Fatalf("Unknown wishlist command: %s", args[0])
	}
}

func runChecklist(store *notes.Store, args []string) {
	if len(args) == 0 {
		log.Fatalf("Usage: trip-planner checklist <plan> [add <label> | toggle <n>]")
	}
	planID := args[0]

	switch {
	case len(args) >= 3 && args[1] == "add":
		if _, err := store.AddChecklistItem(planID, strings.Join(args[2:], " ")); err != nil {
			log.Fatalf("Failed to add checklist item: %v", err)
		}
	case len(args) == 3 && args[1] == "toggle":
		items, err := store.Checklist(planID)
		if err != nil {
			log.Fatalf("Failed to load checklist: %v", err)
		}
		n, aerr := strconv.Atoi(args[2])
		if aerr != nil || n < 1 || n > len(items) {
			log.Fatalf("Toggle by the item number shown in the list")
		}
		if err := store.ToggleChecklistItem(planID, items[n-1].ID); err != nil {
			log.Fatalf("Failed to toggle checklist item: %v", err)
		}
	}

	items, err := store.Checklist(planID)
	if err != nil {
		log.Fatalf("Failed to load checklist: %v", err)
	}
	for i, item := range items {
		mark := " "
		if item.Done {
			mark = "x"
		}
		fmt.Printf("%2d. [%s] %s\n", i+1, mark, item.Label)
	}
}

// runJournal is a line-based journal editor. Each entered line extends
// the draft; writes happen only after the configured quiet period, so
// fast typing produces a single write per pause.
func runJournal(ctx context.Context, store *notes.Store, metricsStore *metrics.Store, planID string) {
	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	session := notes.OpenJournal(sessionCtx, store, planID, notes.DefaultSaveWindow)
	session.SetOnSave(func() {
		metricsStore.Record(metrics.EventDocumentWrite)
	})
	if err := session.Load(); err != nil {
		log.Fatalf("Failed to load journal: %v", err)
	}
	defer session.Close()

	if session.Content() != "" {
		fmt.Println(session.Content())
		fmt.Println("---")
	}
	fmt.Println("Type journal lines; Ctrl-D saves and exits.")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := session.Content()
		if text != "" {
			text += "\n"
		}
		session.SetContent(text + scanner.Text())
		metricsStore.Record(metrics.EventDebouncedSave)
	}

	session.Flush()
	fmt.Println("Journal saved.")
}

// runWatch tails the active-plan list until interrupted, printing each
// snapshot as writes from other processes land.
func runWatch(db *database.DB, planRepo *trip.Repository, metricsStore *metrics.Store) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	plans := feed.Watch(ctx, db.Hub, database.CollectionPlans,
		func(ctx context.Context) ([]trip.Plan, error) {
			return planRepo.ListByStatus(ctx, trip.StatusActive)
		},
		trip.ByStartDateAsc)

	for snap := range plans.Updates() {
		metricsStore.Record(metrics.EventSnapshotDelivered)
		switch snap.State {
		case feed.Error:
			log.Printf("Feed error (showing last good list): %v", snap.Err)
		default:
			fmt.Printf("--- %s ---\n", time.Now().Format("15:04:05"))
		}
		for _, p := range snap.Items {
			fmt.Printf("%s  %-24s %s\n", p.ID, p.Name, trip.FormatDateRange(p.StartDate, p.EndDate))
		}
	}
}

func printUsage() {
	fmt.Println("Usage: trip-planner <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  plans                         List active trips")
	fmt.Println("  history                       List finished trips")
	fmt.Println("  new -name -start -end         Create a plan")
	fmt.Println("  show <plan>                   Day-by-day timeline")
	fmt.Println("  search <query>                Search places")
	fmt.Println("  addstop -plan -query -date    Add a stop from a place search")
	fmt.Println("  reorder <plan> 3,1,2          Move stops by current position")
	fmt.Println("  done | reopen | delete <plan> Plan lifecycle")
	fmt.Println("  wishlist [add|remove]         Saved places")
	fmt.Println("  clip <url>                    Clip a place page to the wishlist")
	fmt.Println("  checklist <plan> ...          Packing checklist")
	fmt.Println("  journal <plan>                Edit the journal (debounced saves)")
	fmt.Println("  export <plan>                 Write the itinerary to HTML")
	fmt.Println("  publish <plan>                Post the itinerary to Ghost")
	fmt.Println("  suggest <plan>                LLM visit notes for each stop")
	fmt.Println("  watch                         Tail the active plan list")
	fmt.Println("  migrate-status                Repair plans without a status")
	fmt.Println("  metrics-cleanup [-days N]     Prune old usage events")
}
