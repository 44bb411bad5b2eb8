package acceptance_tests

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"trip-planner/internal/app"
	"trip-planner/internal/config"
	"trip-planner/internal/database"
	"trip-planner/internal/ghost"
	"trip-planner/internal/itinerary"
	"trip-planner/internal/metrics"
	"trip-planner/internal/notes"
	"trip-planner/internal/trip"
)

// --- Mock Ghost Client ---
type mockGhostClient struct {
	createPostCalls int
	lastTitle       string
	lastHTML        string
}

func (m *mockGhostClient) CreatePost(title, html string, publish bool) (*ghost.Post, error) {
	m.createPostCalls++
	m.lastTitle = title
	m.lastHTML = html
	return &ghost.Post{ID: "post-1", Title: title, URL: "https://blog.example/post-1"}, nil
}

// --- Mock LLM Client ---
type mockLLMClient struct {
	generateContentCalls int
	lastPrompt           string
}

func (m *mockLLMClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	m.generateContentCalls++
	m.lastPrompt = prompt
	return "1. Go early, the queue builds after ten.\n2. Book the boat a day ahead.", nil
}

func (m *mockLLMClient) Close() error { return nil }

func newTestApp(t *testing.T, ghostClient ghost.Client, textGen *mockLLMClient) (*app.App, *trip.Repository, *itinerary.Repository, *notes.Store) {
	t.Helper()
	dir := t.TempDir()

	db, err := database.NewDB(filepath.Join(dir, "trips.db"))
	if err != nil {
		t.Fatalf("failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	kv, err := database.OpenKV(filepath.Join(dir, "trips.kv"))
	if err != nil {
		t.Fatalf("failed to open key-value store: %v", err)
	}
	t.Cleanup(func() { kv.Close() })

	cfg := &config.Config{ExportDir: filepath.Join(dir, "exports")}
	planRepo := trip.NewRepository(db)
	locationRepo := itinerary.NewRepository(db)
	notesStore := notes.NewStore(kv)
	metricsStore := metrics.NewStore(db)

	// A typed nil mock would make the interface non-nil, so pass an
	// untyped nil when the flow under test has no model.
	var a *app.App
	if textGen != nil {
		a = app.NewApp(cfg, planRepo, locationRepo, notesStore, metricsStore, ghostClient, textGen)
	} else {
		a = app.NewApp(cfg, planRepo, locationRepo, notesStore, metricsStore, ghostClient, nil)
	}
	return a, planRepo, locationRepo, notesStore
}

func TestPlanExportAndPublishFlow(t *testing.T) {
	ctx := context.Background()
	ghostMock := &mockGhostClient{}
	application, planRepo, locationRepo, notesStore := newTestApp(t, ghostMock, nil)

	plan, err := planRepo.Create(ctx, trip.Draft{
		Name:      "Bali",
		StartDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("failed to create plan: %v", err)
	}

	for i, name := range []string{"Uluwatu Temple", "Padang Padang Beach"} {
		_, err := locationRepo.Create(ctx, plan.ID, itinerary.Draft{
			Name:      name,
			VisitDate: time.Date(2026, 3, 2+i, 9, 0, 0, 0, time.UTC),
			Latitude:  -8.83,
			Longitude: 115.08,
		})
		if err != nil {
			t.Fatalf("failed to add stop %s: %v", name, err)
		}
	}

	if err := notesStore.SaveJournal(plan.ID, "Waves were perfect."); err != nil {
		t.Fatalf("failed to save journal: %v", err)
	}

	// Export writes the itinerary and journal to disk.
	path, err := application.ExportTrip(ctx, plan.ID)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	html, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}
	for _, want := range []string{"Bali", "Uluwatu Temple", "Padang Padang Beach", "Waves were perfect."} {
		if !strings.Contains(string(html), want) {
			t.Errorf("export missing %q", want)
		}
	}

	// Publish sends the same rendering to the blog.
	post, err := application.PublishTrip(ctx, plan.ID, true)
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if ghostMock.createPostCalls != 1 {
		t.Errorf("expected one Ghost post, got %d", ghostMock.createPostCalls)
	}
	if !strings.Contains(ghostMock.lastTitle, "Bali") {
		t.Errorf("unexpected post title %q", ghostMock.lastTitle)
	}
	if !strings.Contains(ghostMock.lastHTML, "Uluwatu Temple") {
		t.Errorf("post body missing itinerary")
	}
	if post.URL == "" {
		t.Error("expected post URL")
	}
}

func TestSuggestNotesFlow(t *testing.T) {
	ctx := context.Background()
	llmMock := &mockLLMClient{}
	application, planRepo, locationRepo, _ := newTestApp(t, nil, llmMock)

	plan, err := planRepo.Create(ctx, trip.Draft{
		Name:      "Kyoto",
		StartDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("failed to create plan: %v", err)
	}

	// No stops yet: nothing to suggest for.
	if _, err := application.SuggestNotes(ctx, plan.ID); err == nil {
		t.Error("expected error for a plan without stops")
	}
	if llmMock.generateContentCalls != 0 {
		t.Errorf("model called for an empty plan")
	}

	if _, err := locationRepo.Create(ctx, plan.ID, itinerary.Draft{
		Name:      "Fushimi Inari",
		VisitDate: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC),
		Latitude:  34.967,
		Longitude: 135.772,
	}); err != nil {
		t.Fatalf("failed to add stop: %v", err)
	}

	suggestion, err := application.SuggestNotes(ctx, plan.ID)
	if err != nil {
		t.Fatalf("suggest failed: %v", err)
	}
	if llmMock.generateContentCalls != 1 {
		t.Errorf("expected one model call, got %d", llmMock.generateContentCalls)
	}
	if !strings.Contains(llmMock.lastPrompt, "Fushimi Inari") {
		t.Errorf("prompt missing the stop: %q", llmMock.lastPrompt)
	}
	if suggestion == "" {
		t.Error("expected a suggestion")
	}
}
