package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trip-planner/internal/app"
	"trip-planner/internal/clipper"
	"trip-planner/internal/config"
	"trip-planner/internal/database"
	"trip-planner/internal/geocode"
	"trip-planner/internal/ghost"
	"trip-planner/internal/itinerary"
	"trip-planner/internal/llm"
	"trip-planner/internal/metrics"
	"trip-planner/internal/notes"
	"trip-planner/internal/telegram"
	"trip-planner/internal/trip"
	"trip-planner/internal/wishlist"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	// 2. Initialize Storage
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
	sessions := telegram.NewSessionRepository(db)
	notesStore := notes.NewStore(kv)
	metricsStore := metrics.NewStore(db)

	wishStore := wishlist.NewStore(kv)
	if err := wishStore.Load(); err != nil {
		log.Fatalf("Failed to load wishlist: %v", err)
	}

	// 3. Initialize Optional Services
	var ghostClient ghost.Client
	if cfg.GhostURL != "" && cfg.GhostAdminKey != "" {
		ghostClient = ghost.NewClient(cfg)
	}

	var textGen llm.TextGenerator
	if cfg.GeminiAPIKey != "" {
		textGen, err = llm.NewGeminiClient(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to create Gemini client: %v", err)
		}
		defer textGen.Close()
	}

	geocoder := geocode.NewClient(cfg.NominatimURL)
	placeClipper := clipper.NewClipper(wishStore)
	application := app.NewApp(cfg, planRepo, locationRepo, notesStore, metricsStore, ghostClient, textGen)

	// 4. Initialize Telegram Bot
	bot, err := telegram.NewBot(cfg, application, db.Hub, planRepo, locationRepo, sessions,
		wishStore, notesStore, geocoder, placeClipper, metricsStore)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram Bot: %v", err)
	}

	// 5. Background Session Maintenance
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			if err := sessions.CleanupExpired(context.Background()); err != nil {
				log.Printf("Session cleanup failed: %v", err)
			}
		}
	}()

	// 6. Start Server with Graceful Shutdown
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	bot.RegisterHandlers()

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: nil,
	}

	go func() {
		log.Printf("Telegram Bot Server listening on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
