package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds the configuration for the application.
type Config struct {
	DatabasePath string
	KeyValuePath string
	ExportDir    string

	NominatimURL string

	// Telegram Config (required for the bot, unused by the CLI)
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64

	// Ghost Config (optional; journal publishing is disabled without it)
	GhostURL      string
	GhostAdminKey string

	// Gemini Config (optional; note suggestions are disabled without it)
	GeminiAPIKey string
}

// NewFromEnv creates a new Config object from environment variables.
// Storage paths and the geocoder URL have working defaults; the
// Telegram, Ghost and Gemini keys are validated by the features that
// need them.
func NewFromEnv() (*Config, error) {
	dbPath := os.Getenv("TRIP_DB_PATH")
	if dbPath == "" {
		dbPath = "data/trip-planner.db"
	}

	kvPath := os.Getenv("TRIP_KV_PATH")
	if kvPath == "" {
		kvPath = "data/trip-planner.kv"
	}

	exportDir := os.Getenv("TRIP_EXPORT_DIR")
	if exportDir == "" {
		exportDir = "data/exports"
	}

	nominatimURL := os.Getenv("NOMINATIM_URL")
	if nominatimURL == "" {
		nominatimURL = "https://nominatim.openstreetmap.org"
	}

	var allowedIDs []int64
	for _, part := range strings.Split(os.Getenv("TELEGRAM_ALLOWED_USER_IDS"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		allowedIDs = append(allowedIDs, id)
	}

	var adminID int64
	if s := os.Getenv("TELEGRAM_ADMIN_ID"); s != "" {
		adminID, _ = strconv.ParseInt(s, 10, 64)
	}

	return &Config{
		DatabasePath:           dbPath,
		KeyValuePath:           kvPath,
		ExportDir:              exportDir,
		NominatimURL:           nominatimURL,
		TelegramBotToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:     os.Getenv("TELEGRAM_WEBHOOK_URL"),
		TelegramAllowedUserIDs: allowedIDs,
		AdminTelegramID:        adminID,
		GhostURL:               os.Getenv("GHOST_API_URL"),
		GhostAdminKey:          os.Getenv("GHOST_ADMIN_API_KEY"),
		GeminiAPIKey:           os.Getenv("GEMINI_API_KEY"),
	}, nil
}
