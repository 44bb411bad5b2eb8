package config

import (
	"testing"
)

func TestNewFromEnvDefaults(t *testing.T) {
	t.Setenv("TRIP_DB_PATH", "")
	t.Setenv("TRIP_KV_PATH", "")
	t.Setenv("NOMINATIM_URL", "")
	t.Setenv("TELEGRAM_ALLOWED_USER_IDS", "")

	cfg, err := NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv failed: %v", err)
	}

	if cfg.DatabasePath != "data/trip-planner.db" {
		t.Errorf("unexpected default database path: %s", cfg.DatabasePath)
	}
	if cfg.KeyValuePath != "data/trip-planner.kv" {
		t.Errorf("unexpected default key-value path: %s", cfg.KeyValuePath)
	}
	if cfg.NominatimURL != "https://nominatim.openstreetmap.org" {
		t.Errorf("unexpected default nominatim url: %s", cfg.NominatimURL)
	}
	if len(cfg.TelegramAllowedUserIDs) != 0 {
		t.Errorf("expected no allowed user ids, got %v", cfg.TelegramAllowedUserIDs)
	}
}

func TestNewFromEnvAllowedUserIDs(t *testing.T) {
	t.Setenv("TELEGRAM_ALLOWED_USER_IDS", "123, 456,,abc,789")

	cfg, err := NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv failed: %v", err)
	}

	want := []int64{123, 456, 789}
	if len(cfg.TelegramAllowedUserIDs) != len(want) {
		t.Fatalf("expected %v, got %v", want, cfg.TelegramAllowedUserIDs)
	}
	for i, id := range want {
		if cfg.TelegramAllowedUserIDs[i] != id {
			t.Errorf("expected %v, got %v", want, cfg.TelegramAllowedUserIDs)
			break
		}
	}
}
