package wishlist

import (
	"path/filepath"
	"testing"

	"trip-planner/internal/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	kv, err := database.OpenKV(filepath.Join(t.TempDir(), "test.kv"))
	if err != nil {
		t.Fatalf("failed to open key-value store: %v", err)
	}
	t.Cleanup(func() { kv.Close() })
	return NewStore(kv)
}

func TestAddPrependsAndPersists(t *testing.T) {
	store := newTestStore(t)
	if err := store.Load(); err != nil {
		t.Fatalf("load on empty store failed: %v", err)
	}

	first, err := store.Add("Borobudur", "sunrise tour", -7.6079, 110.2038)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	second, err := store.Add("Prambanan", "", -7.7520, 110.4915)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	items := store.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != second.ID || items[1].ID != first.ID {
		t.Errorf("expected newest-first order, got %v then %v", items[0].Name, items[1].Name)
	}

	// A fresh load must see the persisted record.
	if err := store.Load(); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got := store.Items(); len(got) != 2 || got[0].Name != "Prambanan" {
		t.Fatalf("expected persisted list after reload, got %v", got)
	}
}

func TestAddValidation(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Add("", "details", 1, 1); err == nil {
		t.Error("expected error for missing name")
	}
	if _, err := store.Add("No coords", "details", 0, 0); err == nil {
		t.Error("expected error for missing coordinates")
	}
}

func TestRemove(t *testing.T) {
	store := newTestStore(t)
	item, err := store.Add("Tanah Lot", "", -8.6212, 115.0868)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if err := store.Remove(item.ID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if got := store.Items(); len(got) != 0 {
		t.Fatalf("expected empty list after remove, got %v", got)
	}

	if err := store.Remove(item.ID); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for second remove, got %v", err)
	}
}
