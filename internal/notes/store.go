// Package notes persists the per-plan journal text and checklist as
// small serialized blobs keyed "<feature>_<planID>".
package notes

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"trip-planner/internal/database"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

// ErrNotFound is returned when a checklist item id does not exist.
var ErrNotFound = errors.New("checklist item not found")

// ChecklistItem is one entry of a plan's packing/preparation list.
type ChecklistItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Done  bool   `json:"done"`
}

// Store reads and writes journal and checklist blobs.
type Store struct {
	db *bbolt.DB
	mu sync.Mutex
}

// NewStore creates a notes store over an opened key-value file.
func NewStore(db *bbolt.DB) *Store {
	return &Store{db: db}
}

func journalKey(planID string) []byte   { return []byte("journal_" + planID) }
func checklistKey(planID string) []byte { return []byte("checklist_" + planID) }

// Journal returns the stored journal text of a plan, empty when none
// has been written yet.
func (s *Store) Journal(planID string) (string, error) {
	var text string
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket([]byte(database.BucketNotes)).Get(journalKey(planID)); v != nil {
			text = string(v)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to load journal for plan %s: %w", planID, err)
	}
	return text, nil
}

// SaveJournal stores the journal text of a plan.
func (s *Store) SaveJournal(planID, text string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(database.BucketNotes)).Put(journalKey(planID), []byte(text))
	})
	if err != nil {
		return fmt.Errorf("failed to save journal for plan %s: %w", planID, err)
	}
	return nil
}

// Checklist returns the stored checklist of a plan.
func (s *Store) Checklist(planID string) ([]ChecklistItem, error) {
	var raw []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket([]byte(database.BucketNotes)).Get(checklistKey(planID)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load checklist for plan %s: %w", planID, err)
	}

	var items []ChecklistItem
	if raw != nil {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("failed to decode checklist for plan %s: %w", planID, err)
		}
	}
	return items, nil
}

func (s *Store) saveChecklist(planID string, items []ChecklistItem) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode checklist for plan %s: %w", planID, err)
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(database.BucketNotes)).Put(checklistKey(planID), raw)
	})
	if err != nil {
		return fmt.Errorf("failed to save checklist for plan %s: %w", planID, err)
	}
	return nil
}

// AddChecklistItem appends a new unticked item and saves immediately.
// Checklist edits are eager writes, unlike the debounced journal.
func (s *Store) AddChecklistItem(planID, label string) (ChecklistItem, error) {
	if label == "" {
		return ChecklistItem{}, errors.New("checklist item label is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.Checklist(planID)
	if err != nil {
		return ChecklistItem{}, err
	}

	item := ChecklistItem{ID: uuid.New().String(), Label: label}
	items = append(items, item)
	if err := s.saveChecklist(planID, items); err != nil {
		return ChecklistItem{}, err
	}
	return item, nil
}

// ToggleChecklistItem flips an item's done flag and saves immediately.
func (s *Store) ToggleChecklistItem(planID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.Checklist(planID)
	if err != nil {
		return err
	}

	for i := range items {
		if items[i].ID == id {
			items[i].Done = !items[i].Done
			return s.saveChecklist(planID, items)
		}
	}
	return ErrNotFound
}

// RemoveChecklistItem deletes an item and saves immediately.
func (s *Store) RemoveChecklistItem(planID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.Checklist(planID)
	if err != nil {
		return err
	}

	updated := make([]ChecklistItem, 0, len(items))
	found := false
	for _, item := range items {
		if item.ID == id {
			found = true
			continue
		}
		updated = append(updated, item)
	}
	if !found {
		return ErrNotFound
	}
	return s.saveChecklist(planID, updated)
}
