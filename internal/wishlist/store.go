// Package wishlist is the process-wide store of saved points of
// interest. The whole list is persisted as one serialized record under
// a single key; it is loaded lazily and never refreshed in the
// background, so callers reload explicitly on focus.
package wishlist

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"trip-planner/internal/database"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const storageKey = "trip-planner-wishlist"

// ErrNotFound is returned when an item id is not in the list.
var ErrNotFound = errors.New("wishlist item not found")

// Item is a saved point of interest, independent of any plan.
type Item struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Details   string    `json:"details"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store owns the wishlist. It keeps the decoded list in memory and
// rewrites the whole record on every mutation.
type Store struct {
	db *bbolt.DB

	mu    sync.Mutex
	items []Item
}

// NewStore creates a wishlist store over an opened key-value file.
func NewStore(db *bbolt.DB) *Store {
	return &Store{db: db}
}

// Load replaces the in-memory list with the stored record. A missing
// record is an empty wishlist, not an error.
func (s *Store) Load() error {
	var raw []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket([]byte(database.BucketWishlist)).Get([]byte(storageKey)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to load wishlist: %w", err)
	}

	var items []Item
	if raw != nil {
		if err := json.Unmarshal(raw, &items); err != nil {
			return fmt.Errorf("failed to decode wishlist: %w", err)
		}
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	return nil
}

// Items returns a copy of the current list, newest first.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Add validates and prepends a new item, then persists the full list.
func (s *Store) Add(name, details string, latitude, longitude float64) (Item, error) {
	if name == "" {
		return Item{}, errors.New("wishlist item name is required")
	}
	if latitude == 0 && longitude == 0 {
		return Item{}, errors.New("wishlist item coordinates are required")
	}

	item := Item{
		ID:        uuid.New().String(),
		Name:      name,
		Details:   details,
		Latitude:  latitude,
		Longitude: longitude,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := append([]Item{item}, s.items...)
	if err := s.persist(updated); err != nil {
		return Item{}, err
	}
	s.items = updated
	return item, nil
}

// Remove deletes an item by id and persists the full list.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := make([]Item, 0, len(s.items))
	found := false
	for _, item := range s.items {
		if item.ID == id {
			found = true
			continue
		}
		updated = append(updated, item)
	}
	if !found {
		return ErrNotFound
	}

	if err := s.persist(updated); err != nil {
		return err
	}
	s.items = updated
	return nil
}

func (s *Store) persist(items []Item) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode wishlist: %w", err)
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(database.BucketWishlist)).Put([]byte(storageKey), raw)
	})
	if err != nil {
		return fmt.Errorf("failed to save wishlist: %w", err)
	}
	return nil
}
