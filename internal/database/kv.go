package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	// BucketWishlist holds the single serialized wishlist record.
	BucketWishlist = "wishlist"
	// BucketNotes holds per-plan journal and checklist blobs keyed
	// "<feature>_<planID>".
	BucketNotes = "notes"
)

// OpenKV opens the bbolt file backing the small key-value blobs
// (wishlist, journals, checklists) and ensures the buckets exist.
func OpenKV(path string) (*bbolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create key-value directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open key-value store: %w", err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(BucketWishlist)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(BucketNotes)); err != nil {
			return err
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return db, nil
}
