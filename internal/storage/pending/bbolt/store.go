// Package bbolt implements the pending store on a bbolt database file.
package bbolt

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/LeJamon/goxrpl-remote/internal/storage/pending"
)

var bucketPending = []byte("pending")

// Store is a bbolt-backed pending store.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the store under dir.
func Open(dir string) (*Store, error) {
	db, err := bbolt.Open(filepath.Join(dir, "pending.db"), 0o600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPending)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// FetchPending returns all stored entries. Entries that fail to decode are
// skipped rather than aborting the batch.
func (s *Store) FetchPending() ([]pending.Entry, error) {
	if s.db == nil {
		return nil, pending.ErrStoreClosed
	}

	var entries []pending.Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketPending)
		if bucket == nil {
			return fmt.Errorf("bucket %s not found", bucketPending)
		}
		return bucket.ForEach(func(_, v []byte) error {
			var entry pending.Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return nil
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Save stores or overwrites an entry keyed by its client identifier.
func (s *Store) Save(entry pending.Entry) error {
	if s.db == nil {
		return pending.ErrStoreClosed
	}
	if !entry.Valid() {
		return fmt.Errorf("invalid pending entry")
	}

	value, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketPending)
		if bucket == nil {
			return fmt.Errorf("bucket %s not found", bucketPending)
		}
		return bucket.Put([]byte(entry.ClientID), value)
	})
}

// Delete removes an entry.
func (s *Store) Delete(clientID string) error {
	if s.db == nil {
		return pending.ErrStoreClosed
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketPending)
		if bucket == nil {
			return fmt.Errorf("bucket %s not found", bucketPending)
		}
		return bucket.Delete([]byte(clientID))
	})
}

// Close releases the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	db := s.db
	s.db = nil
	return db.Close()
}
