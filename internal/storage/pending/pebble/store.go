// Package pebble implements the pending store on a pebble database.
package pebble

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"

	"github.com/LeJamon/goxrpl-remote/internal/storage/pending"
)

// Store is a pebble-backed pending store.
type Store struct {
	db *pebble.DB
}

// Open opens or creates the store under dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(filepath.Join(dir, "pending"), &pebble.Options{})
	if err != nil {
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

	iter, err := s.db.NewIter(nil)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var entries []pending.Entry
	for iter.First(); iter.Valid(); iter.Next() {
		var entry pending.Entry
		if err := json.Unmarshal(iter.Value(), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := iter.Error(); err != nil {
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
	return s.db.Set([]byte(entry.ClientID), value, pebble.Sync)
}

// Delete removes an entry.
func (s *Store) Delete(clientID string) error {
	if s.db == nil {
		return pending.ErrStoreClosed
	}
	return s.db.Delete([]byte(clientID), pebble.Sync)
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
