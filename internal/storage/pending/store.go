// Package pending defines durable storage for operations that were submitted
// but not yet confirmed, so they can be resubmitted after a restart.
package pending

import "errors"

// Sentinel errors for pending stores.
var (
	ErrStoreClosed = errors.New("pending store is closed")
	ErrNotFound    = errors.New("pending entry not found")
)

// Entry is one stored pending operation. ClientID keys the entry; TxJSON is
// the operation payload; the remaining fields carry prior submission
// bookkeeping.
type Entry struct {
	ClientID    string         `json:"client_id"`
	TxJSON      map[string]any `json:"tx_json"`
	SubmitIndex uint32         `json:"submit_index,omitempty"`
	Attempts    int            `json:"attempts,omitempty"`
}

// Valid reports whether the entry carries the minimum required fields.
func (e *Entry) Valid() bool {
	return e != nil && e.ClientID != "" && len(e.TxJSON) > 0
}

// Store is durable storage for pending operations.
type Store interface {
	// FetchPending returns all stored entries.
	FetchPending() ([]Entry, error)

	// Save stores or overwrites an entry keyed by its client identifier.
	Save(entry Entry) error

	// Delete removes an entry; deleting a missing entry is not an error.
	Delete(clientID string) error

	// Close releases the underlying storage.
	Close() error
}
