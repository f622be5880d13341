package remote

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goxrpl-remote/internal/config"
	"github.com/LeJamon/goxrpl-remote/internal/storage/pending"
)

// fakeStore serves a canned set of pending entries.
type fakeStore struct {
	entries  []pending.Entry
	fetchErr error
	fetches  int
}

func (s *fakeStore) FetchPending() ([]pending.Entry, error) {
	s.fetches++
	return s.entries, s.fetchErr
}

func (s *fakeStore) Save(entry pending.Entry) error { return nil }
func (s *fakeStore) Delete(clientID string) error   { return nil }
func (s *fakeStore) Close() error                   { return nil }

func TestResubmitPendingOnFirstConnect(t *testing.T) {
	store := &fakeStore{entries: []pending.Entry{
		{
			ClientID:    "op-1",
			TxJSON:      map[string]any{"TransactionType": "Payment"},
			SubmitIndex: 40,
			Attempts:    2,
		},
		{
			// Malformed: no payload. Skipped without aborting the batch.
			ClientID: "op-2",
		},
		{
			ClientID: "op-3",
			TxJSON:   map[string]any{"TransactionType": "OfferCreate"},
		},
	}}

	r, err := New(config.DefaultConfig(), WithStore(store))
	require.NoError(t, err)

	conn := newFakeConn("alpha")
	r.AddServer(conn, false)
	r.handleConnUp(conn)

	assert.Equal(t, 1, store.fetches)
	assert.Equal(t, 2, conn.countCommand(t, "submit"))

	// Replay happens on the first connect only.
	r.handleConnDown(conn, nil)
	r.handleConnUp(conn)
	assert.Equal(t, 1, store.fetches)
	assert.Equal(t, 2, conn.countCommand(t, "submit"))
}

func TestResubmitPendingFetchFailureIsNonFatal(t *testing.T) {
	store := &fakeStore{fetchErr: errors.New("disk unavailable")}

	r, err := New(config.DefaultConfig(), WithStore(store))
	require.NoError(t, err)

	conn := newFakeConn("alpha")
	r.AddServer(conn, false)
	r.handleConnUp(conn)

	assert.Equal(t, StateOnline, r.State())
	assert.Equal(t, 0, conn.countCommand(t, "submit"))
}

func TestNoStoreNoReplay(t *testing.T) {
	r := newTestRemote(t)
	conn := newFakeConn("alpha")
	r.AddServer(conn, false)
	r.handleConnUp(conn)

	assert.Equal(t, 0, conn.countCommand(t, "submit"))
}
