package remote

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestUnknownCommand(t *testing.T) {
	r := newTestRemote(t)
	r.AddServer(newFakeConn("alpha"), false)

	req := r.Request("bogus_command")
	_, err := req.Wait(context.Background())
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestRequestKnownCommandDispatches(t *testing.T) {
	r := newTestRemote(t)
	conn := newFakeConn("alpha")
	r.AddServer(conn, false)
	r.handleConnUp(conn)

	r.Request("server_info")
	assert.Equal(t, 1, conn.countCommand(t, "server_info"))
}

func TestAccountRootCacheHitSynthesizesResponse(t *testing.T) {
	r := newTestRemote(t)
	conn := newFakeConn("alpha")
	r.AddServer(conn, false)
	r.handleConnUp(conn)

	r.handleMessage(conn, ledgerClosedPayload(t, 41, 10))
	node := map[string]any{"Account": "rAlice", "Balance": "1000"}
	r.Accounts().SetAccountRoot("rAlice", node)

	req := r.RequestAccountRoot("rAlice")
	resp, err := req.Wait(context.Background())
	require.NoError(t, err)

	assert.True(t, resp.Synthesized)
	assert.Equal(t, node, resp.Result["node"])
	assert.Equal(t, uint32(42), resp.Result["ledger_current_index"])
	assert.Equal(t, 0, conn.countCommand(t, "ledger_entry"))
}

func TestAccountRootCacheMissDispatchesAndPopulates(t *testing.T) {
	r := newTestRemote(t)
	conn := newFakeConn("alpha")
	r.AddServer(conn, false)
	r.handleConnUp(conn)

	req := r.RequestAccountRoot("rAlice")
	require.Equal(t, 1, conn.countCommand(t, "ledger_entry"))
	id := conn.lastFrameID(t)

	frame, err := json.Marshal(map[string]any{
		"type":   "response",
		"id":     id,
		"status": "success",
		"result": map[string]any{
			"node": map[string]any{"Account": "rAlice", "Balance": "1000"},
		},
	})
	require.NoError(t, err)
	r.handleMessage(conn, frame)

	resp, err := req.Wait(context.Background())
	require.NoError(t, err)
	assert.False(t, resp.Synthesized)

	// The real response populated the cache; the next lookup never hits the
	// wire.
	next := r.RequestAccountRoot("rAlice")
	nextResp, err := next.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, nextResp.Synthesized)
	assert.Equal(t, 1, conn.countCommand(t, "ledger_entry"))
}

func TestAccountRootInterceptSkipsHistoricalLookups(t *testing.T) {
	r := newTestRemote(t)
	conn := newFakeConn("alpha")
	r.AddServer(conn, false)
	r.handleConnUp(conn)

	r.Accounts().SetAccountRoot("rAlice", map[string]any{"Account": "rAlice"})

	// Pinning a ledger hash or a numeric ledger index bypasses the cache.
	r.Submit(NewRequest("ledger_entry").
		Set("account_root", "rAlice").
		Set("ledger_hash", "AB12"))
	r.Submit(NewRequest("ledger_entry").
		Set("account_root", "rAlice").
		Set("ledger_index", 41))
	assert.Equal(t, 2, conn.countCommand(t, "ledger_entry"))

	// An explicit "current" index still uses the cache.
	req := NewRequest("ledger_entry").
		Set("account_root", "rAlice").
		Set("ledger_index", "current")
	r.Submit(req)
	resp, err := req.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.Synthesized)
	assert.Equal(t, 2, conn.countCommand(t, "ledger_entry"))
}

func TestRefreshSequenceParsesAccountInfo(t *testing.T) {
	r := newTestRemote(t)
	conn := newFakeConn("alpha")
	r.AddServer(conn, false)
	r.handleConnUp(conn)

	done := make(chan struct{})
	var seq uint32
	var refreshErr error
	go func() {
		defer close(done)
		seq, refreshErr = r.RefreshSequence(context.Background(), "rAlice")
	}()

	require.Eventually(t, func() bool {
		return conn.countCommand(t, "account_info") == 1
	}, testWait, testTick)
	id := conn.lastFrameID(t)

	frame, err := json.Marshal(map[string]any{
		"type":   "response",
		"id":     id,
		"status": "success",
		"result": map[string]any{
			"account_data": map[string]any{"Account": "rAlice", "Sequence": 42},
		},
	})
	require.NoError(t, err)
	r.handleMessage(conn, frame)

	<-done
	require.NoError(t, refreshErr)
	assert.Equal(t, uint32(42), seq)

	cached, err := r.Accounts().Sequence("rAlice", SequenceNone)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), cached)
}
