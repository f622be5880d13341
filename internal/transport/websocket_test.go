package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// startEchoServer runs a WebSocket server that echoes every frame back.
func startEchoServer(t *testing.T) Endpoint {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			mt, payload, err := ws.ReadMessage()
			if err != nil {
				return
			}
			if err := ws.WriteMessage(mt, payload); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	host := strings.TrimSuffix(u.Host, ":"+u.Port())
	return Endpoint{Host: host, Port: uint16(port)}
}

func waitForEvent(t *testing.T, events <-chan Event, typ EventType) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt := <-events:
			if evt.Type == typ {
				return evt
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", typ)
		}
	}
}

func TestWSConnRoundTrip(t *testing.T) {
	endpoint := startEchoServer(t)
	events := make(chan Event, 16)
	conn := NewWSConn(DefaultWSConfig(endpoint), events)
	defer conn.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, conn.Connect(ctx))

	evt := waitForEvent(t, events, EventConnected)
	assert.Same(t, conn, evt.Conn.(*WSConn))
	assert.True(t, conn.Connected())

	require.NoError(t, conn.Dispatch([]byte(`{"command":"ping","id":1}`)))

	msg := waitForEvent(t, events, EventMessage)
	assert.JSONEq(t, `{"command":"ping","id":1}`, string(msg.Payload))
}

func TestWSConnConnectTwice(t *testing.T) {
	endpoint := startEchoServer(t)
	events := make(chan Event, 16)
	conn := NewWSConn(DefaultWSConfig(endpoint), events)
	defer conn.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, conn.Connect(ctx))
	waitForEvent(t, events, EventConnected)

	assert.ErrorIs(t, conn.Connect(ctx), ErrAlreadyConnected)
}

func TestWSConnDisconnectEmitsEvent(t *testing.T) {
	endpoint := startEchoServer(t)
	events := make(chan Event, 16)
	conn := NewWSConn(DefaultWSConfig(endpoint), events)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, conn.Connect(ctx))
	waitForEvent(t, events, EventConnected)

	require.NoError(t, conn.Disconnect())
	waitForEvent(t, events, EventDisconnected)
	assert.False(t, conn.Connected())

	// Dispatch after teardown fails fast.
	assert.Error(t, conn.Dispatch([]byte(`{}`)))
}

func TestSessionDropStopsWritePump(t *testing.T) {
	endpoint := startEchoServer(t)
	events := make(chan Event, 16)
	conn := NewWSConn(DefaultWSConfig(endpoint), events)
	defer conn.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, conn.Connect(ctx))
	waitForEvent(t, events, EventConnected)

	conn.mu.RLock()
	ws := conn.ws
	conn.mu.RUnlock()
	require.NotNil(t, ws)

	conn.sessionDropped(ws, errors.New("link reset"))
	waitForEvent(t, events, EventDisconnected)

	// A frame queued around the drop must survive for the next session
	// rather than being drained by the dead session's pump.
	conn.send <- []byte(`{"command":"ping"}`)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, conn.send, 1)
}

func TestWSConnConnectAfterGone(t *testing.T) {
	endpoint := startEchoServer(t)
	events := make(chan Event, 16)
	conn := NewWSConn(DefaultWSConfig(endpoint), events)

	conn.MarkGone()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.ErrorIs(t, conn.Connect(ctx), ErrNodeGone)
}

func TestWSConnConnectRefused(t *testing.T) {
	// Nothing listens on the endpoint; the initial dial must fail.
	events := make(chan Event, 16)
	conn := NewWSConn(DefaultWSConfig(Endpoint{Host: "127.0.0.1", Port: 1}), events)
	defer conn.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.Error(t, conn.Connect(ctx))
}
