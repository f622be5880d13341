package remote

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goxrpl-remote/internal/config"
	"github.com/LeJamon/goxrpl-remote/internal/transport"
)

const (
	testWait = 2 * time.Second
	testTick = 5 * time.Millisecond
)

// fakeConn is a scriptable node connection for coordinator tests.
type fakeConn struct {
	mu sync.Mutex

	name       string
	connected  bool
	gone       bool
	score      float64
	quote      transport.FeeQuote
	dispatched [][]byte
	connectErr error
}

func newFakeConn(name string) *fakeConn {
	return &fakeConn{name: name}
}

func (c *fakeConn) Name() string { return c.name }

func (c *fakeConn) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connectErr != nil {
		return c.connectErr
	}
	c.connected = true
	return nil
}

func (c *fakeConn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	return nil
}

func (c *fakeConn) Dispatch(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := make([]byte, len(payload))
	copy(buf, payload)
	c.dispatched = append(c.dispatched, buf)
	return nil
}

func (c *fakeConn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeConn) Score() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.score
}

func (c *fakeConn) SetScore(score float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.score = score
}

func (c *fakeConn) Quote() transport.FeeQuote {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quote
}

func (c *fakeConn) SetQuote(q transport.FeeQuote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quote = q
}

func (c *fakeConn) MarkGone() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gone = true
}

func (c *fakeConn) Gone() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gone
}

// commands decodes the command field of every dispatched frame, in order.
func (c *fakeConn) commands(t *testing.T) []string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []string
	for _, frame := range c.dispatched {
		var decoded struct {
			Command string `json:"command"`
		}
		require.NoError(t, json.Unmarshal(frame, &decoded))
		out = append(out, decoded.Command)
	}
	return out
}

// countCommand returns how many dispatched frames carry the command.
func (c *fakeConn) countCommand(t *testing.T, command string) int {
	t.Helper()
	n := 0
	for _, cmd := range c.commands(t) {
		if cmd == command {
			n++
		}
	}
	return n
}

// lastFrameID returns the correlation id of the most recent dispatched frame.
func (c *fakeConn) lastFrameID(t *testing.T) uint64 {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.dispatched)

	var decoded struct {
		ID uint64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(c.dispatched[len(c.dispatched)-1], &decoded))
	return decoded.ID
}

// newTestRemote builds a remote with default configuration.
func newTestRemote(t *testing.T) *Remote {
	t.Helper()
	r, err := New(config.DefaultConfig())
	require.NoError(t, err)
	return r
}

// eventCounter records emitted events of one type.
type eventCounter struct {
	mu     sync.Mutex
	events []Event
}

func (c *eventCounter) listen(evt Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
}

func (c *eventCounter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}
