package transport

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Default connection tuning values.
const (
	DefaultConnectTimeout    = 10 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultPongTimeout       = 60 * time.Second
	DefaultPingInterval      = 54 * time.Second
	DefaultReconnectDelay    = time.Second
	DefaultMaxReconnectDelay = 30 * time.Second
	DefaultSendBufferSize    = 64

	// MaxMessageSize bounds inbound frames.
	MaxMessageSize = 512 * 1024
)

// WSConfig holds configuration for a WebSocket connection.
type WSConfig struct {
	Endpoint Endpoint

	ConnectTimeout    time.Duration
	PingInterval      time.Duration
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	SendBufferSize    int

	// Pool is the number of parallel sessions the node supports. Recorded for
	// callers; a WSConn itself holds one session.
	Pool int

	Logger *logrus.Entry
}

// DefaultWSConfig returns the default WebSocket configuration for an endpoint.
func DefaultWSConfig(endpoint Endpoint) WSConfig {
	return WSConfig{
		Endpoint:          endpoint,
		ConnectTimeout:    DefaultConnectTimeout,
		PingInterval:      DefaultPingInterval,
		ReconnectDelay:    DefaultReconnectDelay,
		MaxReconnectDelay: DefaultMaxReconnectDelay,
		SendBufferSize:    DefaultSendBufferSize,
	}
}

// WSConn is a Conn backed by a gorilla WebSocket session. After the initial
// Connect it reconnects on its own with exponential backoff until Disconnect
// or MarkGone is called.
type WSConn struct {
	mu sync.RWMutex

	cfg    WSConfig
	log    *logrus.Entry
	events chan<- Event

	ws          *websocket.Conn
	sessionDone chan struct{}
	connected   bool
	gone        atomic.Bool
	closed      atomic.Bool

	score float64
	quote FeeQuote

	send    chan []byte
	closeCh chan struct{}
}

// NewWSConn creates a WebSocket connection for one node. Events are delivered
// on the supplied channel, which is owned by the coordinator.
func NewWSConn(cfg WSConfig, events chan<- Event) *WSConn {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPingInterval
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.MaxReconnectDelay <= 0 {
		cfg.MaxReconnectDelay = DefaultMaxReconnectDelay
	}
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = DefaultSendBufferSize
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &WSConn{
		cfg:     cfg,
		log:     log.WithField("node", cfg.Endpoint.String()),
		events:  events,
		send:    make(chan []byte, cfg.SendBufferSize),
		closeCh: make(chan struct{}),
	}
}

// Name identifies the node as "host:port".
func (c *WSConn) Name() string {
	return c.cfg.Endpoint.String()
}

// Connect dials the node and starts the read/write pumps.
func (c *WSConn) Connect(ctx context.Context) error {
	if c.gone.Load() {
		return ErrNodeGone
	}
	if c.closed.Load() {
		return ErrConnClosed
	}

	c.mu.RLock()
	already := c.connected
	c.mu.RUnlock()
	if already {
		return ErrAlreadyConnected
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	ws, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.cfg.Endpoint.URL(), nil)
	if err != nil {
		return NewConnError(c.cfg.Endpoint, "dial", err)
	}

	c.startSession(ws)
	return nil
}

// startSession installs a live socket and launches the pumps.
func (c *WSConn) startSession(ws *websocket.Conn) {
	ws.SetReadLimit(MaxMessageSize)

	done := make(chan struct{})
	c.mu.Lock()
	c.ws = ws
	c.sessionDone = done
	c.connected = true
	c.mu.Unlock()

	c.log.Debug("session established")
	c.emit(Event{Type: EventConnected, Conn: c})

	go c.readPump(ws)
	go c.writePump(ws, done)
}

// readPump reads frames until the session drops, then schedules a reconnect.
func (c *WSConn) readPump(ws *websocket.Conn) {
	ws.SetReadDeadline(time.Now().Add(DefaultPongTimeout))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(DefaultPongTimeout))
		return nil
	})

	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			c.sessionDropped(ws, err)
			return
		}
		ws.SetReadDeadline(time.Now().Add(DefaultPongTimeout))
		c.emit(Event{Type: EventMessage, Conn: c, Payload: payload})
	}
}

// writePump drains the send queue and keeps the session alive with pings. It
// stops as soon as its session is torn down, so frames queued around a drop
// stay in the queue for the next session instead of being drained by a dead
// pump.
func (c *WSConn) writePump(ws *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closeCh:
			return
		case <-done:
			return
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(DefaultWriteTimeout))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.sessionDropped(ws, err)
				return
			}
		case payload := <-c.send:
			ws.SetWriteDeadline(time.Now().Add(DefaultWriteTimeout))
			if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.sessionDropped(ws, err)
				return
			}
		}
	}
}

// sessionDropped tears down a dead session and, unless the node is gone or the
// conn was closed, retries with exponential backoff.
func (c *WSConn) sessionDropped(ws *websocket.Conn, cause error) {
	ws.Close()

	c.mu.Lock()
	if c.ws != ws {
		// A newer session already replaced this one.
		c.mu.Unlock()
		return
	}
	c.ws = nil
	done := c.sessionDone
	c.sessionDone = nil
	c.connected = false
	c.mu.Unlock()

	if done != nil {
		close(done)
	}

	c.log.WithField("error", cause).Debug("session dropped")
	c.emit(Event{Type: EventDisconnected, Conn: c, Err: cause})

	if c.gone.Load() || c.closed.Load() {
		return
	}
	go c.reconnectLoop()
}

// reconnectLoop dials until a session comes up or the conn is stopped.
func (c *WSConn) reconnectLoop() {
	delay := c.cfg.ReconnectDelay
	for {
		select {
		case <-c.closeCh:
			return
		case <-time.After(delay):
		}
		if c.gone.Load() || c.closed.Load() {
			return
		}

		dialCtx, cancel := context.WithTimeout(context.Background(), c.cfg.ConnectTimeout)
		ws, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.cfg.Endpoint.URL(), nil)
		cancel()
		if err == nil {
			c.startSession(ws)
			return
		}

		c.log.WithField("error", err).Debug("reconnect failed")
		delay *= 2
		if delay > c.cfg.MaxReconnectDelay {
			delay = c.cfg.MaxReconnectDelay
		}
	}
}

// Dispatch queues an encoded request frame for sending.
func (c *WSConn) Dispatch(payload []byte) error {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	if !connected {
		return ErrNotConnected
	}

	select {
	case c.send <- payload:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Disconnect tears the session down and stops reconnection.
func (c *WSConn) Disconnect() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.closeCh)

	c.mu.Lock()
	ws := c.ws
	c.ws = nil
	done := c.sessionDone
	c.sessionDone = nil
	wasConnected := c.connected
	c.connected = false
	c.mu.Unlock()

	if done != nil {
		close(done)
	}
	if ws != nil {
		ws.Close()
	}
	if wasConnected {
		c.emit(Event{Type: EventDisconnected, Conn: c})
	}
	return nil
}

// Connected reports whether the session is currently up.
func (c *WSConn) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Score returns the failover penalty for this node.
func (c *WSConn) Score() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.score
}

// SetScore overwrites the failover penalty.
func (c *WSConn) SetScore(score float64) {
	c.mu.Lock()
	c.score = score
	c.mu.Unlock()
}

// Quote returns the node's latest fee and reserve schedule.
func (c *WSConn) Quote() FeeQuote {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.quote
}

// SetQuote overwrites the fee and reserve schedule.
func (c *WSConn) SetQuote(q FeeQuote) {
	c.mu.Lock()
	c.quote = q
	c.mu.Unlock()
}

// MarkGone records that the node is permanently unreachable. The current
// session, if any, is left to fail on its own; no reconnect will follow it.
func (c *WSConn) MarkGone() {
	c.gone.Store(true)
}

// Gone reports whether the node has been marked permanently unreachable.
func (c *WSConn) Gone() bool {
	return c.gone.Load()
}

// emit delivers an event without blocking forever on a stalled coordinator.
func (c *WSConn) emit(evt Event) {
	select {
	case c.events <- evt:
	case <-c.closeCh:
	}
}
