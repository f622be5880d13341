package remote

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/LeJamon/goxrpl-remote/internal/transport"
)

// NodeEntry tracks one pooled node connection. Entries are never removed:
// when the underlying connection drops the connected flag toggles instead.
type NodeEntry struct {
	conn      transport.Conn
	connected bool
	primary   bool
	order     int // registration order, used as the selection tie-break
}

// Conn returns the entry's connection.
func (e *NodeEntry) Conn() transport.Conn { return e.conn }

// Connected reports whether the entry's connection is currently up.
func (e *NodeEntry) Connected() bool { return e.connected }

// Primary reports whether the entry is the designated primary.
func (e *NodeEntry) Primary() bool { return e.primary }

// Pool owns the set of node connections, computes the currently best one and
// tracks a designated primary.
type Pool struct {
	mu      sync.RWMutex
	entries []*NodeEntry
	byConn  map[transport.Conn]*NodeEntry
	primary *NodeEntry
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{byConn: make(map[transport.Conn]*NodeEntry)}
}

// Add registers a connection. A connection marked primary replaces any
// previously designated primary.
func (p *Pool) Add(conn transport.Conn, primary bool) *NodeEntry {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry := &NodeEntry{conn: conn, primary: primary, order: len(p.entries)}
	p.entries = append(p.entries, entry)
	p.byConn[conn] = entry
	if primary {
		if p.primary != nil {
			p.primary.primary = false
		}
		p.primary = entry
	}
	return entry
}

// Count returns the number of registered entries.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// ConnectedCount returns the number of entries whose connection is up.
func (p *Pool) ConnectedCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := 0
	for _, e := range p.entries {
		if e.connected {
			n++
		}
	}
	return n
}

// Contains reports whether the connection is registered.
func (p *Pool) Contains(conn transport.Conn) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.byConn[conn]
	return ok
}

// MarkConnected records a connection state change and reports whether the
// flag actually flipped. Repeated same-state signals are no-ops.
func (p *Pool) MarkConnected(conn transport.Conn, connected bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.byConn[conn]
	if !ok || entry.connected == connected {
		return false
	}
	entry.connected = connected
	return true
}

// Connect dials every registered entry in registration order, staggering
// subsequent dials by offset to avoid a reconnect thundering herd. It fails
// fast when the pool is empty.
func (p *Pool) Connect(ctx context.Context, offset time.Duration) error {
	p.mu.RLock()
	entries := make([]*NodeEntry, len(p.entries))
	copy(entries, p.entries)
	p.mu.RUnlock()

	if len(entries) == 0 {
		return ErrNoServers
	}

	for i, entry := range entries {
		if i > 0 && offset > 0 {
			conn := entry.conn
			delay := time.Duration(i) * offset
			time.AfterFunc(delay, func() {
				conn.Connect(context.Background())
			})
			continue
		}
		if err := entry.conn.Connect(ctx); err != nil {
			// The connection keeps retrying on its own; a failed initial
			// dial is not fatal for the pool.
			continue
		}
	}
	return nil
}

// Choose returns the best connected entry. A connected primary always wins;
// otherwise entries sort ascending by score plus base fee quote, ties broken
// by registration order, and the first connected entry is returned. Nil means
// nothing is connected.
func (p *Pool) Choose() transport.Conn {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.primary != nil && p.primary.connected {
		return p.primary.conn
	}

	ranked := make([]*NodeEntry, len(p.entries))
	copy(ranked, p.entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		si := ranked[i].conn.Score() + float64(ranked[i].conn.Quote().FeeBase)
		sj := ranked[j].conn.Score() + float64(ranked[j].conn.Quote().FeeBase)
		if si != sj {
			return si < sj
		}
		return ranked[i].order < ranked[j].order
	})

	for _, e := range ranked {
		if e.connected {
			return e.conn
		}
	}
	return nil
}

// FindByName returns the registered connection with the given name.
func (p *Pool) FindByName(name string) transport.Conn {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, e := range p.entries {
		if e.conn.Name() == name {
			return e.conn
		}
	}
	return nil
}

// Disconnect tears down every connection in the pool.
func (p *Pool) Disconnect() {
	p.mu.RLock()
	entries := make([]*NodeEntry, len(p.entries))
	copy(entries, p.entries)
	p.mu.RUnlock()

	for _, e := range entries {
		e.conn.Disconnect()
	}
}
