package remote

import (
	"encoding/json"
	"sync"
)

// PathFind is one live path-find session. At most one session is active per
// remote; creating a new one supersedes the previous session after notifying
// it.
type PathFind struct {
	mu sync.Mutex

	// Source and Destination identify the accounts being pathed between.
	Source      string
	Destination string

	// Amount is the destination amount as the network expresses it.
	Amount any

	updates       chan json.RawMessage
	closed        bool
	wasSuperseded bool
}

// newPathFind creates a session with a buffered update stream.
func newPathFind(source, destination string, amount any) *PathFind {
	return &PathFind{
		Source:      source,
		Destination: destination,
		Amount:      amount,
		updates:     make(chan json.RawMessage, 16),
	}
}

// Updates returns the stream of path-find updates for this session. The
// channel is closed when the session ends.
func (p *PathFind) Updates() <-chan json.RawMessage {
	return p.updates
}

// Superseded reports whether a newer session replaced this one.
func (p *PathFind) Superseded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.wasSuperseded
}

// notify forwards one update, dropping it if the consumer is slow or the
// session already ended.
func (p *PathFind) notify(msg json.RawMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.updates <- msg:
	default:
	}
}

// supersede marks the session replaced and ends its update stream.
func (p *PathFind) supersede() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.wasSuperseded = true
	p.closed = true
	close(p.updates)
}

// Close ends the session's update stream.
func (p *PathFind) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.updates)
}
