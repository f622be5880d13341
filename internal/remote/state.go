package remote

import (
	"github.com/LeJamon/goxrpl-remote/internal/transport"
)

// ConnectionState is the aggregate online/offline signal for the whole
// remote.
type ConnectionState int

const (
	// StateOffline is the initial state; no node connection is up.
	StateOffline ConnectionState = iota

	// StateOnline means at least one node connection is up.
	StateOnline
)

// String returns the string representation of a ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case StateOffline:
		return "offline"
	case StateOnline:
		return "online"
	default:
		return "unknown"
	}
}

// handleConnUp processes one node connection coming up. The transition to
// online fires exactly when the connected count goes 0 to 1; repeated
// same-state signals from a node are ignored by the pool and never reach
// here.
func (r *Remote) handleConnUp(conn transport.Conn) {
	if !r.pool.MarkConnected(conn, true) {
		return
	}

	count := r.pool.ConnectedCount()
	r.log.WithField("node", conn.Name()).Info("node connected")

	if count == 1 {
		r.transition(StateOnline)
	}
	if count == r.pool.Count() {
		r.registry.emit(Event{Type: EventReady, State: StateOnline})
	}

	r.mu.Lock()
	first := !r.everConnected
	r.everConnected = true
	r.mu.Unlock()
	if first {
		r.resubmitPending()
	}
}

// handleConnDown processes one node connection dropping. The transition to
// offline fires exactly when the connected count goes 1 to 0.
func (r *Remote) handleConnDown(conn transport.Conn, cause error) {
	if !r.pool.MarkConnected(conn, false) {
		return
	}

	r.log.WithField("node", conn.Name()).Info("node disconnected")
	if r.pool.ConnectedCount() == 0 {
		r.transition(StateOffline)
	}
}

// transition flips the aggregate state and emits a state change plus the
// paired semantic events. Re-entering the same state is a no-op.
func (r *Remote) transition(next ConnectionState) {
	r.mu.Lock()
	if r.state == next {
		r.mu.Unlock()
		return
	}
	r.state = next
	r.mu.Unlock()

	r.registry.emit(Event{Type: EventState, State: next})
	switch next {
	case StateOnline:
		r.registry.emit(Event{Type: EventConnect, State: next})
		r.registry.emit(Event{Type: EventConnected, State: next})
		r.onOnline()
	case StateOffline:
		r.registry.emit(Event{Type: EventDisconnect, State: next})
		r.registry.emit(Event{Type: EventDisconnected, State: next})
	}
}

// onOnline runs the side effects of entering the online state: the stream
// subscription is (re)issued and requests queued while offline are replayed
// in FIFO order.
func (r *Remote) onOnline() {
	r.issueSubscribe()

	r.mu.Lock()
	deferred := r.deferred
	r.deferred = nil
	r.mu.Unlock()

	for _, req := range deferred {
		r.Submit(req)
	}
}

// State returns the aggregate connection state.
func (r *Remote) State() ConnectionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}
