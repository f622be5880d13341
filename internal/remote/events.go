// Package remote implements the client-side coordinator for an XRPL-like
// ledger network: it owns the server pool, routes requests to a chosen node,
// tracks ledger close progression, de-duplicates and fans out transaction
// notifications, and caches per-account state.
package remote

import (
	"encoding/json"
	"sync"
)

// EventType represents the type of coordinator event.
type EventType int

const (
	// EventState is emitted on every online/offline transition.
	EventState EventType = iota

	// EventConnect and EventConnected are emitted together when the remote
	// transitions to online.
	EventConnect
	EventConnected

	// EventDisconnect and EventDisconnected are emitted together when the
	// remote transitions to offline.
	EventDisconnect
	EventDisconnected

	// EventReady is emitted when all configured nodes are connected.
	EventReady

	// EventLedgerClosed is emitted when a ledger close is accepted.
	EventLedgerClosed

	// EventServerStatus republishes a node's server status message.
	EventServerStatus

	// EventTransaction is emitted for every fanned-out transaction.
	EventTransaction

	// EventTransactionAll is the global transaction feed; it is only emitted
	// while at least one listener is registered for it.
	EventTransactionAll

	// EventPathFindAll republishes path-find updates.
	EventPathFindAll

	// EventSubscribed is emitted when a subscribe request is acknowledged.
	EventSubscribed

	// EventError surfaces protocol errors without stopping the coordinator.
	EventError
)

// String returns the string representation of an EventType.
func (e EventType) String() string {
	switch e {
	case EventState:
		return "state"
	case EventConnect:
		return "connect"
	case EventConnected:
		return "connected"
	case EventDisconnect:
		return "disconnect"
	case EventDisconnected:
		return "disconnected"
	case EventReady:
		return "ready"
	case EventLedgerClosed:
		return "ledger_closed"
	case EventServerStatus:
		return "server_status"
	case EventTransaction:
		return "transaction"
	case EventTransactionAll:
		return "transaction_all"
	case EventPathFindAll:
		return "path_find_all"
	case EventSubscribed:
		return "subscribed"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a coordinator notification delivered to registered listeners.
type Event struct {
	// Type is the event type.
	Type EventType

	// State is the connection state (for state events).
	State ConnectionState

	// Ledger is the accepted close (for ledger_closed events).
	Ledger LedgerClose

	// Message is the raw inbound payload (for server_status, transaction,
	// path_find and subscribed events).
	Message json.RawMessage

	// Err is set for error events.
	Err error
}

// Listener receives coordinator events.
type Listener func(Event)

// Subscription identifies one registered listener.
type Subscription struct {
	reg *registry
	typ EventType
	id  uint64
}

// Cancel removes the listener. Cancelling twice is safe.
func (s *Subscription) Cancel() {
	if s.reg != nil {
		s.reg.remove(s.typ, s.id)
		s.reg = nil
	}
}

// registry is an explicit observer table with per-type listener counts. The
// onCount hook fires after every registration change with the old and new
// counts for that event type, letting the coordinator react to 0<->1
// transitions on the global transaction feed.
type registry struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[EventType]map[uint64]Listener
	onCount   func(typ EventType, old, new int)
}

func newRegistry() *registry {
	return &registry{
		listeners: make(map[EventType]map[uint64]Listener),
	}
}

// add registers a listener for one event type.
func (r *registry) add(typ EventType, fn Listener) *Subscription {
	r.mu.Lock()
	m := r.listeners[typ]
	if m == nil {
		m = make(map[uint64]Listener)
		r.listeners[typ] = m
	}
	old := len(m)
	r.nextID++
	id := r.nextID
	m[id] = fn
	hook := r.onCount
	r.mu.Unlock()

	if hook != nil {
		hook(typ, old, old+1)
	}
	return &Subscription{reg: r, typ: typ, id: id}
}

func (r *registry) remove(typ EventType, id uint64) {
	r.mu.Lock()
	m := r.listeners[typ]
	old := len(m)
	if m != nil {
		delete(m, id)
	}
	now := len(m)
	hook := r.onCount
	r.mu.Unlock()

	if hook != nil && now != old {
		hook(typ, old, now)
	}
}

// count returns the number of listeners for one event type.
func (r *registry) count(typ EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners[typ])
}

// emit delivers an event to every listener registered for its type.
func (r *registry) emit(evt Event) {
	r.mu.Lock()
	fns := make([]Listener, 0, len(r.listeners[evt.Type]))
	for _, fn := range r.listeners[evt.Type] {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(evt)
	}
}
