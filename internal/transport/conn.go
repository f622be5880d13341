// Package transport implements the client side of the XRPL WebSocket
// protocol: one Conn per network node, delivering connect/disconnect and raw
// message events to the coordinator that owns it.
package transport

import (
	"context"
	"fmt"
	"net"
)

// EventType represents the type of connection event.
type EventType int

const (
	// EventConnected is emitted when the connection to a node is established.
	EventConnected EventType = iota

	// EventDisconnected is emitted when the connection to a node drops.
	EventDisconnected

	// EventMessage is emitted for every inbound payload from a node.
	EventMessage
)

// String returns the string representation of an EventType.
func (e EventType) String() string {
	switch e {
	case EventConnected:
		return "Connected"
	case EventDisconnected:
		return "Disconnected"
	case EventMessage:
		return "Message"
	default:
		return "Unknown"
	}
}

// Event is delivered by a Conn to the coordinator's event channel.
type Event struct {
	// Type is the event type.
	Type EventType

	// Conn is the connection this event relates to.
	Conn Conn

	// Payload is the raw message payload (for Message events).
	Payload []byte

	// Err is set when a disconnect was caused by an error.
	Err error
}

// FeeQuote is a node's latest advertised fee and reserve schedule.
type FeeQuote struct {
	// FeeBase is the base fee in drops.
	FeeBase uint64

	// FeeRef is the reference fee in fee units.
	FeeRef uint64

	// ReserveBase is the account reserve in drops.
	ReserveBase uint64

	// ReserveInc is the per-object owner reserve in drops.
	ReserveInc uint64

	// LoadBase and LoadFactor scale the base fee under server load.
	LoadBase   uint64
	LoadFactor uint64
}

// FeeForUnits converts fee units into drops under the current quote.
func (q FeeQuote) FeeForUnits(units uint64) uint64 {
	if q.FeeRef == 0 {
		return 0
	}
	fee := units * q.FeeBase / q.FeeRef
	if q.LoadBase > 0 && q.LoadFactor > q.LoadBase {
		fee = fee * q.LoadFactor / q.LoadBase
	}
	return fee
}

// Reserve returns the total reserve in drops for an account owning n objects.
func (q FeeQuote) Reserve(ownerCount uint64) uint64 {
	return q.ReserveBase + ownerCount*q.ReserveInc
}

// Conn is one transport session to one network node.
//
// Implementations must emit Connected, Disconnected and Message events on the
// channel supplied at construction, and must stop reconnecting once MarkGone
// has been called.
type Conn interface {
	// Name identifies the node, typically "host:port".
	Name() string

	// Connect establishes the session. It returns once the session is up or
	// the context expires; reconnection after later drops is the
	// implementation's responsibility.
	Connect(ctx context.Context) error

	// Disconnect tears the session down without marking the node gone.
	Disconnect() error

	// Dispatch sends an encoded request frame to the node.
	Dispatch(payload []byte) error

	// Connected reports whether the session is currently up.
	Connected() bool

	// Score is the failover penalty for this node; lower is better.
	Score() float64

	// SetScore overwrites the failover penalty.
	SetScore(score float64)

	// Quote returns the node's latest fee and reserve schedule.
	Quote() FeeQuote

	// SetQuote overwrites the fee and reserve schedule.
	SetQuote(q FeeQuote)

	// MarkGone records a fatal transport condition: the node is permanently
	// unreachable and no reconnection may be attempted.
	MarkGone()

	// Gone reports whether the node has been marked permanently unreachable.
	Gone() bool
}

// Endpoint is a node's network address.
type Endpoint struct {
	Host   string
	Port   uint16
	Secure bool
}

// String returns the endpoint as "host:port".
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, fmt.Sprintf("%d", e.Port))
}

// URL returns the WebSocket URL for the endpoint.
func (e Endpoint) URL() string {
	scheme := "ws"
	if e.Secure {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s", scheme, e.String())
}
