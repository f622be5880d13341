package remote

import (
	"errors"
	"fmt"
)

// Sentinel errors for request routing and cache operations.
var (
	// Routing errors, delivered to the failing Request. ErrNoServers means
	// no server is registered at all; ErrNoServerConnected means servers
	// exist but none is currently connected.
	ErrNoServers         = errors.New("no servers available")
	ErrNoServerConnected = errors.New("no server connected")
	ErrServerNotFound    = errors.New("server does not exist")
	ErrUnknownCommand    = errors.New("command does not exist")

	// ErrSequenceUnknown is returned by Sequence when no value has been
	// cached for the account yet; callers must refresh first.
	ErrSequenceUnknown = errors.New("account sequence unknown")

	// ErrClosed is returned once the remote has been shut down.
	ErrClosed = errors.New("remote is closed")

	// ErrRequestNil flags a submitted nil request; the router drops the
	// request and logs this error, since there is nothing to fail.
	ErrRequestNil = errors.New("request is nil")
)

// APIError is an error reported by the network node in a response.
type APIError struct {
	Code    string
	Message string
}

// Error returns the error message.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote error %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("remote error %s", e.Code)
}

// ProtocolError describes a malformed or non-conforming inbound message. It
// is surfaced as a coordinator-level error event; the message is dropped.
type ProtocolError struct {
	Node   string
	Reason string
}

// Error returns the error message.
func (e *ProtocolError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("unexpected response from %s: %s", e.Node, e.Reason)
	}
	return fmt.Sprintf("unexpected response: %s", e.Reason)
}

// NewProtocolError creates a ProtocolError.
func NewProtocolError(node, reason string) *ProtocolError {
	return &ProtocolError{Node: node, Reason: reason}
}
