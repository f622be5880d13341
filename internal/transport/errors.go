package transport

import (
	"errors"
	"fmt"
)

// Sentinel errors for transport operations.
var (
	ErrAlreadyConnected = errors.New("already connected to node")
	ErrNotConnected     = errors.New("not connected to node")
	ErrConnClosed       = errors.New("connection closed")
	ErrNodeGone         = errors.New("node marked permanently unreachable")
	ErrSendQueueFull    = errors.New("send queue full")
)

// ConnError wraps an error with node endpoint context.
type ConnError struct {
	Endpoint Endpoint
	Op       string
	Err      error
}

// Error returns the error message.
func (e *ConnError) Error() string {
	return fmt.Sprintf("node %s: %s: %v", e.Endpoint.String(), e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConnError) Unwrap() error {
	return e.Err
}

// NewConnError creates a ConnError.
func NewConnError(endpoint Endpoint, op string, err error) *ConnError {
	return &ConnError{Endpoint: endpoint, Op: op, Err: err}
}
