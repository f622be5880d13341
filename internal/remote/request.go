package remote

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/LeJamon/goxrpl-remote/internal/transport"
)

// Response is the result of one request.
type Response struct {
	// Result is the decoded result object.
	Result map[string]any

	// Raw is the full response frame as received.
	Raw json.RawMessage

	// Synthesized reports that the response was answered from a local cache
	// without reaching the network.
	Synthesized bool
}

// Request is one outbound call: a command name, a mutable message payload and
// completion signaling. The coordinator attaches routing metadata to it.
type Request struct {
	// Command is the protocol command name.
	Command string

	mu       sync.Mutex
	fields   map[string]any
	server   transport.Conn // pinned server, nil means let the pool choose
	timeout  time.Duration
	done     bool
	resp     *Response
	err      error
	doneCh   chan struct{}
	handlers []func(*Response, error)
}

// NewRequest creates a request for a command.
func NewRequest(command string) *Request {
	return &Request{
		Command: command,
		fields:  make(map[string]any),
		doneCh:  make(chan struct{}),
	}
}

// Set sets one payload field and returns the request for chaining.
func (r *Request) Set(key string, value any) *Request {
	r.mu.Lock()
	r.fields[key] = value
	r.mu.Unlock()
	return r
}

// Get returns one payload field.
func (r *Request) Get(key string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.fields[key]
	return v, ok
}

// SetServer pins the request to an explicit server, bypassing selection.
func (r *Request) SetServer(conn transport.Conn) *Request {
	r.mu.Lock()
	r.server = conn
	r.mu.Unlock()
	return r
}

// SetTimeout records a submission timeout for collaborators to honor; the
// coordinator itself does not enforce it. The router fills in the configured
// default when none was set.
func (r *Request) SetTimeout(d time.Duration) *Request {
	r.mu.Lock()
	r.timeout = d
	r.mu.Unlock()
	return r
}

// Timeout returns the recorded submission timeout.
func (r *Request) Timeout() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timeout
}

// Callback registers a completion handler. Handlers registered after
// completion run immediately with the recorded outcome.
func (r *Request) Callback(fn func(*Response, error)) *Request {
	r.mu.Lock()
	if r.done {
		resp, err := r.resp, r.err
		r.mu.Unlock()
		fn(resp, err)
		return r
	}
	r.handlers = append(r.handlers, fn)
	r.mu.Unlock()
	return r
}

// Wait blocks until the request completes or the context expires.
func (r *Request) Wait(ctx context.Context) (*Response, error) {
	select {
	case <-r.doneCh:
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// encode builds the wire frame for this request under the given id.
func (r *Request) encode(id uint64) ([]byte, error) {
	r.mu.Lock()
	frame := make(map[string]any, len(r.fields)+2)
	for k, v := range r.fields {
		frame[k] = v
	}
	r.mu.Unlock()

	frame["id"] = id
	frame["command"] = r.Command
	return json.Marshal(frame)
}

// pinnedServer returns the explicit server, if any.
func (r *Request) pinnedServer() transport.Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.server
}

// complete resolves the request exactly once with a successful response.
func (r *Request) complete(resp *Response) {
	r.finish(resp, nil)
}

// fail resolves the request exactly once with an error.
func (r *Request) fail(err error) {
	r.finish(nil, err)
}

func (r *Request) finish(resp *Response, err error) {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return
	}
	r.done = true
	r.resp = resp
	r.err = err
	handlers := r.handlers
	r.handlers = nil
	r.mu.Unlock()

	close(r.doneCh)
	for _, fn := range handlers {
		fn(resp, err)
	}
}
