package remote

import (
	"context"
	"fmt"
)

// requestBuilders resolves string command names to request constructors for
// the convenience dispatch path.
var requestBuilders = map[string]func() *Request{
	"ping":          func() *Request { return NewRequest("ping") },
	"server_info":   func() *Request { return NewRequest("server_info") },
	"server_state":  func() *Request { return NewRequest("server_state") },
	"fee":           func() *Request { return NewRequest("fee") },
	"ledger":        func() *Request { return NewRequest("ledger") },
	"ledger_closed": func() *Request { return NewRequest("ledger_closed") },
	"ledger_current": func() *Request {
		return NewRequest("ledger_current")
	},
	"ledger_entry":  func() *Request { return NewRequest("ledger_entry") },
	"account_info":  func() *Request { return NewRequest("account_info") },
	"account_lines": func() *Request { return NewRequest("account_lines") },
	"account_tx":    func() *Request { return NewRequest("account_tx") },
	"tx":            func() *Request { return NewRequest("tx") },
	"book_offers":   func() *Request { return NewRequest("book_offers") },
	"path_find":     func() *Request { return NewRequest("path_find") },
	"subscribe":     func() *Request { return NewRequest("subscribe") },
	"unsubscribe":   func() *Request { return NewRequest("unsubscribe") },
	"submit":        func() *Request { return NewRequest("submit") },
}

// BuildRequest resolves a command by name, failing with ErrUnknownCommand for
// unresolved names.
func (r *Remote) BuildRequest(name string) (*Request, error) {
	builder, ok := requestBuilders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return builder(), nil
}

// Request resolves a command by name and submits it in one step. The
// returned request carries the failure when the name is unknown.
func (r *Remote) Request(name string) *Request {
	req, err := r.BuildRequest(name)
	if err != nil {
		req = NewRequest(name)
		req.fail(err)
		return req
	}
	r.Submit(req)
	return req
}

// RequestAccountInfo builds and submits an account_info request.
func (r *Remote) RequestAccountInfo(account string) *Request {
	req := NewRequest("account_info").Set("account", account)
	r.Submit(req)
	return req
}

// RequestAccountRoot builds and submits a ledger_entry request for an
// account-root node. Requests against the current ledger consult the
// snapshot cache first and may be answered without reaching the network.
func (r *Remote) RequestAccountRoot(account string) *Request {
	req := NewRequest("ledger_entry").Set("account_root", account)
	r.Submit(req)
	return req
}

// interceptAccountRoot is the router's cache-lookup step for account-root
// ledger-entry requests. When no specific ledger was requested and a
// current-ledger snapshot is cached, a response is synthesized and the
// request completes without dispatch. On a miss the real response populates
// the cache.
func (r *Remote) interceptAccountRoot(req *Request) bool {
	if req.Command != "ledger_entry" {
		return false
	}
	accountVal, ok := req.Get("account_root")
	if !ok {
		return false
	}
	account, ok := accountVal.(string)
	if !ok || account == "" {
		return false
	}
	if _, ok := req.Get("ledger_hash"); ok {
		return false
	}
	if v, ok := req.Get("ledger_index"); ok {
		if s, isString := v.(string); !isString || s != "current" {
			return false
		}
	}

	if node, ok := r.accounts.AccountRoot(account); ok {
		r.metrics.AccountRootHits.Inc()
		req.complete(&Response{
			Result: map[string]any{
				"node":                 node,
				"ledger_current_index": r.ledger.CurrentIndex(),
			},
			Synthesized: true,
		})
		return true
	}

	r.metrics.AccountRootMisses.Inc()
	req.Callback(func(resp *Response, err error) {
		if err != nil || resp == nil {
			return
		}
		node, ok := resp.Result["node"].(map[string]any)
		if !ok {
			return
		}
		owner, ok := node["Account"].(string)
		if !ok || owner == "" {
			return
		}
		r.accounts.SetAccountRoot(owner, node)
	})
	return false
}

// RefreshSequence fetches an account's sequence number with single-flight
// semantics and updates the cache. Concurrent callers for the same account
// share one underlying account_info lookup.
func (r *Remote) RefreshSequence(ctx context.Context, account string) (uint32, error) {
	return r.accounts.RefreshSequence(account, func() (uint32, error) {
		resp, err := r.RequestAccountInfo(account).Wait(ctx)
		if err != nil {
			return 0, err
		}
		data, ok := resp.Result["account_data"].(map[string]any)
		if !ok {
			return 0, NewProtocolError("", "account_info response missing account_data")
		}
		seq, ok := data["Sequence"].(float64)
		if !ok {
			return 0, NewProtocolError("", "account_info response missing Sequence")
		}
		return uint32(seq), nil
	})
}
