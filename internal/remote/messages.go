package remote

import (
	"encoding/json"
	"fmt"

	"github.com/LeJamon/goxrpl-remote/internal/transport"
)

// inboundShell is the discriminant envelope of every node message.
type inboundShell struct {
	Type         string `json:"type"`
	ID           uint64 `json:"id"`
	Status       string `json:"status"`
	ErrorCode    string `json:"error"`
	ErrorMessage string `json:"error_message"`
}

// ledgerClosedMsg is the required-field schema of a ledger close notice.
// Pointer fields distinguish absent from zero.
type ledgerClosedMsg struct {
	FeeBase     *uint64 `json:"fee_base"`
	FeeRef      *uint64 `json:"fee_ref"`
	LedgerHash  *string `json:"ledger_hash"`
	LedgerIndex *uint32 `json:"ledger_index"`
	LedgerTime  *uint64 `json:"ledger_time"`
	ReserveBase *uint64 `json:"reserve_base"`
	ReserveInc  *uint64 `json:"reserve_inc"`
	TxnCount    *uint64 `json:"txn_count"`
}

// complete reports whether every required field is present.
func (m *ledgerClosedMsg) complete() bool {
	return m.FeeBase != nil && m.FeeRef != nil && m.LedgerHash != nil &&
		m.LedgerIndex != nil && m.LedgerTime != nil &&
		m.ReserveBase != nil && m.ReserveInc != nil && m.TxnCount != nil
}

// serverStatusMsg carries the load fields of a server status notice.
type serverStatusMsg struct {
	LoadBase   uint64 `json:"load_base"`
	LoadFactor uint64 `json:"load_factor"`
}

// handleMessage parses one inbound payload and dispatches it by type.
// Malformed payloads raise an error event; the handler never crashes and
// unknown types are ignored for forward compatibility.
func (r *Remote) handleMessage(conn transport.Conn, payload []byte) {
	var shell inboundShell
	if err := json.Unmarshal(payload, &shell); err != nil {
		r.protocolError(conn, fmt.Sprintf("malformed payload: %v", err))
		return
	}
	if shell.Type == "" {
		r.protocolError(conn, "missing message type")
		return
	}
	r.metrics.MessagesReceived.WithLabelValues(shell.Type).Inc()

	switch shell.Type {
	case "response":
		r.handleResponse(conn, shell, payload)
	case "ledgerClosed":
		r.handleLedgerClosed(conn, payload)
	case "serverStatus":
		r.handleServerStatus(conn, payload)
	case "transaction":
		r.handleTransaction(conn, payload)
	case "find_path", "path_find":
		r.handlePathFindUpdate(payload)
	default:
		// Unknown types are ignored.
	}
}

// protocolError surfaces a malformed message as a coordinator error event and
// drops the message.
func (r *Remote) protocolError(conn transport.Conn, reason string) {
	r.metrics.MessagesDropped.Inc()
	err := NewProtocolError(conn.Name(), reason)
	r.log.WithField("error", err).Warn("dropped inbound message")
	r.registry.emit(Event{Type: EventError, Err: err})
}

// handleResponse correlates a response with its in-flight request.
func (r *Remote) handleResponse(conn transport.Conn, shell inboundShell, payload []byte) {
	req := r.takeInflight(shell.ID)
	if req == nil {
		return
	}

	if shell.Status != "success" {
		req.fail(&APIError{Code: shell.ErrorCode, Message: shell.ErrorMessage})
		return
	}

	var body struct {
		Result map[string]any `json:"result"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		req.fail(NewProtocolError(conn.Name(), fmt.Sprintf("malformed response result: %v", err)))
		return
	}

	if req.Command == "subscribe" {
		r.applyBundledLedgerClose(conn, body.Result)
		r.registry.emit(Event{Type: EventSubscribed, Message: payload})
	}

	req.complete(&Response{Result: body.Result, Raw: payload})
}

// handleLedgerClosed validates a ledger close notice against its schema and
// applies it under the monotonic guard.
func (r *Remote) handleLedgerClosed(conn transport.Conn, payload []byte) {
	var msg ledgerClosedMsg
	if err := json.Unmarshal(payload, &msg); err != nil {
		r.protocolError(conn, fmt.Sprintf("malformed ledger close: %v", err))
		return
	}
	if !msg.complete() {
		r.protocolError(conn, "ledger close missing required fields")
		return
	}
	r.applyLedgerClose(conn, msg, payload)
}

// applyBundledLedgerClose applies a ledger close notice arriving inside a
// subscribe acknowledgment, under the same acceptance rule.
func (r *Remote) applyBundledLedgerClose(conn transport.Conn, result map[string]any) {
	encoded, err := json.Marshal(result)
	if err != nil {
		return
	}
	var msg ledgerClosedMsg
	if err := json.Unmarshal(encoded, &msg); err != nil {
		return
	}
	if !msg.complete() {
		return
	}
	r.applyLedgerClose(conn, msg, encoded)
}

// applyLedgerClose advances the tracker, refreshes the node's fee quote and
// emits a ledger_closed event. Stale closes are dropped silently.
func (r *Remote) applyLedgerClose(conn transport.Conn, msg ledgerClosedMsg, payload []byte) {
	closeInfo := LedgerClose{
		Index:    *msg.LedgerIndex,
		Hash:     *msg.LedgerHash,
		Time:     *msg.LedgerTime,
		FeeBase:  *msg.FeeBase,
		FeeRef:   *msg.FeeRef,
		TxnCount: *msg.TxnCount,
	}
	if !r.ledger.Advance(closeInfo) {
		r.log.WithField("ledger_index", closeInfo.Index).Debug("stale ledger close ignored")
		return
	}

	quote := conn.Quote()
	quote.FeeBase = *msg.FeeBase
	quote.FeeRef = *msg.FeeRef
	quote.ReserveBase = *msg.ReserveBase
	quote.ReserveInc = *msg.ReserveInc
	conn.SetQuote(quote)

	r.log.WithField("ledger_index", closeInfo.Index).Debug("ledger closed")
	r.registry.emit(Event{Type: EventLedgerClosed, Ledger: closeInfo, Message: payload})
}

// handleServerStatus refreshes the node's load factors and republishes the
// message verbatim.
func (r *Remote) handleServerStatus(conn transport.Conn, payload []byte) {
	var msg serverStatusMsg
	if err := json.Unmarshal(payload, &msg); err == nil && msg.LoadBase > 0 {
		quote := conn.Quote()
		quote.LoadBase = msg.LoadBase
		quote.LoadFactor = msg.LoadFactor
		conn.SetQuote(quote)
	}
	r.registry.emit(Event{Type: EventServerStatus, Message: payload})
}

// handlePathFindUpdate forwards a path-find update to the active session and
// republishes it as a generic event.
func (r *Remote) handlePathFindUpdate(payload []byte) {
	r.mu.Lock()
	session := r.activePathFind
	r.mu.Unlock()

	if session != nil {
		session.notify(payload)
	}
	r.registry.emit(Event{Type: EventPathFindAll, Message: payload})
}
