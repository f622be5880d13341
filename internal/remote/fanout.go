package remote

import (
	"encoding/json"
	"fmt"

	"github.com/LeJamon/goxrpl-remote/internal/transport"
)

// transactionMsg is the shape of an inbound transaction notification.
type transactionMsg struct {
	Validated   bool           `json:"validated"`
	Transaction map[string]any `json:"transaction"`
	Meta        *txMeta        `json:"meta"`
}

type txMeta struct {
	AffectedNodes []affectedNode `json:"AffectedNodes"`
}

type affectedNode struct {
	Created  *nodeFields `json:"CreatedNode"`
	Modified *nodeFields `json:"ModifiedNode"`
	Deleted  *nodeFields `json:"DeletedNode"`
}

type nodeFields struct {
	LedgerEntryType string         `json:"LedgerEntryType"`
	FinalFields     map[string]any `json:"FinalFields"`
	NewFields       map[string]any `json:"NewFields"`
}

// fields returns whichever field set the node carries.
func (n *affectedNode) fields() *nodeFields {
	switch {
	case n.Created != nil:
		return n.Created
	case n.Modified != nil:
		return n.Modified
	case n.Deleted != nil:
		return n.Deleted
	default:
		return nil
	}
}

// handleTransaction de-duplicates a transaction notification and fans it out
// to interested account and order-book notifiers, at most once per hash once
// validated.
func (r *Remote) handleTransaction(conn transport.Conn, payload []byte) {
	var msg transactionMsg
	if err := json.Unmarshal(payload, &msg); err != nil {
		r.protocolError(conn, fmt.Sprintf("malformed transaction: %v", err))
		return
	}

	hash, _ := msg.Transaction["hash"].(string)
	if hash == "" {
		r.protocolError(conn, "transaction missing hash")
		return
	}

	if r.dedup.Seen(hash) {
		r.metrics.DedupSuppressed.Inc()
		return
	}
	if msg.Validated {
		r.dedup.Record(hash)
	}

	accounts, books := affectedKeys(msg)
	r.notifyInterested(accounts, books, payload)

	r.registry.emit(Event{Type: EventTransaction, Message: payload})
	if r.registry.count(EventTransactionAll) > 0 {
		r.registry.emit(Event{Type: EventTransactionAll, Message: payload})
	}
}

// affectedKeys derives the affected account and order-book keys. With ledger
// metadata the full affected set is used; without it (a proposed transaction
// from a pre-consensus stream) only the direct source and destination are.
func affectedKeys(msg transactionMsg) (accounts []string, books []string) {
	if msg.Meta == nil {
		if src, ok := msg.Transaction["Account"].(string); ok && src != "" {
			accounts = append(accounts, src)
		}
		if dst, ok := msg.Transaction["Destination"].(string); ok && dst != "" {
			accounts = append(accounts, dst)
		}
		return accounts, nil
	}

	seenAccounts := make(map[string]bool)
	seenBooks := make(map[string]bool)
	for _, node := range msg.Meta.AffectedNodes {
		f := node.fields()
		if f == nil {
			continue
		}
		for _, key := range []string{"Account", "Owner", "Destination"} {
			fieldSet := f.FinalFields
			if fieldSet == nil {
				fieldSet = f.NewFields
			}
			if fieldSet == nil {
				continue
			}
			if acct, ok := fieldSet[key].(string); ok && acct != "" && !seenAccounts[acct] {
				seenAccounts[acct] = true
				accounts = append(accounts, acct)
			}
		}
		if f.LedgerEntryType == "Offer" {
			fieldSet := f.FinalFields
			if fieldSet == nil {
				fieldSet = f.NewFields
			}
			if fieldSet == nil {
				continue
			}
			key := BookKey(fieldSet["TakerGets"], fieldSet["TakerPays"])
			if key != "" && !seenBooks[key] {
				seenBooks[key] = true
				books = append(books, key)
			}
		}
	}
	return accounts, books
}

// BookKey builds the canonical order-book key for a gets/pays amount pair.
// Native amounts (expressed as a plain string of drops) key as "XRP".
func BookKey(gets, pays any) string {
	g := currencyKey(gets)
	p := currencyKey(pays)
	if g == "" || p == "" {
		return ""
	}
	return g + ":" + p
}

func currencyKey(amount any) string {
	switch v := amount.(type) {
	case string:
		return "XRP"
	case map[string]any:
		currency, _ := v["currency"].(string)
		issuer, _ := v["issuer"].(string)
		if currency == "" {
			return ""
		}
		if issuer == "" {
			return currency
		}
		return currency + "/" + issuer
	default:
		return ""
	}
}

// notifyInterested invokes the registered notifiers for the affected keys.
func (r *Remote) notifyInterested(accounts, books []string, payload []byte) {
	r.mu.Lock()
	var targets []Notifier
	for _, acct := range accounts {
		if n, ok := r.accountNotifiers[acct]; ok {
			targets = append(targets, n)
		}
	}
	for _, book := range books {
		if n, ok := r.bookNotifiers[book]; ok {
			targets = append(targets, n)
		}
	}
	r.mu.Unlock()

	for _, n := range targets {
		n.Notify(payload)
	}
}
