package remote

// Stream names for subscribe and unsubscribe requests.
const (
	StreamLedger       = "ledger"
	StreamServer       = "server"
	StreamTransactions = "transactions"
)

// onListenerCount is the registry hook reacting to listener count changes.
// Interest in the global transaction feed is ref-counted: the 0 to 1
// transition subscribes, 1 to 0 unsubscribes. While offline only the counter
// changes; the next online transition's subscribe includes or excludes the
// feed based on the counter then.
func (r *Remote) onListenerCount(typ EventType, old, now int) {
	if typ != EventTransactionAll {
		return
	}
	if r.cfg.MaxListeners > 0 && now > r.cfg.MaxListeners {
		r.log.WithField("listeners", now).Warn("transaction feed listener count above max_listeners")
	}
	if r.State() != StateOnline {
		return
	}

	switch {
	case old == 0 && now > 0:
		r.Submit(NewRequest("subscribe").Set("streams", []string{StreamTransactions}))
	case old > 0 && now == 0:
		r.Submit(NewRequest("unsubscribe").Set("streams", []string{StreamTransactions}))
	}
}

// prepareSubscribe builds the subscribe request issued on every online
// transition. The ledger and server feeds are always included; the global
// transaction feed only while listeners are registered for it.
func (r *Remote) prepareSubscribe() *Request {
	streams := []string{StreamLedger, StreamServer}
	if r.registry.count(EventTransactionAll) > 0 {
		streams = append(streams, StreamTransactions)
	}
	return NewRequest("subscribe").Set("streams", streams)
}

// issueSubscribe submits the prepared subscribe request.
func (r *Remote) issueSubscribe() {
	r.Submit(r.prepareSubscribe())
}
