package remote

import "sync"

// LedgerClose describes one accepted ledger close.
type LedgerClose struct {
	Index    uint32
	Hash     string
	Time     uint64
	FeeBase  uint64
	FeeRef   uint64
	TxnCount uint64
}

// LedgerTracker holds the last known closed ledger and only accepts
// monotonically advancing updates.
type LedgerTracker struct {
	mu sync.RWMutex

	closed  LedgerClose
	current uint32 // index the network is building, last closed + 1
	seen    bool
}

// NewLedgerTracker creates an empty tracker; the first close is always
// accepted.
func NewLedgerTracker() *LedgerTracker {
	return &LedgerTracker{}
}

// Advance applies a ledger close. It is accepted only if the close index is
// at least the current building index; stale or out-of-order closes return
// false and leave the tracker untouched.
func (t *LedgerTracker) Advance(c LedgerClose) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.seen && c.Index < t.current {
		return false
	}
	t.closed = c
	t.current = c.Index + 1
	t.seen = true
	return true
}

// Closed returns the last accepted close and whether one has been seen.
func (t *LedgerTracker) Closed() (LedgerClose, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed, t.seen
}

// CurrentIndex returns the index of the ledger the network is currently
// building, zero before any close has been seen.
func (t *LedgerTracker) CurrentIndex() uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}
