package remote

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultAccountRootCapacity bounds the current-ledger account-root snapshot
// cache.
const DefaultAccountRootCapacity = 256

// SequenceAdvance selects how Sequence mutates the stored value after
// returning it.
type SequenceAdvance int

const (
	// SequenceNone reads the value without mutating it.
	SequenceNone SequenceAdvance = iota

	// SequenceAdvanceNext increments the stored value by one, reserving the
	// returned sequence for an outgoing operation.
	SequenceAdvanceNext

	// SequenceRewind decrements the stored value by one, releasing a
	// previously reserved sequence.
	SequenceRewind
)

type accountEntry struct {
	sequence uint32
	known    bool
}

// AccountCache holds per-account sequence numbers with single-flight refresh
// and a current-ledger account-root snapshot cache with explicit
// invalidation.
type AccountCache struct {
	mu      sync.Mutex
	entries map[string]*accountEntry
	flight  singleflight.Group
	roots   *lru.Cache[string, map[string]any]
}

// NewAccountCache creates an empty cache.
func NewAccountCache() (*AccountCache, error) {
	roots, err := lru.New[string, map[string]any](DefaultAccountRootCapacity)
	if err != nil {
		return nil, err
	}
	return &AccountCache{
		entries: make(map[string]*accountEntry),
		roots:   roots,
	}, nil
}

// Sequence returns the cached sequence for an account, atomically applying
// the advance mode after reading. The returned value is the pre-mutation one.
// ErrSequenceUnknown is returned when nothing is cached yet.
func (c *AccountCache) Sequence(account string, adv SequenceAdvance) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[account]
	if !ok || !entry.known {
		return 0, ErrSequenceUnknown
	}

	seq := entry.sequence
	switch adv {
	case SequenceAdvanceNext:
		entry.sequence++
	case SequenceRewind:
		entry.sequence--
	}
	return seq, nil
}

// SetSequence overwrites the cached sequence unconditionally, used after a
// confirmed refresh.
func (c *AccountCache) SetSequence(account string, sequence uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[account]
	if !ok {
		entry = &accountEntry{}
		c.entries[account] = entry
	}
	entry.sequence = sequence
	entry.known = true
}

// RefreshSequence fetches the account's sequence with single-flight
// semantics: concurrent callers for the same account coalesce onto one
// underlying fetch and all receive its outcome. On success the cached value
// is overwritten; on failure nothing is poisoned and a later call retries.
func (c *AccountCache) RefreshSequence(account string, fetch func() (uint32, error)) (uint32, error) {
	v, err, _ := c.flight.Do(account, func() (any, error) {
		seq, err := fetch()
		if err != nil {
			return uint32(0), err
		}
		c.SetSequence(account, seq)
		return seq, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(uint32), nil
}

// AccountRoot returns the cached current-ledger account-root snapshot.
func (c *AccountCache) AccountRoot(account string) (map[string]any, bool) {
	return c.roots.Get(account)
}

// SetAccountRoot stores a current-ledger account-root snapshot.
func (c *AccountCache) SetAccountRoot(account string, node map[string]any) {
	c.roots.Add(account, node)
}

// DirtyAccountRoot explicitly evicts one snapshot, used after an operation is
// known to have changed the account. Snapshots are not invalidated on ledger
// close; callers own that trade-off.
func (c *AccountCache) DirtyAccountRoot(account string) {
	c.roots.Remove(account)
}
