package remote

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultDedupCapacity is the bounded recency of the seen-transaction cache.
const DefaultDedupCapacity = 100

// DedupCache remembers the hashes of validated transactions so each one is
// delivered at most once. Capacity is fixed; the least recently seen hash is
// evicted first, after which a re-delivery of it is treated as new.
type DedupCache struct {
	seen *lru.Cache[string, struct{}]
}

// NewDedupCache creates a cache with the given capacity, falling back to
// DefaultDedupCapacity when it is not positive.
func NewDedupCache(capacity int) (*DedupCache, error) {
	if capacity <= 0 {
		capacity = DefaultDedupCapacity
	}
	seen, err := lru.New[string, struct{}](capacity)
	if err != nil {
		return nil, err
	}
	return &DedupCache{seen: seen}, nil
}

// Seen reports whether the hash was recorded as validated, refreshing its
// recency on a hit.
func (c *DedupCache) Seen(hash string) bool {
	_, ok := c.seen.Get(hash)
	return ok
}

// Record inserts a validated hash, evicting the least recent entry when over
// capacity. Unvalidated sightings are never recorded.
func (c *DedupCache) Record(hash string) {
	c.seen.Add(hash, struct{}{})
}

// Len returns the number of recorded hashes.
func (c *DedupCache) Len() int {
	return c.seen.Len()
}
