// Package cache memoizes pairwise compatibility results keyed by the
// pair's input-vector fingerprint. Entries are immutable once written:
// a profile change bumps its vector version, which produces a new key,
// so stale entries simply age out of the LRU instead of being
// invalidated explicitly.
package cache

import (
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Defaults applied when the configured values are non-positive.
const (
	DefaultCapacity = 4096
	DefaultTTL      = 15 * time.Minute
)

// PairKey identifies one scored pair at specific vector versions. Keys
// are order-independent: NewPairKey sorts the pair so (A,B) and (B,A)
// hit the same entry.
type PairKey struct {
	UserA    string
	UserB    string
	VersionA int64
	VersionB int64
}

// NewPairKey builds an order-independent key for a pair of users at
// their current vector versions.
func NewPairKey(idA string, versionA int64, idB string, versionB int64) PairKey {
	if idB < idA {
		idA, idB = idB, idA
		versionA, versionB = versionB, versionA
	}
	return PairKey{UserA: idA, UserB: idB, VersionA: versionA, VersionB: versionB}
}

// PairCache is a bounded LRU with TTL expiry over immutable pair
// results. Safe for concurrent use.
type PairCache[V any] struct {
	lru    *expirable.LRU[PairKey, V]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewPairCache creates a PairCache with the given capacity and TTL.
// Non-positive values fall back to the package defaults.
func NewPairCache[V any](capacity int, ttl time.Duration) *PairCache[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PairCache[V]{
		lru: expirable.NewLRU[PairKey, V](capacity, nil, ttl),
	}
}

// Get returns the cached result for the key, if present and unexpired.
func (c *PairCache[V]) Get(key PairKey) (V, bool) {
	value, ok := c.lru.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return value, ok
}

// Add stores a result for the key.
func (c *PairCache[V]) Add(key PairKey, value V) {
	c.lru.Add(key, value)
}

// Len returns the number of live entries.
func (c *PairCache[V]) Len() int {
	return c.lru.Len()
}

// Purge drops every entry.
func (c *PairCache[V]) Purge() {
	c.lru.Purge()
}

// Stats returns the cumulative hit and miss counts.
func (c *PairCache[V]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
