package golite

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheCapacity is the statement cache capacity used when Open is
// not given WithCacheCapacity.
const DefaultCacheCapacity = 16

// stmtCache holds finalizable prepared statements keyed by their SQL text.
// Checking a statement out transfers ownership to the caller and removes it
// from the cache, so eviction only ever touches resident entries; returning
// it reinserts it as most-recently-used, which may evict (and finalize) the
// least-recently-used resident. Confined to the owning connection; no
// locking.
type stmtCache struct {
	lru *lru.Cache[string, *Stmt]
}

func newStmtCache(capacity int) *stmtCache {
	if capacity <= 0 {
		return &stmtCache{}
	}
	c, err := lru.NewWithEvict(capacity, finalizeEvicted)
	if err != nil {
		return &stmtCache{}
	}
	return &stmtCache{lru: c}
}

// finalizeEvicted runs for every entry leaving the recency list. Checkout
// removes entries through the same path, so borrowed statements are skipped
// and finalized by their new owner instead.
func finalizeEvicted(_ string, s *Stmt) {
	if s.borrowed {
		return
	}
	s.raw.Finalize()
}

// get checks out the statement prepared from sql, if resident.
func (c *stmtCache) get(sql string) (*Stmt, bool) {
	if c.lru == nil {
		return nil, false
	}
	s, ok := c.lru.Get(sql)
	if !ok {
		return nil, false
	}
	s.borrowed = true
	c.lru.Remove(sql)
	return s, true
}

// put returns a checked-out statement. If another statement prepared from
// the same SQL was returned first, the resident one wins and the returned
// one is finalized.
func (c *stmtCache) put(s *Stmt) {
	if c.lru == nil || c.lru.Contains(s.sql) {
		s.raw.Finalize()
		return
	}
	s.raw.Reset()
	s.raw.ClearBindings()
	s.borrowed = false
	c.lru.Add(s.sql, s)
}

// resize changes the capacity, finalizing evicted residents immediately
// when shrinking. Non-positive capacity empties and disables the cache.
func (c *stmtCache) resize(capacity int) {
	if capacity <= 0 {
		c.clear()
		c.lru = nil
		return
	}
	if c.lru == nil {
		*c = *newStmtCache(capacity)
		return
	}
	c.lru.Resize(capacity)
}

// clear evicts and finalizes every resident entry.
func (c *stmtCache) clear() {
	if c.lru != nil {
		c.lru.Purge()
	}
}

// len reports the number of resident entries. Checked-out statements are
// not resident and do not count.
func (c *stmtCache) len() int {
	if c.lru == nil {
		return 0
	}
	return c.lru.Len()
}
