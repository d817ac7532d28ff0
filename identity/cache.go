// Package identity implements the per-entity-type identity cache: a key to
// canonical-instance map that guarantees at most one in-memory representative
// per primary key for as long as the owning session lives.
//
// The cache is a soft, unbounded reference cache. Nothing is ever evicted on
// its own; entries leave only through Remove, Detach or Clear.
package identity

import "sync"

// Cache maps primary keys to the canonical instance for that key. All
// operations are safe for concurrent use; batch callers amortize lock cost by
// taking Lock once and using the *Locked variants for every entry.
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[uint64]*T
}

// New returns an empty cache.
func New[T any]() *Cache[T] {
	return &Cache[T]{entries: make(map[uint64]*T)}
}

// Lock enters the cache's critical section. Callers performing a multi-row
// reconciliation take it once for the whole batch.
func (c *Cache[T]) Lock() { c.mu.Lock() }

// Unlock leaves the critical section.
func (c *Cache[T]) Unlock() { c.mu.Unlock() }

// Get returns the canonical instance for key, or nil if none is cached.
func (c *Cache[T]) Get(key uint64) *T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[key]
}

// GetLocked is Get for callers already holding the lock. Calling it without
// the lock held is a caller contract violation and is not guarded against.
func (c *Cache[T]) GetLocked(key uint64) *T {
	return c.entries[key]
}

// Put makes e the canonical instance for key, replacing any previous entry.
func (c *Cache[T]) Put(key uint64, e *T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = e
}

// PutLocked is Put for callers already holding the lock.
func (c *Cache[T]) PutLocked(key uint64, e *T) {
	c.entries[key] = e
}

// Remove drops the entry for key, if any.
func (c *Cache[T]) Remove(key uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// RemoveKeys drops the entries for all given keys under one lock acquisition.
func (c *Cache[T]) RemoveKeys(keys []uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
	}
}

// Detach removes the entry for key only if the cached instance is e itself,
// and reports whether a removal happened. A stale caller holding a replaced
// instance therefore cannot evict the current canonical one.
func (c *Cache[T]) Detach(key uint64, e *T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries[key] == e {
		delete(c.entries, key)
		return true
	}
	return false
}

// Clear drops every entry. This is the only bulk removal besides explicit
// key removal.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uint64]*T)
}

// ReserveRoom hints that about n more entries are coming. It only pre-sizes
// internal storage and never changes observable behavior. Callers hold the
// lock, as with the other *Locked operations.
func (c *Cache[T]) ReserveRoom(n int) {
	if len(c.entries) == 0 && n > 0 {
		c.entries = make(map[uint64]*T, n)
	}
}

// Len returns the number of cached entries.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
