package query

import "sync"

// Optimistic is one snapshot/apply/commit-or-revert cycle against a cache
// key. Exactly one of Commit or Revert takes effect; later calls are no-ops.
type Optimistic[T any] struct {
	cache *Cache[T]
	key   string

	mu      sync.Mutex
	prev    T
	had     bool
	settled bool
}

// Begin cancels in-flight fetches for key and snapshots its current value.
func Begin[T any](c *Cache[T], key string) *Optimistic[T] {
	c.Cancel(key)
	prev, had := c.entries.Peek(key)
	return &Optimistic[T]{cache: c, key: key, prev: prev, had: had}
}

// Snapshot returns the value captured by Begin and whether one existed.
func (o *Optimistic[T]) Snapshot() (T, bool) {
	return o.prev, o.had
}

// Apply writes fn(snapshot) to the cache. It does nothing and returns false
// when there was no cached value to update.
func (o *Optimistic[T]) Apply(fn func(T) T) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.settled || !o.had {
		return false
	}
	o.cache.Set(o.key, fn(o.prev))
	return true
}

// Commit keeps the applied value.
func (o *Optimistic[T]) Commit() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.settled = true
}

// Revert restores exactly the snapshot, or removes the entry if there was none.
func (o *Optimistic[T]) Revert() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.settled {
		return
	}
	o.settled = true
	if o.had {
		o.cache.Set(o.key, o.prev)
		return
	}
	o.cache.Invalidate(o.key)
}
