// Package query is a keyed read-through cache for backend reads.
//
// Concurrent fetches of one key share a single request. Every write to a key
// (Set, Cancel, Invalidate) advances the key's generation; a fetch that
// started under an older generation never stores its result, so a slow read
// cannot overwrite a newer optimistic value.
package query

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// ErrCanceled is returned to callers whose shared fetch was cancelled
// through Cancel or Invalidate.
var ErrCanceled = errors.New("query canceled")

// Fetcher loads the value for a key.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Cache stores values per key with a staleness TTL.
type Cache[T any] struct {
	entries *expirable.LRU[string, T]
	group   singleflight.Group

	mu       sync.Mutex
	gen      map[string]uint64
	inflight map[string]*flight
}

type flight struct {
	cancel context.CancelFunc
}

// New creates a cache holding up to size entries, each considered stale
// after ttl. A ttl of zero disables expiry.
func New[T any](size int, ttl time.Duration) *Cache[T] {
	return &Cache[T]{
		entries:  expirable.NewLRU[string, T](size, nil, ttl),
		gen:      make(map[string]uint64),
		inflight: make(map[string]*flight),
	}
}

// Get returns the fresh cached value for key.
func (c *Cache[T]) Get(key string) (T, bool) {
	return c.entries.Get(key)
}

// Set writes value for key and supersedes any in-flight fetch.
func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen[key]++
	c.entries.Add(key, value)
}

// Fetch returns the cached value for key or loads it with fn. Concurrent
// callers for the same key share one call to fn. The shared call is not
// bound to ctx; a caller whose ctx ends stops waiting without cancelling
// the others.
func (c *Cache[T]) Fetch(ctx context.Context, key string, fn Fetcher[T]) (T, error) {
	if v, ok := c.entries.Get(key); ok {
		return v, nil
	}

	c.mu.Lock()
	gen := c.gen[key]
	c.mu.Unlock()

	ch := c.group.DoChan(key, func() (any, error) {
		return c.load(key, gen, fn)
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// load runs fn and stores its result unless key moved past gen meanwhile.
func (c *Cache[T]) load(key string, gen uint64, fn Fetcher[T]) (T, error) {
	fctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.mu.Lock()
	if c.gen[key] != gen {
		c.mu.Unlock()
		var zero T
		return zero, ErrCanceled
	}
	f := &flight{cancel: cancel}
	c.inflight[key] = f
	c.mu.Unlock()

	v, err := fn(fctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight[key] == f {
		delete(c.inflight, key)
	}
	if c.gen[key] != gen {
		var zero T
		if err == nil {
			err = ErrCanceled
		} else if errors.Is(err, context.Canceled) {
			err = ErrCanceled
		}
		return zero, err
	}
	if err != nil {
		var zero T
		return zero, err
	}
	c.entries.Add(key, v)
	return v, nil
}

// Cancel aborts any in-flight fetch for key so its result is discarded.
// The cached value is kept.
func (c *Cache[T]) Cancel(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked(key)
}

func (c *Cache[T]) cancelLocked(key string) {
	c.gen[key]++
	if f, ok := c.inflight[key]; ok {
		f.cancel()
		delete(c.inflight, key)
	}
	c.group.Forget(key)
}

// Invalidate cancels any in-flight fetch and drops the cached value, so the
// next Fetch goes to the backend.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked(key)
	c.entries.Remove(key)
}

// Len returns the number of cached entries, including stale ones not yet
// evicted.
func (c *Cache[T]) Len() int {
	return c.entries.Len()
}
