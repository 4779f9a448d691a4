package cache

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Loader produces a value for a cache miss.
type Loader[V any] func(ctx context.Context) (V, error)

// Group fronts a Cache and collapses concurrent misses for the same key into
// one Loader call. Failed loads are not cached.
type Group[V any] struct {
	mu     sync.RWMutex
	cache  Cache[string, V]
	flight singleflight.Group
}

// NewGroup wraps c. A nil cache disables storage but keeps call coalescing.
func NewGroup[V any](c Cache[string, V]) *Group[V] {
	return &Group[V]{cache: c}
}

// SetCache swaps the underlying cache; nil disables storage.
func (g *Group[V]) SetCache(c Cache[string, V]) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cache = c
}

// Cache returns the underlying cache, which may be nil.
func (g *Group[V]) Cache() Cache[string, V] {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cache
}

// Get returns the cached value for key or loads it. shared reports whether the
// value came from the cache or from a load started by another caller.
//
// The load runs detached from the caller's cancellation so that one canceled
// caller does not fail the others waiting on the same key; a canceled caller
// returns ctx.Err() immediately.
func (g *Group[V]) Get(ctx context.Context, key string, load Loader[V]) (v V, shared bool, err error) {
	c := g.Cache()
	if c != nil {
		if v, ok := c.Get(key); ok {
			return v, true, nil
		}
	}

	ch := g.flight.DoChan(key, func() (any, error) {
		v, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if c != nil {
			c.Put(key, v)
		}
		return v, nil
	})

	var zero V
	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Shared, res.Err
		}
		v, ok := res.Val.(V)
		if !ok {
			return zero, res.Shared, fmt.Errorf("%w: unexpected %T", ErrTypeMismatch, res.Val)
		}
		return v, res.Shared, nil
	}
}

// Forget drops key from the cache and from in-flight tracking.
func (g *Group[V]) Forget(key string) {
	if c := g.Cache(); c != nil {
		c.Remove(key)
	}
	g.flight.Forget(key)
}
