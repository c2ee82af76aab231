package cache

import (
	"context"
	"errors"
	"time"
)

// Layered reads through a fast local cache into a shared one. Hits in the
// shared cache are copied into the local cache with the local TTL.
type Layered[V any] struct {
	local    Cache[V]
	shared   Cache[V]
	localTTL time.Duration
}

// NewLayered combines a local and a shared cache.
func NewLayered[V any](local, shared Cache[V], localTTL time.Duration) *Layered[V] {
	return &Layered[V]{local: local, shared: shared, localTTL: localTTL}
}

// Get implements Cache.
func (l *Layered[V]) Get(ctx context.Context, key string) (V, error) {
	if v, err := l.local.Get(ctx, key); err == nil {
		return v, nil
	}
	v, err := l.shared.Get(ctx, key)
	if err != nil {
		return v, err
	}
	_ = l.local.Set(ctx, key, v, l.localTTL)
	return v, nil
}

// Set implements Cache. The shared cache gets ttl, the local one the
// shorter of ttl and the local TTL.
func (l *Layered[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	localTTL := l.localTTL
	if ttl > 0 && (localTTL <= 0 || ttl < localTTL) {
		localTTL = ttl
	}
	return errors.Join(
		l.local.Set(ctx, key, value, localTTL),
		l.shared.Set(ctx, key, value, ttl),
	)
}

// Delete implements Cache.
func (l *Layered[V]) Delete(ctx context.Context, key string) error {
	return errors.Join(l.local.Delete(ctx, key), l.shared.Delete(ctx, key))
}

// Close closes both layers.
func (l *Layered[V]) Close() error {
	return errors.Join(l.local.Close(), l.shared.Close())
}

var _ Cache[any] = (*Layered[any])(nil)
