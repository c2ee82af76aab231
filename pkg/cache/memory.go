package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type memoryConfig struct {
	defaultTTL      time.Duration
	cleanupInterval time.Duration
	maxEntries      int
}

// MemoryConfig configures NewMemory. Zero values pick the defaults:
// one hour TTL, one minute cleanup, no entry limit.
type MemoryConfig struct {
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
	// MaxEntries bounds the cache; the least recently used entry is evicted.
	MaxEntries int
}

type memEntry[V any] struct {
	expiresAt time.Time
	value     V
	key       string
}

// Memory is a process-local cache with TTL expiry and optional LRU bound.
type Memory[V any] struct {
	items map[string]*list.Element
	lru   *list.List
	cfg   memoryConfig
	now   func() time.Time
	done  chan struct{}
	mu    sync.Mutex

	closed bool
}

// NewMemory creates an in-memory cache. A background goroutine removes
// expired entries until Close is called.
func NewMemory[V any](cfg MemoryConfig) *Memory[V] {
	c := memoryConfig{
		defaultTTL:      cfg.DefaultTTL,
		cleanupInterval: cfg.CleanupInterval,
		maxEntries:      cfg.MaxEntries,
	}
	if c.defaultTTL == 0 {
		c.defaultTTL = time.Hour
	}
	if c.cleanupInterval == 0 {
		c.cleanupInterval = time.Minute
	}

	m := &Memory[V]{
		items: make(map[string]*list.Element),
		lru:   list.New(),
		cfg:   c,
		now:   time.Now,
		done:  make(chan struct{}),
	}
	if c.cleanupInterval > 0 {
		go m.janitor()
	}
	return m
}

func (m *Memory[V]) expired(e *memEntry[V]) bool {
	return !e.expiresAt.IsZero() && m.now().After(e.expiresAt)
}

// Get implements Cache.
func (m *Memory[V]) Get(_ context.Context, key string) (V, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	elem, ok := m.items[key]
	if !ok {
		return zero, ErrNotFound
	}
	e := elem.Value.(*memEntry[V])
	if m.expired(e) {
		m.remove(elem)
		return zero, ErrNotFound
	}
	m.lru.MoveToFront(elem)
	return e.value, nil
}

// Set implements Cache.
func (m *Memory[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if ttl == 0 {
		ttl = m.cfg.defaultTTL
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = m.now().Add(ttl)
	}

	if elem, ok := m.items[key]; ok {
		e := elem.Value.(*memEntry[V])
		e.value, e.expiresAt = value, expiresAt
		m.lru.MoveToFront(elem)
		return nil
	}

	if m.cfg.maxEntries > 0 && len(m.items) >= m.cfg.maxEntries {
		if oldest := m.lru.Back(); oldest != nil {
			m.remove(oldest)
		}
	}
	m.items[key] = m.lru.PushFront(&memEntry[V]{key: key, value: value, expiresAt: expiresAt})
	return nil
}

// Delete implements Cache.
func (m *Memory[V]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if elem, ok := m.items[key]; ok {
		m.remove(elem)
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Close stops the janitor. It is idempotent.
func (m *Memory[V]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

func (m *Memory[V]) janitor() {
	ticker := time.NewTicker(m.cfg.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Memory[V]) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for elem := m.lru.Back(); elem != nil; {
		prev := elem.Prev()
		if m.expired(elem.Value.(*memEntry[V])) {
			m.remove(elem)
		}
		elem = prev
	}
}

// remove must be called with the mutex held.
func (m *Memory[V]) remove(elem *list.Element) {
	m.lru.Remove(elem)
	delete(m.items, elem.Value.(*memEntry[V]).key)
}

var _ Cache[any] = (*Memory[any])(nil)
