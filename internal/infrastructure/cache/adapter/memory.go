package adapter

import (
	"context"
	"sync"
	"time"

	"go-chatsync/internal/infrastructure/cache/port"
)

// MemoryCache is a process-local port.Cache for single-node runs and tests.
// Expired keys are dropped lazily on read.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

type memoryItem struct {
	value   string
	expires time.Time
}

func NewMemoryCache(now func() time.Time) *MemoryCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{items: make(map[string]memoryItem), now: now}
}

var _ port.Cache = (*MemoryCache)(nil)

func (m *MemoryCache) lookup(key string) (string, bool) {
	it, ok := m.items[key]
	if !ok {
		return "", false
	}
	if !it.expires.IsZero() && !m.now().Before(it.expires) {
		delete(m.items, key)
		return "", false
	}
	return it.value, true
}

func (m *MemoryCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.lookup(key)
	if !ok {
		return "", port.ErrMiss
	}
	return v, nil
}

func (m *MemoryCache) MGet(ctx context.Context, keys ...string) ([]port.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]port.Entry, len(keys))
	for i, k := range keys {
		v, ok := m.lookup(k)
		out[i] = port.Entry{Value: v, OK: ok}
	}
	return out, nil
}

func (m *MemoryCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := memoryItem{value: value}
	if ttl > 0 {
		it.expires = m.now().Add(ttl)
	}
	m.items[key] = it
	return nil
}

func (m *MemoryCache) Del(ctx context.Context, keys ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := m.lookup(k); ok {
			delete(m.items, k)
			n++
		}
	}
	return n, nil
}

func (m *MemoryCache) Ping(ctx context.Context) error { return nil }

func (m *MemoryCache) Close() error { return nil }
