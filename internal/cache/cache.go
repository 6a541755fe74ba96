// Package cache stores rendered profile pages between requests.
//
// The profile service only sees the Cache interface. Production uses Redis
// when REDIS_ADDR is set and Noop otherwise; tests use Memory.
//
// CACHE-ASIDE:
// The cache never talks to the database. The profile service checks it,
// renders on a miss and stores the result:
//
//	page, ok := cache.Get(key)      hit: done
//	page = render(...)              miss: build from SQLite
//	cache.Set(key, page, ttl)
//
// Writes (an article saved, settings changed) delete the author's keys by
// pattern, so a stale page lives at most until the next write or the TTL.
// A cache that is down behaves like a permanent miss.
package cache

import (
	"context"
	"encoding/json"
	"path"
	"sync"
	"time"
)

// Cache is a JSON-valued key/value store with expiry.
type Cache interface {
	// Get unmarshals the cached value into dest. found is false on a miss,
	// in which case dest is untouched.
	Get(ctx context.Context, key string, dest any) (found bool, err error)

	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	Delete(ctx context.Context, keys ...string) error

	// DeletePattern removes every key matching a glob such as "profile:alice:*".
	DeletePattern(ctx context.Context, pattern string) error

	Ping(ctx context.Context) error
}

// Noop never stores anything; every Get is a miss.
type Noop struct{}

var _ Cache = Noop{}

func (Noop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Noop) Set(context.Context, string, any, time.Duration) error { return nil }
func (Noop) Delete(context.Context, ...string) error { return nil }
func (Noop) DeletePattern(context.Context, string) error { return nil }
func (Noop) Ping(context.Context) error { return nil }

// Memory is an in-process Cache. Values are stored as JSON so Get behaves
// like the Redis implementation: callers never share the stored value.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	data    []byte
	expires time.Time // zero means no expiry
}

var _ Cache = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string, dest any) (bool, error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if ok && !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.entries, key)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(e.data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	e := memoryEntry{data: data}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

// DeletePattern uses path.Match, whose "*" and "?" agree with Redis globs
// for the key shapes used here.
func (m *Memory) DeletePattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.entries, k)
		}
	}
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

// Len is the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
