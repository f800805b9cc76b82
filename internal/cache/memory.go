package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultMemorySize = 10000
	DefaultMemoryTtl  = 5 * time.Minute
)

type entry struct {
	value     string
	expiresAt time.Time
}

type NewMemoryOpts struct {
	// Size bounds the number of entries, the least recently used entry
	// is evicted first
	Size int

	// Ttl is the upper bound on any entry's lifetime, entries set with a
	// shorter ttl expire sooner
	Ttl time.Duration

	// Now is used to evaluate per entry ttls
	Now func() time.Time
}

// NewMemory returns a Cache local to this process
func NewMemory(opts NewMemoryOpts) *Memory {
	if opts.Size <= 0 {
		opts.Size = DefaultMemorySize
	}
	if opts.Ttl <= 0 {
		opts.Ttl = DefaultMemoryTtl
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Memory{
		lru: expirable.NewLRU[string, entry](opts.Size, nil, opts.Ttl),
		now: opts.Now,
	}
}

type Memory struct {
	lru   *expirable.LRU[string, entry]
	now   func() time.Time
	mutex sync.Mutex
}

func (m *Memory) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.lru.Add(key, entry{value: value, expiresAt: m.now().Add(ttl)})
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	cached, ok := m.lru.Get(key)
	if !ok {
		return "", ErrorCacheMiss
	}
	if !m.now().Before(cached.expiresAt) {
		m.lru.Remove(key)
		return "", ErrorCacheMiss
	}
	return cached.value, nil
}

func (m *Memory) Scan(_ context.Context, prefix string) ([]string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	keys := []string{}
	now := m.now()
	for _, key := range m.lru.Keys() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if cached, ok := m.lru.Peek(key); ok && now.Before(cached.expiresAt) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (m *Memory) Del(_ context.Context, key string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.lru.Remove(key)
	return nil
}
