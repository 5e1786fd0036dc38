package cache

import (
	"context"
	"sync"
	"time"

	"incident-insights-go/internal/types"
)

// Memory is an in-process TTL cache with a size cap; when full it evicts the
// least recently accessed entry.
type Memory struct {
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	value      types.Classification
	expiresAt  time.Time
	lastAccess time.Time
}

func NewMemory(ttl time.Duration, maxSize int) *Memory {
	if maxSize <= 0 {
		maxSize = 1024
	}
	return &Memory{
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

func (m *Memory) Get(_ context.Context, key string) (types.Classification, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return types.Classification{}, false
	}
	now := m.now()
	if now.After(e.expiresAt) {
		delete(m.entries, key)
		return types.Classification{}, false
	}
	e.lastAccess = now
	return e.value, true
}

func (m *Memory) Set(_ context.Context, key string, c types.Classification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxSize {
		var oldestKey string
		var oldestTime time.Time
		for k, v := range m.entries {
			if oldestKey == "" || v.lastAccess.Before(oldestTime) {
				oldestKey = k
				oldestTime = v.lastAccess
			}
		}
		delete(m.entries, oldestKey)
	}
	now := m.now()
	m.entries[key] = &entry{value: c, expiresAt: now.Add(m.ttl), lastAccess: now}
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
