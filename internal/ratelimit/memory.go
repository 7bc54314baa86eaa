package ratelimit

import (
	"sync"
	"time"
)

// memoryBucket is the in-process fallback used when redis is not
// configured. Same continuous-refill semantics, scoped to one process.
type memoryBucket struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

type memoryEntry struct {
	tokens float64
	ts     time.Time
}

func newMemoryBucket() *memoryBucket {
	return &memoryBucket{entries: make(map[string]*memoryEntry)}
}

func (m *memoryBucket) Allow(key string, rate float64, burst int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	entry, ok := m.entries[key]
	if !ok {
		entry = &memoryEntry{tokens: float64(burst), ts: now}
		m.entries[key] = entry
	} else {
		refill := now.Sub(entry.ts).Seconds() * rate
		entry.tokens = min(float64(burst), entry.tokens+refill)
		entry.ts = now
	}

	if entry.tokens >= 1 {
		entry.tokens--
		return true
	}
	return false
}
