package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Memory is the in-process backend: a mutex-guarded table bounded to a
// fixed number of entries with least-recently-used eviction. A Get
// refreshes recency; expired entries are removed lazily on read.
type Memory struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
	capacity int
	expire   time.Duration

	now func() time.Time
}

type memoryEntry struct {
	key      string
	body     []byte
	storedAt time.Time
}

// NewMemory constructs a Memory store bounded to capacity entries.
func NewMemory(capacity int, expire time.Duration) *Memory {
	if capacity <= 0 {
		capacity = 1
	}
	return &Memory{
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
		capacity: capacity,
		expire:   expire,
		now:      time.Now,
	}
}

// Get returns the cached body for key if the entry is still live.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	entry := elem.Value.(*memoryEntry)
	if m.now().Sub(entry.storedAt) >= m.expire {
		m.order.Remove(elem)
		delete(m.entries, key)
		return nil, false, nil
	}
	m.order.MoveToFront(elem)
	body := make([]byte, len(entry.body))
	copy(body, entry.body)
	return body, true, nil
}

// Put stores body under key, evicting the least recently used entries
// once the capacity is exceeded.
func (m *Memory) Put(_ context.Context, key string, body []byte) error {
	stored := make([]byte, len(body))
	copy(stored, body)

	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.entries[key]; ok {
		entry := elem.Value.(*memoryEntry)
		entry.body = stored
		entry.storedAt = m.now()
		m.order.MoveToFront(elem)
		return nil
	}

	elem := m.order.PushFront(&memoryEntry{key: key, body: stored, storedAt: m.now()})
	m.entries[key] = elem

	for len(m.entries) > m.capacity {
		oldest := m.order.Back()
		if oldest == nil {
			break
		}
		m.order.Remove(oldest)
		delete(m.entries, oldest.Value.(*memoryEntry).key)
	}
	return nil
}

// Close drops all entries.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*list.Element)
	m.order.Init()
	return nil
}

// Len reports the number of live entries. Used by tests and diagnostics.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
