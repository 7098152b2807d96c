package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	payload []byte
	written time.Time
}

// MemoryStore is a process-local Store. Entries never expire on their own;
// staleness is decided by Fresh like every other backend.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]memoryItem
	now  func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	cfg := &MemoryConfig{Now: time.Now}
	for _, opt := range opts {
		opt(cfg)
	}
	return &MemoryStore{data: make(map[string]memoryItem), now: cfg.Now}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	out := make([]byte, len(item.payload))
	copy(out, item.payload)
	return out, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, payload []byte) error {
	return m.putAt(key, payload, m.now())
}

func (m *MemoryStore) putAt(key string, payload []byte, written time.Time) error {
	buf := make([]byte, len(payload))
	copy(buf, payload)
	m.mu.Lock()
	m.data[key] = memoryItem{payload: buf, written: written}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) ModTime(_ context.Context, key string) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.data[key]
	if !ok {
		return time.Time{}, ErrCacheMiss
	}
	return item.written, nil
}

func (m *MemoryStore) Fresh(ctx context.Context, key string, window time.Duration) (bool, error) {
	return freshFrom(ctx, m, m.now, key, window)
}

// Len returns the number of entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
