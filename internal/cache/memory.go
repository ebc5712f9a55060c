package cache

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/viafoto/viafoto/internal/classify"
)

// Memory is an in-process store. Unbounded; lifetime is the host session.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]classify.Result
	bytes   int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]classify.Result)}
}

// Get returns a copy of the cached result, or nil on a miss.
func (m *Memory) Get(_ context.Context, hash string) (*classify.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.entries[hash]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// Put stores result under hash, replacing any previous entry.
func (m *Memory) Put(_ context.Context, hash string, result classify.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.entries[hash]; ok {
		m.bytes -= entrySize(old)
	}
	m.entries[hash] = result
	m.bytes += entrySize(result)
	return nil
}

// Remove deletes the entry for hash, if present.
func (m *Memory) Remove(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.entries[hash]; ok {
		m.bytes -= entrySize(old)
		delete(m.entries, hash)
	}
	return nil
}

// Clear drops all entries.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]classify.Result)
	m.bytes = 0
	return nil
}

// Stats reports entry count and approximate serialized size.
func (m *Memory) Stats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Stats{Count: len(m.entries), ApproxSize: m.bytes}, nil
}

func entrySize(r classify.Result) int64 {
	b, err := json.Marshal(r)
	if err != nil {
		return 0
	}
	return int64(len(b))
}
