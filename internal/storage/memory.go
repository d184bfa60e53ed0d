package storage

import (
	"context"
	"sync"
)

// MemoryKV keeps values in process memory. It is used by tests and by
// `--store memory` for throwaway sessions.
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string][]byte
	// FailPuts makes every Put return an error; tests use it to exercise fail-soft persistence.
	FailPuts error
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string][]byte)}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[key]
	if !ok {
		return nil, notFound(key)
	}
	return append([]byte(nil), value...), nil
}

func (m *MemoryKV) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailPuts != nil {
		return m.FailPuts
	}
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryKV) Close() error { return nil }
