package store

import (
	"context"
	"sync"
)

// MemoryPersister keeps blobs in process memory. Used for STORAGE_TYPE=memory
// and in tests.
type MemoryPersister struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{blobs: make(map[string][]byte)}
}

func (m *MemoryPersister) Read(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.blobs[key]
	if !ok {
		return nil, ErrNoValue
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryPersister) Write(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryPersister) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.blobs, key)
	return nil
}
