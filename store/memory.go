// Package store provides Repository implementations and typed helpers for
// the documents the workflows persist.
package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/spetersoncode/concierge"
)

// MemoryAdapter provides thread-safe in-memory storage.
type MemoryAdapter struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ concierge.Repository = (*MemoryAdapter)(nil)

// NewMemoryAdapter creates a new in-memory adapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		data: make(map[string][]byte),
	}
}

// Get retrieves a copy of the value stored under key.
func (m *MemoryAdapter) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

// Put stores a copy of value under key.
func (m *MemoryAdapter) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = slices.Clone(value)
	return nil
}

// Delete removes a key. No error if key doesn't exist.
func (m *MemoryAdapter) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// List returns the sorted keys starting with prefix.
func (m *MemoryAdapter) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// Len returns the number of stored keys.
func (m *MemoryAdapter) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
