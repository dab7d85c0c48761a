// Package queuestore provides the durable key-value stores that keep the
// offline write queue across restarts.
package queuestore

import (
	"context"
	"errors"
	"sync"
)

var ErrNotFound = errors.New("key not found")

// KV stores opaque values under string keys.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Memory is a process-local KV. Values are copied in and out.
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
}

var _ KV = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.values[key] = append([]byte(nil), value...)
	m.mu.Unlock()
	return nil
}
