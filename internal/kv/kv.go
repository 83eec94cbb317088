// Package kv defines the whole-value key-value contract that collections are
// persisted through, plus an in-process implementation used by tests.
package kv

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// ErrNotFound is returned by Get when a key has never been written.
var ErrNotFound = errors.New("kv: key not found")

// Store persists opaque values by key with whole-value replace semantics.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// Entry is one key/value pair of a batch write.
type Entry struct {
	Key   string
	Value []byte
}

// Batcher is implemented by stores that can write several keys atomically.
type Batcher interface {
	PutBatch(ctx context.Context, entries []Entry) error
}

// Event reports that a key was changed by another writer.
type Event struct {
	Key     string
	Deleted bool
}

// Watcher is implemented by stores that can observe external modifications.
type Watcher interface {
	Watch(ctx context.Context) (<-chan Event, error)
}

// PutAll writes entries, atomically when the store supports it.
func PutAll(ctx context.Context, store Store, entries []Entry) error {
	if b, ok := store.(Batcher); ok {
		return b.PutBatch(ctx, entries)
	}
	for _, e := range entries {
		if err := store.Put(ctx, e.Key, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// Memory is a map-backed Store.
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(v), nil
}

// Put implements Store.
func (m *Memory) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = slices.Clone(value)
	return nil
}

// PutBatch implements Batcher.
func (m *Memory) PutBatch(_ context.Context, entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.values[e.Key] = slices.Clone(e.Value)
	}
	return nil
}

// Delete implements Store. Deleting a missing key is not an error.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Keys implements Store. Keys are sorted.
func (m *Memory) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

// Close implements Store.
func (m *Memory) Close() error { return nil }
