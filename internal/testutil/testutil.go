// Package testutil provides in-memory fakes for the external collaborators
// (KV store, batch inference) used across unit tests.
package testutil

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// MemoryKV is an in-memory implementation of the core.KVStore port.
// It is safe for concurrent use.
type MemoryKV struct {
	mu    sync.Mutex
	data  map[string][]byte
	lists map[string][][]byte

	// Err, when set, is returned by every operation. Use to simulate a KV
	// outage.
	Err error
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		data:  make(map[string][]byte),
		lists: make(map[string][][]byte),
	}
}

// Get implements core.KVStore.
func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Set implements core.KVStore. TTLs are ignored.
func (m *MemoryKV) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// SetIfNotExists implements core.KVStore.
func (m *MemoryKV) SetIfNotExists(
	_ context.Context,
	key string,
	value []byte,
	_ time.Duration,
) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = append([]byte(nil), value...)
	return true, nil
}

// Delete implements core.KVStore.
func (m *MemoryKV) Delete(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	if _, ok := m.data[key]; ok {
		delete(m.data, key)
		return true, nil
	}
	if _, ok := m.lists[key]; ok {
		delete(m.lists, key)
		return true, nil
	}
	return false, nil
}

// Exists implements core.KVStore.
func (m *MemoryKV) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	_, ok := m.data[key]
	if !ok {
		_, ok = m.lists[key]
	}
	return ok, nil
}

// ListAppend implements core.KVStore.
func (m *MemoryKV) ListAppend(_ context.Context, key string, member []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.lists[key] = append(m.lists[key], append([]byte(nil), member...))
	return nil
}

// ListRemove implements core.KVStore.
func (m *MemoryKV) ListRemove(_ context.Context, key string, member []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	kept := m.lists[key][:0]
	for _, v := range m.lists[key] {
		if !bytes.Equal(v, member) {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		delete(m.lists, key)
	} else {
		m.lists[key] = kept
	}
	return nil
}

// ListMembers implements core.KVStore.
func (m *MemoryKV) ListMembers(_ context.Context, key string) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([][]byte, 0, len(m.lists[key]))
	for _, v := range m.lists[key] {
		out = append(out, append([]byte(nil), v...))
	}
	return out, nil
}

// Health implements core.KVStore.
func (m *MemoryKV) Health(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Err
}

// Keys returns all scalar keys currently stored, for assertions.
func (m *MemoryKV) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}

// FixedClock returns a clock function pinned to t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
