package gateway

import (
	"context"
	"sync"
)

var _ Gateway = (*Memory)(nil)

// Memory is an in-process Gateway. Faults can be injected per operation,
// which is how callers exercise their persistence error paths.
type Memory struct {
	mu        sync.RWMutex
	data      map[string][]byte
	getErr    error
	setErr    error
	removeErr error
	sets      int
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, readErr(key, m.getErr)
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	if key == "" {
		return ErrInvalidKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return writeErr(key, m.setErr)
	}
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	m.sets++
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removeErr != nil {
		return writeErr(key, m.removeErr)
	}
	delete(m.data, key)
	return nil
}

// FailGet makes subsequent Get calls fail with err (nil clears).
func (m *Memory) FailGet(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
}

// FailSet makes subsequent Set calls fail with err (nil clears).
func (m *Memory) FailSet(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setErr = err
}

// FailRemove makes subsequent Remove calls fail with err (nil clears).
func (m *Memory) FailRemove(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeErr = err
}

// Sets returns how many successful writes happened.
func (m *Memory) Sets() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sets
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
