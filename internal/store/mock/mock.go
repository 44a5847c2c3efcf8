// Package mock provides an in-memory test double for [store.Store].
//
// The mock records every method call for assertion in tests and exposes
// exported fields that force errors. It is safe for concurrent use.
package mock

import (
	"context"
	"sync"

	"github.com/voxkey/voxkey/internal/store"
)

var _ store.Store = (*Store)(nil)

// Call records the name and arguments of a single method invocation.
type Call struct {
	Method string
	Args   []any
}

// Store is a configurable in-memory [store.Store].
type Store struct {
	mu    sync.Mutex
	data  map[string]string
	calls []Call

	// GetErr is returned by Get when non-nil.
	GetErr error

	// SetErr is returned by Set when non-nil.
	SetErr error

	// DeleteErr is returned by Delete when non-nil.
	DeleteErr error
}

// New returns an empty mock store.
func New() *Store {
	return &Store{data: make(map[string]string)}
}

// Get implements [store.Store].
func (m *Store) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "Get", Args: []any{key}})
	if m.GetErr != nil {
		return "", m.GetErr
	}
	v, ok := m.data[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

// Set implements [store.Store].
func (m *Store) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "Set", Args: []any{key, value}})
	if m.SetErr != nil {
		return m.SetErr
	}
	m.data[key] = value
	return nil
}

// Delete implements [store.Store].
func (m *Store) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "Delete", Args: []any{key}})
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.data, key)
	return nil
}

// Close implements [store.Store].
func (m *Store) Close() error { return nil }

// Calls returns a copy of all recorded method invocations.
func (m *Store) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times the named method was invoked.
func (m *Store) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}
