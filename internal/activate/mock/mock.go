// Package mock provides a test double for [activate.Activator].
package mock

import (
	"context"
	"sync"

	"github.com/voxkey/voxkey/internal/activate"
)

var _ activate.Activator = (*Activator)(nil)

// Activator records every activation request.
type Activator struct {
	mu      sync.Mutex
	actions []string

	// Err is returned by Activate when non-nil.
	Err error

	// OnActivate, when non-nil, runs synchronously inside Activate. Tests
	// use it to simulate the host coming up in response to the launch.
	OnActivate func(action string)
}

// Activate implements [activate.Activator].
func (a *Activator) Activate(_ context.Context, action string) error {
	a.mu.Lock()
	a.actions = append(a.actions, action)
	cb := a.OnActivate
	err := a.Err
	a.mu.Unlock()

	if err != nil {
		return err
	}
	if cb != nil {
		cb(action)
	}
	return nil
}

// Actions returns every requested action in order.
func (a *Activator) Actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.actions))
	copy(out, a.actions)
	return out
}
