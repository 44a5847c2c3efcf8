// Package mock provides a test double for [cleanup.Cleaner].
package mock

import (
	"context"
	"sync"

	"github.com/voxkey/voxkey/pkg/cleanup"
)

var _ cleanup.Cleaner = (*Cleaner)(nil)

// Cleaner is a scripted [cleanup.Cleaner].
type Cleaner struct {
	mu     sync.Mutex
	inputs []string

	// Result, when non-empty, is returned for every Clean call.
	// Otherwise Clean echoes its input.
	Result string

	// Err is returned by Clean when non-nil.
	Err error
}

// Clean implements [cleanup.Cleaner].
func (c *Cleaner) Clean(_ context.Context, raw string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inputs = append(c.inputs, raw)
	if c.Err != nil {
		return "", c.Err
	}
	if c.Result != "" {
		return c.Result, nil
	}
	return raw, nil
}

// Inputs returns every raw transcript passed to Clean, in order.
func (c *Cleaner) Inputs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.inputs))
	copy(out, c.inputs)
	return out
}
