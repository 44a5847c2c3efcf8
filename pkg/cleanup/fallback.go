package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// defaultCooldown is how long a failed backend is skipped before it gets
// another chance.
const defaultCooldown = 30 * time.Second

// fallbackEntry pairs a cleaner with its failure bookkeeping.
type fallbackEntry struct {
	name    string
	cleaner Cleaner

	mu        sync.Mutex
	downUntil time.Time
}

func (e *fallbackEntry) available(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return now.After(e.downUntil)
}

func (e *fallbackEntry) markDown(now time.Time, cooldown time.Duration) {
	e.mu.Lock()
	e.downUntil = now.Add(cooldown)
	e.mu.Unlock()
}

// Fallback is a [Cleaner] that tries a primary backend and zero or more
// fallbacks in order. A backend that fails is skipped for a cooldown period
// so a dead local model does not add its timeout to every dictation.
//
// Fallback is safe for concurrent use.
type Fallback struct {
	entries  []*fallbackEntry
	cooldown time.Duration
	now      func() time.Time
}

// FallbackOption configures a [Fallback].
type FallbackOption func(*Fallback)

// WithCooldown sets how long a failed backend is skipped.
func WithCooldown(d time.Duration) FallbackOption {
	return func(f *Fallback) {
		if d > 0 {
			f.cooldown = d
		}
	}
}

// NewFallback creates a chain with primary as the first entry.
// Additional backends are registered via [Fallback.Add].
func NewFallback(name string, primary Cleaner, opts ...FallbackOption) *Fallback {
	f := &Fallback{
		entries:  []*fallbackEntry{{name: name, cleaner: primary}},
		cooldown: defaultCooldown,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Add appends a fallback backend. Backends are tried in the order added,
// after the primary.
func (f *Fallback) Add(name string, c Cleaner) *Fallback {
	f.entries = append(f.entries, &fallbackEntry{name: name, cleaner: c})
	return f
}

// Clean implements [Cleaner]. It returns the first successful result;
// when every backend fails or is cooling down it returns [ErrUnavailable]
// wrapped with the last failure.
func (f *Fallback) Clean(ctx context.Context, raw string) (string, error) {
	var lastErr error
	now := f.now()
	for _, entry := range f.entries {
		if !entry.available(now) {
			slog.Debug("cleanup: skipping backend in cooldown", "backend", entry.name)
			continue
		}
		cleaned, err := entry.cleaner.Clean(ctx, raw)
		if err == nil {
			return cleaned, nil
		}
		lastErr = err
		entry.markDown(now, f.cooldown)
		slog.Warn("cleanup: backend failed, trying next", "backend", entry.name, "err", err)
	}
	if lastErr == nil {
		return "", fmt.Errorf("%w: every backend is cooling down", ErrUnavailable)
	}
	return "", fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}
