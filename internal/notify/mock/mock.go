// Package mock provides an in-process test double for [notify.Bus].
//
// Unlike the fsdir implementation it delivers synchronously inside Post,
// which makes cross-process protocol tests deterministic: by the time Post
// returns, every subscriber channel has its wake-up pending.
package mock

import (
	"context"
	"sync"

	"github.com/voxkey/voxkey/internal/notify"
)

var _ notify.Bus = (*Bus)(nil)

// Bus is an in-memory [notify.Bus]. The zero value is not usable; call [New].
type Bus struct {
	mu     sync.Mutex
	subs   map[string][]chan struct{}
	posted []string
	closed bool
}

// New returns an empty mock bus.
func New() *Bus {
	return &Bus{subs: make(map[string][]chan struct{})}
}

// Post implements [notify.Bus], delivering synchronously.
func (b *Bus) Post(_ context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return notify.ErrClosed
	}
	b.posted = append(b.posted, name)
	for _, ch := range b.subs[name] {
		select {
		case ch <- struct{}{}:
		default: // coalesce
		}
	}
	return nil
}

// Subscribe implements [notify.Bus].
func (b *Bus) Subscribe(name string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subs[name] = append(b.subs[name], ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		chans := b.subs[name]
		for i, c := range chans {
			if c == ch {
				b.subs[name] = append(chans[:i], chans[i+1:]...)
				if !b.closed {
					close(ch)
				}
				return
			}
		}
	}
	return ch, cancel
}

// Close implements [notify.Bus].
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, chans := range b.subs {
		for _, ch := range chans {
			close(ch)
		}
	}
	b.subs = nil
	return nil
}

// Posted returns every signal name posted so far, in order.
func (b *Bus) Posted() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.posted))
	copy(out, b.posted)
	return out
}
