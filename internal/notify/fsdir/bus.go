// Package fsdir implements the signal bus on a shared directory watched with
// fsnotify.
//
// Posting a signal writes a small marker file named after the signal into the
// directory; every process watching the directory maps the resulting
// filesystem event back to the signal name. The marker content is a
// monotonically increasing counter so repeated posts keep generating write
// events even when the file already exists.
package fsdir

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/voxkey/voxkey/internal/notify"
)

var _ notify.Bus = (*Bus)(nil)

const markerExt = ".sig"

// Bus is the fsnotify-backed signal bus. Obtain one via [New].
// All methods are safe for concurrent use.
type Bus struct {
	dir     string
	watcher *fsnotify.Watcher
	seq     atomic.Uint64

	mu     sync.Mutex
	subs   map[string][]chan struct{}
	closed bool
	done   chan struct{}
}

// New opens a bus on dir, creating the directory if needed. Every process
// that opens the same directory participates in the same bus.
func New(dir string) (*Bus, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("notify bus: create %s: %w", dir, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("notify bus: watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("notify bus: watch %s: %w", dir, err)
	}

	b := &Bus{
		dir:     dir,
		watcher: watcher,
		subs:    make(map[string][]chan struct{}),
		done:    make(chan struct{}),
	}
	go b.loop()
	return b, nil
}

// Post implements [notify.Bus]. It writes the marker file for name; the
// delivery to subscribers (local and remote) happens via the directory watch.
func (b *Bus) Post(_ context.Context, name string) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return notify.ErrClosed
	}

	path := filepath.Join(b.dir, name+markerExt)
	payload := strconv.FormatUint(b.seq.Add(1), 10)
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		return fmt.Errorf("notify bus: post %q: %w", name, err)
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
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for _, chans := range b.subs {
		for _, ch := range chans {
			close(ch)
		}
	}
	b.subs = nil
	b.mu.Unlock()

	err := b.watcher.Close()
	<-b.done
	return err
}

// loop maps filesystem events back to signal names and fans them out.
func (b *Bus) loop() {
	defer close(b.done)
	for {
		select {
		case ev, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			base := filepath.Base(ev.Name)
			if !strings.HasSuffix(base, markerExt) {
				continue
			}
			b.deliver(strings.TrimSuffix(base, markerExt))
		case _, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are transient on the platforms we target;
			// subscribers recover by re-reading the store.
		}
	}
}

func (b *Bus) deliver(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs[name] {
		select {
		case ch <- struct{}{}:
		default: // already pending, coalesce
		}
	}
}
