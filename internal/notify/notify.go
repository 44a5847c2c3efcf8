// Package notify carries the named, payload-free signals that wake the host
// and keyboard processes up.
//
// A signal is only a doorbell. It tells the other process that something in
// the shared store changed; the receiver always re-reads the store to learn
// what. Signals may therefore be coalesced: two posts of the same name before
// the receiver wakes are allowed to collapse into one delivery. Receivers
// must never encode state in "how many times did the bell ring".
package notify

import (
	"context"
	"errors"
)

// ErrClosed is returned by [Bus.Post] after the bus has been closed.
var ErrClosed = errors.New("notify: bus closed")

// Bus delivers named signals across the process boundary.
//
// Delivery is at-least-once for a live subscriber but not ordered relative to
// other names, and a process that posts a name it is itself subscribed to
// will hear its own post.
type Bus interface {
	// Post fires the named signal. It never blocks on slow receivers.
	Post(ctx context.Context, name string) error

	// Subscribe returns a channel that receives one value per (possibly
	// coalesced) delivery of name, plus a cancel function that must be
	// called to release the subscription. The channel is closed when the
	// bus shuts down.
	Subscribe(name string) (<-chan struct{}, func())

	// Close tears down the bus and closes all subscriber channels.
	Close() error
}
