// Package mock provides a scripted in-memory [audio.Source] for tests.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/voxkey/voxkey/pkg/audio"
)

var _ audio.Source = (*Source)(nil)

// Source emits a fixed list of frames and then leaves the channel open until
// closed, mimicking a live microphone that has gone quiet.
type Source struct {
	// Frames are delivered in order as soon as Start is called.
	Frames []audio.Frame

	// StartErr is returned by Start when non-nil.
	StartErr error

	mu      sync.Mutex
	started bool
	out     chan audio.Frame
}

// Start implements [audio.Source].
func (s *Source) Start(ctx context.Context) (<-chan audio.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.StartErr != nil {
		return nil, s.StartErr
	}
	if s.started {
		return nil, fmt.Errorf("mock source: already started")
	}
	s.started = true
	s.out = make(chan audio.Frame, len(s.Frames)+1)
	for _, f := range s.Frames {
		s.out <- f
	}
	go func() {
		<-ctx.Done()
		s.Close()
	}()
	return s.out, nil
}

// Close implements [audio.Source]. It closes the frame channel.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.out != nil {
		close(s.out)
		s.out = nil
	}
	return nil
}

// Emit pushes an extra frame after Start, for tests that drive capture
// incrementally.
func (s *Source) Emit(f audio.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.out != nil {
		s.out <- f
	}
}
