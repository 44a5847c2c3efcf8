// Package mock provides in-memory test doubles for the stt interfaces.
//
// The mock session records every audio chunk it receives and lets tests
// inject partial and final transcripts at any point:
//
//	provider := &mock.Provider{}
//	handle, _ := provider.StartStream(ctx, cfg)
//	provider.Session().EmitFinal("call mom tomorrow at 3pm")
package mock

import (
	"context"
	"sync"

	"github.com/voxkey/voxkey/pkg/stt"
)

var (
	_ stt.Provider      = (*Provider)(nil)
	_ stt.SessionHandle = (*Session)(nil)
)

// Provider is a configurable test double for [stt.Provider].
type Provider struct {
	mu sync.Mutex

	// StartErr is returned by StartStream when non-nil.
	StartErr error

	// LastConfig records the StreamConfig of the most recent StartStream.
	LastConfig stt.StreamConfig

	sessions []*Session
}

// StartStream implements [stt.Provider].
func (p *Provider) StartStream(_ context.Context, cfg stt.StreamConfig) (stt.SessionHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.StartErr != nil {
		return nil, p.StartErr
	}
	p.LastConfig = cfg
	s := &Session{
		partials: make(chan stt.Transcript, 64),
		finals:   make(chan stt.Transcript, 64),
		done:     make(chan struct{}),
	}
	p.sessions = append(p.sessions, s)
	return s, nil
}

// Session returns the most recently started session, or nil.
func (p *Provider) Session() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.sessions) == 0 {
		return nil
	}
	return p.sessions[len(p.sessions)-1]
}

// SessionCount returns how many sessions StartStream has opened.
func (p *Provider) SessionCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

// Session is a scripted [stt.SessionHandle].
type Session struct {
	mu     sync.Mutex
	chunks [][]byte
	closed bool

	// SendErr is returned by SendAudio when non-nil.
	SendErr error

	partials chan stt.Transcript
	finals   chan stt.Transcript
	done     chan struct{}
	once     sync.Once
}

// SendAudio implements [stt.SessionHandle].
func (s *Session) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return stt.ErrSessionClosed
	}
	if s.SendErr != nil {
		return s.SendErr
	}
	cp := make([]byte, len(chunk))
	copy(cp, chunk)
	s.chunks = append(s.chunks, cp)
	return nil
}

// Partials implements [stt.SessionHandle].
func (s *Session) Partials() <-chan stt.Transcript { return s.partials }

// Finals implements [stt.SessionHandle].
func (s *Session) Finals() <-chan stt.Transcript { return s.finals }

// Close implements [stt.SessionHandle].
func (s *Session) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
		close(s.partials)
		close(s.finals)
	})
	return nil
}

// EmitPartial injects an interim transcript. No-op after Close.
func (s *Session) EmitPartial(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.partials <- stt.Transcript{Text: text}
}

// EmitFinal injects an authoritative transcript. No-op after Close.
func (s *Session) EmitFinal(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.finals <- stt.Transcript{Text: text, IsFinal: true}
}

// Chunks returns a copy of every audio chunk received so far.
func (s *Session) Chunks() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.chunks))
	copy(out, s.chunks)
	return out
}

// BytesReceived sums the length of all received chunks.
func (s *Session) BytesReceived() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.chunks {
		n += len(c)
	}
	return n
}
