// Package stt defines the Provider interface for speech-to-text backends.
//
// An STT provider wraps a transcription engine (a local whisper.cpp model or
// the Deepgram streaming API) behind a uniform streaming interface. The
// central abstraction is [SessionHandle]: once opened, a session accepts raw
// PCM audio frames and emits two streams of [Transcript] values — low-latency
// partials for the live preview and authoritative finals for the dictation
// result.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"errors"
	"time"
)

// ErrSessionClosed is returned by [SessionHandle.SendAudio] after Close.
var ErrSessionClosed = errors.New("stt: session is closed")

// StreamConfig describes the audio format and recognition hints for a new
// STT session.
type StreamConfig struct {
	// SampleRate is the audio sample rate in Hz. 16000 is what both
	// bundled providers expect.
	SampleRate int

	// Channels is the number of audio channels. 1 = mono (required by
	// most STT engines).
	Channels int

	// Language is the BCP-47 language tag for recognition (e.g. "en",
	// "de"). An empty string uses the provider default.
	Language string
}

// Transcript is one speech-to-text result. Both partial (interim) and final
// transcripts use this type.
type Transcript struct {
	// Text is the transcribed speech content.
	Text string

	// IsFinal indicates whether this is an authoritative result.
	IsFinal bool

	// Confidence is the overall confidence score (0.0-1.0). Zero when the
	// engine does not report confidence.
	Confidence float64

	// Timestamp marks when the utterance started, relative to session
	// start.
	Timestamp time.Duration

	// Duration is the length of the utterance.
	Duration time.Duration
}

// SessionHandle represents an open STT streaming session.
//
// Callers must call Close when the session is no longer needed; failing to
// do so may leak goroutines and network connections inside the provider.
// All methods must be safe for concurrent use.
type SessionHandle interface {
	// SendAudio delivers a chunk of raw 16-bit little-endian PCM to the
	// provider. The chunk must match the SampleRate and Channels agreed
	// in StreamConfig. Returns [ErrSessionClosed] after Close.
	SendAudio(chunk []byte) error

	// Partials returns a read-only channel emitting low-latency interim
	// transcripts, suitable for the recording preview but never for the
	// final dictation result. Closed when the session ends.
	Partials() <-chan Transcript

	// Finals returns a read-only channel emitting authoritative
	// transcripts. Closed when the session ends.
	Finals() <-chan Transcript

	// Close terminates the session, flushes pending audio, and releases
	// all resources. After Close returns the Partials and Finals channels
	// are closed. Calling Close more than once is safe and returns nil.
	Close() error
}

// Provider is the abstraction over any STT backend.
type Provider interface {
	// StartStream opens a new streaming transcription session. The
	// returned SessionHandle is ready to accept audio immediately.
	StartStream(ctx context.Context, cfg StreamConfig) (SessionHandle, error)
}
