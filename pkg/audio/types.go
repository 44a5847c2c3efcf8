// Package audio provides microphone capture and PCM format conversion for
// the dictation pipeline.
//
// The central abstraction is [Source]: something that produces a stream of
// [Frame] values once started. The production implementation shells out to
// the platform's capture tool; tests use the mock subpackage.
package audio

import "time"

// Frame is the atomic unit of audio transport: one chunk of little-endian
// 16-bit signed PCM captured from the microphone.
type Frame struct {
	// Data holds the raw PCM bytes.
	Data []byte

	// SampleRate in Hz (16000 for the STT path).
	SampleRate int

	// Channels: 1 for mono, 2 for stereo capture devices.
	Channels int

	// Timestamp marks when this frame was captured, relative to capture
	// start.
	Timestamp time.Duration
}

// Format describes the sample rate and channel count of a stream.
type Format struct {
	SampleRate int
	Channels   int
}
