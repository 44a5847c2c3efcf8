// Package session defines the dictation session model shared between the
// voxkey host daemon and the keyboard process, together with the store keys
// and notification names that make up the cross-process protocol.
//
// The two processes never share memory. Everything they exchange travels
// through the shared key-value store (see internal/store) and the named,
// payload-free signal bus (see internal/notify). Writes follow a strict
// single-writer-per-field convention:
//
//   - The host is the sole writer of RawText, CleanedText and of the
//     transitions into StatusProcessing/StatusReady/StatusError that it owns.
//   - The keyboard is the sole writer of the idle→processing trigger
//     transition and of the reset to StatusIdle after consuming ready text.
//
// There is no cross-process lock; the convention above is what keeps the
// state machines coherent.
package session

import "time"

// Status is the lifecycle state of a dictation session. The zero value is
// StatusIdle.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusRecording  Status = "recording"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
)

// IsValid reports whether s is a recognised session status.
func (s Status) IsValid() bool {
	switch s {
	case StatusIdle, StatusRecording, StatusProcessing, StatusReady, StatusError:
		return true
	}
	return false
}

// Session is the cross-process dictation handoff record. It persists in the
// shared store across process restarts and is cleared explicitly by the
// keyboard after a successful insertion.
type Session struct {
	// ID identifies one dictation round-trip. Generated by the host when
	// recording starts.
	ID string `json:"id"`

	// RawText is the final transcript as produced by the STT engine.
	// Written only by the host.
	RawText string `json:"raw_text"`

	// CleanedText is the transcript after LLM cleanup. Written only by the
	// host; consumed (and then cleared) by the keyboard.
	CleanedText string `json:"cleaned_text"`

	// Status is the current lifecycle state.
	Status Status `json:"status"`

	// ErrorMessage holds a human-readable failure description when Status
	// is StatusError.
	ErrorMessage string `json:"error_message,omitempty"`

	// UpdatedAt is the wall-clock time of the last write.
	UpdatedAt time.Time `json:"updated_at"`
}

// Shared store keys. Both processes address the store exclusively through
// these constants; no other shared mutable state exists.
const (
	KeyRawTranscript  = "rawTranscript"
	KeyCleanedText    = "cleanedText"
	KeyStatus         = "dictationStatus"
	KeyCurrentSession = "currentSession"
	KeyHostReady      = "hostAppReady"
)

// Cross-process notification names. Each is a bare named signal with no
// payload; the payload is always fetched separately from the shared store
// after the signal fires.
const (
	SignalHostReady        = "hostAppReady"
	SignalStartRecording   = "startRecording"
	SignalRecordingStarted = "recordingStarted"
	SignalStopRecording    = "stopRecording"
	SignalCancelRecording  = "cancelRecording"
	SignalTextReady        = "textReady"
	SignalStateChanged     = "stateChanged"
	SignalPing             = "ping"
	SignalPong             = "pong"
)
