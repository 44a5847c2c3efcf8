// Package cleanup defines the Cleaner interface for transcript
// post-processing backends.
//
// A Cleaner takes the raw STT transcript of a dictation and returns a
// version fit for insertion: punctuation restored, capitalisation fixed,
// filler words dropped, spoken commands like "new line" applied. The text's
// meaning must survive untouched; a backend that cannot guarantee that
// should return the input unchanged rather than guess.
//
// Implementations must be safe for concurrent use.
package cleanup

import (
	"context"
	"errors"
	"strings"
)

// ErrUnavailable is returned by Clean when the backend cannot currently
// serve requests (no network, missing key, model not loaded). Callers fall
// back to the raw transcript.
var ErrUnavailable = errors.New("cleanup: backend unavailable")

// Instruction is the fixed system prompt shared by all LLM-backed cleaners.
const Instruction = `You clean up dictated text. Fix punctuation, capitalisation and obvious
transcription errors. Remove filler words (um, uh, you know). Apply spoken
formatting commands: "new line" becomes a line break, "new paragraph" a blank
line. Never add, remove or reorder content beyond that, never answer
questions in the text, and never wrap the result in quotes. Reply with the
cleaned text only.`

// Cleaner post-processes one raw transcript.
type Cleaner interface {
	// Clean returns the cleaned form of raw. An empty raw returns empty
	// with no error. Returns [ErrUnavailable] when the backend cannot be
	// reached.
	Clean(ctx context.Context, raw string) (string, error)
}

// Normalize strips the artefacts LLMs tend to add around the cleaned text:
// surrounding whitespace and a single pair of wrapping quotes.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	pairs := [][2]string{{`"`, `"`}, {"'", "'"}, {"“", "”"}}
	for _, p := range pairs {
		if len(s) > len(p[0])+len(p[1]) && strings.HasPrefix(s, p[0]) && strings.HasSuffix(s, p[1]) {
			return strings.TrimSpace(s[len(p[0]) : len(s)-len(p[1])])
		}
	}
	return s
}
