// Package store defines the shared key/value state that the host process and
// the keyboard process both read and write.
//
// The two processes never talk to each other directly; they communicate by
// writing well-known keys here (see the session package for the key and field
// conventions) and by posting signals on the notify bus. The store is the
// source of truth, the signals are only wake-ups: a reader that misses a
// signal can always recover the current state by re-reading the store.
//
// Every implementation must be safe for concurrent use from multiple
// processes, not just multiple goroutines.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/voxkey/voxkey/internal/session"
)

// ErrNotFound is returned by [Store.Get] when the key has never been written.
var ErrNotFound = errors.New("store: key not found")

// Store is a flat string key/value store shared between the host and keyboard
// processes.
type Store interface {
	// Get returns the value stored under key.
	// Returns [ErrNotFound] when the key does not exist.
	Get(ctx context.Context, key string) (string, error)

	// Set writes value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a non-existent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the underlying storage handle.
	Close() error
}

// PutSession serialises sess as JSON under the current-session key.
func PutSession(ctx context.Context, s Store, sess session.Session) error {
	sess.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("store: marshal session: %w", err)
	}
	return s.Set(ctx, session.KeyCurrentSession, string(raw))
}

// GetSession loads the current session. Returns [ErrNotFound] when no session
// has ever been written.
func GetSession(ctx context.Context, s Store) (session.Session, error) {
	raw, err := s.Get(ctx, session.KeyCurrentSession)
	if err != nil {
		return session.Session{}, err
	}
	var sess session.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return session.Session{}, fmt.Errorf("store: unmarshal session: %w", err)
	}
	return sess, nil
}

// PutStatus writes the dictation status field. The status is duplicated
// outside the session blob so the keyboard can poll it without parsing JSON.
func PutStatus(ctx context.Context, s Store, st session.Status) error {
	if !st.IsValid() {
		return fmt.Errorf("store: invalid status %q", st)
	}
	return s.Set(ctx, session.KeyStatus, string(st))
}

// GetStatus reads the dictation status field. A missing key reads as
// [session.StatusIdle].
func GetStatus(ctx context.Context, s Store) (session.Status, error) {
	raw, err := s.Get(ctx, session.KeyStatus)
	if errors.Is(err, ErrNotFound) {
		return session.StatusIdle, nil
	}
	if err != nil {
		return "", err
	}
	st := session.Status(raw)
	if !st.IsValid() {
		return "", fmt.Errorf("store: corrupt status %q", raw)
	}
	return st, nil
}

// MarkHostReady records whether the host process is currently alive. The
// keyboard consults this before deciding between the warm and cold start
// paths.
func MarkHostReady(ctx context.Context, s Store, ready bool) error {
	if ready {
		return s.Set(ctx, session.KeyHostReady, "true")
	}
	return s.Set(ctx, session.KeyHostReady, "false")
}

// HostReady reads the host liveness flag. A missing key reads as false.
func HostReady(ctx context.Context, s Store) (bool, error) {
	raw, err := s.Get(ctx, session.KeyHostReady)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return raw == "true", nil
}
