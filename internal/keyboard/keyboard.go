// Package keyboard implements the keyboard-side dictation controller: the
// process that the user actually types in, which cannot record audio itself
// and delegates every dictation to the host daemon.
//
// The controller is a small event-driven state machine:
//
//	idle → waitingHost → recording → processing → idle
//
// MicTap leaves idle. The warm path (host known alive, verified by a
// ping/pong round-trip) posts startRecording directly; the cold path
// activates the host through the URL launcher and waits for its hostReady
// signal before posting. Confirm and Cancel drive the recording state, and
// the textReady observer performs the insertion and the reset back to idle.
// Every failure path lands in StateError with a message the UI can render;
// the controller itself must never crash the keyboard process.
package keyboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voxkey/voxkey/internal/activate"
	"github.com/voxkey/voxkey/internal/notify"
	"github.com/voxkey/voxkey/internal/observe"
	"github.com/voxkey/voxkey/internal/session"
	"github.com/voxkey/voxkey/internal/store"
)

// ActionRecord is the activation action that asks a freshly launched host to
// go straight into recording.
const ActionRecord = "record"

const (
	defaultPingTimeout      = time.Second
	defaultHostReadyTimeout = 10 * time.Second
)

// State is the keyboard controller's lifecycle state. Unlike
// [session.Status] it is local to this process; the shared status in the
// store is the host's view.
type State string

const (
	StateIdle        State = "idle"
	StateWaitingHost State = "waitingHost"
	StateRecording   State = "recording"
	StateProcessing  State = "processing"
	StateError       State = "error"
)

// Inserter delivers cleaned text into the focused text field.
type Inserter interface {
	Insert(ctx context.Context, text string) error
}

// InserterFunc adapts a function to the [Inserter] interface.
type InserterFunc func(ctx context.Context, text string) error

func (f InserterFunc) Insert(ctx context.Context, text string) error { return f(ctx, text) }

// Config holds all dependencies for a [Controller].
type Config struct {
	Store     store.Store
	Bus       notify.Bus
	Activator activate.Activator
	Inserter  Inserter

	// PingTimeout bounds the liveness round-trip on the warm path.
	PingTimeout time.Duration

	// HostReadyTimeout bounds the cold-start wait for the host to come up.
	HostReadyTimeout time.Duration

	// Metrics defaults to [observe.DefaultMetrics].
	Metrics *observe.Metrics
}

// Controller is the keyboard state machine. All exported methods are safe
// for concurrent use.
type Controller struct {
	cfg     Config
	metrics *observe.Metrics

	mu     sync.Mutex
	state  State
	errMsg string
}

// New creates a Controller. Store, Bus, Activator and Inserter are required.
func New(cfg Config) (*Controller, error) {
	switch {
	case cfg.Store == nil:
		return nil, errors.New("keyboard: Store is required")
	case cfg.Bus == nil:
		return nil, errors.New("keyboard: Bus is required")
	case cfg.Activator == nil:
		return nil, errors.New("keyboard: Activator is required")
	case cfg.Inserter == nil:
		return nil, errors.New("keyboard: Inserter is required")
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = defaultPingTimeout
	}
	if cfg.HostReadyTimeout <= 0 {
		cfg.HostReadyTimeout = defaultHostReadyTimeout
	}
	c := &Controller{cfg: cfg, state: StateIdle, metrics: cfg.Metrics}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c, nil
}

// State returns the current controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ErrorMessage returns the message for the current error state, or "".
func (c *Controller) ErrorMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// Run serves host signals until ctx is cancelled: hostReady completes the
// cold path, recordingStarted confirms the recording is live, and textReady
// triggers the insertion.
func (c *Controller) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	c.serve(ctx, g, session.SignalHostReady, c.onHostReady)
	c.serve(ctx, g, session.SignalRecordingStarted, c.onRecordingStarted)
	c.serve(ctx, g, session.SignalTextReady, c.onTextReady)
	c.serve(ctx, g, session.SignalStateChanged, c.onStateChanged)

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (c *Controller) serve(ctx context.Context, g *errgroup.Group, name string, handle func(context.Context) error) {
	ch, cancel := c.cfg.Bus.Subscribe(name)
	g.Go(func() error {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case _, ok := <-ch:
				if !ok {
					return nil
				}
				if err := handle(ctx); err != nil {
					slog.Error("keyboard: signal handler failed", "signal", name, "err", err)
				}
			}
		}
	})
}

// MicTap starts a dictation from idle. It decides between the warm path
// (post startRecording directly) and the cold path (activate the host via
// URL launch, then wait for hostReady). A tap outside idle is ignored.
func (c *Controller) MicTap(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		slog.Warn("keyboard: mic tap ignored", "state", c.state)
		c.mu.Unlock()
		return nil
	}
	c.setStateLocked(ctx, StateWaitingHost)
	c.mu.Unlock()

	if c.hostAlive(ctx) {
		return c.requestRecording(ctx)
	}

	// Cold path. The ready flag is either false or stale; launch the host
	// and let the hostReady signal complete the handshake.
	slog.Info("keyboard: activating host", "action", ActionRecord)
	if err := c.cfg.Activator.Activate(ctx, ActionRecord); err != nil {
		c.toError(ctx, fmt.Sprintf("could not open the voxkey app: %v", err))
		return fmt.Errorf("keyboard: activate host: %w", err)
	}
	go c.watchColdStart(ctx)
	return nil
}

// hostAlive reports whether the warm path is safe: the persisted ready flag
// is set and the host answers a ping. The flag alone is not enough because
// the OS can kill the host without it clearing the flag.
func (c *Controller) hostAlive(ctx context.Context) bool {
	ready, err := store.HostReady(ctx, c.cfg.Store)
	if err != nil {
		slog.Warn("keyboard: read ready flag", "err", err)
		return false
	}
	if !ready {
		return false
	}

	pong, cancel := c.cfg.Bus.Subscribe(session.SignalPong)
	defer cancel()
	if err := c.cfg.Bus.Post(ctx, session.SignalPing); err != nil {
		slog.Warn("keyboard: post ping", "err", err)
		return false
	}
	select {
	case _, ok := <-pong:
		return ok
	case <-time.After(c.cfg.PingTimeout):
		slog.Info("keyboard: ping timed out, host flag is stale")
		return false
	case <-ctx.Done():
		return false
	}
}

// requestRecording posts startRecording; the recordingStarted signal moves
// the state forward.
func (c *Controller) requestRecording(ctx context.Context) error {
	if err := c.cfg.Bus.Post(ctx, session.SignalStartRecording); err != nil {
		c.toError(ctx, "could not reach the voxkey app")
		return fmt.Errorf("keyboard: post start: %w", err)
	}
	return nil
}

// watchColdStart gives up on a cold start that never produces a ready host.
// The hostReady handler wins the race when the host does come up.
func (c *Controller) watchColdStart(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(c.cfg.HostReadyTimeout):
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateWaitingHost {
		c.errMsg = "the voxkey app did not start"
		c.setStateLocked(ctx, StateError)
	}
}

// Confirm stops the active recording and moves to processing. Ignored
// outside the recording state.
func (c *Controller) Confirm(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateRecording {
		slog.Warn("keyboard: confirm ignored", "state", c.state)
		c.mu.Unlock()
		return nil
	}
	c.setStateLocked(ctx, StateProcessing)
	c.mu.Unlock()
	return c.cfg.Bus.Post(ctx, session.SignalStopRecording)
}

// Cancel abandons the dictation and returns to idle. Ignored when idle.
func (c *Controller) Cancel(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return nil
	}
	wasRecording := c.state == StateRecording
	c.setStateLocked(ctx, StateIdle)
	c.mu.Unlock()
	if !wasRecording {
		return nil
	}
	return c.cfg.Bus.Post(ctx, session.SignalCancelRecording)
}

// DismissError acknowledges an error and returns to idle.
func (c *Controller) DismissError(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateError {
		return
	}
	c.errMsg = ""
	c.setStateLocked(ctx, StateIdle)
}

// onHostReady completes the cold path: the freshly launched host announced
// itself, so the pending recording request can go out.
func (c *Controller) onHostReady(ctx context.Context) error {
	c.mu.Lock()
	waiting := c.state == StateWaitingHost
	c.mu.Unlock()
	if !waiting {
		return nil
	}
	slog.Info("keyboard: host is up, requesting recording")
	return c.requestRecording(ctx)
}

// onRecordingStarted confirms the host opened the microphone. If the user
// already cancelled while the request was in flight, the orphaned recording
// is cancelled on the host too.
func (c *Controller) onRecordingStarted(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateWaitingHost {
		orphaned := c.state == StateIdle
		c.mu.Unlock()
		if orphaned {
			return c.cfg.Bus.Post(ctx, session.SignalCancelRecording)
		}
		return nil
	}
	c.setStateLocked(ctx, StateRecording)
	c.mu.Unlock()
	return nil
}

// onTextReady reads the finished session from the store, inserts the
// cleaned text, and resets the shared state. Missing or empty text is an
// error: the signal promised a result that is not there.
func (c *Controller) onTextReady(ctx context.Context) error {
	sess, err := store.GetSession(ctx, c.cfg.Store)
	if err != nil {
		c.toError(ctx, "dictation finished but no text was found")
		return fmt.Errorf("keyboard: read session: %w", err)
	}
	if sess.CleanedText == "" {
		c.toError(ctx, "dictation finished but the text was empty")
		return nil
	}

	if err := c.cfg.Inserter.Insert(ctx, sess.CleanedText); err != nil {
		c.toError(ctx, "could not insert the dictated text")
		return fmt.Errorf("keyboard: insert text: %w", err)
	}
	slog.Info("keyboard: inserted dictation", "session_id", sess.ID, "chars", len(sess.CleanedText))

	// Consumed: clear the handoff keys and hand the status back to idle.
	for _, key := range []string{session.KeyRawTranscript, session.KeyCleanedText, session.KeyCurrentSession} {
		if err := c.cfg.Store.Delete(ctx, key); err != nil {
			return fmt.Errorf("keyboard: clear %s: %w", key, err)
		}
	}
	if err := store.PutStatus(ctx, c.cfg.Store, session.StatusIdle); err != nil {
		return err
	}
	if err := c.cfg.Bus.Post(ctx, session.SignalStateChanged); err != nil {
		return err
	}

	c.mu.Lock()
	c.setStateLocked(ctx, StateIdle)
	c.mu.Unlock()
	return nil
}

// onStateChanged mirrors host-side failures into the local state machine.
func (c *Controller) onStateChanged(ctx context.Context) error {
	st, err := store.GetStatus(ctx, c.cfg.Store)
	if err != nil {
		return fmt.Errorf("keyboard: read status: %w", err)
	}
	if st != session.StatusError {
		return nil
	}

	msg := "dictation failed"
	if sess, err := store.GetSession(ctx, c.cfg.Store); err == nil && sess.ErrorMessage != "" {
		msg = sess.ErrorMessage
	}
	c.toError(ctx, msg)
	return nil
}

// toError moves to the error state with a message for the UI.
func (c *Controller) toError(ctx context.Context, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateError {
		return
	}
	c.errMsg = msg
	c.setStateLocked(ctx, StateError)
	slog.Warn("keyboard: entered error state", "msg", msg)
}

// setStateLocked records a transition. Callers hold c.mu.
func (c *Controller) setStateLocked(ctx context.Context, s State) {
	if c.state == s {
		return
	}
	c.state = s
	c.metrics.RecordTransition(ctx, "kb:"+string(s))
}
