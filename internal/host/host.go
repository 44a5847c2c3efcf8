// Package host implements the dictation host daemon: the process that owns
// the microphone, the STT engine, and the LLM cleanup step.
//
// The host is a signal-driven state machine. It listens on the notify bus
// for the keyboard's startRecording / stopRecording / cancelRecording
// requests, runs the capture pipeline, and publishes results into the shared
// store before posting textReady. Only one recording can be in flight at a
// time (enforced by mutex); a start while recording and a stop while idle
// are logged and ignored rather than treated as errors, because signals can
// be replayed or coalesced.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/voxkey/voxkey/internal/notify"
	"github.com/voxkey/voxkey/internal/observe"
	"github.com/voxkey/voxkey/internal/session"
	"github.com/voxkey/voxkey/internal/store"
	"github.com/voxkey/voxkey/pkg/audio"
	"github.com/voxkey/voxkey/pkg/cleanup"
	"github.com/voxkey/voxkey/pkg/stt"
)

// defaultCleanupTimeout bounds the LLM cleanup call; past it the raw
// transcript ships as-is.
const defaultCleanupTimeout = 20 * time.Second

// Config holds all dependencies for a [Manager].
type Config struct {
	Store store.Store
	Bus   notify.Bus

	// NewSource opens a fresh capture source per recording.
	NewSource func() (audio.Source, error)

	STT     stt.Provider
	Cleaner cleanup.Cleaner

	// StreamConfig is passed to every STT session.
	StreamConfig stt.StreamConfig

	// CaptureTarget, when its SampleRate is set, converts captured frames
	// to this format before they reach the STT session. Lets the capture
	// command record at whatever rate the hardware prefers.
	CaptureTarget audio.Format

	// CleanupTimeout overrides the default cleanup deadline when > 0.
	CleanupTimeout time.Duration

	// Metrics defaults to [observe.DefaultMetrics].
	Metrics *observe.Metrics
}

// recording bundles the per-recording pipeline state.
type recording struct {
	id        string
	startedAt time.Time
	source    audio.Source
	sess      stt.SessionHandle
	cancel    context.CancelFunc

	pumpDone chan struct{}
	result   chan string
}

// Manager is the host state machine. All exported methods are safe for
// concurrent use.
type Manager struct {
	cfg     Config
	metrics *observe.Metrics

	mu  sync.Mutex
	rec *recording
}

// New creates a Manager. All of Store, Bus, NewSource, STT and Cleaner are
// required.
func New(cfg Config) (*Manager, error) {
	switch {
	case cfg.Store == nil:
		return nil, errors.New("host: Store is required")
	case cfg.Bus == nil:
		return nil, errors.New("host: Bus is required")
	case cfg.NewSource == nil:
		return nil, errors.New("host: NewSource is required")
	case cfg.STT == nil:
		return nil, errors.New("host: STT is required")
	case cfg.Cleaner == nil:
		return nil, errors.New("host: Cleaner is required")
	}
	if cfg.CleanupTimeout <= 0 {
		cfg.CleanupTimeout = defaultCleanupTimeout
	}
	m := &Manager{cfg: cfg, metrics: cfg.Metrics}
	if m.metrics == nil {
		m.metrics = observe.DefaultMetrics()
	}
	return m, nil
}

// Run announces the host on the bus and serves keyboard signals until ctx is
// cancelled. It always clears the ready flag on the way out.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.announce(ctx); err != nil {
		return err
	}
	defer func() {
		// Best effort; the store may already be gone on shutdown.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := store.MarkHostReady(shutdownCtx, m.cfg.Store, false); err != nil {
			slog.Warn("host: clear ready flag", "err", err)
		}
	}()

	g, ctx := errgroup.WithContext(ctx)
	m.serve(ctx, g, session.SignalStartRecording, m.StartRecording)
	m.serve(ctx, g, session.SignalStopRecording, m.StopRecording)
	m.serve(ctx, g, session.SignalCancelRecording, m.CancelRecording)
	m.serve(ctx, g, session.SignalPing, m.pong)

	err := g.Wait()

	m.mu.Lock()
	rec := m.rec
	m.rec = nil
	m.mu.Unlock()
	if rec != nil {
		m.teardown(rec, true)
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// serve subscribes to one signal and dispatches each delivery to handle.
func (m *Manager) serve(ctx context.Context, g *errgroup.Group, name string, handle func(context.Context) error) {
	ch, cancel := m.cfg.Bus.Subscribe(name)
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
					slog.Error("host: signal handler failed", "signal", name, "err", err)
				}
			}
		}
	})
}

// announce recovers from a stale crash state, marks the host ready, and
// posts hostReady for any keyboard waiting on a cold start.
func (m *Manager) announce(ctx context.Context) error {
	st, err := store.GetStatus(ctx, m.cfg.Store)
	if err != nil {
		return fmt.Errorf("host: read status: %w", err)
	}
	if st == session.StatusRecording || st == session.StatusProcessing {
		// A previous host died mid-dictation; that session is lost.
		slog.Warn("host: recovering from stale status", "status", st)
		if err := m.setStatus(ctx, session.StatusIdle); err != nil {
			return err
		}
	}

	if err := store.MarkHostReady(ctx, m.cfg.Store, true); err != nil {
		return fmt.Errorf("host: mark ready: %w", err)
	}
	if err := m.cfg.Bus.Post(ctx, session.SignalHostReady); err != nil {
		return fmt.Errorf("host: post ready: %w", err)
	}
	slog.Info("host: ready")
	return nil
}

// StartRecording opens the capture pipeline: microphone → STT session, with
// live partial transcripts mirrored into the store as a preview. A start
// while a recording is active is ignored.
func (m *Manager) StartRecording(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rec != nil {
		slog.Warn("host: start ignored, recording already active", "session_id", m.rec.id)
		return nil
	}

	id := uuid.NewString()
	recCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	source, err := m.cfg.NewSource()
	if err != nil {
		cancel()
		return m.failStart(ctx, fmt.Errorf("host: open capture source: %w", err))
	}
	frames, err := source.Start(recCtx)
	if err != nil {
		cancel()
		_ = source.Close()
		return m.failStart(ctx, fmt.Errorf("host: start capture: %w", err))
	}
	if m.cfg.CaptureTarget.SampleRate > 0 {
		frames = audio.ConvertStream(frames, m.cfg.CaptureTarget)
	}
	sess, err := m.cfg.STT.StartStream(recCtx, m.cfg.StreamConfig)
	if err != nil {
		cancel()
		_ = source.Close()
		return m.failStart(ctx, fmt.Errorf("host: start transcription: %w", err))
	}

	rec := &recording{
		id:        id,
		startedAt: time.Now(),
		source:    source,
		sess:      sess,
		cancel:    cancel,
		pumpDone:  make(chan struct{}),
		result:    make(chan string, 1),
	}
	m.rec = rec

	go m.pump(frames, sess, rec.pumpDone)
	go m.collect(recCtx, sess, rec.result)

	if err := m.setStatus(ctx, session.StatusRecording); err != nil {
		return err
	}
	m.metrics.ActiveRecordings.Add(ctx, 1)
	if err := m.cfg.Bus.Post(ctx, session.SignalRecordingStarted); err != nil {
		return err
	}
	slog.Info("host: recording started", "session_id", id)
	return nil
}

// StopRecording finalises the active recording: flushes the STT session,
// cleans the transcript, and publishes the result. A stop while idle is
// ignored.
func (m *Manager) StopRecording(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.rec
	if rec == nil {
		slog.Warn("host: stop ignored, no active recording")
		return nil
	}
	m.rec = nil

	if err := m.setStatus(ctx, session.StatusProcessing); err != nil {
		return err
	}
	m.metrics.ActiveRecordings.Add(ctx, -1)
	m.metrics.RecordingDuration.Record(ctx, time.Since(rec.startedAt).Seconds())

	raw := m.drain(rec)
	slog.Info("host: recording stopped",
		"session_id", rec.id, "transcript_chars", len(raw))

	if strings.TrimSpace(raw) == "" {
		m.metrics.RecordDictation(ctx, "error")
		return m.fail(ctx, rec.id, "no speech detected")
	}

	cleaned := m.clean(ctx, raw)

	sess := session.Session{
		ID:          rec.id,
		RawText:     raw,
		CleanedText: cleaned,
		Status:      session.StatusReady,
	}
	if err := store.PutSession(ctx, m.cfg.Store, sess); err != nil {
		return err
	}
	if err := m.cfg.Store.Set(ctx, session.KeyRawTranscript, raw); err != nil {
		return err
	}
	if err := m.cfg.Store.Set(ctx, session.KeyCleanedText, cleaned); err != nil {
		return err
	}
	if err := m.setStatus(ctx, session.StatusReady); err != nil {
		return err
	}
	if err := m.cfg.Bus.Post(ctx, session.SignalTextReady); err != nil {
		return err
	}
	m.metrics.RecordDictation(ctx, "ready")
	slog.Info("host: text ready", "session_id", rec.id)
	return nil
}

// CancelRecording discards the active recording without producing text.
func (m *Manager) CancelRecording(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.rec
	if rec == nil {
		slog.Warn("host: cancel ignored, no active recording")
		return nil
	}
	m.rec = nil

	m.teardown(rec, true)
	m.metrics.ActiveRecordings.Add(ctx, -1)
	m.metrics.RecordDictation(ctx, "cancelled")

	if err := m.cfg.Store.Delete(ctx, session.KeyRawTranscript); err != nil {
		return err
	}
	if err := m.setStatus(ctx, session.StatusIdle); err != nil {
		return err
	}
	slog.Info("host: recording cancelled", "session_id", rec.id)
	return nil
}

// DismissError acknowledges a published error and returns the host to idle.
// A no-op unless the stored status is error.
func (m *Manager) DismissError(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := store.GetStatus(ctx, m.cfg.Store)
	if err != nil {
		return fmt.Errorf("host: read status: %w", err)
	}
	if st != session.StatusError {
		return nil
	}
	return m.setStatus(ctx, session.StatusIdle)
}

// pong answers the keyboard's liveness probe.
func (m *Manager) pong(ctx context.Context) error {
	return m.cfg.Bus.Post(ctx, session.SignalPong)
}

// pump forwards captured frames into the STT session until the source
// closes its channel.
func (m *Manager) pump(frames <-chan audio.Frame, sess stt.SessionHandle, done chan struct{}) {
	defer close(done)
	for f := range frames {
		if err := sess.SendAudio(f.Data); err != nil {
			if !errors.Is(err, stt.ErrSessionClosed) {
				slog.Error("host: send audio", "err", err)
			}
			return
		}
	}
}

// collect accumulates final transcripts and mirrors a live preview (finals
// so far plus the current partial) into the store. It sends the joined
// finals on result once both channels close.
func (m *Manager) collect(ctx context.Context, sess stt.SessionHandle, result chan<- string) {
	var finals []string
	partials := sess.Partials()
	finalCh := sess.Finals()

	preview := func(current string) {
		text := strings.TrimSpace(strings.Join(finals, " ") + " " + current)
		if err := m.cfg.Store.Set(ctx, session.KeyRawTranscript, text); err != nil {
			slog.Warn("host: preview write", "err", err)
			return
		}
		if err := m.cfg.Bus.Post(ctx, session.SignalStateChanged); err != nil {
			slog.Warn("host: preview signal", "err", err)
		}
	}

	for partials != nil || finalCh != nil {
		select {
		case t, ok := <-partials:
			if !ok {
				partials = nil
				continue
			}
			preview(t.Text)
		case t, ok := <-finalCh:
			if !ok {
				finalCh = nil
				continue
			}
			if strings.TrimSpace(t.Text) != "" {
				finals = append(finals, strings.TrimSpace(t.Text))
			}
			preview("")
		}
	}
	result <- strings.Join(finals, " ")
}

// drain shuts the pipeline down in order — stop capture, wait for the pump,
// flush the STT session — and returns the final transcript.
func (m *Manager) drain(rec *recording) string {
	if err := rec.source.Close(); err != nil {
		slog.Warn("host: close capture source", "err", err)
	}
	<-rec.pumpDone
	if err := rec.sess.Close(); err != nil {
		slog.Warn("host: close stt session", "err", err)
	}
	raw := <-rec.result
	rec.cancel()
	return raw
}

// teardown releases a recording without waiting for results.
func (m *Manager) teardown(rec *recording, wait bool) {
	if err := rec.source.Close(); err != nil {
		slog.Warn("host: close capture source", "err", err)
	}
	if wait {
		<-rec.pumpDone
	}
	if err := rec.sess.Close(); err != nil {
		slog.Warn("host: close stt session", "err", err)
	}
	rec.cancel()
}

// clean runs the transcript through the cleanup backend, falling back to
// the raw text when the backend is unavailable or slow.
func (m *Manager) clean(ctx context.Context, raw string) string {
	cleanCtx, cancel := context.WithTimeout(ctx, m.cfg.CleanupTimeout)
	defer cancel()

	start := time.Now()
	cleaned, err := m.cfg.Cleaner.Clean(cleanCtx, raw)
	m.metrics.CleanupDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		slog.Warn("host: cleanup failed, using raw transcript", "err", err)
		m.metrics.CleanupFallbacks.Add(ctx, 1)
		return raw
	}
	return cleaned
}

// setStatus writes the status field and posts stateChanged.
func (m *Manager) setStatus(ctx context.Context, st session.Status) error {
	if err := store.PutStatus(ctx, m.cfg.Store, st); err != nil {
		return err
	}
	m.metrics.RecordTransition(ctx, string(st))
	return m.cfg.Bus.Post(ctx, session.SignalStateChanged)
}

// failStart records a start failure in the store so the keyboard can show
// it, then returns the error.
func (m *Manager) failStart(ctx context.Context, err error) error {
	if ferr := m.fail(ctx, "", err.Error()); ferr != nil {
		slog.Warn("host: record start failure", "err", ferr)
	}
	return err
}

// fail publishes an error session and the error status.
func (m *Manager) fail(ctx context.Context, id, msg string) error {
	sess := session.Session{ID: id, Status: session.StatusError, ErrorMessage: msg}
	if err := store.PutSession(ctx, m.cfg.Store, sess); err != nil {
		return err
	}
	return m.setStatus(ctx, session.StatusError)
}
