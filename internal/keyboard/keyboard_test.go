package keyboard

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	activatemock "github.com/voxkey/voxkey/internal/activate/mock"
	notifymock "github.com/voxkey/voxkey/internal/notify/mock"
	"github.com/voxkey/voxkey/internal/session"
	"github.com/voxkey/voxkey/internal/store"
	storemock "github.com/voxkey/voxkey/internal/store/mock"
)

type recordingInserter struct {
	mu       sync.Mutex
	inserted []string
	err      error
}

func (r *recordingInserter) Insert(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.inserted = append(r.inserted, text)
	return nil
}

func (r *recordingInserter) Inserted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.inserted)
}

type fixture struct {
	ctrl      *Controller
	store     *storemock.Store
	bus       *notifymock.Bus
	activator *activatemock.Activator
	inserter  *recordingInserter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     storemock.New(),
		bus:       notifymock.New(),
		activator: &activatemock.Activator{},
		inserter:  &recordingInserter{},
	}
	ctrl, err := New(Config{
		Store:            f.store,
		Bus:              f.bus,
		Activator:        f.activator,
		Inserter:         f.inserter,
		PingTimeout:      50 * time.Millisecond,
		HostReadyTimeout: 200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.ctrl = ctrl
	return f
}

// run starts the controller's signal loop and stops it at test end.
func (f *fixture) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.ctrl.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run returned %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("Run did not exit")
		}
	})
}

// answerPings makes the mock bus behave like a live host for the warm path.
func (f *fixture) answerPings(t *testing.T) {
	t.Helper()
	ch, cancel := f.bus.Subscribe(session.SignalPing)
	t.Cleanup(cancel)
	go func() {
		for range ch {
			_ = f.bus.Post(context.Background(), session.SignalPong)
		}
	}()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNewRequiresDependencies(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{}); err == nil {
		t.Error("New with empty config should fail")
	}
}

func TestWarmPathPostsStartDirectly(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.run(t)
	f.answerPings(t)

	if err := store.MarkHostReady(ctx, f.store, true); err != nil {
		t.Fatalf("MarkHostReady: %v", err)
	}

	if err := f.ctrl.MicTap(ctx); err != nil {
		t.Fatalf("MicTap: %v", err)
	}
	waitFor(t, "startRecording posted", func() bool {
		return slices.Contains(f.bus.Posted(), session.SignalStartRecording)
	})
	if len(f.activator.Actions()) != 0 {
		t.Errorf("warm path must not activate the host, got %v", f.activator.Actions())
	}

	// Host acknowledges; the controller shows the recording controls.
	if err := f.bus.Post(ctx, session.SignalRecordingStarted); err != nil {
		t.Fatalf("Post: %v", err)
	}
	waitFor(t, "recording state", func() bool { return f.ctrl.State() == StateRecording })
}

func TestColdPathActivatesAndWaitsForHost(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.run(t)

	if err := f.ctrl.MicTap(ctx); err != nil {
		t.Fatalf("MicTap: %v", err)
	}
	if got := f.activator.Actions(); len(got) != 1 || got[0] != ActionRecord {
		t.Fatalf("activations = %v, want [%s]", got, ActionRecord)
	}
	if slices.Contains(f.bus.Posted(), session.SignalStartRecording) {
		t.Fatal("startRecording posted before the host was up")
	}
	if got := f.ctrl.State(); got != StateWaitingHost {
		t.Fatalf("state = %q, want waitingHost", got)
	}

	// Host comes up and announces itself.
	if err := f.bus.Post(ctx, session.SignalHostReady); err != nil {
		t.Fatalf("Post: %v", err)
	}
	waitFor(t, "startRecording posted", func() bool {
		return slices.Contains(f.bus.Posted(), session.SignalStartRecording)
	})
}

func TestStaleReadyFlagFallsBackToColdPath(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.run(t)

	// Flag says ready but nothing answers the ping.
	if err := store.MarkHostReady(ctx, f.store, true); err != nil {
		t.Fatalf("MarkHostReady: %v", err)
	}

	if err := f.ctrl.MicTap(ctx); err != nil {
		t.Fatalf("MicTap: %v", err)
	}
	if got := f.activator.Actions(); len(got) != 1 {
		t.Errorf("expected one activation after ping timeout, got %v", got)
	}
}

func TestColdStartTimeoutIsAnError(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.run(t)

	if err := f.ctrl.MicTap(context.Background()); err != nil {
		t.Fatalf("MicTap: %v", err)
	}
	waitFor(t, "error state", func() bool { return f.ctrl.State() == StateError })
	if f.ctrl.ErrorMessage() == "" {
		t.Error("error state should carry a message")
	}

	f.ctrl.DismissError(context.Background())
	if got := f.ctrl.State(); got != StateIdle {
		t.Errorf("state after dismiss = %q, want idle", got)
	}
}

func TestActivationFailureIsAnError(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.activator.Err = errors.New("no such scheme")

	if err := f.ctrl.MicTap(context.Background()); err == nil {
		t.Fatal("MicTap should surface the activation failure")
	}
	if got := f.ctrl.State(); got != StateError {
		t.Errorf("state = %q, want error", got)
	}
}

func TestConfirmAndCancel(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.run(t)
	f.answerPings(t)

	if err := store.MarkHostReady(ctx, f.store, true); err != nil {
		t.Fatalf("MarkHostReady: %v", err)
	}
	if err := f.ctrl.MicTap(ctx); err != nil {
		t.Fatalf("MicTap: %v", err)
	}
	if err := f.bus.Post(ctx, session.SignalRecordingStarted); err != nil {
		t.Fatalf("Post: %v", err)
	}
	waitFor(t, "recording state", func() bool { return f.ctrl.State() == StateRecording })

	if err := f.ctrl.Confirm(ctx); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if got := f.ctrl.State(); got != StateProcessing {
		t.Errorf("state after confirm = %q, want processing", got)
	}
	if !slices.Contains(f.bus.Posted(), session.SignalStopRecording) {
		t.Error("stopRecording was not posted")
	}

	// A second confirm outside recording is a no-op.
	if err := f.ctrl.Confirm(ctx); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
}

func TestCancelDuringRecording(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.run(t)
	f.answerPings(t)

	if err := store.MarkHostReady(ctx, f.store, true); err != nil {
		t.Fatalf("MarkHostReady: %v", err)
	}
	if err := f.ctrl.MicTap(ctx); err != nil {
		t.Fatalf("MicTap: %v", err)
	}
	if err := f.bus.Post(ctx, session.SignalRecordingStarted); err != nil {
		t.Fatalf("Post: %v", err)
	}
	waitFor(t, "recording state", func() bool { return f.ctrl.State() == StateRecording })

	if err := f.ctrl.Cancel(ctx); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got := f.ctrl.State(); got != StateIdle {
		t.Errorf("state after cancel = %q, want idle", got)
	}
	if !slices.Contains(f.bus.Posted(), session.SignalCancelRecording) {
		t.Error("cancelRecording was not posted")
	}
}

func TestTextReadyInsertsAndResets(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.run(t)

	sess := session.Session{
		ID:          "s1",
		RawText:     "buy milk",
		CleanedText: "Buy milk",
		Status:      session.StatusReady,
	}
	if err := store.PutSession(ctx, f.store, sess); err != nil {
		t.Fatalf("PutSession: %v", err)
	}
	if err := store.PutStatus(ctx, f.store, session.StatusReady); err != nil {
		t.Fatalf("PutStatus: %v", err)
	}

	if err := f.bus.Post(ctx, session.SignalTextReady); err != nil {
		t.Fatalf("Post: %v", err)
	}
	waitFor(t, "insertion", func() bool {
		got := f.inserter.Inserted()
		return len(got) == 1 && got[0] == "Buy milk"
	})
	waitFor(t, "status reset", func() bool {
		st, err := store.GetStatus(ctx, f.store)
		return err == nil && st == session.StatusIdle
	})
	if _, err := store.GetSession(ctx, f.store); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("session should be cleared after insertion, got err=%v", err)
	}
}

func TestTextReadyWithEmptyTextIsAnError(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.run(t)

	if err := store.PutSession(ctx, f.store, session.Session{ID: "s2", Status: session.StatusReady}); err != nil {
		t.Fatalf("PutSession: %v", err)
	}
	if err := f.bus.Post(ctx, session.SignalTextReady); err != nil {
		t.Fatalf("Post: %v", err)
	}
	waitFor(t, "error state", func() bool { return f.ctrl.State() == StateError })
	if len(f.inserter.Inserted()) != 0 {
		t.Error("nothing should be inserted for an empty result")
	}
}

func TestHostErrorIsMirrored(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.run(t)

	sess := session.Session{Status: session.StatusError, ErrorMessage: "microphone permission denied"}
	if err := store.PutSession(ctx, f.store, sess); err != nil {
		t.Fatalf("PutSession: %v", err)
	}
	if err := store.PutStatus(ctx, f.store, session.StatusError); err != nil {
		t.Fatalf("PutStatus: %v", err)
	}
	if err := f.bus.Post(ctx, session.SignalStateChanged); err != nil {
		t.Fatalf("Post: %v", err)
	}

	waitFor(t, "error state", func() bool { return f.ctrl.State() == StateError })
	if got := f.ctrl.ErrorMessage(); got != "microphone permission denied" {
		t.Errorf("ErrorMessage = %q", got)
	}
}

func TestMicTapOutsideIdleIsIgnored(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if err := f.ctrl.MicTap(ctx); err != nil {
		t.Fatalf("MicTap: %v", err)
	}
	if got := f.ctrl.State(); got != StateWaitingHost {
		t.Fatalf("state = %q", got)
	}
	before := len(f.activator.Actions())
	if err := f.ctrl.MicTap(ctx); err != nil {
		t.Fatalf("second MicTap: %v", err)
	}
	if got := len(f.activator.Actions()); got != before {
		t.Errorf("second tap triggered another activation")
	}
}
