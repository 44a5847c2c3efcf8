package fsdir_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voxkey/voxkey/internal/notify"
	"github.com/voxkey/voxkey/internal/notify/fsdir"
)

const waitFor = 3 * time.Second

func awaitSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case _, ok := <-ch:
		if !ok {
			t.Fatalf("channel for %s closed before delivery", what)
		}
	case <-time.After(waitFor):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestPostDeliversToSubscriber(t *testing.T) {
	t.Parallel()
	bus, err := fsdir.New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer bus.Close()

	ch, cancel := bus.Subscribe("textReady")
	defer cancel()

	if err := bus.Post(context.Background(), "textReady"); err != nil {
		t.Fatalf("Post: %v", err)
	}
	awaitSignal(t, ch, "textReady")
}

func TestTwoBusesShareOneDirectory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	hostBus, err := fsdir.New(dir)
	if err != nil {
		t.Fatalf("New host bus: %v", err)
	}
	defer hostBus.Close()

	kbBus, err := fsdir.New(dir)
	if err != nil {
		t.Fatalf("New keyboard bus: %v", err)
	}
	defer kbBus.Close()

	ch, cancel := hostBus.Subscribe("startRecording")
	defer cancel()

	if err := kbBus.Post(context.Background(), "startRecording"); err != nil {
		t.Fatalf("Post: %v", err)
	}
	awaitSignal(t, ch, "startRecording across buses")
}

func TestRepeatedPostsKeepDelivering(t *testing.T) {
	t.Parallel()
	bus, err := fsdir.New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer bus.Close()

	ch, cancel := bus.Subscribe("ping")
	defer cancel()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := bus.Post(ctx, "ping"); err != nil {
			t.Fatalf("Post %d: %v", i, err)
		}
		awaitSignal(t, ch, "ping")
	}
}

func TestUnrelatedNameNotDelivered(t *testing.T) {
	t.Parallel()
	bus, err := fsdir.New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer bus.Close()

	ch, cancel := bus.Subscribe("pong")
	defer cancel()

	if err := bus.Post(context.Background(), "ping"); err != nil {
		t.Fatalf("Post: %v", err)
	}
	select {
	case <-ch:
		t.Error("pong subscriber woke up for a ping post")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestPostAfterClose(t *testing.T) {
	t.Parallel()
	bus, err := fsdir.New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := bus.Post(context.Background(), "ping"); !errors.Is(err, notify.ErrClosed) {
		t.Errorf("Post after close = %v, want ErrClosed", err)
	}
}

func TestCloseClosesSubscriberChannels(t *testing.T) {
	t.Parallel()
	bus, err := fsdir.New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ch, _ := bus.Subscribe("stateChanged")

	if err := bus.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel, got delivery")
		}
	case <-time.After(waitFor):
		t.Error("subscriber channel not closed on bus close")
	}
}
