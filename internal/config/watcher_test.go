package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

const watcherYAML = `
shared:
  store_path: /tmp/voxkey/state.db
  signal_dir: /tmp/voxkey/signals
parser:
  date_format: mdy
`

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestWatcherLoadsInitialConfig(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "voxkey.yaml")
	writeConfig(t, path, watcherYAML)

	w, err := NewWatcher(path, nil, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	if got := w.Current().Parser.DateFormat; got != DateMDY {
		t.Errorf("DateFormat = %q", got)
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "voxkey.yaml")
	writeConfig(t, path, watcherYAML)

	var mu sync.Mutex
	var reloaded *Config
	onChange := func(_, next *Config) {
		mu.Lock()
		reloaded = next
		mu.Unlock()
	}

	w, err := NewWatcher(path, onChange, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	// Backdate so the mtime comparison cannot miss a fast rewrite.
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	writeConfig(t, path, watcherYAML+"  prefer_pm: false\n")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		got := reloaded
		mu.Unlock()
		if got != nil {
			if got.Parser.PreferPM == nil || *got.Parser.PreferPM {
				t.Errorf("reloaded config did not pick up prefer_pm: false")
			}
			if w.Current() != got {
				t.Error("Current should return the reloaded config")
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("watcher never reloaded")
}

func TestWatcherKeepsOldConfigOnInvalidEdit(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "voxkey.yaml")
	writeConfig(t, path, watcherYAML)

	w, err := NewWatcher(path, nil, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	before := w.Current()
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	writeConfig(t, path, "not: [valid: yaml")

	time.Sleep(100 * time.Millisecond)
	if w.Current() != before {
		t.Error("invalid edit must not replace the current config")
	}
}
