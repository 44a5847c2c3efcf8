// Package activate wakes the host process up when the keyboard finds it
// dead (the cold start path).
//
// The keyboard cannot spawn long-running children itself, so activation goes
// through the platform's URL dispatch: opening the host's registered URL
// scheme starts the host if needed and delivers the action to an already
// running instance otherwise.
package activate

import (
	"context"
	"fmt"
	"os/exec"
)

// Activator launches or foregrounds the host process.
type Activator interface {
	// Activate requests a host start with the given action ("record",
	// "settings", ...). It returns once the launch request is handed to
	// the platform, not once the host is actually up; callers confirm
	// liveness separately via the ready flag and signal.
	Activate(ctx context.Context, action string) error
}

// URLActivator implements [Activator] by invoking the platform's URL opener
// ("open" on macOS, "xdg-open" on Linux) with a scheme URL such as
// voxkey://record.
type URLActivator struct {
	opener string
	scheme string
}

// NewURL returns a URLActivator using the given opener binary and URL
// scheme (without the trailing "://").
func NewURL(opener, scheme string) *URLActivator {
	return &URLActivator{opener: opener, scheme: scheme}
}

// Activate implements [Activator].
func (a *URLActivator) Activate(ctx context.Context, action string) error {
	url := fmt.Sprintf("%s://%s", a.scheme, action)
	cmd := exec.CommandContext(ctx, a.opener, url)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("activate: %s %s: %w (%s)", a.opener, url, err, out)
	}
	return nil
}
