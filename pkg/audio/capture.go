package audio

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"
)

// Source produces a stream of captured audio frames.
//
// Implementations must be safe for concurrent use. The frame channel is
// closed when capture ends, whether by [Source.Close], context cancellation,
// or device failure.
type Source interface {
	// Start begins capture and returns the frame channel. Calling Start a
	// second time returns an error.
	Start(ctx context.Context) (<-chan Frame, error)

	// Close stops capture and releases the device.
	Close() error
}

// CmdSource implements [Source] by running an external capture tool
// (arecord, sox, ffmpeg, ...) that writes raw 16-bit little-endian PCM to
// stdout.
type CmdSource struct {
	name     string
	args     []string
	format   Format
	frameDur time.Duration

	mu      sync.Mutex
	cmd     *exec.Cmd
	started bool
	cancel  context.CancelFunc
}

// CmdOption configures a CmdSource.
type CmdOption func(*CmdSource)

// WithFrameDuration sets the duration of each emitted frame.
// Defaults to 20 ms.
func WithFrameDuration(d time.Duration) CmdOption {
	return func(s *CmdSource) { s.frameDur = d }
}

// NewCmdSource builds a CmdSource running name with args. format must match
// the PCM the command actually produces.
func NewCmdSource(name string, args []string, format Format, opts ...CmdOption) (*CmdSource, error) {
	if name == "" {
		return nil, fmt.Errorf("audio: capture command must not be empty")
	}
	if format.SampleRate <= 0 || format.Channels < 1 || format.Channels > 2 {
		return nil, fmt.Errorf("audio: unsupported capture format %dHz/%dch", format.SampleRate, format.Channels)
	}
	s := &CmdSource{
		name:     name,
		args:     args,
		format:   format,
		frameDur: 20 * time.Millisecond,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Start implements [Source].
func (s *CmdSource) Start(ctx context.Context) (<-chan Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil, fmt.Errorf("audio: capture already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, s.name, s.args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("audio: capture stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("audio: start %s: %w", s.name, err)
	}

	s.cmd = cmd
	s.cancel = cancel
	s.started = true

	frames := ReadFrames(stdout, s.format, s.frameDur)
	out := make(chan Frame, 64)
	go func() {
		defer close(out)
		defer cmd.Wait()
		for f := range frames {
			select {
			case out <- f:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close implements [Source].
func (s *CmdSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return nil
}

// ReadFrames slices a raw PCM byte stream into frames of frameDur each. The
// returned channel is closed when r reaches EOF or errors. A trailing
// partial frame is emitted as-is.
func ReadFrames(r io.Reader, format Format, frameDur time.Duration) <-chan Frame {
	frameBytes := int(int64(format.SampleRate) * frameDur.Milliseconds() / 1000 * int64(format.Channels) * 2)
	if frameBytes <= 0 {
		frameBytes = 640
	}

	out := make(chan Frame, 64)
	go func() {
		defer close(out)
		var elapsed time.Duration
		for {
			buf := make([]byte, frameBytes)
			n, err := io.ReadFull(r, buf)
			if n > 0 {
				out <- Frame{
					Data:       buf[:n],
					SampleRate: format.SampleRate,
					Channels:   format.Channels,
					Timestamp:  elapsed,
				}
				elapsed += frameDur
			}
			if err != nil {
				return
			}
		}
	}()
	return out
}
