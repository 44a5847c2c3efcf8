// Command voxkey-kb is the keyboard-side dictation client. It cannot record
// audio itself; it asks the voxkey-host daemon to do so over the shared
// container and inserts the cleaned text when the host is done.
//
// The binary drives the controller from a line-based command prompt:
//
//	tap            start a dictation (warm or cold path)
//	confirm        stop recording and wait for the cleaned text
//	cancel         abandon the dictation
//	dismiss        acknowledge an error
//	parse <text>   preview the scheduling data parsed from text
//	quit           exit
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/voxkey/voxkey/internal/activate"
	"github.com/voxkey/voxkey/internal/config"
	"github.com/voxkey/voxkey/internal/keyboard"
	"github.com/voxkey/voxkey/internal/notify/fsdir"
	"github.com/voxkey/voxkey/internal/parse"
	"github.com/voxkey/voxkey/internal/store/sqlite"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "voxkey.yaml", "path to the YAML configuration file")
	insertCmd := flag.String("insert-cmd", "", "command that types text into the focused field (e.g. \"wtype\"); empty prints to stdout")
	flag.Parse()

	// The suggester follows parser preference edits without a restart.
	var current atomic.Pointer[keyboard.Suggester]
	onChange := func(_, next *config.Config) {
		s, err := newSuggester(next)
		if err != nil {
			slog.Warn("ignoring reloaded parser preferences", "err", err)
			return
		}
		current.Store(s)
		slog.Info("parser preferences reloaded")
	}
	watcher, err := config.NewWatcher(*configPath, onChange)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voxkey-kb: %v\n", err)
		return 1
	}
	defer watcher.Stop()
	cfg := watcher.Current()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Server.SlogLevel()})))
	slog.Info("voxkey-kb starting", "version", version, "config", *configPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := sqlite.Open(ctx, cfg.Shared.StorePath)
	if err != nil {
		slog.Error("failed to open shared store", "err", err)
		return 1
	}
	defer st.Close()

	bus, err := fsdir.New(cfg.Shared.SignalDir)
	if err != nil {
		slog.Error("failed to open signal bus", "err", err)
		return 1
	}
	defer bus.Close()

	ctrl, err := keyboard.New(keyboard.Config{
		Store:     st,
		Bus:       bus,
		Activator: activate.NewURL(cfg.Activation.Opener, cfg.Activation.Scheme),
		Inserter:  newInserter(*insertCmd),
	})
	if err != nil {
		slog.Error("failed to initialise controller", "err", err)
		return 1
	}

	suggester, err := newSuggester(cfg)
	if err != nil {
		slog.Error("invalid parser preferences", "err", err)
		return 1
	}
	current.Store(suggester)

	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()

	go prompt(ctx, ctrl, &current, stop)

	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

func newSuggester(cfg *config.Config) (*keyboard.Suggester, error) {
	prefs, err := cfg.Parser.Prefs()
	if err != nil {
		return nil, err
	}
	return keyboard.NewSuggester(parse.New(prefs), 0)
}

// prompt reads user commands from stdin until EOF or quit.
func prompt(ctx context.Context, ctrl *keyboard.Controller, suggester *atomic.Pointer[keyboard.Suggester], stop func()) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		cmd, rest, _ := strings.Cut(line, " ")
		var err error
		switch cmd {
		case "":
		case "tap":
			err = ctrl.MicTap(ctx)
		case "confirm", "stop":
			err = ctrl.Confirm(ctx)
		case "cancel":
			err = ctrl.Cancel(ctx)
		case "dismiss":
			ctrl.DismissError(ctx)
		case "state":
			fmt.Println(ctrl.State())
			if msg := ctrl.ErrorMessage(); msg != "" {
				fmt.Println("error:", msg)
			}
		case "parse":
			printSuggestion(suggester.Load().Suggest(rest))
		case "quit", "exit":
			stop()
			return
		default:
			fmt.Printf("unknown command %q\n", cmd)
		}
		if err != nil {
			fmt.Println("error:", err)
		}
	}
	stop()
}

func printSuggestion(res parse.Result) {
	if !res.IsValid {
		fmt.Println("invalid:", res.ErrorMessage)
		return
	}
	fmt.Printf("title: %q\n", res.Title)
	if res.DueDate != nil {
		fmt.Println("due:", res.DueDate.Format("Mon Jan 2 15:04"))
	}
	if res.IsRecurring {
		fmt.Printf("repeats: every %d %s\n", res.RecurrenceInterval, res.RecurrenceFrequency)
	}
}

// cmdInserter types text by invoking an external command with the text as
// its final argument.
type cmdInserter struct {
	name string
	args []string
}

func (c cmdInserter) Insert(ctx context.Context, text string) error {
	args := append(append([]string{}, c.args...), text)
	cmd := exec.CommandContext(ctx, c.name, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("insert: %s: %w (%s)", c.name, err, out)
	}
	return nil
}

func newInserter(spec string) keyboard.Inserter {
	if spec == "" {
		return keyboard.InserterFunc(func(_ context.Context, text string) error {
			_, err := fmt.Println(text)
			return err
		})
	}
	parts := strings.Fields(spec)
	return cmdInserter{name: parts[0], args: parts[1:]}
}
