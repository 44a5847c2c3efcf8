// Command voxkey-host is the dictation host daemon: it owns the microphone,
// the streaming transcription engine, and the LLM transcript cleanup, and
// serves recording requests from the voxkey keyboard process over the
// shared container.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voxkey/voxkey/internal/config"
	"github.com/voxkey/voxkey/internal/health"
	"github.com/voxkey/voxkey/internal/host"
	"github.com/voxkey/voxkey/internal/notify/fsdir"
	"github.com/voxkey/voxkey/internal/observe"
	"github.com/voxkey/voxkey/internal/store"
	"github.com/voxkey/voxkey/internal/store/sqlite"
	"github.com/voxkey/voxkey/pkg/audio"
	"github.com/voxkey/voxkey/pkg/cleanup"
	cleanupanyllm "github.com/voxkey/voxkey/pkg/cleanup/anyllm"
	cleanupopenai "github.com/voxkey/voxkey/pkg/cleanup/openai"
	"github.com/voxkey/voxkey/pkg/stt"
	"github.com/voxkey/voxkey/pkg/stt/deepgram"
	"github.com/voxkey/voxkey/pkg/stt/whisper"
)

// version is stamped by the build.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "voxkey.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voxkey-host: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voxkey-host: %v\n", err)
		}
		return 1
	}

	slog.SetDefault(newLogger(cfg.Server))
	slog.Info("voxkey-host starting",
		"version", version,
		"config", *configPath,
		"store", cfg.Shared.StorePath,
		"signals", cfg.Shared.SignalDir,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "voxkey-host",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()

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

	sttProv, err := buildSTT(cfg)
	if err != nil {
		slog.Error("failed to create stt provider", "err", err)
		return 1
	}
	cleaner, err := buildCleaner(cfg)
	if err != nil {
		slog.Error("failed to create cleanup provider", "err", err)
		return 1
	}

	captureFormat := audio.Format{SampleRate: cfg.Audio.SampleRate, Channels: cfg.Audio.Channels}
	newSource := func() (audio.Source, error) {
		return audio.NewCmdSource(cfg.Audio.Command, cfg.Audio.Args, captureFormat)
	}

	// The STT engines want 16 kHz mono; captured audio is converted on the
	// way in when the recorder produces something else.
	target := audio.Format{SampleRate: 16000, Channels: 1}
	mgr, err := host.New(host.Config{
		Store:         st,
		Bus:           bus,
		NewSource:     newSource,
		STT:           sttProv,
		Cleaner:       cleaner,
		StreamConfig:  stt.StreamConfig{SampleRate: target.SampleRate, Channels: target.Channels},
		CaptureTarget: target,
	})
	if err != nil {
		slog.Error("failed to initialise host", "err", err)
		return 1
	}

	if cfg.Server.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.Server.MetricsAddr, st)
	}

	slog.Info("host ready — waiting for keyboard signals")
	if err := mgr.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildSTT constructs the streaming transcription provider named in cfg.
func buildSTT(cfg *config.Config) (stt.Provider, error) {
	entry := cfg.STT
	switch entry.Name {
	case "deepgram":
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, deepgram.WithLanguage(lang))
		}
		opts = append(opts, deepgram.WithSampleRate(16000))
		return deepgram.New(entry.APIKey, opts...)
	case "whisper":
		var opts []whisper.Option
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.Model, opts...)
	case "":
		return nil, errors.New("stt.name is required")
	default:
		return nil, fmt.Errorf("unknown stt provider %q", entry.Name)
	}
}

// buildCleaner constructs the transcript cleanup chain named in cfg. When
// the options name a local fallback model, a second backend is added so a
// dead network API degrades to local cleanup instead of raw text.
func buildCleaner(cfg *config.Config) (cleanup.Cleaner, error) {
	entry := cfg.Cleanup
	var primary cleanup.Cleaner
	var err error
	switch entry.Name {
	case "openai":
		var opts []cleanupopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, cleanupopenai.WithBaseURL(entry.BaseURL))
		}
		primary, err = cleanupopenai.New(entry.APIKey, entry.Model, opts...)
	case "anyllm":
		backend := optString(entry.Options, "backend")
		if backend == "" {
			backend = "ollama"
		}
		var opts []anyllmlib.Option
		if entry.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
		}
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		primary, err = cleanupanyllm.New(backend, entry.Model, opts...)
	case "":
		// No cleanup configured; every dictation inserts the raw
		// transcript via the host's fallback path.
		return cleanup.NewFallback("none", unavailableCleaner{}), nil
	default:
		return nil, fmt.Errorf("unknown cleanup provider %q", entry.Name)
	}
	if err != nil {
		return nil, err
	}

	chain := cleanup.NewFallback(entry.Name, primary)
	if model := optString(entry.Options, "ollama_fallback_model"); model != "" {
		local, err := cleanupanyllm.New("ollama", model)
		if err != nil {
			return nil, fmt.Errorf("create ollama fallback: %w", err)
		}
		chain.Add("ollama", local)
	}
	return chain, nil
}

// unavailableCleaner always reports the cleanup backend as unavailable.
type unavailableCleaner struct{}

func (unavailableCleaner) Clean(context.Context, string) (string, error) {
	return "", cleanup.ErrUnavailable
}

// serveMetrics exposes /metrics, /healthz and /readyz until ctx ends.
func serveMetrics(ctx context.Context, addr string, st store.Store) {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(health.StoreChecker(st)).Register(mux)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("metrics server error", "err", err)
	}
}

func newLogger(server config.ServerConfig) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: server.SlogLevel()}))
}

// optString extracts a string value from a provider Options map.
// Returns "" if the map is nil, the key is absent, or the value is not a
// string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	s, _ := opts[key].(string)
	return s
}
