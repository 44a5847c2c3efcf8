package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt":     {"whisper", "deepgram"},
	"cleanup": {"openai", "anyllm"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills in the values both binaries assume when the file
// leaves them out.
func ApplyDefaults(cfg *Config) {
	if cfg.Audio.SampleRate == 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels == 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Activation.Opener == "" {
		cfg.Activation.Opener = "open"
	}
	if cfg.Activation.Scheme == "" {
		cfg.Activation.Scheme = "voxkey"
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Shared.StorePath == "" {
		errs = append(errs, errors.New("shared.store_path is required"))
	}
	if cfg.Shared.SignalDir == "" {
		errs = append(errs, errors.New("shared.signal_dir is required"))
	}

	if cfg.Parser.DateFormat != "" && !cfg.Parser.DateFormat.IsValid() {
		errs = append(errs, fmt.Errorf("parser.date_format %q is invalid; valid values: mdy, dmy", cfg.Parser.DateFormat))
	}
	if _, err := cfg.Parser.Prefs(); err != nil {
		errs = append(errs, err)
	}

	validateProviderName("stt", cfg.STT.Name)
	validateProviderName("cleanup", cfg.Cleanup.Name)

	if cfg.STT.Name == "deepgram" && cfg.STT.APIKey == "" {
		errs = append(errs, errors.New("stt.api_key is required for deepgram"))
	}
	if cfg.STT.Name == "whisper" && cfg.STT.Model == "" {
		errs = append(errs, errors.New("stt.model (ggml model path) is required for whisper"))
	}
	if cfg.Cleanup.Name == "openai" && cfg.Cleanup.APIKey == "" {
		errs = append(errs, errors.New("cleanup.api_key is required for openai"))
	}
	if cfg.Cleanup.Name == "" {
		slog.Warn("no cleanup provider configured; dictations will insert the raw transcript")
	}

	if cfg.Audio.Command == "" {
		slog.Warn("audio.command is empty; the host cannot capture microphone input")
	}
	if cfg.Audio.SampleRate < 8000 || cfg.Audio.SampleRate > 48000 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d is out of range [8000, 48000]", cfg.Audio.SampleRate))
	}
	if cfg.Audio.Channels < 1 || cfg.Audio.Channels > 2 {
		errs = append(errs, fmt.Errorf("audio.channels %d must be 1 or 2", cfg.Audio.Channels))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
