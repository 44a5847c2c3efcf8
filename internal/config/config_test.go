package config

import (
	"strings"
	"testing"

	"github.com/voxkey/voxkey/internal/parse"
)

const validYAML = `
server:
  log_level: debug
  metrics_addr: "127.0.0.1:9090"
shared:
  store_path: /tmp/voxkey/state.db
  signal_dir: /tmp/voxkey/signals
parser:
  date_format: dmy
  prefer_pm: false
  presets:
    morning: "7:30"
audio:
  command: rec
  args: ["-q", "-t", "raw"]
  sample_rate: 48000
  channels: 2
stt:
  name: deepgram
  api_key: dg-secret
  model: nova-3
cleanup:
  name: openai
  api_key: sk-secret
  model: gpt-4o-mini
activation:
  opener: xdg-open
  scheme: voxkey
`

func TestLoadFromReaderValid(t *testing.T) {
	t.Parallel()
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.LogLevel != LogDebug {
		t.Errorf("LogLevel = %q", cfg.Server.LogLevel)
	}
	if cfg.Shared.SignalDir != "/tmp/voxkey/signals" {
		t.Errorf("SignalDir = %q", cfg.Shared.SignalDir)
	}
	if cfg.STT.Name != "deepgram" || cfg.STT.APIKey != "dg-secret" {
		t.Errorf("STT entry = %+v", cfg.STT)
	}
	if cfg.Audio.SampleRate != 48000 || cfg.Audio.Channels != 2 {
		t.Errorf("Audio = %+v", cfg.Audio)
	}

	prefs, err := cfg.Parser.Prefs()
	if err != nil {
		t.Fatalf("Prefs: %v", err)
	}
	if !prefs.DayFirst {
		t.Error("dmy should set DayFirst")
	}
	if prefs.PreferPM {
		t.Error("prefer_pm: false should clear PreferPM")
	}
	if prefs.Presets.Morning != (parse.ClockTime{Hour: 7, Minute: 30}) {
		t.Errorf("Morning preset = %+v", prefs.Presets.Morning)
	}
	// Untouched presets keep their defaults.
	if prefs.Presets.Evening != (parse.ClockTime{Hour: 18}) {
		t.Errorf("Evening preset = %+v", prefs.Presets.Evening)
	}
	if !prefs.Shortcuts {
		t.Error("unset shortcuts should default on")
	}
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	yaml := `
shared:
  store_path: /tmp/s.db
  signal_dir: /tmp/sig
typo_section:
  foo: bar
`
	if _, err := LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Error("unknown top-level field should be rejected")
	}
}

func TestDefaults(t *testing.T) {
	t.Parallel()
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Audio.SampleRate != 16000 || cfg.Audio.Channels != 1 {
		t.Errorf("audio defaults = %+v", cfg.Audio)
	}
	if cfg.Activation.Opener != "open" || cfg.Activation.Scheme != "voxkey" {
		t.Errorf("activation defaults = %+v", cfg.Activation)
	}
}

func TestValidateJoinsAllFailures(t *testing.T) {
	t.Parallel()
	cfg := &Config{
		Server: ServerConfig{LogLevel: "loud"},
		Parser: ParserConfig{DateFormat: "ymd"},
		Audio:  AudioConfig{SampleRate: 4000, Channels: 3},
		STT:    ProviderEntry{Name: "deepgram"},
	}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate should fail")
	}
	for _, want := range []string{
		"server.log_level",
		"shared.store_path",
		"shared.signal_dir",
		"parser.date_format",
		"audio.sample_rate",
		"audio.channels",
		"stt.api_key",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error is missing %q: %v", want, err)
		}
	}
}

func TestPrefsRejectsBadPresets(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		presets map[string]string
	}{
		{"unknown period", map[string]string{"dawn": "5:00"}},
		{"bad hour", map[string]string{"morning": "25:00"}},
		{"bad minute", map[string]string{"noon": "12:61"}},
		{"not a time", map[string]string{"night": "late"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := ParserConfig{Presets: tt.presets}
			if _, err := p.Prefs(); err == nil {
				t.Errorf("Prefs(%v) should fail", tt.presets)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	_, err := Load("/nonexistent/voxkey.yaml")
	if err == nil {
		t.Fatal("Load should fail for a missing file")
	}
	if !strings.Contains(err.Error(), "open") {
		t.Errorf("err = %v", err)
	}
}
