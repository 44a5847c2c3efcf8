// Package config provides the configuration schema, loader, and file watcher
// for the voxkey host and keyboard processes.
//
// Both binaries read the same YAML file, usually from the shared container
// directory, so that parser preferences edited in the host app take effect
// in the keyboard.
package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/voxkey/voxkey/internal/parse"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// DateFormat selects how numeric dates like "3/4" are read.
type DateFormat string

const (
	// DateMDY reads "3/4" as March 4th.
	DateMDY DateFormat = "mdy"

	// DateDMY reads "3/4" as April 3rd.
	DateDMY DateFormat = "dmy"
)

// IsValid reports whether f is a recognised date format.
func (f DateFormat) IsValid() bool {
	return f == DateMDY || f == DateDMY
}

// Config is the root configuration structure for voxkey.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Shared     SharedConfig     `yaml:"shared"`
	Parser     ParserConfig     `yaml:"parser"`
	Audio      AudioConfig      `yaml:"audio"`
	STT        ProviderEntry    `yaml:"stt"`
	Cleanup    ProviderEntry    `yaml:"cleanup"`
	Activation ActivationConfig `yaml:"activation"`
}

// ServerConfig holds logging and metrics settings for the host daemon.
type ServerConfig struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is the TCP address the host serves /metrics and /healthz
	// on (e.g., "127.0.0.1:9090"). Empty disables the endpoint.
	MetricsAddr string `yaml:"metrics_addr"`
}

// SharedConfig locates the shared container both processes use.
type SharedConfig struct {
	// StorePath is the SQLite database file backing the shared session
	// store.
	StorePath string `yaml:"store_path"`

	// SignalDir is the directory used by the file-based notification bus.
	SignalDir string `yaml:"signal_dir"`
}

// ParserConfig holds the user-facing scheduling parser preferences.
type ParserConfig struct {
	// DateFormat selects month/day vs day/month numeric dates.
	// Default: mdy.
	DateFormat DateFormat `yaml:"date_format"`

	// PreferPM resolves bare hours ("at 3") to the afternoon.
	PreferPM *bool `yaml:"prefer_pm"`

	// Shortcuts enables the two-letter day shortcuts "td" and "tm".
	Shortcuts *bool `yaml:"shortcuts"`

	// TimePeriods enables the named time-of-day words
	// (morning/noon/afternoon/evening/night).
	TimePeriods *bool `yaml:"time_periods"`

	// PhoneticRepair enables repair of misheard scheduling tokens in
	// dictated text.
	PhoneticRepair *bool `yaml:"phonetic_repair"`

	// Presets overrides the time-of-day preset clock times, as "H:MM"
	// strings keyed by period name.
	Presets map[string]string `yaml:"presets"`
}

// AudioConfig describes the capture command the host spawns for microphone
// input.
type AudioConfig struct {
	// Command is the recorder executable (e.g., "rec", "arecord",
	// "ffmpeg"). It must write raw little-endian PCM16 to stdout.
	Command string `yaml:"command"`

	// Args are passed to Command verbatim.
	Args []string `yaml:"args"`

	// SampleRate of the raw stream. Default: 16000.
	SampleRate int `yaml:"sample_rate"`

	// Channels of the raw stream. Default: 1.
	Channels int `yaml:"channels"`
}

// ProviderEntry is the common configuration block shared by the STT and
// cleanup provider selections.
type ProviderEntry struct {
	// Name selects the provider implementation
	// (stt: "whisper", "deepgram"; cleanup: "openai", "anyllm").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider
	// (e.g., "nova-3", "gpt-4o-mini", a ggml model path for whisper).
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by
	// the standard fields above.
	Options map[string]any `yaml:"options"`
}

// ActivationConfig describes how the keyboard launches the host on the cold
// path.
type ActivationConfig struct {
	// Opener is the URL dispatch binary ("open" on macOS, "xdg-open" on
	// Linux). Default: "open".
	Opener string `yaml:"opener"`

	// Scheme is the host's registered URL scheme without "://".
	// Default: "voxkey".
	Scheme string `yaml:"scheme"`
}

// presetOrder fixes which period names are accepted in parser.presets.
var presetOrder = []string{"morning", "noon", "afternoon", "evening", "night"}

// Prefs converts the parser section into the immutable preference set the
// parser consumes. Unset booleans fall back to [parse.DefaultPrefs].
func (p ParserConfig) Prefs() (parse.Prefs, error) {
	prefs := parse.DefaultPrefs()
	prefs.DayFirst = p.DateFormat == DateDMY
	if p.PreferPM != nil {
		prefs.PreferPM = *p.PreferPM
	}
	if p.Shortcuts != nil {
		prefs.Shortcuts = *p.Shortcuts
	}
	if p.TimePeriods != nil {
		prefs.TimePeriods = *p.TimePeriods
	}
	if p.PhoneticRepair != nil {
		prefs.PhoneticRepair = *p.PhoneticRepair
	}

	for name, value := range p.Presets {
		ct, err := parseClockTime(value)
		if err != nil {
			return parse.Prefs{}, fmt.Errorf("config: parser.presets.%s: %w", name, err)
		}
		switch name {
		case "morning":
			prefs.Presets.Morning = ct
		case "noon":
			prefs.Presets.Noon = ct
		case "afternoon":
			prefs.Presets.Afternoon = ct
		case "evening":
			prefs.Presets.Evening = ct
		case "night":
			prefs.Presets.Night = ct
		default:
			return parse.Prefs{}, fmt.Errorf("config: parser.presets: unknown period %q; valid names: %s",
				name, strings.Join(presetOrder, ", "))
		}
	}
	return prefs, nil
}

// parseClockTime reads "H:MM" or "H" into a [parse.ClockTime].
func parseClockTime(s string) (parse.ClockTime, error) {
	hourPart, minutePart, hasMinute := strings.Cut(strings.TrimSpace(s), ":")
	hour, err := strconv.Atoi(hourPart)
	if err != nil || hour < 0 || hour > 23 {
		return parse.ClockTime{}, fmt.Errorf("invalid hour in %q", s)
	}
	minute := 0
	if hasMinute {
		minute, err = strconv.Atoi(minutePart)
		if err != nil || minute < 0 || minute > 59 {
			return parse.ClockTime{}, fmt.Errorf("invalid minute in %q", s)
		}
	}
	return parse.ClockTime{Hour: hour, Minute: minute}, nil
}

// SlogLevel maps the configured level to a [slog.Level], defaulting to info.
func (s ServerConfig) SlogLevel() slog.Level {
	switch s.LogLevel {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
