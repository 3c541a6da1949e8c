// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server      ServerConfig            `yaml:"server"`
	Log         LogConfig               `yaml:"log"`
	Playback    PlaybackConfig          `yaml:"playback"`
	Audio       AudioConfig             `yaml:"audio"`
	Persistence PersistenceConfig       `yaml:"persistence"`
	Sync        SyncConfig              `yaml:"sync"`
	Library     LibraryConfig           `yaml:"library"`
	Filters     map[string]FilterConfig `yaml:"filters"`
}

// ServerConfig represents control API server configuration.
type ServerConfig struct {
	Addr  string      `yaml:"addr" default:"127.0.0.1:7419" validate:"required,hostname_port"`
	Token string      `yaml:"token"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig lists shell commands run around the server lifecycle.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// LogConfig represents logging configuration. Command line flags win over it.
type LogConfig struct {
	Output string `yaml:"output" default:"stdout"`
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn warning error"`
	File   string `yaml:"file"`
}

// PlaybackConfig represents transition controller configuration.
type PlaybackConfig struct {
	HistoryCapacity    int     `yaml:"history_capacity" default:"100" validate:"gte=1,lte=10000"`
	RestartThresholdMs int     `yaml:"restart_threshold_ms" default:"3000" validate:"gte=0,lte=60000"`
	ProgressIntervalMs int     `yaml:"progress_interval_ms" default:"250" validate:"gte=50,lte=5000"`
	Volume             float64 `yaml:"volume" default:"1.0" validate:"gte=0,lte=1"`
}

// AudioConfig represents audio output configuration.
type AudioConfig struct {
	SampleRate int  `yaml:"sample_rate" default:"44100" validate:"gte=8000,lte=192000"`
	BufferMs   int  `yaml:"buffer_ms" default:"100" validate:"gte=10,lte=2000"`
	Silent     bool `yaml:"silent"`
}

// PersistenceConfig selects and configures the queue persistence backend.
type PersistenceConfig struct {
	Type     string         `yaml:"type" default:"sqlite" validate:"oneof=sqlite memory"`
	Settings map[string]any `yaml:"settings"`
}

// SyncConfig represents persistence sync configuration.
type SyncConfig struct {
	MaxPending int `yaml:"max_pending" default:"1024" validate:"gte=1"`
}

// FilterConfig represents an admission filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// LibraryConfig represents track resolution configuration.
type LibraryConfig struct {
	Extensions []string `yaml:"extensions" default:"[\".mp3\",\".wav\",\".flac\",\".ogg\"]" validate:"min=1,dive,startswith=."`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse builds a configuration from YAML bytes. Empty input yields defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// Default returns the default configuration.
func Default() *Config {
	cfg, err := Parse(nil)
	if err != nil {
		panic(err)
	}
	return cfg
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("DECK_CONTROL_TOKEN"); v != "" {
		c.Server.Token = v
	}
	if v := os.Getenv("DECK_DB_PATH"); v != "" {
		if c.Persistence.Settings == nil {
			c.Persistence.Settings = map[string]any{}
		}
		c.Persistence.Settings["path"] = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if !c.Log.Console() && c.Log.File == "" {
		return errors.Newf("log.file is required when log.output is %q", c.Log.Output)
	}

	return nil
}

// Console reports whether logs go to stdout or stderr.
func (l LogConfig) Console() bool {
	switch strings.ToLower(l.Output) {
	case "stdout", "stderr", "":
		return true
	default:
		return false
	}
}

// IsFilterEnabled checks if a filter is enabled.
func (c *Config) IsFilterEnabled(name string) bool {
	if f, ok := c.Filters[name]; ok {
		return f.Enabled
	}
	return false
}

// FilterSettings returns the settings for a filter.
func (c *Config) FilterSettings(name string) map[string]any {
	if f, ok := c.Filters[name]; ok {
		return f.Settings
	}
	return nil
}

// RestartThreshold returns the "previous restarts the track" threshold.
func (p PlaybackConfig) RestartThreshold() time.Duration {
	return time.Duration(p.RestartThresholdMs) * time.Millisecond
}

// Buffer returns the speaker buffer length.
func (a AudioConfig) Buffer() time.Duration {
	return time.Duration(a.BufferMs) * time.Millisecond
}

// ProgressInterval returns the audio progress reporting interval.
func (p PlaybackConfig) ProgressInterval() time.Duration {
	return time.Duration(p.ProgressIntervalMs) * time.Millisecond
}
