package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7419", cfg.Server.Addr)
	assert.Empty(t, cfg.Server.Token)
	assert.Equal(t, "stdout", cfg.Log.Output)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 100, cfg.Playback.HistoryCapacity)
	assert.Equal(t, 3*time.Second, cfg.Playback.RestartThreshold())
	assert.Equal(t, 250*time.Millisecond, cfg.Playback.ProgressInterval())
	assert.Equal(t, 1.0, cfg.Playback.Volume)
	assert.Equal(t, "sqlite", cfg.Persistence.Type)
	assert.Equal(t, 1024, cfg.Sync.MaxPending)
	assert.Equal(t, 44100, cfg.Audio.SampleRate)
	assert.Equal(t, 100*time.Millisecond, cfg.Audio.Buffer())
	assert.False(t, cfg.Audio.Silent)
	assert.Equal(t, []string{".mp3", ".wav", ".flac", ".ogg"}, cfg.Library.Extensions)
}

func TestParse_FileValues(t *testing.T) {
	data := []byte(`
server:
  addr: "0.0.0.0:9000"
  token: "secret"
  hooks:
    on_started:
      - "echo started"
playback:
  history_capacity: 20
  restart_threshold_ms: 5000
  volume: 0.5
persistence:
  type: memory
sync:
  max_pending: 8
`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, "secret", cfg.Server.Token)
	assert.Equal(t, []string{"echo started"}, cfg.Server.Hooks.OnStarted)
	assert.Empty(t, cfg.Server.Hooks.OnStopped)
	assert.Equal(t, 20, cfg.Playback.HistoryCapacity)
	assert.Equal(t, 5*time.Second, cfg.Playback.RestartThreshold())
	assert.Equal(t, 0.5, cfg.Playback.Volume)
	assert.Equal(t, "memory", cfg.Persistence.Type)
	assert.Equal(t, 8, cfg.Sync.MaxPending)
}

func TestParse_PersistenceSettings(t *testing.T) {
	data := []byte(`
persistence:
  type: sqlite
  settings:
    path: /var/lib/deck/queue.db
    busy_timeout_ms: 2000
`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/deck/queue.db", cfg.Persistence.Settings["path"])
	assert.Equal(t, 2000, cfg.Persistence.Settings["busy_timeout_ms"])
}

func TestParse_Filters(t *testing.T) {
	data := []byte(`
filters:
  duplicate_track_filter:
    enabled: true
  duration_limit_filter:
    enabled: false
    settings:
      max_seconds: 600
`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.True(t, cfg.IsFilterEnabled("duplicate_track_filter"))
	assert.False(t, cfg.IsFilterEnabled("duration_limit_filter"))
	assert.False(t, cfg.IsFilterEnabled("unknown"))
	assert.Equal(t, 600, cfg.FilterSettings("duration_limit_filter")["max_seconds"])
	assert.Nil(t, cfg.FilterSettings("duplicate_track_filter"))
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		errMsg string
	}{
		{
			name:   "history capacity too large",
			data:   "playback:\n  history_capacity: 20000\n",
			errMsg: "HistoryCapacity",
		},
		{
			name:   "volume above one",
			data:   "playback:\n  volume: 1.5\n",
			errMsg: "Volume",
		},
		{
			name:   "unknown persistence type",
			data:   "persistence:\n  type: postgres\n",
			errMsg: "Type",
		},
		{
			name:   "unknown log level",
			data:   "log:\n  level: loud\n",
			errMsg: "Level",
		},
		{
			name:   "file output without path",
			data:   "log:\n  output: file\n",
			errMsg: "log.file",
		},
		{
			name:   "sample rate too low",
			data:   "audio:\n  sample_rate: 4000\n",
			errMsg: "SampleRate",
		},
		{
			name:   "extension without dot",
			data:   "library:\n  extensions: [mp3]\n",
			errMsg: "Extensions",
		},
		{
			name:   "malformed yaml",
			data:   "server: [",
			errMsg: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("DECK_CONTROL_TOKEN", "from-env")
	t.Setenv("DECK_DB_PATH", "/tmp/env.db")

	cfg, err := Parse([]byte("server:\n  token: from-file\n"))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Server.Token)
	assert.Equal(t, "/tmp/env.db", cfg.Persistence.Settings["path"])
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sync:\n  max_pending: 3\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Sync.MaxPending)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLogConfig_Console(t *testing.T) {
	assert.True(t, LogConfig{Output: "stdout"}.Console())
	assert.True(t, LogConfig{Output: "STDERR"}.Console())
	assert.True(t, LogConfig{}.Console())
	assert.False(t, LogConfig{Output: "file"}.Console())
}

func TestDefault(t *testing.T) {
	assert.Equal(t, "127.0.0.1:7419", Default().Server.Addr)
}
