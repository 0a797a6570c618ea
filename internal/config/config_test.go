package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.API.BaseURL)
	assert.Equal(t, 5, cfg.Realtime.MaxReconnectAttempts)
	assert.Equal(t, "wss://api.joltcab.com/api/realtime", cfg.Realtime.URL)
	assert.False(t, cfg.Realtime.LocalHost)
	assert.Equal(t, BackendKeyring, cfg.Storage.Backend)
}

func TestLoadReadsYAMLAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
api:
  base_url: http://staging.joltcab.test/api/
  timeout_sec: 5
realtime:
  max_reconnect_attempts: 3
storage:
  backend: sqlite
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("JOLTCAB_DISABLE_REALTIME", "true")
	t.Setenv("JOLTCAB_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://staging.joltcab.test/api", cfg.API.BaseURL)
	assert.Equal(t, 5, cfg.API.TimeoutSec)
	assert.Equal(t, 3, cfg.Realtime.MaxReconnectAttempts)
	assert.True(t, cfg.Realtime.Disabled)
	assert.Equal(t, "ws://staging.joltcab.test/api/realtime", cfg.Realtime.URL)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRealtimeURLOverride(t *testing.T) {
	t.Setenv("JOLTCAB_API_URL", "http://localhost:8000/api")
	t.Setenv("JOLTCAB_REALTIME_URL", "ws://localhost:9000/ws")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "ws://localhost:9000/ws", cfg.Realtime.URL)
	assert.True(t, cfg.Realtime.LocalHost)
}

func TestLoadRejectsBadBackend(t *testing.T) {
	t.Setenv("JOLTCAB_TOKEN_BACKEND", "floppy")

	_, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floppy")
}

func TestIsLocalHost(t *testing.T) {
	cases := map[string]bool{
		"localhost":       true,
		"127.0.0.1":       true,
		"::1":             true,
		"0.0.0.0":         true,
		"rider.local":     true,
		"app.localhost":   true,
		"api.joltcab.com": false,
		"10.0.0.4":        false,
	}
	for host, want := range cases {
		assert.Equal(t, want, IsLocalHost(host), host)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.API.BaseURL = "https://eu.joltcab.com/api"
	cfg.Realtime.MaxReconnectAttempts = 7

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://eu.joltcab.com/api", loaded.API.BaseURL)
	assert.Equal(t, 7, loaded.Realtime.MaxReconnectAttempts)
}

func TestLoadDesktopNotificationsFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Realtime.DesktopNotifications)

	require.NoError(t, os.WriteFile(path, []byte("realtime:\n  desktop_notifications: true\n"), 0o600))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Realtime.DesktopNotifications)

	t.Setenv("JOLTCAB_DESKTOP_NOTIFICATIONS", "false")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Realtime.DesktopNotifications)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "config.yaml")

	require.NoError(t, os.WriteFile(".env", []byte("JOLTCAB_LOG_FORMAT=json\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("JOLTCAB_LOG_FORMAT") })
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadRejectsMalformedDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.WriteFile(".env", []byte("JOLTCAB_API_URL=\"http://unterminated\n"), 0o600))
	_, err := Load(filepath.Join(dir, "config.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading .env")
}
