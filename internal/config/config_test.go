package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ManDuong25/facebook-sub000/pkg/logger"
)

// clearEnv resets every variable Load reads so ambient shell state cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SUB_HOME_DIR", "SUB_SERVER_URL", "SUB_SOCKET_PATH", "SUB_ACCESS_KEY",
		"SUB_MAX_WINDOWS", "SUB_PAGE_SIZE", "SUB_DEBUG", "SUB_LOG_LEVEL", "DEBUG",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("SUB_HOME_DIR", home)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "https://api.sub000.app", cfg.ServerURL)
	require.Equal(t, "/v1/ws", cfg.SocketPath)
	require.Equal(t, home, cfg.HomeDir)
	require.Equal(t, filepath.Join(home, "access.key"), cfg.AccessKey)
	require.Equal(t, DefaultMaxWindows, cfg.MaxWindows)
	require.Equal(t, DefaultPageSize, cfg.PageSize)
	require.Equal(t, logger.LevelInfo, cfg.LogLevel)
	require.False(t, cfg.Debug)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SUB_HOME_DIR", t.TempDir())
	t.Setenv("SUB_SERVER_URL", "http://localhost:8080")
	t.Setenv("SUB_SOCKET_PATH", "/socket.io")
	t.Setenv("SUB_MAX_WINDOWS", "2")
	t.Setenv("SUB_PAGE_SIZE", "50")
	t.Setenv("SUB_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080", cfg.ServerURL)
	require.Equal(t, "/socket.io", cfg.SocketPath)
	require.Equal(t, 2, cfg.MaxWindows)
	require.Equal(t, 50, cfg.PageSize)
	require.Equal(t, logger.LevelWarn, cfg.LogLevel)
}

func TestLoad_DebugLowersLogLevel(t *testing.T) {
	clearEnv(t)
	t.Setenv("SUB_HOME_DIR", t.TempDir())
	t.Setenv("SUB_DEBUG", "1")

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.Debug)
	require.Equal(t, logger.LevelDebug, cfg.LogLevel)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	cases := map[string]struct {
		key, value string
	}{
		"non numeric windows": {"SUB_MAX_WINDOWS", "lots"},
		"zero windows":        {"SUB_MAX_WINDOWS", "0"},
		"negative page size":  {"SUB_PAGE_SIZE", "-1"},
		"unknown log level":   {"SUB_LOG_LEVEL", "chatty"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("SUB_HOME_DIR", t.TempDir())
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			require.Error(t, err)
		})
	}
}
