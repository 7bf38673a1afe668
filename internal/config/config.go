package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ManDuong25/facebook-sub000/pkg/logger"
)

const (
	// DefaultMaxWindows is the default bound on simultaneously open chat
	// windows.
	DefaultMaxWindows = 4
	// DefaultPageSize is the default history page size.
	DefaultPageSize = 20
)

type Config struct {
	// ServerURL is the base URL of the server API.
	ServerURL string
	// SocketPath is the Socket.IO handshake path on the server.
	SocketPath string

	// HomeDir is the directory where the client stores local state.
	HomeDir string
	// AccessKey is the path to the access token file.
	AccessKey string

	// MaxWindows bounds how many chat windows may be open at once.
	MaxWindows int
	// PageSize is the number of messages fetched per history page.
	PageSize int

	// LogLevel is the logger verbosity threshold.
	LogLevel logger.Level
	// Debug enables verbose logging regardless of LogLevel.
	Debug bool
}

// Load loads configuration from environment and defaults
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	subHome := os.Getenv("SUB_HOME_DIR")
	if subHome == "" {
		subHome = filepath.Join(homeDir, ".sub000")
	}
	if err := os.MkdirAll(subHome, 0700); err != nil {
		return nil, fmt.Errorf("failed to create home dir: %w", err)
	}

	serverURL := os.Getenv("SUB_SERVER_URL")
	if serverURL == "" {
		serverURL = "https://api.sub000.app"
	}

	socketPath := os.Getenv("SUB_SOCKET_PATH")
	if socketPath == "" {
		socketPath = "/v1/ws"
	}

	accessKey := os.Getenv("SUB_ACCESS_KEY")
	if accessKey == "" {
		accessKey = filepath.Join(subHome, "access.key")
	}

	maxWindows := DefaultMaxWindows
	if raw := os.Getenv("SUB_MAX_WINDOWS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid SUB_MAX_WINDOWS %q", raw)
		}
		maxWindows = n
	}

	pageSize := DefaultPageSize
	if raw := os.Getenv("SUB_PAGE_SIZE"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid SUB_PAGE_SIZE %q", raw)
		}
		pageSize = n
	}

	debug := os.Getenv("SUB_DEBUG") == "true" || os.Getenv("SUB_DEBUG") == "1" ||
		os.Getenv("DEBUG") == "true" || os.Getenv("DEBUG") == "1"

	level := logger.LevelInfo
	if raw := os.Getenv("SUB_LOG_LEVEL"); raw != "" {
		level, err = logger.ParseLevel(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid SUB_LOG_LEVEL: %w", err)
		}
	}
	if debug && level > logger.LevelDebug {
		level = logger.LevelDebug
	}

	return &Config{
		ServerURL:  serverURL,
		SocketPath: socketPath,
		HomeDir:    subHome,
		AccessKey:  accessKey,
		MaxWindows: maxWindows,
		PageSize:   pageSize,
		LogLevel:   level,
		Debug:      debug,
	}, nil
}
