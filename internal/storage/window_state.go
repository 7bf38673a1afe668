// Package storage persists machine-local client state under the home
// directory.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// windowStateFile is the file name under the home dir holding the open
// window set.
const windowStateFile = "windows.json"

// WindowEntry is one persisted open conversation window.
type WindowEntry struct {
	// ConversationID is the partner user id or room id.
	ConversationID string `json:"conversationId"`
	// Kind is "direct" or "room".
	Kind string `json:"kind"`
	// DisplayName is the conversation display name at save time.
	DisplayName string `json:"displayName,omitempty"`
	// AvatarRef is an opaque avatar reference at save time.
	AvatarRef string `json:"avatarRef,omitempty"`
}

// WindowState is the durable open-window set, oldest-activated first.
//
// This is machine-local UI state; it is never sent to the server.
type WindowState struct {
	// Windows holds the open windows, oldest-activated first.
	Windows []WindowEntry `json:"windows"`
	// ActiveID is the selected conversation id, if any.
	ActiveID string `json:"activeId,omitempty"`
	// UpdatedAtMs is the wall-clock timestamp of the most recent write.
	UpdatedAtMs int64 `json:"updatedAtMs,omitempty"`
}

// LoadWindowState reads the persisted window set.
//
// A missing or unreadable file yields an empty state, not an error: window
// restore is best-effort and must never block startup.
func LoadWindowState(homeDir string) WindowState {
	data, err := os.ReadFile(filepath.Join(homeDir, windowStateFile))
	if err != nil {
		return WindowState{}
	}
	var state WindowState
	if err := json.Unmarshal(data, &state); err != nil {
		return WindowState{}
	}
	return state
}

// SaveWindowState writes the window set to disk atomically.
func SaveWindowState(homeDir string, state WindowState) error {
	if err := os.MkdirAll(homeDir, 0o700); err != nil {
		return err
	}

	state.UpdatedAtMs = time.Now().UnixMilli()
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}

	path := filepath.Join(homeDir, windowStateFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
