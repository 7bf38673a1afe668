package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWindowState_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	state := WindowState{
		Windows: []WindowEntry{
			{ConversationID: "2", Kind: "direct", DisplayName: "Bob"},
			{ConversationID: "7", Kind: "room", DisplayName: "general"},
		},
		ActiveID: "7",
	}

	require.NoError(t, SaveWindowState(dir, state))

	got := LoadWindowState(dir)
	require.Equal(t, state.Windows, got.Windows)
	require.Equal(t, "7", got.ActiveID)
	require.NotZero(t, got.UpdatedAtMs)
}

func TestLoadWindowState_MissingFile(t *testing.T) {
	t.Parallel()

	got := LoadWindowState(t.TempDir())
	require.Empty(t, got.Windows)
	require.Empty(t, got.ActiveID)
}

func TestLoadWindowState_CorruptFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "windows.json"), []byte("{not json"), 0o600))

	got := LoadWindowState(dir)
	require.Empty(t, got.Windows)
}

func TestSaveWindowState_CreatesHomeDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "home")
	require.NoError(t, SaveWindowState(dir, WindowState{ActiveID: "1"}))
	require.Equal(t, "1", LoadWindowState(dir).ActiveID)
}

func TestSaveWindowState_OverwritesAtomically(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, SaveWindowState(dir, WindowState{ActiveID: "1"}))
	require.NoError(t, SaveWindowState(dir, WindowState{ActiveID: "2"}))

	require.Equal(t, "2", LoadWindowState(dir).ActiveID)
	_, err := os.Stat(filepath.Join(dir, "windows.json.tmp"))
	require.True(t, os.IsNotExist(err))
}
