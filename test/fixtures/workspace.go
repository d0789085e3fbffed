// Package fixtures provides test helpers for integration tests.
package fixtures

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/Zhao-yangyang/pomodoro-bar/internal/domain"
)

// Workspace is a throwaway pomobar data directory: a place for the prefs
// file, the daemon registry, and the socket, isolated per test.
type Workspace struct {
	Root string
}

// NewWorkspace creates a workspace rooted at dir (typically t.TempDir()).
func NewWorkspace(dir string) *Workspace {
	return &Workspace{Root: dir}
}

// Create makes the data directory.
func (w *Workspace) Create() error {
	return os.MkdirAll(w.DataDir(), 0755)
}

// SeedPrefs writes a prefs.json the way a previous session would have left
// it, so loads exercise the real file path.
func (w *Workspace) SeedPrefs(prefs domain.Preferences) error {
	if err := w.Create(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(w.PrefsPath(), data, 0644)
}

// DataDir returns the data directory path.
func (w *Workspace) DataDir() string {
	return filepath.Join(w.Root, "pomobar")
}

// PrefsPath returns the preferences file path.
func (w *Workspace) PrefsPath() string {
	return filepath.Join(w.DataDir(), "prefs.json")
}

// RegistryPath returns the daemon discovery file path.
func (w *Workspace) RegistryPath() string {
	return filepath.Join(w.DataDir(), "daemon.json")
}

// SocketPath returns the daemon socket path. Kept directly under the root to
// stay inside the Unix socket path length limit.
func (w *Workspace) SocketPath() string {
	return filepath.Join(w.Root, "pomobar.sock")
}

// PrefsExists reports whether a prefs file has been written.
func (w *Workspace) PrefsExists() bool {
	_, err := os.Stat(w.PrefsPath())
	return err == nil
}
