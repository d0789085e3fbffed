package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Zhao-yangyang/pomodoro-bar/internal/domain"
)

// FilePrefsStore persists preferences as pretty-printed JSON. The daemon and
// local sessions share the same file, so a user can inspect or edit it by
// hand; values are re-clamped on every load.
type FilePrefsStore struct {
	path string
}

// NewPrefsStore stores prefs.json inside dataDir.
func NewPrefsStore(dataDir string) *FilePrefsStore {
	return &FilePrefsStore{path: filepath.Join(dataDir, prefsFileName)}
}

// NewPrefsStoreWithPath uses an explicit file location (for testing).
func NewPrefsStoreWithPath(path string) *FilePrefsStore {
	return &FilePrefsStore{path: path}
}

// Load returns the stored preferences, normalized. Missing or unreadable
// files yield the defaults; fields absent from the file keep their defaults.
func (s *FilePrefsStore) Load() (domain.Preferences, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.DefaultPreferences(), nil
		}
		return domain.DefaultPreferences(), fmt.Errorf("read prefs file: %w", err)
	}

	prefs := domain.DefaultPreferences()
	if err := json.Unmarshal(data, &prefs); err != nil {
		return domain.DefaultPreferences(), fmt.Errorf("parse prefs file: %w", err)
	}
	return prefs.Normalized(), nil
}

// Save writes the preferences atomically, normalized.
func (s *FilePrefsStore) Save(prefs domain.Preferences) error {
	data, err := json.MarshalIndent(prefs.Normalized(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	// Write to a temp file first, then rename for atomicity.
	tmp := fmt.Sprintf("%s.tmp.%d", s.path, os.Getpid())
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write prefs temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace prefs file: %w", err)
	}
	return nil
}

// Path returns the backing file location.
func (s *FilePrefsStore) Path() string {
	return s.path
}

// Ensure FilePrefsStore implements domain.PrefsStore
var _ domain.PrefsStore = (*FilePrefsStore)(nil)
