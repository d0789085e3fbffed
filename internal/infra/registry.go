package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/Zhao-yangyang/pomodoro-bar/internal/domain"
)

// FileRegistry implements domain.DaemonRegistry using a JSON file in the
// data directory. The daemon writes it; clients only read, so an atomic
// write-and-rename is enough to keep readers consistent.
type FileRegistry struct {
	path string
}

// NewFileRegistry creates a file-based daemon registry at path.
func NewFileRegistry(path string) domain.DaemonRegistry {
	return &FileRegistry{path: path}
}

// Path returns the registry file path.
func (r *FileRegistry) Path() string {
	return r.path
}

// Register saves the daemon's discovery record.
func (r *FileRegistry) Register(info domain.DaemonInfo) error {
	if info.StartedAt == 0 {
		info.StartedAt = time.Now().Unix()
	}
	info.LastHeartbeat = time.Now().Unix()
	return r.atomicWrite(&info)
}

// Heartbeat refreshes the liveness timestamp of the current entry.
func (r *FileRegistry) Heartbeat() error {
	entry, err := r.Load()
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("no registry entry to refresh")
	}

	entry.LastHeartbeat = time.Now().Unix()
	return r.atomicWrite(entry)
}

// Load returns the current entry, or nil when none exists.
func (r *FileRegistry) Load() (*domain.DaemonInfo, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entry domain.DaemonInfo
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}

	return &entry, nil
}

// Clear removes the registry file. Already-gone files are not an error.
func (r *FileRegistry) Clear() error {
	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// atomicWrite writes the entry to file atomically (write + rename).
func (r *FileRegistry) atomicWrite(entry *domain.DaemonInfo) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	// Write to temp file first (unique per process to avoid race)
	tmpPath := fmt.Sprintf("%s.%d.tmp", r.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}

	// Atomic rename
	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath) // Clean up on failure
		return err
	}
	return nil
}

// Ensure FileRegistry implements domain.DaemonRegistry.
var _ domain.DaemonRegistry = (*FileRegistry)(nil)
