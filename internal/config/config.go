// Package config resolves application paths and loads the optional YAML
// configuration plus the persisted user preferences.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appDirName       = "pomobar"
	configFileName   = "config.yaml"
	prefsFileName    = "prefs.json"
	registryFileName = "daemon.json"
	logFileName      = "pomobar.log"

	defaultTickIntervalMs     = 500
	defaultHeartbeatIntervalS = 30
)

// Config carries process-level settings shared by the daemon and the client
// commands. Every field has a default; the YAML file only overrides.
type Config struct {
	SocketPath         string `yaml:"socket_path"`
	DataDir            string `yaml:"data_dir"`
	LogPath            string `yaml:"log_path"`
	TickIntervalMs     int    `yaml:"tick_interval_ms"`
	HeartbeatIntervalS int    `yaml:"heartbeat_interval_s"`
}

// Default returns the built-in configuration.
func Default() Config {
	dataDir := defaultDataDir()
	return Config{
		SocketPath:         filepath.Join(os.TempDir(), fmt.Sprintf("%s-%d.sock", appDirName, os.Getuid())),
		DataDir:            dataDir,
		LogPath:            filepath.Join(dataDir, logFileName),
		TickIntervalMs:     defaultTickIntervalMs,
		HeartbeatIntervalS: defaultHeartbeatIntervalS,
	}
}

func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appDirName)
	}
	return filepath.Join(base, appDirName)
}

// Load reads the config file from the default data directory. A missing file
// yields the defaults.
func Load() (Config, error) {
	return LoadFrom(filepath.Join(defaultDataDir(), configFileName))
}

// LoadFrom reads the YAML file at path and merges it over the defaults.
// Fields absent from the file keep their defaults; the log path follows a
// relocated data dir unless set explicitly.
func LoadFrom(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file: %w", err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}

	if file.SocketPath != "" {
		cfg.SocketPath = file.SocketPath
	}
	if file.DataDir != "" {
		cfg.DataDir = file.DataDir
		cfg.LogPath = filepath.Join(file.DataDir, logFileName)
	}
	if file.LogPath != "" {
		cfg.LogPath = file.LogPath
	}
	if file.TickIntervalMs > 0 {
		cfg.TickIntervalMs = file.TickIntervalMs
	}
	if file.HeartbeatIntervalS > 0 {
		cfg.HeartbeatIntervalS = file.HeartbeatIntervalS
	}
	return cfg, nil
}

// EnsureDataDir creates the data directory if needed.
func (c Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}

// PrefsPath returns the preferences file location.
func (c Config) PrefsPath() string {
	return filepath.Join(c.DataDir, prefsFileName)
}

// RegistryPath returns the daemon discovery file location.
func (c Config) RegistryPath() string {
	return filepath.Join(c.DataDir, registryFileName)
}

// TickInterval returns the daemon broadcast interval.
func (c Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

// HeartbeatInterval returns the registry refresh interval.
func (c Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalS) * time.Second
}
