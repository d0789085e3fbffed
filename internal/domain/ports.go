package domain

import "context"

// Driver advances the timer on behalf of one session. Exactly one
// implementation is active per session: the in-process simulator when no
// daemon is reachable, or the bridge relaying to the daemon.
type Driver interface {
	// Start begins the countdown. No-op if already running.
	Start(ctx context.Context) error

	// Pause halts the countdown, preserving the remaining time.
	Pause(ctx context.Context) error

	// Skip abandons the current phase and advances to the next one.
	Skip(ctx context.Context) error

	// Reset restores the current phase to its full duration, paused.
	Reset(ctx context.Context) error

	// SetPrefs replaces the active preferences.
	SetPrefs(ctx context.Context, prefs Preferences) error

	// Close tears the driver down: stops its ticker or releases its
	// subscription. Safe to call more than once.
	Close() error
}

// HostSubscription is a live snapshot feed from the daemon. States is closed
// when the feed ends; Close releases the feed and is safe to call repeatedly.
type HostSubscription interface {
	States() <-chan TimerState
	Close()
}

// HostClient is the command interface of the daemon.
// Implementation: JSON over a Unix domain socket.
type HostClient interface {
	// GetState fetches the current authoritative snapshot.
	GetState(ctx context.Context) (TimerState, error)

	// StartTimer, PauseTimer, SkipTimer and ResetTimer apply the matching
	// action on the daemon and return the resulting snapshot.
	StartTimer(ctx context.Context) (TimerState, error)
	PauseTimer(ctx context.Context) (TimerState, error)
	SkipTimer(ctx context.Context) (TimerState, error)
	ResetTimer(ctx context.Context) (TimerState, error)

	// SetPrefs replaces the daemon's preferences; the daemon persists them.
	SetPrefs(ctx context.Context, prefs Preferences) (TimerState, error)

	// Subscribe opens the push feed of state snapshots.
	Subscribe(ctx context.Context) (HostSubscription, error)

	// Shutdown asks the daemon to exit gracefully.
	Shutdown(ctx context.Context) error
}

// PrefsStore persists user preferences between sessions.
// Implementation: pretty-printed JSON file in the data directory.
type PrefsStore interface {
	// Load returns the stored preferences, normalized. A missing or
	// unreadable file yields the defaults, not an error the caller
	// must handle.
	Load() (Preferences, error)

	// Save writes the preferences, normalized, atomically.
	Save(prefs Preferences) error
}

// DaemonRegistry records the running daemon for client discovery.
type DaemonRegistry interface {
	// Register saves the daemon's PID and socket path.
	Register(info DaemonInfo) error

	// Heartbeat refreshes the liveness timestamp.
	Heartbeat() error

	// Load returns the current entry, or nil when none exists.
	Load() (*DaemonInfo, error)

	// Clear removes the entry on daemon shutdown.
	Clear() error

	// Path returns the registry file location (for status output).
	Path() string
}

// ProcessManager handles OS process operations.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool

	// NameContains reports whether the process name of pid contains the
	// fragment. Guards against a recycled PID masquerading as the daemon.
	NameContains(pid int, fragment string) bool

	// CurrentPID returns the current process PID.
	CurrentPID() int
}
