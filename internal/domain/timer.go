// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

// Phase identifies the current interval type of the timer.
// The string values are the wire format shared with the host daemon.
type Phase string

const (
	PhaseFocus      Phase = "focus"
	PhaseShortBreak Phase = "short_break"
	PhaseLongBreak  Phase = "long_break"
)

// Preference bounds. Values outside these ranges never reach TimerState;
// Normalized clamps them and the settings form rejects them up front.
const (
	MinFocusMinutes      = 1
	MaxFocusMinutes      = 180
	MinShortBreakMinutes = 1
	MaxShortBreakMinutes = 30
	MinLongBreakMinutes  = 1
	MaxLongBreakMinutes  = 90
	MinCycles            = 1
	MaxCycles            = 12
)

// Preferences is the immutable-until-replaced settings value object.
type Preferences struct {
	FocusMinutes      int  `json:"focusMinutes"`
	ShortBreakMinutes int  `json:"shortBreakMinutes"`
	LongBreakMinutes  int  `json:"longBreakMinutes"`
	Cycles            int  `json:"cycles"`
	AutoStart         bool `json:"autoStart"`
}

// DefaultPreferences returns the stock 25/5/15 pomodoro configuration.
func DefaultPreferences() Preferences {
	return Preferences{
		FocusMinutes:      25,
		ShortBreakMinutes: 5,
		LongBreakMinutes:  15,
		Cycles:            4,
		AutoStart:         true,
	}
}

// Normalized returns a copy with every numeric field clamped into range.
func (p Preferences) Normalized() Preferences {
	p.FocusMinutes = clampInt(p.FocusMinutes, MinFocusMinutes, MaxFocusMinutes)
	p.ShortBreakMinutes = clampInt(p.ShortBreakMinutes, MinShortBreakMinutes, MaxShortBreakMinutes)
	p.LongBreakMinutes = clampInt(p.LongBreakMinutes, MinLongBreakMinutes, MaxLongBreakMinutes)
	p.Cycles = clampInt(p.Cycles, MinCycles, MaxCycles)
	return p
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// TimerState is the single mutable aggregate of the timer. It is only ever
// replaced wholesale: by a tick, an action, or a snapshot pushed by the daemon.
type TimerState struct {
	Phase          Phase       `json:"phase"`
	IsRunning      bool        `json:"isRunning"`
	RemainingMs    int64       `json:"remainingMs"`
	CompletedFocus int         `json:"completedFocus"`
	Prefs          Preferences `json:"prefs"`
}

// DaemonInfo is the discovery record a running daemon leaves behind for
// clients. Persisted as a JSON file in the data directory.
type DaemonInfo struct {
	PID           int    `json:"pid"`
	SocketPath    string `json:"socket_path"`
	StartedAt     int64  `json:"started_at"`
	LastHeartbeat int64  `json:"last_heartbeat"`
	AppVersion    string `json:"app_version,omitempty"`
}
