// Package ipc carries timer commands and state snapshots between clients and
// the daemon as newline-delimited JSON over a Unix domain socket.
package ipc

import "github.com/Zhao-yangyang/pomodoro-bar/internal/domain"

// Operations understood by the daemon.
const (
	OpGetState  = "get_timer_state"
	OpStart     = "start_timer"
	OpPause     = "pause_timer"
	OpSkip      = "skip_timer"
	OpReset     = "reset_timer"
	OpSetPrefs  = "set_prefs"
	OpSubscribe = "subscribe"
	OpShutdown  = "shutdown"
)

// ChannelTick is the push feed delivering state snapshots.
const ChannelTick = "timer:tick"

// Request is one client command. Prefs rides along only for OpSetPrefs,
// Channel only for OpSubscribe.
type Request struct {
	ID      string              `json:"id"`
	Op      string              `json:"op"`
	Prefs   *domain.Preferences `json:"prefs,omitempty"`
	Channel string              `json:"channel,omitempty"`
}

// Response answers one request. Timer operations carry the resulting
// snapshot back.
type Response struct {
	ID    string             `json:"id"`
	OK    bool               `json:"ok"`
	Error string             `json:"error,omitempty"`
	State *domain.TimerState `json:"state,omitempty"`
}

// Event is one pushed snapshot on a subscribed connection.
type Event struct {
	Channel string            `json:"channel"`
	State   domain.TimerState `json:"state"`
}
