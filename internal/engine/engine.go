// Package engine implements the authoritative timer state machine owned by
// the daemon. A running phase is anchored to a wall-clock deadline, so the
// countdown stays accurate regardless of how coarsely the daemon ticks.
package engine

import (
	"sync"
	"time"

	"github.com/Zhao-yangyang/pomodoro-bar/internal/clock"
	"github.com/Zhao-yangyang/pomodoro-bar/internal/domain"
)

// Engine is safe for concurrent use by the tick loop and command handlers.
// Callers are expected to hand it normalized preferences.
type Engine struct {
	mu    sync.Mutex
	state domain.TimerState
	endAt time.Time // zero while paused
	now   func() time.Time
}

// New returns a paused engine at the top of a focus phase.
func New(prefs domain.Preferences) *Engine {
	return &Engine{
		state: clock.NewState(prefs),
		now:   time.Now,
	}
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() domain.TimerState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Start begins the countdown. No-op while already running. An exhausted
// phase that has not advanced yet refills to its full duration first.
func (e *Engine) Start() domain.TimerState {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.IsRunning {
		return e.state
	}
	if e.state.RemainingMs == 0 {
		e.state.RemainingMs = clock.DurationForPhase(e.state.Phase, e.state.Prefs)
	}
	e.state.IsRunning = true
	e.endAt = e.now().Add(time.Duration(e.state.RemainingMs) * time.Millisecond)
	return e.state
}

// Pause halts the countdown, folding the deadline back into remaining time.
func (e *Engine) Pause() domain.TimerState {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.IsRunning {
		return e.state
	}
	remaining := e.endAt.Sub(e.now()).Milliseconds()
	if remaining < 0 {
		remaining = 0
	}
	e.state.RemainingMs = remaining
	e.state.IsRunning = false
	e.endAt = time.Time{}
	return e.state
}

// Reset restores the current phase to its full duration, paused. The phase
// itself is kept.
func (e *Engine) Reset() domain.TimerState {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.IsRunning = false
	e.state.RemainingMs = clock.DurationForPhase(e.state.Phase, e.state.Prefs)
	e.endAt = time.Time{}
	return e.state
}

// Skip abandons the current phase and advances, regardless of running state
// or remaining time.
func (e *Engine) Skip() domain.TimerState {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.advanceLocked(e.now())
	return e.state
}

// SetPrefs replaces the preferences. While paused the countdown is recomputed
// from the current phase's new duration; while running it is left untouched
// so an in-flight countdown is not disrupted.
func (e *Engine) SetPrefs(prefs domain.Preferences) domain.TimerState {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.Prefs = prefs
	if !e.state.IsRunning {
		e.state.RemainingMs = clock.DurationForPhase(e.state.Phase, e.state.Prefs)
	}
	return e.state
}

// Tick refreshes the countdown from the deadline, advancing the phase once
// it has passed. No-op while paused.
func (e *Engine) Tick() domain.TimerState {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.IsRunning {
		return e.state
	}
	now := e.now()
	if e.endAt.IsZero() {
		// Running without a deadline; re-anchor from remaining time.
		e.endAt = now.Add(time.Duration(e.state.RemainingMs) * time.Millisecond)
		return e.state
	}
	if !e.endAt.After(now) {
		e.advanceLocked(now)
		return e.state
	}
	e.state.RemainingMs = e.endAt.Sub(now).Milliseconds()
	return e.state
}

func (e *Engine) advanceLocked(now time.Time) {
	e.state = clock.Advance(e.state)
	if e.state.IsRunning {
		e.endAt = now.Add(time.Duration(e.state.RemainingMs) * time.Millisecond)
	} else {
		e.endAt = time.Time{}
	}
}
