// Package clock holds the pure phase arithmetic of the pomodoro cycle:
// durations, transitions, and the advance step shared by the local simulator
// and the daemon engine. No side effects, no storage.
package clock

import "github.com/Zhao-yangyang/pomodoro-bar/internal/domain"

const msPerMinute = 60000

// DurationForPhase returns the full length of phase in milliseconds.
func DurationForPhase(phase domain.Phase, prefs domain.Preferences) int64 {
	switch phase {
	case domain.PhaseShortBreak:
		return int64(prefs.ShortBreakMinutes) * msPerMinute
	case domain.PhaseLongBreak:
		return int64(prefs.LongBreakMinutes) * msPerMinute
	default:
		return int64(prefs.FocusMinutes) * msPerMinute
	}
}

// NextPhase returns the phase that follows the current one. Leaving focus,
// every cycles-th completed focus block earns the long break; any break
// returns to focus.
func NextPhase(phase domain.Phase, completedFocus int, prefs domain.Preferences) domain.Phase {
	if phase != domain.PhaseFocus {
		return domain.PhaseFocus
	}
	cycles := prefs.Cycles
	if cycles < 1 {
		cycles = 1
	}
	if (completedFocus+1)%cycles == 0 {
		return domain.PhaseLongBreak
	}
	return domain.PhaseShortBreak
}

// Advance moves state into its next phase: the focus counter grows only when
// leaving focus, the countdown refills to the new phase's full duration, and
// the timer keeps running only when autoStart is set. Total over all valid
// states; never produces a negative countdown.
func Advance(state domain.TimerState) domain.TimerState {
	next := NextPhase(state.Phase, state.CompletedFocus, state.Prefs)
	if state.Phase == domain.PhaseFocus {
		state.CompletedFocus++
	}
	state.Phase = next
	state.RemainingMs = DurationForPhase(next, state.Prefs)
	state.IsRunning = state.Prefs.AutoStart
	return state
}

// NewState returns the initial session state: paused at the top of a focus
// phase with no completions.
func NewState(prefs domain.Preferences) domain.TimerState {
	return domain.TimerState{
		Phase:          domain.PhaseFocus,
		IsRunning:      false,
		RemainingMs:    DurationForPhase(domain.PhaseFocus, prefs),
		CompletedFocus: 0,
		Prefs:          prefs,
	}
}
