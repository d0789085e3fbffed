package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Zhao-yangyang/pomodoro-bar/internal/clock"
	"github.com/Zhao-yangyang/pomodoro-bar/internal/domain"
)

// localTickInterval is the simulator step. Each tick takes a fixed 1000ms
// off the countdown regardless of real elapsed time.
const localTickInterval = time.Second

const localTickMs = 1000

// LocalSimulator drives the timer in-process when no daemon is reachable.
// It owns its TimerState and reports every change through notify.
type LocalSimulator struct {
	notify   func(domain.TimerState)
	logger   *zap.Logger
	interval time.Duration

	mu       sync.Mutex
	state    domain.TimerState
	stopTick chan struct{}
}

var _ domain.Driver = (*LocalSimulator)(nil)

// NewLocalSimulator creates a paused simulator at the top of a focus phase.
// notify is invoked with the state lock held; it must not call back into the
// simulator.
func NewLocalSimulator(prefs domain.Preferences, notify func(domain.TimerState), logger *zap.Logger) *LocalSimulator {
	return newLocalSimulator(prefs, notify, logger, localTickInterval)
}

func newLocalSimulator(prefs domain.Preferences, notify func(domain.TimerState), logger *zap.Logger, interval time.Duration) *LocalSimulator {
	return &LocalSimulator{
		notify:   notify,
		logger:   logger,
		interval: interval,
		state:    clock.NewState(prefs.Normalized()),
	}
}

// Start begins the countdown. No-op if already running; a countdown that sat
// exhausted at zero refills to the full phase duration first.
func (s *LocalSimulator) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsRunning {
		return nil
	}
	if s.state.RemainingMs <= 0 {
		s.state.RemainingMs = clock.DurationForPhase(s.state.Phase, s.state.Prefs)
	}
	s.state.IsRunning = true
	s.ensureTicker()
	s.publishLocked()
	return nil
}

// Pause halts the countdown and stops the ticker goroutine entirely.
func (s *LocalSimulator) Pause(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.IsRunning {
		return nil
	}
	s.state.IsRunning = false
	s.stopTicker()
	s.publishLocked()
	return nil
}

// Skip abandons the current phase and advances, running or not.
func (s *LocalSimulator) Skip(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = clock.Advance(s.state)
	if s.state.IsRunning {
		s.ensureTicker()
	} else {
		s.stopTicker()
	}
	s.publishLocked()
	return nil
}

// Reset restores the current phase to its full duration, paused.
func (s *LocalSimulator) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.IsRunning = false
	s.state.RemainingMs = clock.DurationForPhase(s.state.Phase, s.state.Prefs)
	s.stopTicker()
	s.publishLocked()
	return nil
}

// SetPrefs replaces the preferences. A paused countdown refits to the new
// duration of its phase; a running one is left untouched.
func (s *LocalSimulator) SetPrefs(ctx context.Context, prefs domain.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Prefs = prefs.Normalized()
	if !s.state.IsRunning {
		s.state.RemainingMs = clock.DurationForPhase(s.state.Phase, s.state.Prefs)
	}
	s.publishLocked()
	return nil
}

// Close stops the ticker goroutine. Safe to call more than once.
func (s *LocalSimulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.IsRunning = false
	s.stopTicker()
	return nil
}

// State returns the current snapshot.
func (s *LocalSimulator) State() domain.TimerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// tick takes one step off the countdown and advances the phase when it hits
// zero. Exactly one advance per exhausted tick.
func (s *LocalSimulator) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The ticker goroutine may fire once more while a pause is in flight.
	if !s.state.IsRunning {
		return
	}

	s.state.RemainingMs -= localTickMs
	if s.state.RemainingMs > 0 {
		s.publishLocked()
		return
	}
	s.state.RemainingMs = 0

	s.state = clock.Advance(s.state)
	if s.state.IsRunning {
		s.ensureTicker()
	} else {
		s.stopTicker()
	}
	s.publishLocked()
}

// ensureTicker starts the ticker goroutine if none is live. Idempotent:
// starting twice never creates two concurrent tickers. Callers hold mu.
func (s *LocalSimulator) ensureTicker() {
	if s.stopTick != nil {
		return
	}
	stop := make(chan struct{})
	s.stopTick = stop

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// stopTicker ends the ticker goroutine if one is live. Callers hold mu.
func (s *LocalSimulator) stopTicker() {
	if s.stopTick == nil {
		return
	}
	close(s.stopTick)
	s.stopTick = nil
}

func (s *LocalSimulator) publishLocked() {
	if s.notify != nil {
		s.notify(s.state)
	}
}
