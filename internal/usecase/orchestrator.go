// Package usecase contains application business logic: the orchestrator
// that presents one timer regardless of who drives it, and the two drivers
// behind it.
package usecase

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/Zhao-yangyang/pomodoro-bar/internal/clock"
	"github.com/Zhao-yangyang/pomodoro-bar/internal/domain"
	"github.com/Zhao-yangyang/pomodoro-bar/internal/feed"
)

// Mode names who owns the countdown for this session.
type Mode string

const (
	// ModeLocal means the in-process simulator drives the timer.
	ModeLocal Mode = "local"
	// ModeRemote means the daemon drives the timer and this process mirrors it.
	ModeRemote Mode = "remote"
)

// Options configures an Orchestrator.
type Options struct {
	// RemoteAvailable is the one-shot probe result. It fixes the mode for
	// the whole session; the orchestrator never re-probes.
	RemoteAvailable bool

	// Client reaches the daemon. Required when RemoteAvailable.
	Client domain.HostClient

	// Prefs seeds the session, typically loaded from the preferences file.
	Prefs domain.Preferences

	// PrefsStore persists preference edits in local mode. In remote mode
	// the daemon persists and this store is left alone.
	PrefsStore domain.PrefsStore

	Logger *zap.Logger
}

// Orchestrator exposes one TimerState and one set of actions to the UI,
// backed by either the local simulator or the daemon bridge. Callers never
// need to know which.
type Orchestrator struct {
	mode   Mode
	driver domain.Driver
	store  domain.PrefsStore
	states *feed.Feed[domain.TimerState]
	logger *zap.Logger

	mu    sync.Mutex
	state domain.TimerState

	closeOnce sync.Once
}

// New selects the driver from the probe result and wires it up. In remote
// mode the daemon's current state is mirrored before New returns, so the
// first read is already authoritative.
func New(ctx context.Context, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	prefs := opts.Prefs.Normalized()
	o := &Orchestrator{
		store:  opts.PrefsStore,
		states: feed.New[domain.TimerState](),
		logger: logger,
		state:  clock.NewState(prefs),
	}

	if opts.RemoteAvailable && opts.Client != nil {
		o.mode = ModeRemote
		o.driver = NewRemoteBridge(ctx, opts.Client, o.applySnapshot, logger)
		logger.Info("timer driven by daemon")
		return o
	}

	o.mode = ModeLocal
	o.driver = NewLocalSimulator(prefs, o.applySnapshot, logger)
	logger.Info("timer driven in-process")
	return o
}

// Mode reports which driver owns the countdown.
func (o *Orchestrator) Mode() Mode {
	return o.mode
}

// State returns the last known snapshot.
func (o *Orchestrator) State() domain.TimerState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Subscribe delivers every snapshot change. The cancel func releases the
// subscription.
func (o *Orchestrator) Subscribe(buffer int) (<-chan domain.TimerState, func()) {
	return o.states.Subscribe(buffer)
}

// Start begins or resumes the countdown.
func (o *Orchestrator) Start(ctx context.Context) error {
	return o.driver.Start(ctx)
}

// Pause halts the countdown, keeping the remaining time.
func (o *Orchestrator) Pause(ctx context.Context) error {
	return o.driver.Pause(ctx)
}

// Skip abandons the current phase and advances.
func (o *Orchestrator) Skip(ctx context.Context) error {
	return o.driver.Skip(ctx)
}

// Reset restores the current phase to its full duration, paused.
func (o *Orchestrator) Reset(ctx context.Context) error {
	return o.driver.Reset(ctx)
}

// SetPrefs applies new preferences. The prefs value is echoed into the local
// snapshot synchronously so the settings form sees the accepted values
// immediately; the driver then propagates them (and in local mode the store
// persists them).
func (o *Orchestrator) SetPrefs(ctx context.Context, prefs domain.Preferences) error {
	normalized := prefs.Normalized()

	o.mu.Lock()
	o.state.Prefs = normalized
	o.states.Publish(o.state)
	o.mu.Unlock()

	if o.mode == ModeLocal && o.store != nil {
		if err := o.store.Save(normalized); err != nil {
			o.logger.Warn("failed to persist preferences", zap.Error(err))
		}
	}

	return o.driver.SetPrefs(ctx, normalized)
}

// Close tears the driver down and ends every subscription. Safe to call
// more than once.
func (o *Orchestrator) Close() error {
	var err error
	o.closeOnce.Do(func() {
		err = o.driver.Close()
		o.states.Close()
	})
	return err
}

// applySnapshot is the single entry point for driver updates.
func (o *Orchestrator) applySnapshot(state domain.TimerState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = state
	o.states.Publish(state)
}
