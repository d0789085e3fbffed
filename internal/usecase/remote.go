package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Zhao-yangyang/pomodoro-bar/internal/domain"
)

const (
	// remoteQueueSize bounds the pending command queue. Excess commands are
	// dropped, never blocked on.
	remoteQueueSize = 16

	remoteCallTimeout = 5 * time.Second
)

type remoteCommand struct {
	name string
	run  func(context.Context) (domain.TimerState, error)
}

// RemoteBridge relays actions to the daemon and mirrors its pushed snapshots.
// It never mutates state itself: the daemon is the sole source of truth, and
// every action waits for the next pushed snapshot to show its effect.
type RemoteBridge struct {
	client domain.HostClient
	notify func(domain.TimerState)
	logger *zap.Logger

	cmds chan remoteCommand
	sub  domain.HostSubscription

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ domain.Driver = (*RemoteBridge)(nil)

// NewRemoteBridge subscribes to the daemon's snapshot feed and starts the
// command dispatcher. A failed subscription or initial fetch is logged and
// tolerated: commands still flow, and the last known snapshot stays on
// screen.
func NewRemoteBridge(ctx context.Context, client domain.HostClient, notify func(domain.TimerState), logger *zap.Logger) *RemoteBridge {
	b := &RemoteBridge{
		client: client,
		notify: notify,
		logger: logger,
		cmds:   make(chan remoteCommand, remoteQueueSize),
	}
	b.ctx, b.cancel = context.WithCancel(context.Background())

	sub, err := client.Subscribe(ctx)
	if err != nil {
		logger.Warn("daemon subscription failed", zap.Error(err))
	} else {
		b.sub = sub
	}

	// Fetch the authoritative snapshot before forwarding pushed events so
	// the first render never waits for a tick.
	if state, err := client.GetState(ctx); err != nil {
		logger.Warn("initial state fetch failed", zap.Error(err))
	} else {
		b.publish(state)
	}

	b.wg.Add(1)
	go b.dispatchLoop()

	if b.sub != nil {
		b.wg.Add(1)
		go b.forwardLoop()
	}
	return b
}

// Start asks the daemon to start the countdown.
func (b *RemoteBridge) Start(ctx context.Context) error {
	b.enqueue("start", b.client.StartTimer)
	return nil
}

// Pause asks the daemon to halt the countdown.
func (b *RemoteBridge) Pause(ctx context.Context) error {
	b.enqueue("pause", b.client.PauseTimer)
	return nil
}

// Skip asks the daemon to advance to the next phase.
func (b *RemoteBridge) Skip(ctx context.Context) error {
	b.enqueue("skip", b.client.SkipTimer)
	return nil
}

// Reset asks the daemon to restore the current phase, paused.
func (b *RemoteBridge) Reset(ctx context.Context) error {
	b.enqueue("reset", b.client.ResetTimer)
	return nil
}

// SetPrefs forwards new preferences; the daemon normalizes and persists them.
func (b *RemoteBridge) SetPrefs(ctx context.Context, prefs domain.Preferences) error {
	b.enqueue("set_prefs", func(ctx context.Context) (domain.TimerState, error) {
		return b.client.SetPrefs(ctx, prefs)
	})
	return nil
}

// Close releases the subscription and stops the dispatcher. Teardown runs
// exactly once; further calls only wait for it.
func (b *RemoteBridge) Close() error {
	b.closeOnce.Do(func() {
		b.cancel()
		if b.sub != nil {
			b.sub.Close()
		}
	})
	b.wg.Wait()
	return nil
}

// enqueue hands the command to the dispatcher without blocking. A full
// queue drops the command: the daemon's next snapshot shows whatever state
// actually took hold.
func (b *RemoteBridge) enqueue(name string, run func(context.Context) (domain.TimerState, error)) {
	select {
	case b.cmds <- remoteCommand{name: name, run: run}:
	case <-b.ctx.Done():
	default:
		b.logger.Warn("daemon command queue full, dropping command",
			zap.String("command", name))
	}
}

// dispatchLoop sends queued commands to the daemon one at a time, preserving
// the order actions were taken in.
func (b *RemoteBridge) dispatchLoop() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case cmd := <-b.cmds:
			b.dispatch(cmd)
		}
	}
}

// dispatch fires one command. Failures are swallowed: the state on screen
// stays as-is and no retry is attempted. The response snapshot is discarded
// too; the pushed feed is the single channel for state.
func (b *RemoteBridge) dispatch(cmd remoteCommand) {
	ctx, cancel := context.WithTimeout(b.ctx, remoteCallTimeout)
	defer cancel()

	if _, err := cmd.run(ctx); err != nil {
		b.logger.Warn("daemon command failed",
			zap.String("command", cmd.name),
			zap.Error(err))
	}
}

// forwardLoop mirrors pushed snapshots to the consumer. When the feed ends
// the last known state stays in place; no resubscription is attempted for
// the rest of the session.
func (b *RemoteBridge) forwardLoop() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case state, ok := <-b.sub.States():
			if !ok {
				b.logger.Warn("daemon state feed ended")
				return
			}
			b.publish(state)
		}
	}
}

func (b *RemoteBridge) publish(state domain.TimerState) {
	if b.notify != nil {
		b.notify(state)
	}
}
