// Package daemon implements the timer host process.
package daemon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Zhao-yangyang/pomodoro-bar/internal/domain"
	"github.com/Zhao-yangyang/pomodoro-bar/internal/engine"
	"github.com/Zhao-yangyang/pomodoro-bar/internal/feed"
	"github.com/Zhao-yangyang/pomodoro-bar/internal/ipc"
)

// Config holds daemon loop configuration.
type Config struct {
	TickInterval      time.Duration // How often to advance the engine and broadcast (default 500ms)
	HeartbeatInterval time.Duration // How often to refresh the registry heartbeat
}

// DefaultConfig returns default daemon configuration.
func DefaultConfig() Config {
	return Config{
		TickInterval:      500 * time.Millisecond,
		HeartbeatInterval: 30 * time.Second,
	}
}

// Daemon is the timer host. It owns the authoritative engine, answers
// commands over the socket, and pushes a snapshot to every subscriber on
// each tick and after each applied command.
type Daemon struct {
	config   Config
	engine   *engine.Engine
	prefs    domain.PrefsStore
	registry domain.DaemonRegistry
	info     domain.DaemonInfo
	states   *feed.Feed[domain.TimerState]
	server   *ipc.Server
	logger   *zap.Logger

	quit     chan struct{}
	quitOnce sync.Once
}

var _ ipc.CommandHandler = (*Daemon)(nil)
var _ ipc.SnapshotFeed = (*Daemon)(nil)

// New creates a daemon listening on info.SocketPath.
func New(
	config Config,
	eng *engine.Engine,
	prefs domain.PrefsStore,
	registry domain.DaemonRegistry,
	info domain.DaemonInfo,
	logger *zap.Logger,
) *Daemon {
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultConfig().TickInterval
	}
	if config.HeartbeatInterval <= 0 {
		config.HeartbeatInterval = DefaultConfig().HeartbeatInterval
	}

	d := &Daemon{
		config:   config,
		engine:   eng,
		prefs:    prefs,
		registry: registry,
		info:     info,
		states:   feed.New[domain.TimerState](),
		logger:   logger,
		quit:     make(chan struct{}),
	}
	d.server = ipc.NewServer(info.SocketPath, d, d, logger)
	return d
}

// Run starts the daemon loop.
// This blocks until the context is canceled or a shutdown command arrives.
func (d *Daemon) Run(ctx context.Context) error {
	// Bind the socket first: a live daemon already holding it means we must
	// not touch the registry.
	if err := d.server.Listen(); err != nil {
		d.logger.Error("failed to bind socket", zap.Error(err))
		return err
	}

	if err := d.registry.Register(d.info); err != nil {
		d.logger.Error("failed to register daemon", zap.Error(err))
		d.server.Close()
		return err
	}

	defer func() {
		d.server.Close()
		d.states.Close()
		if err := d.registry.Clear(); err != nil {
			d.logger.Warn("failed to clear registry", zap.Error(err))
		}
	}()

	d.logger.Info("daemon started",
		zap.Int("pid", d.info.PID),
		zap.String("socket", d.info.SocketPath),
		zap.String("version", d.info.AppVersion))

	// Broadcast the initial state immediately so early subscribers render
	// without waiting for the first tick.
	d.states.Publish(d.engine.Snapshot())

	serveErr := make(chan error, 1)
	go func() { serveErr <- d.server.Serve(ctx) }()

	tickTicker := time.NewTicker(d.config.TickInterval)
	heartbeatTicker := time.NewTicker(d.config.HeartbeatInterval)

	defer func() {
		tickTicker.Stop()
		heartbeatTicker.Stop()
	}()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("daemon stopping")
			return ctx.Err()

		case <-d.quit:
			d.logger.Info("daemon stopping on shutdown command")
			return nil

		case err := <-serveErr:
			if err != nil {
				d.logger.Error("socket server failed", zap.Error(err))
				return err
			}
			return nil

		case <-tickTicker.C:
			// Broadcast even while paused: subscribers use the stream as a
			// liveness signal.
			d.states.Publish(d.engine.Tick())

		case <-heartbeatTicker.C:
			if err := d.registry.Heartbeat(); err != nil {
				d.logger.Warn("failed to update heartbeat", zap.Error(err))
			}
		}
	}
}

// Apply executes one wire operation against the engine. Mutating operations
// broadcast the resulting snapshot to every subscriber.
func (d *Daemon) Apply(op string, prefs *domain.Preferences) (domain.TimerState, error) {
	switch op {
	case ipc.OpGetState:
		return d.engine.Snapshot(), nil
	case ipc.OpShutdown:
		d.logger.Info("shutdown requested")
		d.signalQuit()
		return d.engine.Snapshot(), nil
	}

	state, err := d.applyMutation(op, prefs)
	if err != nil {
		return domain.TimerState{}, err
	}
	d.states.Publish(state)
	return state, nil
}

func (d *Daemon) applyMutation(op string, prefs *domain.Preferences) (domain.TimerState, error) {
	switch op {
	case ipc.OpStart:
		return d.engine.Start(), nil

	case ipc.OpPause:
		return d.engine.Pause(), nil

	case ipc.OpSkip:
		return d.engine.Skip(), nil

	case ipc.OpReset:
		return d.engine.Reset(), nil

	case ipc.OpSetPrefs:
		if prefs == nil {
			return domain.TimerState{}, fmt.Errorf("%s requires a prefs payload", ipc.OpSetPrefs)
		}
		normalized := prefs.Normalized()
		state := d.engine.SetPrefs(normalized)
		if err := d.prefs.Save(normalized); err != nil {
			// The in-memory update stands; persistence catches up on the
			// next successful save.
			d.logger.Warn("failed to persist preferences", zap.Error(err))
		}
		return state, nil

	default:
		return domain.TimerState{}, fmt.Errorf("unknown operation %q", op)
	}
}

// Subscribe hands out a subscription to the broadcast stream.
func (d *Daemon) Subscribe(buffer int) (<-chan domain.TimerState, func()) {
	return d.states.Subscribe(buffer)
}

func (d *Daemon) signalQuit() {
	d.quitOnce.Do(func() { close(d.quit) })
}
