package infra

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Zhao-yangyang/pomodoro-bar/internal/domain"
)

// daemonNameFragment guards against recycled PIDs: whatever owns the
// registered PID must at least look like this binary.
const daemonNameFragment = "pomobar"

// probeTimeout bounds the socket round trip so a wedged daemon cannot stall
// session startup.
const probeTimeout = 2 * time.Second

// PingFunc checks that a daemon answers on the given socket. The real
// implementation performs a state round trip over the socket.
type PingFunc func(ctx context.Context, socketPath string) error

// HostProbe decides, once per session, whether a live daemon is reachable.
// The answer is final for the session; callers never re-probe mid-session.
type HostProbe struct {
	registry domain.DaemonRegistry
	pm       domain.ProcessManager
	ping     PingFunc
	logger   *zap.Logger
}

// NewHostProbe creates a probe over the given discovery sources.
func NewHostProbe(registry domain.DaemonRegistry, pm domain.ProcessManager, ping PingFunc, logger *zap.Logger) *HostProbe {
	return &HostProbe{
		registry: registry,
		pm:       pm,
		ping:     ping,
		logger:   logger,
	}
}

// Detect returns the daemon's discovery record and true when a live daemon
// answers on its socket. Every failure path selects local mode; none of them
// are errors to the caller.
func (p *HostProbe) Detect(ctx context.Context) (*domain.DaemonInfo, bool) {
	entry, err := p.registry.Load()
	if err != nil {
		p.logger.Warn("registry unreadable, assuming no daemon", zap.Error(err))
		return nil, false
	}
	if entry == nil {
		p.logger.Debug("no daemon registered")
		return nil, false
	}

	if !p.pm.IsRunning(entry.PID) {
		p.logger.Debug("registered daemon not running", zap.Int("pid", entry.PID))
		return nil, false
	}
	if !p.pm.NameContains(entry.PID, daemonNameFragment) {
		p.logger.Debug("registered pid belongs to another process", zap.Int("pid", entry.PID))
		return nil, false
	}

	pingCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := p.ping(pingCtx, entry.SocketPath); err != nil {
		p.logger.Debug("daemon socket unreachable",
			zap.String("socket", entry.SocketPath),
			zap.Error(err))
		return nil, false
	}

	p.logger.Debug("daemon detected",
		zap.Int("pid", entry.PID),
		zap.String("socket", entry.SocketPath))
	return entry, true
}
