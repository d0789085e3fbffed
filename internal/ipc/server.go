package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Zhao-yangyang/pomodoro-bar/internal/domain"
)

// CommandHandler executes one timer operation and returns the resulting
// snapshot. The daemon implements this.
type CommandHandler interface {
	Apply(op string, prefs *domain.Preferences) (domain.TimerState, error)
}

// SnapshotFeed hands out subscriptions to the daemon's broadcast stream.
type SnapshotFeed interface {
	Subscribe(buffer int) (<-chan domain.TimerState, func())
}

// Server answers commands and streams snapshots on a Unix domain socket.
type Server struct {
	socketPath string
	handler    CommandHandler
	feed       SnapshotFeed
	logger     *zap.Logger

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	closed   bool
}

// NewServer creates a server for socketPath. Call Listen before Serve.
func NewServer(socketPath string, handler CommandHandler, feed SnapshotFeed, logger *zap.Logger) *Server {
	return &Server{
		socketPath: socketPath,
		handler:    handler,
		feed:       feed,
		logger:     logger,
		conns:      make(map[net.Conn]struct{}),
	}
}

// Listen binds the socket. A socket file left behind by a dead daemon is
// removed and rebound; a socket with a live daemon on it is an error.
func (s *Server) Listen() error {
	ln, err := net.Listen("unix", s.socketPath)
	if err == nil {
		s.setListener(ln)
		return nil
	}

	conn, dialErr := net.DialTimeout("unix", s.socketPath, time.Second)
	if dialErr == nil {
		conn.Close()
		return fmt.Errorf("daemon already listening on %s", s.socketPath)
	}

	if rmErr := os.Remove(s.socketPath); rmErr != nil {
		return fmt.Errorf("bind socket: %w", err)
	}
	s.logger.Info("removed stale socket file", zap.String("socket", s.socketPath))

	ln, err = net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("bind socket: %w", err)
	}
	s.setListener(ln)
	return nil
}

func (s *Server) setListener(ln net.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = ln
}

// Serve accepts connections until the context is canceled or the listener
// closes.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return fmt.Errorf("serve called before listen")
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	if !s.track(conn) {
		conn.Close()
		return
	}
	defer s.untrack(conn)
	defer conn.Close()

	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug("connection read failed", zap.Error(err))
			}
			return
		}

		if req.Op == OpSubscribe {
			s.streamSnapshots(ctx, enc, req)
			return
		}

		state, err := s.handler.Apply(req.Op, req.Prefs)
		resp := Response{ID: req.ID, OK: err == nil}
		if err != nil {
			resp.Error = err.Error()
			s.logger.Debug("command rejected", zap.String("op", req.Op), zap.Error(err))
		} else {
			resp.State = &state
		}
		if err := enc.Encode(resp); err != nil {
			s.logger.Debug("response write failed", zap.String("op", req.Op), zap.Error(err))
			return
		}
	}
}

// streamSnapshots turns the connection into a one-way event stream. It ends
// when the client hangs up, the feed closes, or the context is canceled.
func (s *Server) streamSnapshots(ctx context.Context, enc *json.Encoder, req Request) {
	if req.Channel != "" && req.Channel != ChannelTick {
		_ = enc.Encode(Response{ID: req.ID, Error: fmt.Sprintf("unknown channel %q", req.Channel)})
		return
	}

	states, cancel := s.feed.Subscribe(8)
	defer cancel()

	if err := enc.Encode(Response{ID: req.ID, OK: true}); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-states:
			if !ok {
				return
			}
			if err := enc.Encode(Event{Channel: ChannelTick, State: state}); err != nil {
				return
			}
		}
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

// Close stops accepting and drops every open connection. The socket file is
// unlinked with the listener.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ln := s.listener
	open := make([]net.Conn, 0, len(s.conns))
	for conn := range s.conns {
		open = append(open, conn)
	}
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	for _, conn := range open {
		conn.Close()
	}
	return err
}
