package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Zhao-yangyang/pomodoro-bar/internal/domain"
)

// defaultCallTimeout bounds one command round trip when the caller's context
// carries no deadline of its own.
const defaultCallTimeout = 3 * time.Second

// Client talks to the daemon. Commands use one short-lived connection each;
// Subscribe holds a long-lived one for the push feed.
type Client struct {
	socketPath string
	timeout    time.Duration
	logger     *zap.Logger
}

// NewClient creates a client for the daemon socket.
func NewClient(socketPath string, logger *zap.Logger) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    defaultCallTimeout,
		logger:     logger,
	}
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return conn, nil
}

func (c *Client) call(ctx context.Context, op string, prefs *domain.Preferences) (*Response, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(c.timeout))
	}

	req := Request{ID: uuid.NewString(), Op: op, Prefs: prefs}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("send %s: %w", op, err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("read %s response: %w", op, err)
	}
	if resp.ID != req.ID {
		return nil, fmt.Errorf("%s response id mismatch", op)
	}
	if !resp.OK {
		return nil, fmt.Errorf("%s rejected: %s", op, resp.Error)
	}
	return &resp, nil
}

func (c *Client) stateCall(ctx context.Context, op string, prefs *domain.Preferences) (domain.TimerState, error) {
	resp, err := c.call(ctx, op, prefs)
	if err != nil {
		return domain.TimerState{}, err
	}
	if resp.State == nil {
		return domain.TimerState{}, fmt.Errorf("%s returned no state", op)
	}
	return *resp.State, nil
}

// GetState fetches the current authoritative snapshot.
func (c *Client) GetState(ctx context.Context) (domain.TimerState, error) {
	return c.stateCall(ctx, OpGetState, nil)
}

// StartTimer begins the countdown on the daemon.
func (c *Client) StartTimer(ctx context.Context) (domain.TimerState, error) {
	return c.stateCall(ctx, OpStart, nil)
}

// PauseTimer halts the countdown on the daemon.
func (c *Client) PauseTimer(ctx context.Context) (domain.TimerState, error) {
	return c.stateCall(ctx, OpPause, nil)
}

// SkipTimer advances the daemon to the next phase.
func (c *Client) SkipTimer(ctx context.Context) (domain.TimerState, error) {
	return c.stateCall(ctx, OpSkip, nil)
}

// ResetTimer restores the daemon's current phase to its full duration.
func (c *Client) ResetTimer(ctx context.Context) (domain.TimerState, error) {
	return c.stateCall(ctx, OpReset, nil)
}

// SetPrefs replaces the daemon's preferences.
func (c *Client) SetPrefs(ctx context.Context, prefs domain.Preferences) (domain.TimerState, error) {
	return c.stateCall(ctx, OpSetPrefs, &prefs)
}

// Shutdown asks the daemon to exit gracefully.
func (c *Client) Shutdown(ctx context.Context) error {
	_, err := c.call(ctx, OpShutdown, nil)
	return err
}

// Subscribe opens the push feed. The returned subscription's channel closes
// when the feed ends for any reason.
func (c *Client) Subscribe(ctx context.Context) (domain.HostSubscription, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}

	_ = conn.SetDeadline(time.Now().Add(c.timeout))
	req := Request{ID: uuid.NewString(), Op: OpSubscribe, Channel: ChannelTick}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	// The decoder is shared between the ack and the event stream so no
	// buffered bytes are lost in between.
	dec := json.NewDecoder(conn)
	var resp Response
	if err := dec.Decode(&resp); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe ack: %w", err)
	}
	if !resp.OK {
		conn.Close()
		return nil, fmt.Errorf("subscribe rejected: %s", resp.Error)
	}
	_ = conn.SetDeadline(time.Time{})

	sub := &Subscription{
		conn:   conn,
		states: make(chan domain.TimerState, 8),
		logger: c.logger,
	}
	go sub.readLoop(dec)
	return sub, nil
}

// Subscription is a live push feed connection.
type Subscription struct {
	conn   net.Conn
	states chan domain.TimerState
	once   sync.Once
	logger *zap.Logger
}

// States returns the snapshot channel. It closes when the feed ends.
func (s *Subscription) States() <-chan domain.TimerState {
	return s.states
}

// Close releases the feed. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		_ = s.conn.Close()
	})
}

func (s *Subscription) readLoop(dec *json.Decoder) {
	defer close(s.states)
	defer s.Close()

	for {
		var ev Event
		if err := dec.Decode(&ev); err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug("push feed ended", zap.Error(err))
			}
			return
		}
		if ev.Channel != ChannelTick {
			continue
		}
		select {
		case s.states <- ev.State:
		default:
			// Consumer lagging; drop. Snapshots are full state, the
			// next one supersedes whatever was missed.
		}
	}
}

// Ensure Client implements domain.HostClient.
var _ domain.HostClient = (*Client)(nil)

// Ensure Subscription implements domain.HostSubscription.
var _ domain.HostSubscription = (*Subscription)(nil)
