package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Zhao-yangyang/pomodoro-bar/internal/domain"
)

// stateRecorder collects every snapshot a driver publishes.
type stateRecorder struct {
	mu     sync.Mutex
	states []domain.TimerState
}

func (r *stateRecorder) record(s domain.TimerState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *stateRecorder) all() []domain.TimerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.TimerState, len(r.states))
	copy(out, r.states)
	return out
}

func (r *stateRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

func (r *stateRecorder) last() (domain.TimerState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return domain.TimerState{}, false
	}
	return r.states[len(r.states)-1], true
}

// fakeHostClient implements domain.HostClient for testing.
type fakeHostClient struct {
	mu    sync.Mutex
	calls []string
	prefs []domain.Preferences

	state   domain.TimerState
	cmdErr  error
	getErr  error
	subErr  error
	lastSub *fakeSubscription
}

var _ domain.HostClient = (*fakeHostClient)(nil)

func newFakeHostClient(state domain.TimerState) *fakeHostClient {
	return &fakeHostClient{state: state}
}

func (c *fakeHostClient) record(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, name)
}

func (c *fakeHostClient) recorded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}

func (c *fakeHostClient) recordedPrefs() []domain.Preferences {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Preferences, len(c.prefs))
	copy(out, c.prefs)
	return out
}

func (c *fakeHostClient) GetState(ctx context.Context) (domain.TimerState, error) {
	c.record("get_timer_state")
	if c.getErr != nil {
		return domain.TimerState{}, c.getErr
	}
	return c.state, nil
}

func (c *fakeHostClient) command(name string) (domain.TimerState, error) {
	c.record(name)
	if c.cmdErr != nil {
		return domain.TimerState{}, c.cmdErr
	}
	return c.state, nil
}

func (c *fakeHostClient) StartTimer(ctx context.Context) (domain.TimerState, error) {
	return c.command("start_timer")
}

func (c *fakeHostClient) PauseTimer(ctx context.Context) (domain.TimerState, error) {
	return c.command("pause_timer")
}

func (c *fakeHostClient) SkipTimer(ctx context.Context) (domain.TimerState, error) {
	return c.command("skip_timer")
}

func (c *fakeHostClient) ResetTimer(ctx context.Context) (domain.TimerState, error) {
	return c.command("reset_timer")
}

func (c *fakeHostClient) SetPrefs(ctx context.Context, prefs domain.Preferences) (domain.TimerState, error) {
	c.mu.Lock()
	c.prefs = append(c.prefs, prefs)
	c.mu.Unlock()
	return c.command("set_prefs")
}

func (c *fakeHostClient) Subscribe(ctx context.Context) (domain.HostSubscription, error) {
	c.record("subscribe")
	if c.subErr != nil {
		return nil, c.subErr
	}
	sub := newFakeSubscription()
	c.mu.Lock()
	c.lastSub = sub
	c.mu.Unlock()
	return sub, nil
}

func (c *fakeHostClient) Shutdown(ctx context.Context) error {
	c.record("shutdown")
	return nil
}

// fakeSubscription implements domain.HostSubscription for testing.
type fakeSubscription struct {
	states chan domain.TimerState

	mu         sync.Mutex
	closeCalls int
}

var _ domain.HostSubscription = (*fakeSubscription)(nil)

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{states: make(chan domain.TimerState, 16)}
}

func (s *fakeSubscription) States() <-chan domain.TimerState {
	return s.states
}

func (s *fakeSubscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCalls++
	if s.closeCalls == 1 {
		close(s.states)
	}
}

func (s *fakeSubscription) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCalls
}

func (s *fakeSubscription) push(state domain.TimerState) {
	s.states <- state
}

// mockPrefsStore implements domain.PrefsStore for testing.
type mockPrefsStore struct {
	mu      sync.Mutex
	stored  domain.Preferences
	saved   []domain.Preferences
	saveErr error
}

var _ domain.PrefsStore = (*mockPrefsStore)(nil)

func (m *mockPrefsStore) Load() (domain.Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stored, nil
}

func (m *mockPrefsStore) Save(prefs domain.Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, prefs)
	m.stored = prefs
	return nil
}

func (m *mockPrefsStore) savedPrefs() []domain.Preferences {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Preferences, len(m.saved))
	copy(out, m.saved)
	return out
}

func waitTimeout() <-chan time.Time {
	return time.After(2 * time.Second)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal(msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
