package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Zhao-yangyang/pomodoro-bar/internal/domain"
)

func testPrefs() domain.Preferences {
	return domain.Preferences{
		FocusMinutes:      25,
		ShortBreakMinutes: 5,
		LongBreakMinutes:  15,
		Cycles:            4,
		AutoStart:         false,
	}
}

// fixedClock pins the engine to a controllable instant.
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) now() time.Time { return c.t }

func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestEngine(prefs domain.Preferences) (*Engine, *fixedClock) {
	clk := &fixedClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	e := New(prefs)
	e.now = clk.now
	return e, clk
}

// TestStartIsIdempotent verifies a second start leaves the deadline and
// remaining time unchanged.
func TestStartIsIdempotent(t *testing.T) {
	e, clk := newTestEngine(testPrefs())

	first := e.Start()
	assert.True(t, first.IsRunning)
	assert.Equal(t, int64(25*60000), first.RemainingMs)

	clk.advance(10 * time.Second)
	second := e.Start()
	assert.True(t, second.IsRunning)
	assert.Equal(t, first.RemainingMs, second.RemainingMs)
	assert.Equal(t, first.Phase, second.Phase)
}

// TestStartRefillsExhaustedPhase verifies starting at zero remaining resets
// to the full phase duration instead of running an empty countdown.
func TestStartRefillsExhaustedPhase(t *testing.T) {
	e, _ := newTestEngine(testPrefs())
	e.state.RemainingMs = 0

	got := e.Start()

	assert.True(t, got.IsRunning)
	assert.Equal(t, int64(25*60000), got.RemainingMs)
}

// TestPausePreservesRemaining verifies pausing folds the elapsed wall clock
// into the stored countdown.
func TestPausePreservesRemaining(t *testing.T) {
	e, clk := newTestEngine(testPrefs())

	e.Start()
	clk.advance(90 * time.Second)
	got := e.Pause()

	assert.False(t, got.IsRunning)
	assert.Equal(t, int64(25*60000-90000), got.RemainingMs)

	// Pausing again is a no-op.
	clk.advance(time.Hour)
	again := e.Pause()
	assert.Equal(t, got.RemainingMs, again.RemainingMs)
}

// TestTickCountsDown verifies ticks refresh remaining time from the deadline
// rather than accumulating per-tick decrements.
func TestTickCountsDown(t *testing.T) {
	e, clk := newTestEngine(testPrefs())

	e.Start()
	clk.advance(3 * time.Second)
	e.Tick()
	clk.advance(2500 * time.Millisecond)
	got := e.Tick()

	assert.Equal(t, int64(25*60000-5500), got.RemainingMs)
}

// TestTickAdvancesAtDeadline verifies a tick at or past the deadline moves
// to the next phase exactly once.
func TestTickAdvancesAtDeadline(t *testing.T) {
	e, clk := newTestEngine(testPrefs())

	e.Start()
	clk.advance(25 * time.Minute)
	got := e.Tick()

	assert.Equal(t, domain.PhaseShortBreak, got.Phase)
	assert.Equal(t, 1, got.CompletedFocus)
	assert.Equal(t, int64(5*60000), got.RemainingMs)
	assert.False(t, got.IsRunning)

	// Paused after the transition (autoStart off): further ticks no-op.
	clk.advance(time.Hour)
	after := e.Tick()
	assert.Equal(t, got, after)
}

// TestTickKeepsRunningWithAutoStart verifies autoStart carries the countdown
// straight into the break.
func TestTickKeepsRunningWithAutoStart(t *testing.T) {
	prefs := testPrefs()
	prefs.AutoStart = true
	e, clk := newTestEngine(prefs)

	e.Start()
	clk.advance(25 * time.Minute)
	got := e.Tick()

	assert.Equal(t, domain.PhaseShortBreak, got.Phase)
	assert.True(t, got.IsRunning)

	clk.advance(2 * time.Minute)
	got = e.Tick()
	assert.Equal(t, int64(3*60000), got.RemainingMs)
}

// TestTickWhilePausedIsNoOp verifies the tick path cannot mutate a paused
// engine.
func TestTickWhilePausedIsNoOp(t *testing.T) {
	e, clk := newTestEngine(testPrefs())

	before := e.Snapshot()
	clk.advance(time.Hour)
	after := e.Tick()

	assert.Equal(t, before, after)
}

// TestResetKeepsPhase verifies reset refills the current phase and stops the
// countdown without changing the phase.
func TestResetKeepsPhase(t *testing.T) {
	e, clk := newTestEngine(testPrefs())

	e.Skip() // move into the first short break
	e.Start()
	clk.advance(time.Minute)
	e.Tick()
	got := e.Reset()

	assert.Equal(t, domain.PhaseShortBreak, got.Phase)
	assert.False(t, got.IsRunning)
	assert.Equal(t, int64(5*60000), got.RemainingMs)
}

// TestSkipAlwaysAdvances verifies skip applies whether running or paused.
func TestSkipAlwaysAdvances(t *testing.T) {
	e, _ := newTestEngine(testPrefs())

	got := e.Skip()
	assert.Equal(t, domain.PhaseShortBreak, got.Phase)
	assert.Equal(t, 1, got.CompletedFocus)

	e.Start()
	got = e.Skip()
	assert.Equal(t, domain.PhaseFocus, got.Phase)
	assert.Equal(t, 1, got.CompletedFocus)
}

// TestSkipCycleOrder verifies four skips under cycles=4 walk through three
// short breaks before the long one.
func TestSkipCycleOrder(t *testing.T) {
	e, _ := newTestEngine(testPrefs())

	var breaks []domain.Phase
	for i := 0; i < 4; i++ {
		got := e.Skip() // leave focus
		breaks = append(breaks, got.Phase)
		assert.False(t, got.IsRunning)
		e.Skip() // leave the break
	}

	assert.Equal(t, []domain.Phase{
		domain.PhaseShortBreak,
		domain.PhaseShortBreak,
		domain.PhaseShortBreak,
		domain.PhaseLongBreak,
	}, breaks)
	assert.Equal(t, 4, e.Snapshot().CompletedFocus)
}

// TestSetPrefsWhilePaused verifies a paused countdown immediately reflects
// the new phase duration.
func TestSetPrefsWhilePaused(t *testing.T) {
	e, _ := newTestEngine(testPrefs())

	prefs := testPrefs()
	prefs.FocusMinutes = 50
	got := e.SetPrefs(prefs)

	assert.Equal(t, int64(50*60000), got.RemainingMs)
	assert.False(t, got.IsRunning)
}

// TestSetPrefsWhileRunning verifies an in-flight countdown is not disturbed
// by a preference edit.
func TestSetPrefsWhileRunning(t *testing.T) {
	e, clk := newTestEngine(testPrefs())

	e.Start()
	clk.advance(time.Minute)
	e.Tick()

	prefs := testPrefs()
	prefs.FocusMinutes = 50
	got := e.SetPrefs(prefs)

	assert.Equal(t, int64(24*60000), got.RemainingMs)
	assert.True(t, got.IsRunning)

	// The new duration applies from the next transition on.
	clk.advance(24 * time.Minute)
	e.Tick()
	e.Skip() // leave the break
	assert.Equal(t, int64(50*60000), e.Snapshot().RemainingMs)
}
