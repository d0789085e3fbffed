package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Zhao-yangyang/pomodoro-bar/internal/domain"
)

func daemonState() domain.TimerState {
	return domain.TimerState{
		Phase:          domain.PhaseFocus,
		IsRunning:      true,
		RemainingMs:    12 * 60 * 1000,
		CompletedFocus: 2,
		Prefs:          domain.DefaultPreferences(),
	}
}

// TestRemoteBridge_SubscribesAndFetchesInitialState verifies the bridge pulls
// an explicit first snapshot instead of waiting for a push.
func TestRemoteBridge_SubscribesAndFetchesInitialState(t *testing.T) {
	client := newFakeHostClient(daemonState())
	rec := &stateRecorder{}

	b := NewRemoteBridge(context.Background(), client, rec.record, zap.NewNop())
	defer b.Close()

	assert.Equal(t, []string{"subscribe", "get_timer_state"}, client.recorded())

	last, ok := rec.last()
	require.True(t, ok, "initial snapshot must reach the consumer")
	assert.Equal(t, daemonState(), last)
}

// TestRemoteBridge_ForwardsCommandsInOrder verifies actions reach the daemon
// serialized in the order they were taken.
func TestRemoteBridge_ForwardsCommandsInOrder(t *testing.T) {
	client := newFakeHostClient(daemonState())
	b := NewRemoteBridge(context.Background(), client, nil, zap.NewNop())
	defer b.Close()

	require.NoError(t, b.Start(context.Background()))
	require.NoError(t, b.Pause(context.Background()))
	require.NoError(t, b.Skip(context.Background()))
	require.NoError(t, b.Reset(context.Background()))

	waitFor(t, func() bool { return len(client.recorded()) >= 6 }, "commands never reached the daemon")

	assert.Equal(t, []string{
		"subscribe", "get_timer_state",
		"start_timer", "pause_timer", "skip_timer", "reset_timer",
	}, client.recorded())
}

// TestRemoteBridge_SetPrefsCarriesPayload verifies preferences ride along
// unchanged.
func TestRemoteBridge_SetPrefsCarriesPayload(t *testing.T) {
	client := newFakeHostClient(daemonState())
	b := NewRemoteBridge(context.Background(), client, nil, zap.NewNop())
	defer b.Close()

	prefs := domain.Preferences{
		FocusMinutes:      45,
		ShortBreakMinutes: 8,
		LongBreakMinutes:  25,
		Cycles:            3,
		AutoStart:         false,
	}
	require.NoError(t, b.SetPrefs(context.Background(), prefs))

	waitFor(t, func() bool { return len(client.recordedPrefs()) == 1 }, "prefs never reached the daemon")
	assert.Equal(t, prefs, client.recordedPrefs()[0])
}

// TestRemoteBridge_SwallowsCommandFailures verifies a failing daemon call
// neither errors out nor mutates state.
func TestRemoteBridge_SwallowsCommandFailures(t *testing.T) {
	client := newFakeHostClient(daemonState())
	client.cmdErr = errors.New("daemon rejected the call")
	rec := &stateRecorder{}

	b := NewRemoteBridge(context.Background(), client, rec.record, zap.NewNop())
	defer b.Close()

	before := rec.count()

	assert.NoError(t, b.Start(context.Background()))
	assert.NoError(t, b.Skip(context.Background()))

	waitFor(t, func() bool { return len(client.recorded()) >= 4 }, "commands never dispatched")
	assert.Equal(t, before, rec.count(), "a failed command must not publish state")
}

// TestRemoteBridge_NoOptimisticUpdates verifies actions alone publish
// nothing; only pushed snapshots move the mirror.
func TestRemoteBridge_NoOptimisticUpdates(t *testing.T) {
	client := newFakeHostClient(daemonState())
	rec := &stateRecorder{}

	b := NewRemoteBridge(context.Background(), client, rec.record, zap.NewNop())
	defer b.Close()

	require.Equal(t, 1, rec.count(), "only the initial fetch so far")

	require.NoError(t, b.Pause(context.Background()))
	waitFor(t, func() bool { return len(client.recorded()) >= 3 }, "pause never dispatched")
	assert.Equal(t, 1, rec.count(), "the command response must not be mirrored")

	pushed := daemonState()
	pushed.IsRunning = false
	client.lastSub.push(pushed)

	waitFor(t, func() bool { return rec.count() == 2 }, "pushed snapshot never mirrored")
	last, _ := rec.last()
	assert.Equal(t, pushed, last)
}

// TestRemoteBridge_MirrorsPushedSnapshotsInOrder verifies the push feed flows
// through untouched.
func TestRemoteBridge_MirrorsPushedSnapshotsInOrder(t *testing.T) {
	client := newFakeHostClient(daemonState())
	rec := &stateRecorder{}

	b := NewRemoteBridge(context.Background(), client, rec.record, zap.NewNop())
	defer b.Close()

	first := daemonState()
	first.RemainingMs = 9000
	second := daemonState()
	second.RemainingMs = 8000

	client.lastSub.push(first)
	client.lastSub.push(second)

	waitFor(t, func() bool { return rec.count() == 3 }, "pushed snapshots never mirrored")

	states := rec.all()
	assert.Equal(t, int64(9000), states[1].RemainingMs)
	assert.Equal(t, int64(8000), states[2].RemainingMs)
}

// TestRemoteBridge_FeedEndKeepsLastState verifies a dropped feed degrades to
// the last known snapshot with no resubscription.
func TestRemoteBridge_FeedEndKeepsLastState(t *testing.T) {
	client := newFakeHostClient(daemonState())
	rec := &stateRecorder{}

	b := NewRemoteBridge(context.Background(), client, rec.record, zap.NewNop())
	defer b.Close()

	client.lastSub.Close()

	// Commands still flow after the feed dies.
	require.NoError(t, b.Start(context.Background()))
	waitFor(t, func() bool { return len(client.recorded()) >= 3 }, "command never dispatched after feed end")

	last, ok := rec.last()
	require.True(t, ok)
	assert.Equal(t, daemonState(), last, "last known snapshot stays in place")
	assert.Equal(t, []string{"subscribe", "get_timer_state", "start_timer"}, client.recorded(),
		"no resubscription attempt")
}

// TestRemoteBridge_SubscribeFailureTolerated verifies a failed subscription
// still leaves a working command path.
func TestRemoteBridge_SubscribeFailureTolerated(t *testing.T) {
	client := newFakeHostClient(daemonState())
	client.subErr = errors.New("subscription refused")
	rec := &stateRecorder{}

	b := NewRemoteBridge(context.Background(), client, rec.record, zap.NewNop())
	defer b.Close()

	require.NoError(t, b.Start(context.Background()))
	waitFor(t, func() bool { return len(client.recorded()) >= 3 }, "command never dispatched")

	last, ok := rec.last()
	require.True(t, ok, "initial fetch still mirrors state")
	assert.Equal(t, daemonState(), last)
}

// TestRemoteBridge_CloseReleasesSubscriptionOnce verifies teardown happens
// exactly once however many times Close is called.
func TestRemoteBridge_CloseReleasesSubscriptionOnce(t *testing.T) {
	client := newFakeHostClient(daemonState())
	b := NewRemoteBridge(context.Background(), client, nil, zap.NewNop())

	sub := client.lastSub
	require.NotNil(t, sub)

	assert.NoError(t, b.Close())
	assert.NoError(t, b.Close())
	assert.Equal(t, 1, sub.closeCount())
}
