// Package panel renders the timer: phase, countdown, cycle progress, and the
// action keys. It never owns timer state; every change arrives as a snapshot
// from the orchestration core.
package panel

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Zhao-yangyang/pomodoro-bar/internal/clock"
	"github.com/Zhao-yangyang/pomodoro-bar/internal/domain"
	"github.com/Zhao-yangyang/pomodoro-bar/internal/usecase"
)

// Core is the slice of the orchestrator the panel drives.
type Core interface {
	State() domain.TimerState
	Mode() usecase.Mode
	Start(ctx context.Context) error
	Pause(ctx context.Context) error
	Skip(ctx context.Context) error
	Reset(ctx context.Context) error
	Subscribe(buffer int) (<-chan domain.TimerState, func())
}

type stateMsg domain.TimerState

// feedClosedMsg arrives when the snapshot feed ends; the panel freezes on
// the last known state.
type feedClosedMsg struct{}

type Model struct {
	core     Core
	state    domain.TimerState
	states   <-chan domain.TimerState
	unsub    func()
	progress progress.Model
	feedDead bool
	width    int
	height   int
}

func New(core Core) Model {
	prog := progress.New(progress.WithScaledGradient("#FF5F87", "#FFAF87"))
	prog.Width = 40

	states, unsub := core.Subscribe(8)

	return Model{
		core:     core,
		state:    core.State(),
		states:   states,
		unsub:    unsub,
		progress: prog,
	}
}

func (m Model) Init() tea.Cmd {
	return waitForState(m.states)
}

// waitForState blocks on the snapshot feed and hands the next state to the
// program. Re-armed after every delivery.
func waitForState(states <-chan domain.TimerState) tea.Cmd {
	return func() tea.Msg {
		state, ok := <-states
		if !ok {
			return feedClosedMsg{}
		}
		return stateMsg(state)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(msg.Width-16, 60)
		return m, nil

	case stateMsg:
		m.state = domain.TimerState(msg)
		return m, waitForState(m.states)

	case feedClosedMsg:
		m.feedDead = true
		return m, nil

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Toggle):
			if m.state.IsRunning {
				m.core.Pause(context.Background())
			} else {
				m.core.Start(context.Background())
			}
			return m, nil

		case key.Matches(msg, keys.Start):
			m.core.Start(context.Background())
			return m, nil

		case key.Matches(msg, keys.Pause):
			m.core.Pause(context.Background())
			return m, nil

		case key.Matches(msg, keys.Skip):
			m.core.Skip(context.Background())
			return m, nil

		case key.Matches(msg, keys.Reset):
			m.core.Reset(context.Background())
			return m, nil

		case key.Matches(msg, keys.Quit):
			m.unsub()
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	containerStyle := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Padding(1)

	phaseStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(phaseColor(m.state.Phase))

	badgeStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666"))

	clockStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color("#5F5FD7")).
		Padding(1, 3).
		MarginTop(1).
		MarginBottom(1)

	dotsStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FF5F87")).
		MarginBottom(1)

	statusStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888")).
		MarginTop(1)

	header := phaseStyle.Render(phaseLabel(m.state.Phase)) + " " + badgeStyle.Render(modeBadge(m.core.Mode()))

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		header,
		clockStyle.Render(formatClock(m.state.RemainingMs)),
		m.progress.ViewAs(m.percentElapsed()),
		dotsStyle.Render(cycleDots(m.state)),
		fmt.Sprintf("🍅 %d completed", m.state.CompletedFocus),
		statusStyle.Render(m.statusLine()),
		helpView(),
	)

	return containerStyle.Render(content)
}

// formatClock renders remaining milliseconds as MM:SS. Partial seconds round
// up so the display only shows 00:00 once the countdown is truly drained.
func formatClock(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	secs := (ms + 999) / 1000
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

func phaseLabel(p domain.Phase) string {
	switch p {
	case domain.PhaseShortBreak:
		return "SHORT BREAK"
	case domain.PhaseLongBreak:
		return "LONG BREAK"
	default:
		return "FOCUS"
	}
}

func phaseColor(p domain.Phase) lipgloss.Color {
	switch p {
	case domain.PhaseShortBreak:
		return lipgloss.Color("#5FD787")
	case domain.PhaseLongBreak:
		return lipgloss.Color("#5FAFFF")
	default:
		return lipgloss.Color("#FF5F87")
	}
}

func modeBadge(mode usecase.Mode) string {
	if mode == usecase.ModeRemote {
		return "[daemon]"
	}
	return "[local]"
}

// cycleDots marks progress through the focus cycle, one dot per block.
// During the long break itself the row shows full rather than wrapped
// back to zero.
func cycleDots(state domain.TimerState) string {
	cycles := state.Prefs.Cycles
	if cycles < 1 {
		return ""
	}

	done := state.CompletedFocus % cycles
	if done == 0 && state.CompletedFocus > 0 && state.Phase == domain.PhaseLongBreak {
		done = cycles
	}

	var b strings.Builder
	for i := 0; i < cycles; i++ {
		if i > 0 {
			b.WriteString(" ")
		}
		if i < done {
			b.WriteString("●")
		} else {
			b.WriteString("○")
		}
	}
	return b.String()
}

func (m Model) percentElapsed() float64 {
	total := clock.DurationForPhase(m.state.Phase, m.state.Prefs)
	if total <= 0 {
		return 0
	}
	elapsed := total - m.state.RemainingMs
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > total {
		elapsed = total
	}
	return float64(elapsed) / float64(total)
}

func (m Model) statusLine() string {
	if m.feedDead {
		return "timer connection lost - showing last known state"
	}
	if !m.state.IsRunning {
		return "PAUSED - press space to start"
	}
	if m.state.Phase == domain.PhaseFocus {
		return "Focus time! Stay in the zone..."
	}
	return "Break - step away from the keyboard"
}

func helpView() string {
	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666")).
		MarginTop(1)

	return helpStyle.Render("space: start/pause • k: skip • r: reset • q: quit")
}

type keyMap struct {
	Toggle key.Binding
	Start  key.Binding
	Pause  key.Binding
	Skip   key.Binding
	Reset  key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Toggle: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "start/pause"),
	),
	Start: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "start"),
	),
	Pause: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "pause"),
	),
	Skip: key.NewBinding(
		key.WithKeys("k", "n"),
		key.WithHelp("k", "skip"),
	),
	Reset: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reset"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "quit"),
	),
}
