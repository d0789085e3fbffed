// Package settings is the preferences form: four numeric fields, an
// auto-start toggle, and range validation before anything reaches the core.
package settings

import (
	"context"
	"fmt"
	"strconv"
	"unicode"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Zhao-yangyang/pomodoro-bar/internal/domain"
)

// Core is the slice of the orchestrator the form talks to.
type Core interface {
	State() domain.TimerState
	SetPrefs(ctx context.Context, prefs domain.Preferences) error
}

const (
	fieldFocus = iota
	fieldShortBreak
	fieldLongBreak
	fieldCycles
	fieldAutoStart
	fieldCount
)

type Model struct {
	core       Core
	inputs     []textinput.Model
	autoStart  bool
	focusIndex int
	saved      bool
	errorMsg   string
	width      int
	height     int
}

func New(core Core) Model {
	prefs := core.State().Prefs

	// Validation function to allow only numeric input
	numericValidation := func(text string) error {
		if text == "" {
			return nil // Allow empty input temporarily
		}
		for _, char := range text {
			if !unicode.IsDigit(char) {
				return fmt.Errorf("only numbers allowed")
			}
		}
		return nil
	}

	inputs := make([]textinput.Model, 4)

	inputs[fieldFocus] = textinput.New()
	inputs[fieldFocus].Placeholder = "25"
	inputs[fieldFocus].SetValue(strconv.Itoa(prefs.FocusMinutes))
	inputs[fieldFocus].Focus()
	inputs[fieldFocus].CharLimit = 3
	inputs[fieldFocus].Width = 20
	inputs[fieldFocus].Validate = numericValidation

	inputs[fieldShortBreak] = textinput.New()
	inputs[fieldShortBreak].Placeholder = "5"
	inputs[fieldShortBreak].SetValue(strconv.Itoa(prefs.ShortBreakMinutes))
	inputs[fieldShortBreak].CharLimit = 2
	inputs[fieldShortBreak].Width = 20
	inputs[fieldShortBreak].Validate = numericValidation

	inputs[fieldLongBreak] = textinput.New()
	inputs[fieldLongBreak].Placeholder = "15"
	inputs[fieldLongBreak].SetValue(strconv.Itoa(prefs.LongBreakMinutes))
	inputs[fieldLongBreak].CharLimit = 2
	inputs[fieldLongBreak].Width = 20
	inputs[fieldLongBreak].Validate = numericValidation

	inputs[fieldCycles] = textinput.New()
	inputs[fieldCycles].Placeholder = "4"
	inputs[fieldCycles].SetValue(strconv.Itoa(prefs.Cycles))
	inputs[fieldCycles].CharLimit = 2
	inputs[fieldCycles].Width = 20
	inputs[fieldCycles].Validate = numericValidation

	return Model{
		core:      core,
		inputs:    inputs,
		autoStart: prefs.AutoStart,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Tab), key.Matches(msg, keys.Down):
			m.focusIndex++
			if m.focusIndex > fieldCount-1 {
				m.focusIndex = 0
			}
			return m.updateFocus(), nil

		case key.Matches(msg, keys.ShiftTab), key.Matches(msg, keys.Up):
			m.focusIndex--
			if m.focusIndex < 0 {
				m.focusIndex = fieldCount - 1
			}
			return m.updateFocus(), nil

		case key.Matches(msg, keys.Toggle) && m.focusIndex == fieldAutoStart:
			m.autoStart = !m.autoStart
			return m, nil

		case key.Matches(msg, keys.Save):
			prefs, err := m.buildPrefs()
			if err != nil {
				m.errorMsg = err.Error()
				return m, nil
			}
			m.core.SetPrefs(context.Background(), prefs)
			m.saved = true
			return m, tea.Quit

		case key.Matches(msg, keys.Back), key.Matches(msg, keys.Quit):
			return m, tea.Quit
		}
	}

	cmd := m.updateInputs(msg)
	return m, cmd
}

func (m *Model) updateFocus() tea.Model {
	for i := range m.inputs {
		if i == m.focusIndex {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
	return m
}

func (m *Model) updateInputs(msg tea.Msg) tea.Cmd {
	cmds := make([]tea.Cmd, len(m.inputs))
	for i := range m.inputs {
		oldValue := m.inputs[i].Value()
		m.inputs[i], cmds[i] = m.inputs[i].Update(msg)
		// Clear error message when user starts typing
		if m.inputs[i].Value() != oldValue {
			m.errorMsg = ""
		}
	}
	return tea.Batch(cmds...)
}

// buildPrefs validates every field against its allowed range. Out-of-range
// values are rejected here with a message, never silently clamped.
func (m *Model) buildPrefs() (domain.Preferences, error) {
	focus, err := parseField(m.inputs[fieldFocus].Value(), "focus length",
		domain.MinFocusMinutes, domain.MaxFocusMinutes)
	if err != nil {
		return domain.Preferences{}, err
	}

	short, err := parseField(m.inputs[fieldShortBreak].Value(), "short break",
		domain.MinShortBreakMinutes, domain.MaxShortBreakMinutes)
	if err != nil {
		return domain.Preferences{}, err
	}

	long, err := parseField(m.inputs[fieldLongBreak].Value(), "long break",
		domain.MinLongBreakMinutes, domain.MaxLongBreakMinutes)
	if err != nil {
		return domain.Preferences{}, err
	}

	cycles, err := parseField(m.inputs[fieldCycles].Value(), "cycles",
		domain.MinCycles, domain.MaxCycles)
	if err != nil {
		return domain.Preferences{}, err
	}

	return domain.Preferences{
		FocusMinutes:      focus,
		ShortBreakMinutes: short,
		LongBreakMinutes:  long,
		Cycles:            cycles,
		AutoStart:         m.autoStart,
	}, nil
}

func parseField(raw, label string, min, max int) (int, error) {
	if raw == "" {
		return 0, fmt.Errorf("%s is required", label)
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min || v > max {
		return 0, fmt.Errorf("%s must be between %d-%d", label, min, max)
	}
	return v, nil
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	containerStyle := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Padding(2)

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF5F87")).
		MarginBottom(2).
		Align(lipgloss.Center)

	formStyle := lipgloss.NewStyle().
		Align(lipgloss.Left).
		MarginTop(1).
		MarginBottom(1)

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFAF87")).
		MarginBottom(1)

	inputStyle := lipgloss.NewStyle().
		MarginBottom(1)

	title := titleStyle.Render("⚙️  Timer Preferences")

	labels := []string{
		"Focus length (minutes):",
		"Short break (minutes):",
		"Long break (minutes):",
		"Focus blocks per long break:",
	}

	var form string
	for i, label := range labels {
		form += labelStyle.Render(label) + "\n"
		form += inputStyle.Render(m.inputs[i].View()) + "\n"
	}
	form += labelStyle.Render("Auto-start next phase:") + "\n"
	form += inputStyle.Render(m.autoStartView()) + "\n"

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		title,
		formStyle.Render(form),
		renderHelp(),
	)

	if m.saved {
		successStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4CAF50")).
			Bold(true).
			MarginTop(1)
		content += "\n" + successStyle.Render("✅ Preferences saved!")
	}

	if m.errorMsg != "" {
		errorStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true).
			MarginTop(1)
		content += "\n" + errorStyle.Render("❌ " + m.errorMsg)
	}

	return containerStyle.Render(content)
}

func (m Model) autoStartView() string {
	box := "[ ]"
	if m.autoStart {
		box = "[x]"
	}
	line := box + " enabled (space to toggle)"
	if m.focusIndex == fieldAutoStart {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")).Render("> " + line)
	}
	return "  " + line
}

func renderHelp() string {
	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666")).
		MarginTop(1)

	return helpStyle.Render("tab/↓: next field • shift+tab/↑: previous • s: save • b: back • q: quit")
}

// Saved reports whether the form committed its edits before exiting.
func (m Model) Saved() bool {
	return m.saved
}

type keyMap struct {
	Tab      key.Binding
	ShiftTab key.Binding
	Up       key.Binding
	Down     key.Binding
	Toggle   key.Binding
	Save     key.Binding
	Back     key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next field"),
	),
	ShiftTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "previous field"),
	),
	Up: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑", "previous field"),
	),
	Down: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("↓", "next field"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" ", "enter"),
		key.WithHelp("space", "toggle"),
	),
	Save: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "save"),
	),
	Back: key.NewBinding(
		key.WithKeys("b", "esc"),
		key.WithHelp("b", "back"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
