package infra

import (
	"os"
	"strings"

	"github.com/Zhao-yangyang/pomodoro-bar/internal/domain"
)

// mockProcessManager is a test double for ProcessManager
type mockProcessManager struct {
	runningPIDs map[int]bool
	names       map[int]string
}

func newMockProcessManager() *mockProcessManager {
	return &mockProcessManager{
		runningPIDs: make(map[int]bool),
		names:       make(map[int]string),
	}
}

func (m *mockProcessManager) IsRunning(pid int) bool {
	return m.runningPIDs[pid]
}

func (m *mockProcessManager) NameContains(pid int, fragment string) bool {
	name, ok := m.names[pid]
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(fragment))
}

func (m *mockProcessManager) CurrentPID() int {
	return os.Getpid()
}

func (m *mockProcessManager) SetRunning(pid int, running bool) {
	m.runningPIDs[pid] = running
}

func (m *mockProcessManager) SetName(pid int, name string) {
	m.names[pid] = name
}

// Ensure mockProcessManager implements domain.ProcessManager
var _ domain.ProcessManager = (*mockProcessManager)(nil)
