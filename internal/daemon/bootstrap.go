package daemon

import (
	"os"
	"os/exec"
	"syscall"
)

// StartDaemon spawns the daemon as a new process.
// The daemon is detached from the parent process (runs independently).
func StartDaemon(configPath string) error {
	// Get our own executable path
	executable, err := os.Executable()
	if err != nil {
		return err
	}

	return daemonCommand(executable, configPath).Start()
}

// daemonCommand builds the self-exec invocation: pomobar daemon [--config path]
func daemonCommand(executable, configPath string) *exec.Cmd {
	args := []string{"daemon"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	cmd := exec.Command(executable, args...)

	// Detach from parent process
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true, // Create new session (detach from terminal)
	}

	// No stdin/stdout/stderr - fully detached
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	return cmd
}
