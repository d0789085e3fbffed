// Package main is the CLI entry point for pomobar.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Zhao-yangyang/pomodoro-bar/internal/config"
	"github.com/Zhao-yangyang/pomodoro-bar/internal/daemon"
	"github.com/Zhao-yangyang/pomodoro-bar/internal/domain"
	"github.com/Zhao-yangyang/pomodoro-bar/internal/engine"
	"github.com/Zhao-yangyang/pomodoro-bar/internal/infra"
	"github.com/Zhao-yangyang/pomodoro-bar/internal/ipc"
	"github.com/Zhao-yangyang/pomodoro-bar/internal/ui/panel"
	"github.com/Zhao-yangyang/pomodoro-bar/internal/ui/settings"
	"github.com/Zhao-yangyang/pomodoro-bar/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pomobar",
	Short: "Pomodoro timer with a background daemon",
	Long: `pomobar is a focus/break interval timer. A background daemon owns the
authoritative countdown, so the timer keeps running while no panel is open;
when the daemon is not running, the panel simulates the same timer
in-process for the session.`,
	Version: Version,
}

var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Open the timer panel",
	Long: `Opens the interactive timer panel. If the pomobar daemon is running, it
drives the countdown and the panel mirrors its state; otherwise the panel
simulates the timer in-process.`,
	RunE: runPanel,
}

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Edit timer preferences",
	Long: `Opens the preferences form: focus length, break lengths, focus blocks per
long break, and auto-start. Saved values take effect immediately and persist
for future sessions.`,
	RunE: runPrefs,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the timer daemon",
	Long: `Starts the background daemon that owns the authoritative timer. Panels
opened afterwards mirror its countdown instead of simulating their own.`,
	RunE: runStart,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the timer daemon",
	Long:  `Asks the running daemon to shut down gracefully.`,
	RunE:  runStop,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon and timer status",
	Long:  `Shows whether the daemon is running and summarizes the current timer state.`,
	RunE:  runStatus,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

// Hidden daemon command - used for self-exec when spawning the daemon
var daemonCmd = &cobra.Command{
	Use:    "daemon",
	Hidden: true,
	RunE:   runDaemon,
}

var (
	configPath string
	jsonOutput bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (YAML)")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(panelCmd)
	rootCmd.AddCommand(prefsCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(daemonCmd)
}

func runPanel(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := createLogger(cfg)
	defer func() { _ = logger.Sync() }()

	core := buildCore(cmd.Context(), cfg, logger)
	defer core.Close()

	program := tea.NewProgram(panel.New(core), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("panel failed: %w", err)
	}
	return nil
}

func runPrefs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := createLogger(cfg)
	defer func() { _ = logger.Sync() }()

	core := buildCore(cmd.Context(), cfg, logger)
	defer core.Close()

	program := tea.NewProgram(settings.New(core), tea.WithAltScreen())
	final, err := program.Run()
	if err != nil {
		return fmt.Errorf("preferences form failed: %w", err)
	}
	// The final model may be a value or a pointer depending on the last
	// update path; the interface covers both.
	if m, ok := final.(interface{ Saved() bool }); ok && m.Saved() {
		fmt.Println("Preferences saved.")
	}
	return nil
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if info, ok := probeDaemon(cmd.Context(), cfg, zap.NewNop()); ok {
		fmt.Printf("pomobar daemon is already running (pid %d)\n", info.PID)
		return nil
	}

	if err := daemon.StartDaemon(configPath); err != nil {
		return fmt.Errorf("failed to spawn daemon: %w", err)
	}

	// Give the daemon a moment to bind its socket and register
	time.Sleep(500 * time.Millisecond)

	info, ok := probeDaemon(cmd.Context(), cfg, zap.NewNop())
	if !ok {
		return fmt.Errorf("daemon did not come up; check %s", cfg.LogPath)
	}

	fmt.Println("\n=== pomobar Started ===")
	fmt.Printf("Daemon PID: %d\n", info.PID)
	fmt.Printf("Socket: %s\n", info.SocketPath)
	fmt.Println("\nThe timer now runs in the background.")
	fmt.Println("Open the panel with 'pomobar panel'.")
	fmt.Println("=======================")
	return nil
}

func runStop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	info, ok := probeDaemon(cmd.Context(), cfg, zap.NewNop())
	if !ok {
		fmt.Println("pomobar daemon is not running")
		return nil
	}

	client := ipc.NewClient(info.SocketPath, zap.NewNop())
	if err := client.Shutdown(cmd.Context()); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}

	fmt.Printf("pomobar daemon (pid %d) stopped\n", info.PID)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	registry := infra.NewFileRegistry(cfg.RegistryPath())
	pm := infra.NewProcessManager()

	fmt.Println("\n=== pomobar Status ===")

	entry, err := registry.Load()
	if err != nil || entry == nil {
		fmt.Println("Daemon: NOT RUNNING")
		fmt.Println("\nThe panel simulates the timer in-process.")
		fmt.Println("Run 'pomobar start' to launch the daemon.")
		fmt.Println("======================")
		return nil
	}

	if !pm.IsRunning(entry.PID) || !pm.NameContains(entry.PID, "pomobar") {
		fmt.Println("Daemon: NOT RUNNING (stale registry entry)")
		fmt.Printf("Registry: %s\n", registry.Path())
		fmt.Println("======================")
		return nil
	}

	fmt.Printf("Daemon: RUNNING (pid %d)\n", entry.PID)
	fmt.Printf("Socket: %s\n", entry.SocketPath)
	if entry.AppVersion != "" {
		fmt.Printf("Version: %s\n", entry.AppVersion)
	}
	if entry.LastHeartbeat > 0 {
		lastBeat := time.Unix(entry.LastHeartbeat, 0)
		fmt.Printf("Last heartbeat: %s ago\n", time.Since(lastBeat).Round(time.Second))
	}

	client := ipc.NewClient(entry.SocketPath, zap.NewNop())
	state, err := client.GetState(cmd.Context())
	if err != nil {
		fmt.Printf("\nTimer: unreachable (%v)\n", err)
		fmt.Println("======================")
		return nil
	}

	fmt.Printf("\nPhase: %s%s\n", phaseName(state.Phase), runningSuffix(state.IsRunning))
	fmt.Printf("Remaining: %s\n", formatRemaining(state.RemainingMs))
	fmt.Printf("Completed focus blocks: %d\n", state.CompletedFocus)
	fmt.Printf("Timer: %d/%d/%d min, long break every %d blocks\n",
		state.Prefs.FocusMinutes, state.Prefs.ShortBreakMinutes,
		state.Prefs.LongBreakMinutes, state.Prefs.Cycles)
	fmt.Println("======================")
	return nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return err
	}

	logger := createLogger(cfg)
	defer func() { _ = logger.Sync() }()

	// A live daemon keeps sole ownership of the timer; refuse to double-start.
	if info, ok := probeDaemon(cmd.Context(), cfg, logger.Named("probe")); ok {
		return fmt.Errorf("daemon already running (pid %d)", info.PID)
	}

	prefsStore := config.NewPrefsStore(cfg.DataDir)
	prefs, err := prefsStore.Load()
	if err != nil {
		logger.Warn("failed to load preferences, using defaults", zap.Error(err))
	}

	registry := infra.NewFileRegistry(cfg.RegistryPath())
	info := domain.DaemonInfo{
		PID:        os.Getpid(),
		SocketPath: cfg.SocketPath,
		AppVersion: Version,
	}

	d := daemon.New(daemon.Config{
		TickInterval:      cfg.TickInterval(),
		HeartbeatInterval: cfg.HeartbeatInterval(),
	}, engine.New(prefs), prefsStore, registry, info, logger.Named("daemon"))

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("pomobar %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}

func loadConfig() (config.Config, error) {
	if configPath != "" {
		return config.LoadFrom(configPath)
	}
	return config.Load()
}

// buildCore probes for the daemon once and assembles the orchestration core
// in whichever mode the probe selected.
func buildCore(ctx context.Context, cfg config.Config, logger *zap.Logger) *usecase.Orchestrator {
	prefsStore := config.NewPrefsStore(cfg.DataDir)
	prefs, err := prefsStore.Load()
	if err != nil {
		logger.Warn("failed to load preferences, using defaults", zap.Error(err))
	}

	info, available := probeDaemon(ctx, cfg, logger.Named("probe"))

	var client domain.HostClient
	if available {
		client = ipc.NewClient(info.SocketPath, logger.Named("ipc"))
	}

	return usecase.New(ctx, usecase.Options{
		RemoteAvailable: available,
		Client:          client,
		Prefs:           prefs,
		PrefsStore:      prefsStore,
		Logger:          logger.Named("core"),
	})
}

// probeDaemon runs the one-shot host capability check: registry entry, live
// PID with a matching name, and a state round trip over the socket.
func probeDaemon(ctx context.Context, cfg config.Config, logger *zap.Logger) (*domain.DaemonInfo, bool) {
	registry := infra.NewFileRegistry(cfg.RegistryPath())
	pm := infra.NewProcessManager()
	ping := func(ctx context.Context, socketPath string) error {
		_, err := ipc.NewClient(socketPath, logger).GetState(ctx)
		return err
	}
	return infra.NewHostProbe(registry, pm, ping, logger).Detect(ctx)
}

// createLogger writes structured logs to the configured file. The terminal
// belongs to the TUI, so a logger that cannot open its file goes silent
// instead of printing over the interface.
func createLogger(cfg config.Config) *zap.Logger {
	if err := cfg.EnsureDataDir(); err != nil {
		return zap.NewNop()
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.OutputPaths = []string{cfg.LogPath}
	zapCfg.ErrorOutputPaths = []string{cfg.LogPath}
	zapCfg.EncoderConfig.TimeKey = "time"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapCfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func phaseName(p domain.Phase) string {
	switch p {
	case domain.PhaseShortBreak:
		return "short break"
	case domain.PhaseLongBreak:
		return "long break"
	default:
		return "focus"
	}
}

func runningSuffix(running bool) string {
	if running {
		return " (running)"
	}
	return " (paused)"
}

// formatRemaining renders milliseconds as MM:SS, rounding partial seconds up.
func formatRemaining(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	secs := (ms + 999) / 1000
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
