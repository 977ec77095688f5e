package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fieldstack/warden/pkg/config"
	"github.com/fieldstack/warden/pkg/log"
	"github.com/fieldstack/warden/pkg/metrics"
	"github.com/fieldstack/warden/pkg/probe"
	"github.com/fieldstack/warden/pkg/recovery"
	"github.com/fieldstack/warden/pkg/resource"
	"github.com/fieldstack/warden/pkg/runtime"
	"github.com/fieldstack/warden/pkg/supervisor"
	"github.com/fieldstack/warden/pkg/watchdog"
	"github.com/google/uuid"
)

var (
	// ErrAlreadyRunning is returned when a live instance record exists.
	ErrAlreadyRunning = errors.New("warden is already running")

	// ErrNotRunning is returned when no live instance exists.
	ErrNotRunning = errors.New("warden is not running")
)

// stopTimeout is how long Stop waits for the running instance to exit
// after SIGTERM. The instance finishes its in-flight tick first, so
// this must comfortably exceed a worst-case restart-and-restabilize
// sequence.
const stopTimeout = 90 * time.Second

// statusLogLines is how many recent log lines the status command echoes.
const statusLogLines = 20

// Manager implements the process control surface: start, stop, restart
// and status, with singleton enforcement through the PID file.
type Manager struct {
	cfg     *config.Config
	pidFile *PIDFile
	version string
}

// NewManager creates a lifecycle manager for the given configuration.
func NewManager(cfg *config.Config, version string) *Manager {
	return &Manager{
		cfg:     cfg,
		pidFile: NewPIDFile(cfg.PIDFile),
		version: version,
	}
}

// Run starts the daemon in the foreground and blocks until a
// termination signal. It refuses to start while a live instance record
// exists; a stale record is discarded silently.
func (m *Manager) Run() error {
	if pid, alive := m.pidFile.Alive(); alive {
		return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
	}
	_ = m.pidFile.Remove()

	if err := m.pidFile.Write(os.Getpid()); err != nil {
		return err
	}
	defer func() { _ = m.pidFile.Remove() }()

	runID := uuid.New().String()
	logger := log.WithRunID(runID)
	logger.Info().
		Str("version", m.version).
		Int("pid", os.Getpid()).
		Int("services", len(m.cfg.Services)).
		Msg("warden starting")

	engine, err := runtime.NewEngine(m.cfg.Runtime.Host)
	if err != nil {
		return err
	}
	defer engine.Close()

	roster := m.cfg.Roster()
	registry := probe.NewRegistry(roster, engine, m.cfg.ProbeTimeout.Std())

	policy := recovery.NewPolicy(recovery.Config{
		MaxRestartAttempts: m.cfg.MaxRestartAttempts,
		RestartCooldown:    m.cfg.RestartCooldown.Std(),
		StabilizationDelay: m.cfg.StabilizationDelay.Std(),
		RestartTimeout:     m.cfg.RestartTimeout.Std(),
	}, engine, registry, roster)

	monitor := resource.NewMonitor(m.cfg.Resources.DiskPath, resource.Thresholds{
		MemoryWarningPercent:  m.cfg.Resources.MemoryWarningPercent,
		MemoryCriticalPercent: m.cfg.Resources.MemoryCriticalPercent,
		DiskWarningPercent:    m.cfg.Resources.DiskWarningPercent,
		DiskCriticalPercent:   m.cfg.Resources.DiskCriticalPercent,
		LoadWarningFactor:     m.cfg.Resources.LoadWarningFactor,
	})

	runtimeWD := watchdog.NewRuntime(
		engine,
		m.cfg.Runtime.StartCommand,
		m.cfg.Runtime.SettleDelay.Std(),
		m.cfg.Runtime.CommandTimeout.Std(),
	)
	vpnWD := watchdog.NewVPN(
		m.cfg.VPN.StatusCommand,
		m.cfg.VPN.OnlineMarker,
		m.cfg.VPN.RestartCommand,
		m.cfg.VPN.CommandTimeout.Std(),
	)

	sup := supervisor.New(supervisor.Cadence{
		CheckInterval:      m.cfg.CheckInterval.Std(),
		ResourceEveryTicks: m.cfg.ResourceEveryTicks,
		VPNEveryTicks:      m.cfg.VPNEveryTicks,
		SummaryEveryTicks:  m.cfg.SummaryEveryTicks,
	}, roster, registry, policy, monitor, runtimeWD, vpnWD)

	var metricsSrv *metrics.Server
	if m.cfg.MetricsAddr != "" {
		metricsSrv = metrics.NewServer(m.cfg.MetricsAddr, runID, m.version)
		go func() {
			if err := metricsSrv.Start(); err != nil {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	sup.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("termination signal received")

	sup.Stop()
	if metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = metricsSrv.Stop(ctx)
		cancel()
	}

	logger.Info().Msg("warden stopped")
	return nil
}

// StartDetached re-executes the binary in the background and returns
// the child pid. The child performs its own singleton check and writes
// its own instance record.
func (m *Manager) StartDetached(configPath string) (int, error) {
	if pid, alive := m.pidFile.Alive(); alive {
		return 0, fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
	}

	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to resolve executable: %w", err)
	}

	cmd := exec.Command(exe, "start", "--config", configPath)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start daemon: %w", err)
	}

	// Detach: the child lives in its own session and outlives us.
	if err := cmd.Process.Release(); err != nil {
		return 0, fmt.Errorf("failed to release daemon process: %w", err)
	}
	return cmd.Process.Pid, nil
}

// Stop signals the running instance and waits for it to exit. The
// instance removes its own record during clean shutdown.
func (m *Manager) Stop() error {
	pid, alive := m.pidFile.Alive()
	if !alive {
		// A record pointing at a dead process self-heals here.
		if _, err := m.pidFile.Read(); err == nil {
			_ = m.pidFile.Remove()
		}
		return ErrNotRunning
	}

	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to signal pid %d: %w", pid, err)
	}

	deadline := time.Now().Add(stopTimeout)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("pid %d did not exit within %s", pid, stopTimeout)
}

// Status reports whether a live instance exists and echoes recent log
// lines. Returns ErrNotRunning when no live instance is found so the
// CLI exits non-zero.
func (m *Manager) Status(w io.Writer) error {
	pid, alive := m.pidFile.Alive()
	if !alive {
		if _, err := m.pidFile.Read(); err == nil {
			_ = m.pidFile.Remove()
			fmt.Fprintln(w, "warden is not running (stale instance record removed)")
		} else {
			fmt.Fprintln(w, "warden is not running")
		}
		return ErrNotRunning
	}

	fmt.Fprintf(w, "warden is running (pid %d)\n", pid)

	lines, err := tailLines(m.cfg.LogFile, statusLogLines)
	if err != nil || len(lines) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nrecent log:")
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	return nil
}

// tailLines returns up to n trailing non-empty lines of the file.
func tailLines(path string, n int) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	all := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	lines := all[:0]
	for _, line := range all {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}
