package watchdog

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/fieldstack/warden/pkg/log"
	"github.com/fieldstack/warden/pkg/metrics"
	"github.com/rs/zerolog"
)

// EnginePinger reports whether the container runtime daemon responds.
// Implemented by the runtime package's Engine.
type EnginePinger interface {
	Ping(ctx context.Context) error
}

// runCommand executes argv with a bounded timeout and returns the
// combined output. Split out so tests can stub command execution.
func runCommand(ctx context.Context, timeout time.Duration, argv []string) (string, error) {
	if len(argv) == 0 {
		return "", fmt.Errorf("empty command")
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// Runtime watches the container runtime daemon. Its recovery action is
// systemic, not container-scoped, so no restart counter or cooldown
// applies: runtime absence is rare and always worth an immediate start
// attempt.
type Runtime struct {
	engine       EnginePinger
	startCommand []string
	settleDelay  time.Duration
	timeout      time.Duration
	logger       zerolog.Logger

	// Injected for tests.
	run   func(ctx context.Context, timeout time.Duration, argv []string) (string, error)
	sleep func(time.Duration)
}

// NewRuntime creates the container runtime watchdog.
func NewRuntime(engine EnginePinger, startCommand []string, settleDelay, timeout time.Duration) *Runtime {
	return &Runtime{
		engine:       engine,
		startCommand: startCommand,
		settleDelay:  settleDelay,
		timeout:      timeout,
		logger:       log.WithComponent("watchdog"),
		run:          runCommand,
		sleep:        time.Sleep,
	}
}

// Check pings the runtime daemon and, when it does not respond, issues
// the configured start action followed by a settle delay. Returns true
// when the daemon responded on the initial ping.
func (w *Runtime) Check(ctx context.Context) bool {
	if err := w.engine.Ping(ctx); err == nil {
		return true
	}

	w.logger.Error().Msg("container runtime not responding, starting it")
	metrics.WatchdogRestartsTotal.WithLabelValues("runtime").Inc()

	if out, err := w.run(ctx, w.timeout, w.startCommand); err != nil {
		w.logger.Error().
			Err(err).
			Str("output", strings.TrimSpace(out)).
			Msg("runtime start command failed")
		return false
	}

	w.sleep(w.settleDelay)
	w.logger.Info().Str("outcome", "success").Msg("container runtime start issued")
	return false
}

// VPN watches the overlay VPN client. The status command's output must
// contain the online marker; anything else triggers an immediate,
// unconditional client restart on the watchdog's own cadence.
type VPN struct {
	statusCommand  []string
	onlineMarker   string
	restartCommand []string
	timeout        time.Duration
	logger         zerolog.Logger

	run func(ctx context.Context, timeout time.Duration, argv []string) (string, error)
}

// NewVPN creates the overlay VPN client watchdog.
func NewVPN(statusCommand []string, onlineMarker string, restartCommand []string, timeout time.Duration) *VPN {
	return &VPN{
		statusCommand:  statusCommand,
		onlineMarker:   onlineMarker,
		restartCommand: restartCommand,
		timeout:        timeout,
		logger:         log.WithComponent("watchdog"),
		run:            runCommand,
	}
}

// Check queries the VPN client status and restarts the client when it
// does not report online. Returns true when the client was online.
func (w *VPN) Check(ctx context.Context) bool {
	out, err := w.run(ctx, w.timeout, w.statusCommand)
	if err == nil && strings.Contains(out, w.onlineMarker) {
		return true
	}

	w.logger.Error().
		Err(err).
		Str("output", strings.TrimSpace(out)).
		Msg("vpn client not online, restarting it")
	metrics.WatchdogRestartsTotal.WithLabelValues("vpn").Inc()

	if out, err := w.run(ctx, w.timeout, w.restartCommand); err != nil {
		w.logger.Error().
			Err(err).
			Str("output", strings.TrimSpace(out)).
			Msg("vpn restart command failed")
		return false
	}

	w.logger.Info().Str("outcome", "success").Msg("vpn client restart issued")
	return false
}
