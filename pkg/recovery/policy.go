package recovery

import (
	"context"
	"sync"
	"time"

	"github.com/fieldstack/warden/pkg/log"
	"github.com/fieldstack/warden/pkg/metrics"
	"github.com/fieldstack/warden/pkg/probe"
	"github.com/fieldstack/warden/pkg/types"
	"github.com/rs/zerolog"
)

// Restarter issues the restart action for a container. Implemented by
// the runtime package's Engine.
type Restarter interface {
	RestartContainer(ctx context.Context, name string, timeout time.Duration) error
}

// Prober re-probes a service after a restart attempt. Implemented by
// the probe package's Registry.
type Prober interface {
	Probe(ctx context.Context, service string) probe.Result
}

// Config holds the policy bounds.
type Config struct {
	// MaxRestartAttempts is the restart budget per service. Once
	// reached, only a successful probe resets it.
	MaxRestartAttempts int

	// RestartCooldown is the minimum time between restart attempts for
	// the same service.
	RestartCooldown time.Duration

	// StabilizationDelay is how long to wait after a restart before
	// re-probing.
	StabilizationDelay time.Duration

	// RestartTimeout bounds the graceful-stop phase of a restart.
	RestartTimeout time.Duration
}

// DefaultConfig returns the production policy bounds.
func DefaultConfig() Config {
	return Config{
		MaxRestartAttempts: 3,
		RestartCooldown:    5 * time.Minute,
		StabilizationDelay: 15 * time.Second,
		RestartTimeout:     30 * time.Second,
	}
}

// Outcome describes how handling one failure ended.
type Outcome string

const (
	OutcomeRecovered Outcome = "recovered"  // restart issued, re-probe healthy
	OutcomeStillDown Outcome = "still_down" // restart issued, re-probe failed
	OutcomeSkipped   Outcome = "skipped"    // no restart: cooldown or budget
)

// Policy owns the per-service recovery state and enforces the bounded,
// cooled-down restart algorithm. All state transitions happen here;
// other components only observe snapshots.
type Policy struct {
	cfg        Config
	restarter  Restarter
	prober     Prober
	containers map[string]string

	mu    sync.Mutex
	state map[string]types.RecoveryState

	logger zerolog.Logger

	// Injected for tests.
	now   func() time.Time
	sleep func(time.Duration)
}

// NewPolicy creates a policy over the given roster.
func NewPolicy(cfg Config, restarter Restarter, prober Prober, roster []types.ServiceDescriptor) *Policy {
	containers := make(map[string]string, len(roster))
	state := make(map[string]types.RecoveryState, len(roster))
	for _, desc := range roster {
		containers[desc.Name] = desc.Container
		state[desc.Name] = types.RecoveryState{}
	}

	return &Policy{
		cfg:        cfg,
		restarter:  restarter,
		prober:     prober,
		containers: containers,
		state:      state,
		logger:     log.WithComponent("recovery"),
		now:        time.Now,
		sleep:      time.Sleep,
	}
}

// Evaluate decides whether a failing service may be restarted at the
// given time. Cooldown is checked before budget: a service that is both
// in cooldown and over budget reports cooldown, deliberately, so that
// diagnostics stay deterministic.
func (p *Policy) Evaluate(service string, now time.Time) types.Decision {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := p.state[service]
	if !st.LastRestartAt.IsZero() && now.Sub(st.LastRestartAt) < p.cfg.RestartCooldown {
		return types.DecisionCooldownActive
	}
	if st.RestartCount >= p.cfg.MaxRestartAttempts {
		return types.DecisionBudgetExhausted
	}
	return types.DecisionAttempt
}

// HandleFailure runs the full recovery sequence for a service whose
// probe just failed: evaluate, charge, restart, stabilize, re-probe.
// The attempt is charged before the restart outcome is known, so even a
// failing restart command counts against the budget and arms the
// cooldown.
func (p *Policy) HandleFailure(ctx context.Context, service string) (types.Decision, Outcome) {
	now := p.now()
	decision := p.Evaluate(service, now)

	if decision != types.DecisionAttempt {
		st := p.State(service)
		p.logger.Error().
			Str("service", service).
			Str("reason", string(decision)).
			Int("restart_count", st.RestartCount).
			Time("last_restart_at", st.LastRestartAt).
			Msg("restart skipped, operator intervention may be required")
		metrics.RestartSkipsTotal.WithLabelValues(service, string(decision)).Inc()
		return decision, OutcomeSkipped
	}

	st := p.charge(service, now)
	metrics.RestartAttemptsTotal.WithLabelValues(service).Inc()
	p.logger.Warn().
		Str("service", service).
		Int("attempt", st.RestartCount).
		Int("budget", p.cfg.MaxRestartAttempts).
		Msg("restarting service")

	container := p.containers[service]
	if err := p.restarter.RestartContainer(ctx, container, p.cfg.RestartTimeout); err != nil {
		// Still charged. The re-probe below will report the service as
		// down and the next tick re-evaluates against the same bounds.
		p.logger.Error().
			Str("service", service).
			Str("container", container).
			Err(err).
			Msg("restart command failed")
	}

	p.sleep(p.cfg.StabilizationDelay)

	result := p.prober.Probe(ctx, service)
	if result.Healthy {
		p.resetCount(service)
		p.logger.Info().
			Str("service", service).
			Str("outcome", "success").
			Msg("service recovered after restart")
		metrics.RecoveriesTotal.WithLabelValues(service, string(OutcomeRecovered)).Inc()
		return decision, OutcomeRecovered
	}

	p.logger.Error().
		Str("service", service).
		Str("message", result.Message).
		Int("restart_count", st.RestartCount).
		Msg("service still unhealthy after restart")
	metrics.RecoveriesTotal.WithLabelValues(service, string(OutcomeStillDown)).Inc()
	return decision, OutcomeStillDown
}

// HandleSuccess resets the restart counter after a plain probe success.
// It reports whether a reset actually happened, so callers and the log
// stream see one counter-reset event per recovery, not one per tick.
func (p *Policy) HandleSuccess(service string) bool {
	p.mu.Lock()
	st := p.state[service]
	if st.RestartCount == 0 {
		p.mu.Unlock()
		return false
	}
	st.RestartCount = 0
	p.state[service] = st
	p.mu.Unlock()

	p.logger.Info().
		Str("service", service).
		Str("outcome", "success").
		Msg("service healthy again, restart counter reset")
	return true
}

// State returns a snapshot of the recovery state for a service.
func (p *Policy) State(service string) types.RecoveryState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state[service]
}

// charge records a restart attempt: timestamp now, counter up by one.
func (p *Policy) charge(service string, now time.Time) types.RecoveryState {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := p.state[service]
	st.RestartCount++
	st.LastRestartAt = now
	p.state[service] = st
	return st
}

// resetCount zeroes the restart counter, keeping the last-restart
// timestamp for diagnostics.
func (p *Policy) resetCount(service string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := p.state[service]
	st.RestartCount = 0
	p.state[service] = st
}
