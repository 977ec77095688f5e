package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/fieldstack/warden/pkg/log"
	"github.com/fieldstack/warden/pkg/metrics"
	"github.com/fieldstack/warden/pkg/probe"
	"github.com/fieldstack/warden/pkg/recovery"
	"github.com/fieldstack/warden/pkg/resource"
	"github.com/fieldstack/warden/pkg/types"
	"github.com/fieldstack/warden/pkg/watchdog"
	"github.com/rs/zerolog"
)

// Cadence holds the loop's timing knobs: the wall-clock tick interval
// and the tick-modulo schedules for the lower-frequency checks.
type Cadence struct {
	CheckInterval      time.Duration
	ResourceEveryTicks int
	VPNEveryTicks      int
	SummaryEveryTicks  int
}

// DefaultCadence returns the production cadences.
func DefaultCadence() Cadence {
	return Cadence{
		CheckInterval:      30 * time.Second,
		ResourceEveryTicks: 10,
		VPNEveryTicks:      5,
		SummaryEveryTicks:  120,
	}
}

// Supervisor drives the control loop: once per tick it probes the full
// roster, hands failures to the recovery policy, and fires the resource
// monitor and auxiliary watchdogs on their modulo schedules.
type Supervisor struct {
	cadence   Cadence
	roster    []types.ServiceDescriptor
	registry  *probe.Registry
	policy    *recovery.Policy
	monitor   *resource.Monitor
	runtimeWD *watchdog.Runtime
	vpnWD     *watchdog.VPN
	logger    zerolog.Logger

	tick      uint64
	startedAt time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// New wires a supervisor from its collaborators.
func New(cadence Cadence, roster []types.ServiceDescriptor, registry *probe.Registry, policy *recovery.Policy, monitor *resource.Monitor, runtimeWD *watchdog.Runtime, vpnWD *watchdog.VPN) *Supervisor {
	return &Supervisor{
		cadence:   cadence,
		roster:    roster,
		registry:  registry,
		policy:    policy,
		monitor:   monitor,
		runtimeWD: runtimeWD,
		vpnWD:     vpnWD,
		logger:    log.WithComponent("supervisor"),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the control loop.
func (s *Supervisor) Start() {
	s.startedAt = time.Now()
	s.logger.Info().
		Int("services", len(s.roster)).
		Dur("check_interval", s.cadence.CheckInterval).
		Msg("supervisor started")
	go s.run()
}

// Stop requests shutdown and blocks until the in-flight tick, if any,
// has completed. The inter-tick sleep is the only cancellation point:
// probes and restarts already dispatched run to completion so no
// service is left mid-restart.
func (s *Supervisor) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.logger.Info().Uint64("ticks", s.tick).Msg("supervisor stopped")
}

func (s *Supervisor) run() {
	defer close(s.doneCh)

	for {
		s.runTick(context.Background())

		select {
		case <-time.After(s.cadence.CheckInterval):
		case <-s.stopCh:
			return
		}
	}
}

// runTick executes one full control loop iteration in the fixed order:
// resource monitor, runtime watchdog, vpn watchdog, then the roster.
func (s *Supervisor) runTick(ctx context.Context) {
	s.tick++
	metrics.TicksTotal.Inc()

	if s.tick%uint64(s.cadence.ResourceEveryTicks) == 0 {
		s.monitor.Run(ctx)
	}

	// The runtime check is cheap (one ping), so it runs every tick.
	s.runtimeWD.Check(ctx)

	if s.tick%uint64(s.cadence.VPNEveryTicks) == 0 {
		s.vpnWD.Check(ctx)
	}

	// Fan out one goroutine per service, join before sleeping. Probes
	// carry their own timeouts, and each service's recovery state is
	// only ever touched by its own goroutine within a tick, so
	// independent services restart concurrently without racing.
	var wg sync.WaitGroup
	for _, desc := range s.roster {
		wg.Add(1)
		go func(d types.ServiceDescriptor) {
			defer wg.Done()
			s.checkService(ctx, d)
		}(desc)
	}
	wg.Wait()

	if s.tick%uint64(s.cadence.SummaryEveryTicks) == 0 {
		s.logSummary()
	}
}

func (s *Supervisor) checkService(ctx context.Context, desc types.ServiceDescriptor) {
	// A panicking probe or restart must not take down the loop.
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("service", desc.Name).
				Interface("panic", r).
				Msg("service check panicked")
		}
	}()

	timer := metrics.NewTimer()
	result := s.registry.Probe(ctx, desc.Name)
	timer.ObserveDuration(metrics.ProbeDuration.WithLabelValues(desc.Name))

	if result.Healthy {
		metrics.ProbesTotal.WithLabelValues(desc.Name, "healthy").Inc()
		s.policy.HandleSuccess(desc.Name)
		s.logger.Debug().
			Str("service", desc.Name).
			Dur("duration", result.Duration).
			Msg("probe healthy")
		return
	}

	metrics.ProbesTotal.WithLabelValues(desc.Name, "unhealthy").Inc()
	s.logger.Warn().
		Str("service", desc.Name).
		Str("message", result.Message).
		Msg("probe unhealthy")

	s.policy.HandleFailure(ctx, desc.Name)
}

// logSummary emits the periodic aggregate record: uptime, tick count,
// roster size, last resource sample and any non-zero restart counters.
func (s *Supervisor) logSummary() {
	event := s.logger.Info().
		Uint64("tick", s.tick).
		Dur("uptime", time.Since(s.startedAt)).
		Int("services", len(s.roster))

	if sample, ok := s.monitor.Last(); ok {
		event = event.
			Float64("memory_used_percent", sample.MemoryUsedPercent).
			Float64("disk_used_percent", sample.DiskUsedPercent).
			Float64("load1", sample.Load1)
	}

	degraded := 0
	for _, desc := range s.roster {
		if st := s.policy.State(desc.Name); st.RestartCount > 0 {
			degraded++
		}
	}
	event.Int("services_with_restarts", degraded).Msg("periodic summary")
}

// Tick returns the current tick counter.
func (s *Supervisor) Tick() uint64 {
	return s.tick
}
