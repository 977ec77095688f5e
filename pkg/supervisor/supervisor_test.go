package supervisor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fieldstack/warden/pkg/probe"
	"github.com/fieldstack/warden/pkg/recovery"
	"github.com/fieldstack/warden/pkg/resource"
	"github.com/fieldstack/warden/pkg/types"
	"github.com/fieldstack/warden/pkg/watchdog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine answers both the probe registry's container queries and
// the runtime watchdog's ping.
type fakeEngine struct {
	mu      sync.Mutex
	running map[string]bool
	pingErr error
}

func (f *fakeEngine) ContainerRunning(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running[name], nil
}

func (f *fakeEngine) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *fakeEngine) set(name string, up bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running[name] = up
}

type fakeRestarter struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeRestarter) RestartContainer(ctx context.Context, name string, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return nil
}

func (f *fakeRestarter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testCadence() Cadence {
	// Large moduli keep the resource monitor and vpn watchdog out of
	// short test runs; the runtime watchdog runs every tick regardless.
	return Cadence{
		CheckInterval:      10 * time.Millisecond,
		ResourceEveryTicks: 1 << 20,
		VPNEveryTicks:      1 << 20,
		SummaryEveryTicks:  1 << 20,
	}
}

func testSupervisor(t *testing.T, engine *fakeEngine, restarter *fakeRestarter) *Supervisor {
	t.Helper()

	roster := []types.ServiceDescriptor{
		{Name: "db", Container: "field_db_1", Kind: types.ProbeProcess},
		{Name: "web", Container: "field_web_1", Kind: types.ProbeProcess},
	}

	registry := probe.NewRegistry(roster, engine, time.Second)
	policy := recovery.NewPolicy(recovery.Config{
		MaxRestartAttempts: 3,
		RestartCooldown:    5 * time.Minute,
		StabilizationDelay: 0,
		RestartTimeout:     time.Second,
	}, restarter, registry, roster)

	monitor := resource.NewMonitor("/", resource.DefaultThresholds())
	runtimeWD := watchdog.NewRuntime(engine, []string{"true"}, 0, time.Second)
	vpnWD := watchdog.NewVPN([]string{"true"}, "ONLINE", []string{"true"}, time.Second)

	return New(testCadence(), roster, registry, policy, monitor, runtimeWD, vpnWD)
}

func TestRunTick_HealthyRosterIsIdempotent(t *testing.T) {
	engine := &fakeEngine{running: map[string]bool{"field_db_1": true, "field_web_1": true}}
	restarter := &fakeRestarter{}
	sup := testSupervisor(t, engine, restarter)

	for i := 0; i < 5; i++ {
		sup.runTick(context.Background())
	}

	assert.Equal(t, uint64(5), sup.Tick())
	assert.Equal(t, 0, restarter.count(), "healthy services must never be restarted")
	assert.Equal(t, 0, sup.policy.State("db").RestartCount)
	assert.Equal(t, 0, sup.policy.State("web").RestartCount)
}

func TestRunTick_FailingServiceIsRestartedOnce(t *testing.T) {
	engine := &fakeEngine{running: map[string]bool{"field_db_1": true, "field_web_1": false}}
	restarter := &fakeRestarter{}
	sup := testSupervisor(t, engine, restarter)

	sup.runTick(context.Background())

	require.Equal(t, 1, restarter.count())
	assert.Equal(t, []string{"field_web_1"}, restarter.calls)
	assert.Equal(t, 1, sup.policy.State("web").RestartCount)
	assert.Equal(t, 0, sup.policy.State("db").RestartCount, "healthy neighbor is untouched")
}

func TestRunTick_CooldownHoldsAcrossTicks(t *testing.T) {
	engine := &fakeEngine{running: map[string]bool{"field_db_1": true, "field_web_1": false}}
	restarter := &fakeRestarter{}
	sup := testSupervisor(t, engine, restarter)

	for i := 0; i < 4; i++ {
		sup.runTick(context.Background())
	}

	assert.Equal(t, 1, restarter.count(), "cooldown must absorb repeated failures")
	assert.Equal(t, 1, sup.policy.State("web").RestartCount)
}

func TestRunTick_RecoveryResetsState(t *testing.T) {
	engine := &fakeEngine{running: map[string]bool{"field_db_1": true, "field_web_1": false}}
	restarter := &fakeRestarter{}
	sup := testSupervisor(t, engine, restarter)

	// First tick restarts web; the re-probe still sees it down.
	sup.runTick(context.Background())
	require.Equal(t, 1, restarter.count())

	// Service comes back, next tick's ordinary success clears history.
	engine.set("field_web_1", true)
	sup.runTick(context.Background())

	assert.Equal(t, 0, sup.policy.State("web").RestartCount)
}

func TestStartStop_LoopTerminates(t *testing.T) {
	engine := &fakeEngine{running: map[string]bool{"field_db_1": true, "field_web_1": true}}
	sup := testSupervisor(t, engine, &fakeRestarter{})

	sup.Start()
	time.Sleep(35 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		sup.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	assert.GreaterOrEqual(t, sup.Tick(), uint64(1))
}

func TestRunTick_SummaryDoesNotDisturbState(t *testing.T) {
	engine := &fakeEngine{running: map[string]bool{"field_db_1": true, "field_web_1": true}}
	restarter := &fakeRestarter{}
	sup := testSupervisor(t, engine, restarter)
	sup.cadence.SummaryEveryTicks = 2
	sup.startedAt = time.Now()

	for i := 0; i < 4; i++ {
		sup.runTick(context.Background())
	}

	assert.Equal(t, uint64(4), sup.Tick())
	assert.Equal(t, 0, restarter.count())
}
