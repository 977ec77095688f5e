package recovery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fieldstack/warden/pkg/probe"
	"github.com/fieldstack/warden/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRestarter struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeRestarter) RestartContainer(ctx context.Context, name string, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.err
}

func (f *fakeRestarter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeProber struct {
	healthy bool
}

func (f *fakeProber) Probe(ctx context.Context, service string) probe.Result {
	return probe.Result{Healthy: f.healthy, CheckedAt: time.Now()}
}

func testPolicy(t *testing.T, cfg Config, restarter Restarter, prober Prober) (*Policy, *time.Time) {
	t.Helper()

	roster := []types.ServiceDescriptor{
		{Name: "db", Container: "field_db_1", Kind: types.ProbePostgres, Target: "postgres://localhost/field"},
		{Name: "cache", Container: "field_cache_1", Kind: types.ProbeRedis, Target: "localhost:6379"},
	}

	p := NewPolicy(cfg, restarter, prober, roster)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }
	p.sleep = func(time.Duration) {}
	return p, &now
}

func defaultTestConfig() Config {
	return Config{
		MaxRestartAttempts: 3,
		RestartCooldown:    300 * time.Second,
		StabilizationDelay: 0,
		RestartTimeout:     time.Second,
	}
}

func TestEvaluate_FreshServiceMayAttempt(t *testing.T) {
	p, now := testPolicy(t, defaultTestConfig(), &fakeRestarter{}, &fakeProber{})

	assert.Equal(t, types.DecisionAttempt, p.Evaluate("db", *now))
}

func TestEvaluate_CooldownBlocksEarlyRetry(t *testing.T) {
	// Scenario: two restart attempts 100 seconds apart with a 300-second
	// cooldown. The second must be skipped with cooldown as the reason.
	restarter := &fakeRestarter{}
	p, now := testPolicy(t, defaultTestConfig(), restarter, &fakeProber{healthy: false})

	decision, _ := p.HandleFailure(context.Background(), "db")
	require.Equal(t, types.DecisionAttempt, decision)
	require.Equal(t, 1, restarter.count())

	*now = now.Add(100 * time.Second)
	decision, outcome := p.HandleFailure(context.Background(), "db")
	assert.Equal(t, types.DecisionCooldownActive, decision)
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.Equal(t, 1, restarter.count(), "no restart may be issued during cooldown")
}

func TestEvaluate_CooldownReportedBeforeBudget(t *testing.T) {
	// A service that is both over budget and in cooldown reports
	// cooldown; the ordering is part of the policy contract.
	p, now := testPolicy(t, defaultTestConfig(), &fakeRestarter{}, &fakeProber{})

	for i := 0; i < 3; i++ {
		p.charge("db", *now)
	}

	assert.Equal(t, types.DecisionCooldownActive, p.Evaluate("db", now.Add(10*time.Second)))
	assert.Equal(t, types.DecisionBudgetExhausted, p.Evaluate("db", now.Add(301*time.Second)))
}

func TestHandleFailure_ChargedBeforeOutcomeKnown(t *testing.T) {
	// The attempt is charged even when the restart command itself
	// fails, so transient command errors cannot cause rapid retries.
	restarter := &fakeRestarter{err: errors.New("engine unavailable")}
	p, now := testPolicy(t, defaultTestConfig(), restarter, &fakeProber{healthy: false})

	decision, outcome := p.HandleFailure(context.Background(), "db")

	assert.Equal(t, types.DecisionAttempt, decision)
	assert.Equal(t, OutcomeStillDown, outcome)

	st := p.State("db")
	assert.Equal(t, 1, st.RestartCount)
	assert.Equal(t, *now, st.LastRestartAt)
}

func TestHandleFailure_ReprobeSuccessResetsCounter(t *testing.T) {
	// Scenario: cache fails once, is restarted, and the re-probe
	// succeeds. The counter resets and the next ordinary success
	// produces no further reset event.
	restarter := &fakeRestarter{}
	p, _ := testPolicy(t, defaultTestConfig(), restarter, &fakeProber{healthy: true})

	decision, outcome := p.HandleFailure(context.Background(), "cache")

	require.Equal(t, types.DecisionAttempt, decision)
	assert.Equal(t, OutcomeRecovered, outcome)
	assert.Equal(t, 0, p.State("cache").RestartCount)
	assert.Equal(t, []string{"field_cache_1"}, restarter.calls)

	assert.False(t, p.HandleSuccess("cache"), "no redundant reset event after recovery")
}

func TestHandleFailure_BudgetExhaustedAfterMaxAttempts(t *testing.T) {
	// Scenario: db fails on consecutive cycles spaced beyond the
	// cooldown. Exactly three restarts are attempted; the fourth
	// failure reports budget exhaustion even though the cooldown has
	// elapsed.
	restarter := &fakeRestarter{}
	p, now := testPolicy(t, defaultTestConfig(), restarter, &fakeProber{healthy: false})

	for i := 1; i <= 3; i++ {
		decision, _ := p.HandleFailure(context.Background(), "db")
		require.Equal(t, types.DecisionAttempt, decision, "attempt %d", i)
		require.Equal(t, i, p.State("db").RestartCount)
		*now = now.Add(301 * time.Second)
	}

	decision, outcome := p.HandleFailure(context.Background(), "db")
	assert.Equal(t, types.DecisionBudgetExhausted, decision)
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.Equal(t, 3, restarter.count())
	assert.Equal(t, 3, p.State("db").RestartCount)
}

func TestHandleSuccess_ResetsExhaustedBudget(t *testing.T) {
	p, now := testPolicy(t, defaultTestConfig(), &fakeRestarter{}, &fakeProber{healthy: false})

	for i := 0; i < 3; i++ {
		p.HandleFailure(context.Background(), "db")
		*now = now.Add(301 * time.Second)
	}
	require.Equal(t, types.DecisionBudgetExhausted, p.Evaluate("db", *now))

	// An external probe success clears the failure history entirely.
	assert.True(t, p.HandleSuccess("db"))
	assert.Equal(t, 0, p.State("db").RestartCount)
	assert.Equal(t, types.DecisionAttempt, p.Evaluate("db", *now))
}

func TestHandleSuccess_NoEventWhenCounterAlreadyZero(t *testing.T) {
	p, _ := testPolicy(t, defaultTestConfig(), &fakeRestarter{}, &fakeProber{})

	assert.False(t, p.HandleSuccess("db"))
	assert.False(t, p.HandleSuccess("db"))
}

func TestState_IndependentPerService(t *testing.T) {
	restarter := &fakeRestarter{}
	p, _ := testPolicy(t, defaultTestConfig(), restarter, &fakeProber{healthy: false})

	p.HandleFailure(context.Background(), "db")

	assert.Equal(t, 1, p.State("db").RestartCount)
	assert.Equal(t, 0, p.State("cache").RestartCount)
	assert.True(t, p.State("cache").LastRestartAt.IsZero())
}
