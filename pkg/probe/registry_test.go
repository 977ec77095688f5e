package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fieldstack/warden/pkg/types"
)

// fakeEngine implements StateQuerier for tests.
type fakeEngine struct {
	running map[string]bool
	err     error
}

func (f *fakeEngine) ContainerRunning(ctx context.Context, name string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.running[name], nil
}

func testRoster() []types.ServiceDescriptor {
	return []types.ServiceDescriptor{
		{Name: "db", Container: "field_db_1", Kind: types.ProbePostgres, Target: "postgres://warden@localhost:5432/field"},
		{Name: "cache", Container: "field_cache_1", Kind: types.ProbeRedis, Target: "localhost:6379"},
		{Name: "web", Container: "field_web_1", Kind: types.ProbeHTTP, Target: "http://localhost:8080/health"},
		{Name: "broker", Container: "field_broker_1", Kind: types.ProbeTCP, Target: "localhost:1883"},
		{Name: "tiles", Container: "field_tiles_1", Kind: types.ProbeProcess},
	}
}

func TestRegistry_DispatchByKind(t *testing.T) {
	engine := &fakeEngine{running: map[string]bool{}}
	registry := NewRegistry(testRoster(), engine, time.Second)

	wantKinds := map[string]types.ProbeKind{
		"db":     types.ProbePostgres,
		"cache":  types.ProbeRedis,
		"web":    types.ProbeHTTP,
		"broker": types.ProbeTCP,
		"tiles":  types.ProbeProcess,
	}

	for service, want := range wantKinds {
		p, ok := registry.Prober(service)
		if !ok {
			t.Fatalf("No prober registered for %s", service)
		}
		if p.Kind() != want {
			t.Errorf("Prober for %s has kind %s, want %s", service, p.Kind(), want)
		}
	}
}

func TestRegistry_StableOrder(t *testing.T) {
	registry := NewRegistry(testRoster(), &fakeEngine{}, time.Second)

	want := []string{"db", "cache", "web", "broker", "tiles"}
	got := registry.Services()
	if len(got) != len(want) {
		t.Fatalf("Services() returned %d names, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Services()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestRegistry_UnknownKindFallsBackToProcess(t *testing.T) {
	roster := []types.ServiceDescriptor{
		{Name: "legacy", Container: "field_legacy_1", Kind: types.ProbeKind("snmp"), Target: "whatever"},
		{Name: "bare", Container: "field_bare_1"},
	}
	registry := NewRegistry(roster, &fakeEngine{}, time.Second)

	for _, service := range []string{"legacy", "bare"} {
		p, _ := registry.Prober(service)
		if p.Kind() != types.ProbeProcess {
			t.Errorf("Prober for %s has kind %s, want process fallback", service, p.Kind())
		}
	}
}

func TestRegistry_TCPWithoutTargetFallsBackToProcess(t *testing.T) {
	roster := []types.ServiceDescriptor{
		{Name: "mystery", Container: "field_mystery_1", Kind: types.ProbeTCP},
	}
	registry := NewRegistry(roster, &fakeEngine{}, time.Second)

	p, _ := registry.Prober("mystery")
	if p.Kind() != types.ProbeProcess {
		t.Errorf("Prober has kind %s, want process fallback", p.Kind())
	}
}

func TestRegistry_UnknownServiceIsUnhealthy(t *testing.T) {
	registry := NewRegistry(nil, &fakeEngine{}, time.Second)

	result := registry.Probe(context.Background(), "ghost")
	if result.Healthy {
		t.Error("Expected unhealthy for unknown service")
	}
}

func TestContainerProber_RunningAndStopped(t *testing.T) {
	engine := &fakeEngine{running: map[string]bool{"field_tiles_1": true}}

	up := NewContainerProber(engine, "field_tiles_1", time.Second)
	if result := up.Check(context.Background()); !result.Healthy {
		t.Errorf("Expected healthy for running container: %s", result.Message)
	}

	down := NewContainerProber(engine, "field_web_1", time.Second)
	if result := down.Check(context.Background()); result.Healthy {
		t.Error("Expected unhealthy for stopped container")
	}
}

func TestContainerProber_EngineErrorFoldsIntoUnhealthy(t *testing.T) {
	engine := &fakeEngine{err: errors.New("daemon unreachable")}

	prober := NewContainerProber(engine, "field_db_1", time.Second)
	result := prober.Check(context.Background())

	if result.Healthy {
		t.Error("Expected unhealthy when the engine query fails")
	}
}
