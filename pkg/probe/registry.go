package probe

import (
	"context"
	"time"

	"github.com/fieldstack/warden/pkg/types"
)

// Registry maps each service in the roster to its prober. It is built
// once at daemon start and read-only afterwards.
type Registry struct {
	probers map[string]Prober
	order   []string
}

// NewRegistry builds one prober per descriptor. Descriptors without a
// protocol probe, or tcp descriptors without a target, fall back to
// process presence.
func NewRegistry(roster []types.ServiceDescriptor, engine StateQuerier, timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	r := &Registry{
		probers: make(map[string]Prober, len(roster)),
		order:   make([]string, 0, len(roster)),
	}

	for _, desc := range roster {
		r.probers[desc.Name] = buildProber(desc, engine, timeout)
		r.order = append(r.order, desc.Name)
	}

	return r
}

func buildProber(desc types.ServiceDescriptor, engine StateQuerier, timeout time.Duration) Prober {
	switch desc.Kind {
	case types.ProbePostgres:
		return NewPostgresProber(desc.Target, timeout)
	case types.ProbeRedis:
		return NewRedisProber(desc.Target, timeout)
	case types.ProbeHTTP:
		return NewHTTPProber(desc.Target, timeout)
	case types.ProbeTCP:
		if desc.Target != "" {
			return NewTCPProber(desc.Target, timeout)
		}
		// No target to dial, fall through to process presence.
		return NewContainerProber(engine, desc.Container, timeout)
	default:
		return NewContainerProber(engine, desc.Container, timeout)
	}
}

// Probe runs the prober registered for the named service. Unknown
// services report unhealthy rather than erroring, keeping the caller's
// tick loop uniform.
func (r *Registry) Probe(ctx context.Context, service string) Result {
	p, ok := r.probers[service]
	if !ok {
		return Result{
			Healthy:   false,
			Message:   "no prober registered for service",
			CheckedAt: time.Now(),
		}
	}
	return p.Check(ctx)
}

// Prober returns the prober registered for the named service.
func (r *Registry) Prober(service string) (Prober, bool) {
	p, ok := r.probers[service]
	return p, ok
}

// Services returns the roster names in their fixed configured order.
func (r *Registry) Services() []string {
	return r.order
}
