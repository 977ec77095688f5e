package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldstack/warden/pkg/types"
)

// StateQuerier answers whether a named container is currently running.
// Implemented by the runtime package's Engine.
type StateQuerier interface {
	ContainerRunning(ctx context.Context, name string) (bool, error)
}

// ContainerProber treats a service as healthy whenever its managed
// container reports a running state. This is the fallback for services
// without a protocol probe; it says nothing about whether the process
// inside actually serves traffic.
type ContainerProber struct {
	Engine    StateQuerier
	Container string
	Timeout   time.Duration
}

// NewContainerProber creates a process-presence prober for the named
// container.
func NewContainerProber(engine StateQuerier, container string, timeout time.Duration) *ContainerProber {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ContainerProber{
		Engine:    engine,
		Container: container,
		Timeout:   timeout,
	}
}

// Check queries the container runtime for the running state.
func (p *ContainerProber) Check(ctx context.Context) Result {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	running, err := p.Engine.ContainerRunning(ctx, p.Container)
	if err != nil {
		return unhealthy(start, fmt.Sprintf("state query failed: %v", err))
	}
	if !running {
		return unhealthy(start, fmt.Sprintf("container %s is not running", p.Container))
	}

	return healthy(start, fmt.Sprintf("container %s is running", p.Container))
}

// Kind returns the probe kind.
func (p *ContainerProber) Kind() types.ProbeKind {
	return types.ProbeProcess
}
