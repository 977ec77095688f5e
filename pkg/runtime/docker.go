package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// Engine wraps the Docker Engine API client with the three operations
// warden needs: container running-state queries, container restarts,
// and daemon liveness pings.
type Engine struct {
	cli *client.Client
}

// NewEngine creates a Docker Engine client. An empty host uses the
// environment defaults (DOCKER_HOST or the local socket). The client
// connects lazily, so construction succeeds even while the daemon is
// down; failures surface on the first call.
func NewEngine(host string) (*Engine, error) {
	opts := []client.Opt{
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	return &Engine{cli: cli}, nil
}

// Close closes the underlying client connection.
func (e *Engine) Close() error {
	if e.cli != nil {
		return e.cli.Close()
	}
	return nil
}

// ContainerRunning reports whether the named container exists and is in
// a running state. A missing container is not an error, just not
// running.
func (e *Engine) ContainerRunning(ctx context.Context, name string) (bool, error) {
	inspect, err := e.cli.ContainerInspect(ctx, name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to inspect container %s: %w", name, err)
	}

	return inspect.State != nil && inspect.State.Running, nil
}

// RestartContainer restarts the named container, giving it up to
// timeout to stop gracefully before the engine kills it.
func (e *Engine) RestartContainer(ctx context.Context, name string, timeout time.Duration) error {
	seconds := int(timeout.Seconds())
	if err := e.cli.ContainerRestart(ctx, name, container.StopOptions{Timeout: &seconds}); err != nil {
		return fmt.Errorf("failed to restart container %s: %w", name, err)
	}
	return nil
}

// Ping checks that the engine daemon itself is responding.
func (e *Engine) Ping(ctx context.Context) error {
	if _, err := e.cli.Ping(ctx); err != nil {
		return fmt.Errorf("docker daemon not responding: %w", err)
	}
	return nil
}
