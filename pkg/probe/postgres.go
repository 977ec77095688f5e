package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldstack/warden/pkg/types"
	"github.com/jackc/pgx/v5"
)

// PostgresProber probes the relational store by opening a connection
// and issuing a ping. Only an explicit acknowledgement from the server
// counts as healthy; refused connections, auth failures and timeouts
// are all unhealthy.
type PostgresProber struct {
	DSN     string
	Timeout time.Duration
}

// NewPostgresProber creates a postgres readiness prober for the given DSN.
func NewPostgresProber(dsn string, timeout time.Duration) *PostgresProber {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &PostgresProber{
		DSN:     dsn,
		Timeout: timeout,
	}
}

// Check performs the readiness ping.
func (p *PostgresProber) Check(ctx context.Context) Result {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	conn, err := pgx.Connect(ctx, p.DSN)
	if err != nil {
		return unhealthy(start, fmt.Sprintf("connection failed: %v", err))
	}
	defer conn.Close(ctx)

	if err := conn.Ping(ctx); err != nil {
		return unhealthy(start, fmt.Sprintf("ping failed: %v", err))
	}

	return healthy(start, "postgres accepting connections")
}

// Kind returns the probe kind.
func (p *PostgresProber) Kind() types.ProbeKind {
	return types.ProbePostgres
}
