package probe

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/fieldstack/warden/pkg/types"
)

// TCPProber probes plain TCP reachability of an address.
type TCPProber struct {
	Address string
	Timeout time.Duration
}

// NewTCPProber creates a TCP prober for the given host:port address.
func NewTCPProber(address string, timeout time.Duration) *TCPProber {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &TCPProber{
		Address: address,
		Timeout: timeout,
	}
}

// Check performs the TCP connect probe.
func (p *TCPProber) Check(ctx context.Context) Result {
	start := time.Now()

	dialer := &net.Dialer{Timeout: p.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", p.Address)
	if err != nil {
		return unhealthy(start, fmt.Sprintf("connection failed: %v", err))
	}
	defer conn.Close()

	return healthy(start, fmt.Sprintf("TCP connection to %s successful", p.Address))
}

// Kind returns the probe kind.
func (p *TCPProber) Kind() types.ProbeKind {
	return types.ProbeTCP
}
