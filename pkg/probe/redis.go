package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldstack/warden/pkg/types"
	"github.com/redis/go-redis/v9"
)

// RedisProber probes the key-value cache with a PING round trip.
// Success requires the literal PONG reply, not merely a reachable port.
type RedisProber struct {
	Addr    string
	Timeout time.Duration
}

// NewRedisProber creates a cache prober for the given host:port address.
func NewRedisProber(addr string, timeout time.Duration) *RedisProber {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RedisProber{
		Addr:    addr,
		Timeout: timeout,
	}
}

// Check performs the PING round trip.
func (p *RedisProber) Check(ctx context.Context) Result {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	client := redis.NewClient(&redis.Options{
		Addr:        p.Addr,
		DialTimeout: p.Timeout,
		ReadTimeout: p.Timeout,
	})
	defer client.Close()

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		return unhealthy(start, fmt.Sprintf("ping failed: %v", err))
	}
	if pong != "PONG" {
		return unhealthy(start, fmt.Sprintf("unexpected ping reply %q", pong))
	}

	return healthy(start, "redis replied PONG")
}

// Kind returns the probe kind.
func (p *RedisProber) Kind() types.ProbeKind {
	return types.ProbeRedis
}
