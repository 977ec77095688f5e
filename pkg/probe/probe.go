package probe

import (
	"context"
	"time"

	"github.com/fieldstack/warden/pkg/types"
)

// DefaultTimeout bounds every probe so one stuck dependency cannot
// stall a control loop tick.
const DefaultTimeout = 5 * time.Second

// Result is the outcome of one probe. Unreachability, timeouts and
// protocol-level failures all fold into an unhealthy Result; a probe
// never returns an error to its caller.
type Result struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Prober is the interface all probe kinds implement.
type Prober interface {
	// Check performs the probe and classifies the service.
	Check(ctx context.Context) Result

	// Kind returns the probe kind.
	Kind() types.ProbeKind
}

func healthy(start time.Time, message string) Result {
	return Result{
		Healthy:   true,
		Message:   message,
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

func unhealthy(start time.Time, message string) Result {
	return Result{
		Healthy:   false,
		Message:   message,
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}
