package types

import "time"

// ProbeKind selects the liveness check used for a service.
type ProbeKind string

const (
	// ProbeProcess checks only that the managed container reports a
	// running state. This is the weakest check and the fallback for
	// services without a protocol-level probe.
	ProbeProcess ProbeKind = "process"

	// ProbePostgres issues a readiness ping against the relational store.
	ProbePostgres ProbeKind = "postgres"

	// ProbeRedis issues a PING and requires the PONG reply.
	ProbeRedis ProbeKind = "redis"

	// ProbeHTTP issues a GET against a health path and requires a 2xx.
	ProbeHTTP ProbeKind = "http"

	// ProbeTCP checks plain TCP reachability of an address.
	ProbeTCP ProbeKind = "tcp"
)

// ServiceDescriptor describes one supervised service. Descriptors are
// built once from the configured roster at daemon start and never
// mutated afterwards.
type ServiceDescriptor struct {
	// Name identifies the service in logs, metrics and recovery state.
	Name string

	// Container is the container name the service runs in, as known to
	// the container runtime.
	Container string

	// Kind selects the probe. Empty or unknown kinds fall back to
	// ProbeProcess.
	Kind ProbeKind

	// Target is the probe endpoint: a URL for http, host:port for tcp
	// and redis, a DSN for postgres. Unused by process probes.
	Target string
}

// RecoveryState is the restart bookkeeping for one service. The zero
// value means the service has never been restarted.
type RecoveryState struct {
	RestartCount  int
	LastRestartAt time.Time
}

// Decision is the recovery policy verdict for a failing service.
type Decision string

const (
	DecisionAttempt         Decision = "attempt"
	DecisionCooldownActive  Decision = "cooldown_active"
	DecisionBudgetExhausted Decision = "budget_exhausted"
)

// ResourceBand classifies one host resource measurement.
type ResourceBand string

const (
	BandNormal   ResourceBand = "normal"
	BandWarning  ResourceBand = "warning"
	BandCritical ResourceBand = "critical"
)

// ResourceSample is a point-in-time host measurement. Samples are
// recomputed on every sampling tick and never persisted.
type ResourceSample struct {
	MemoryUsedPercent float64
	DiskUsedPercent   float64
	Load1             float64
	CPUCores          int
	SampledAt         time.Time
}
