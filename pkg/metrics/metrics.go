package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Control loop metrics
	TicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warden_ticks_total",
			Help: "Total number of control loop ticks",
		},
	)

	// Probe metrics
	ProbesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_probes_total",
			Help: "Total number of health probes by service and outcome",
		},
		[]string{"service", "outcome"},
	)

	ProbeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warden_probe_duration_seconds",
			Help:    "Health probe duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	// Recovery metrics
	RestartAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_restart_attempts_total",
			Help: "Total number of restart attempts by service",
		},
		[]string{"service"},
	)

	RestartSkipsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_restart_skips_total",
			Help: "Total number of skipped restarts by service and reason",
		},
		[]string{"service", "reason"},
	)

	RecoveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_recoveries_total",
			Help: "Total number of post-restart re-probes by service and outcome",
		},
		[]string{"service", "outcome"},
	)

	// Watchdog metrics
	WatchdogRestartsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_watchdog_restarts_total",
			Help: "Total number of watchdog restart actions by target",
		},
		[]string{"target"},
	)

	// Resource metrics
	ResourceUsedPercent = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "warden_resource_used_percent",
			Help: "Host resource usage percentage by resource",
		},
		[]string{"resource"},
	)

	LoadAverage1 = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "warden_load_average_1m",
			Help: "Host 1-minute load average",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(TicksTotal)
	prometheus.MustRegister(ProbesTotal)
	prometheus.MustRegister(ProbeDuration)
	prometheus.MustRegister(RestartAttemptsTotal)
	prometheus.MustRegister(RestartSkipsTotal)
	prometheus.MustRegister(RecoveriesTotal)
	prometheus.MustRegister(WatchdogRestartsTotal)
	prometheus.MustRegister(ResourceUsedPercent)
	prometheus.MustRegister(LoadAverage1)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures operation durations for histogram observation
type Timer struct {
	start time.Time
}

// NewTimer creates a timer starting now
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time on the given histogram
func (t *Timer) ObserveDuration(histogram prometheus.Observer) {
	histogram.Observe(t.Duration().Seconds())
}
