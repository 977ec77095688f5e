/*
Package metrics defines and registers warden's Prometheus metrics and
the optional HTTP endpoint that exposes them.

Metrics cover the control loop (ticks), probe outcomes and latency,
recovery policy activity (attempts, skips by reason, re-probe results),
watchdog restart actions, and host resource gauges. All metrics are
registered against the default registry at package init and served via
promhttp when a metrics address is configured.
*/
package metrics
