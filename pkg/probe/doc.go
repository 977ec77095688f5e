/*
Package probe implements the health probe registry: a bounded-time check
per supervised service that classifies it as healthy or unhealthy.

Five probe kinds exist. Process presence asks the container runtime
whether the managed container runs; postgres and redis issue real
protocol-level readiness round trips; http requires a 2xx from a health
path; tcp dials the target address. Services without a protocol probe
fall back to process presence, a deliberately weak check inherited from
the original deployment: a wedged process in a running container still
passes it.

Probes never return errors. Every failure mode — refused connection,
timeout, bad status, protocol mismatch — folds into an unhealthy Result
so the control loop treats all of them through the same recovery path.
*/
package probe
