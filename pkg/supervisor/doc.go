/*
Package supervisor implements the control loop that drives warden.

A single goroutine owns the loop. Each tick increments the process-wide
tick counter, fires the resource monitor and VPN watchdog on their
tick-modulo schedules, pings the container runtime, and probes every
service in the roster — concurrently, one goroutine per service, joined
before the inter-tick sleep. Failures flow into the recovery policy;
the loop itself never terminates on a probe or restart error, only on
an explicit stop.
*/
package supervisor
