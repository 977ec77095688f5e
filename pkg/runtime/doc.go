/*
Package runtime wraps the Docker Engine API client.

The supervised stack is compose-managed, so every service maps to a
named container. The wrapper exposes exactly what the daemon consumes:
a running-state query (process-presence probe), a restart action
(recovery policy), and a daemon ping (container runtime watchdog).
*/
package runtime
