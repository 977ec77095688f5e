/*
Package daemon implements the process control surface and singleton
enforcement.

The running instance records its pid at a well-known path. Start
refuses while that record points at a live process; a stale record — a
pid no longer alive — is detected and discarded on the next start or
status call. Stop signals the instance with SIGTERM and waits for it to
finish its in-flight tick and remove its record. Status reports
liveness and echoes the tail of the daemon log.
*/
package daemon
