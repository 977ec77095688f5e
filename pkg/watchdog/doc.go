/*
Package watchdog implements dedicated checks for the two infrastructure
dependencies the whole stack relies on: the container runtime daemon and
the overlay VPN client.

Both sit outside the generic per-service recovery policy because their
recovery action is systemic. Neither carries a restart counter or a
cooldown; each failed check triggers one immediate attempt, and the
control loop's cadence provides the only retry pacing.
*/
package watchdog
