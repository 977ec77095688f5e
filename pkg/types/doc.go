/*
Package types defines the shared domain types for warden: service
descriptors, probe kinds, recovery state and decisions, and host
resource samples.

Types here are plain data. Behavior lives in the packages that own it:
pkg/probe executes probes, pkg/recovery owns RecoveryState transitions,
pkg/resource produces and classifies ResourceSample values.
*/
package types
