/*
Package resource samples host-level memory, disk and load average and
classifies each into normal, warning or critical bands.

Classification is a pure function over a sample and a set of
thresholds; the Monitor wraps it with gopsutil-backed sampling, log
output and Prometheus gauges. Only the previous classification is kept,
enough to log the return to normal without repeating steady-state
records. No remediation is taken here by design.
*/
package resource
