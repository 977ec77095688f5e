package resource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fieldstack/warden/pkg/log"
	"github.com/fieldstack/warden/pkg/metrics"
	"github.com/fieldstack/warden/pkg/types"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// Thresholds holds the classification bands for host resources.
type Thresholds struct {
	MemoryWarningPercent  float64
	MemoryCriticalPercent float64
	DiskWarningPercent    float64
	DiskCriticalPercent   float64

	// LoadWarningFactor is the multiple of the core count above which
	// the 1-minute load average is a warning.
	LoadWarningFactor float64
}

// DefaultThresholds returns the production bands.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MemoryWarningPercent:  85,
		MemoryCriticalPercent: 95,
		DiskWarningPercent:    85,
		DiskCriticalPercent:   95,
		LoadWarningFactor:     2,
	}
}

// Classification is the banded view of one sample.
type Classification struct {
	Memory types.ResourceBand
	Disk   types.ResourceBand
	Load   types.ResourceBand
}

// Classify maps a sample onto the threshold bands. Pure function, no
// side effects.
func Classify(s types.ResourceSample, t Thresholds) Classification {
	c := Classification{
		Memory: bandFor(s.MemoryUsedPercent, t.MemoryWarningPercent, t.MemoryCriticalPercent),
		Disk:   bandFor(s.DiskUsedPercent, t.DiskWarningPercent, t.DiskCriticalPercent),
		Load:   types.BandNormal,
	}

	if s.CPUCores > 0 && s.Load1 > t.LoadWarningFactor*float64(s.CPUCores) {
		c.Load = types.BandWarning
	}

	return c
}

func bandFor(value, warning, critical float64) types.ResourceBand {
	switch {
	case value > critical:
		return types.BandCritical
	case value > warning:
		return types.BandWarning
	default:
		return types.BandNormal
	}
}

// Monitor samples host memory, disk and load on the control loop's
// lower-frequency cadence and logs band classifications. It takes no
// remediation action: resource exhaustion is a host-level condition no
// local restart can fix, so the output is operator-facing only.
type Monitor struct {
	diskPath   string
	thresholds Thresholds
	logger     zerolog.Logger

	mu       sync.Mutex
	last     types.ResourceSample
	haveLast bool
	prev     Classification
	havePrev bool
}

// NewMonitor creates a monitor sampling the filesystem at diskPath.
func NewMonitor(diskPath string, thresholds Thresholds) *Monitor {
	if diskPath == "" {
		diskPath = "/"
	}
	return &Monitor{
		diskPath:   diskPath,
		thresholds: thresholds,
		logger:     log.WithComponent("resource"),
	}
}

// Sample collects one host measurement.
func (m *Monitor) Sample(ctx context.Context) (types.ResourceSample, error) {
	sample := types.ResourceSample{SampledAt: time.Now()}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return sample, fmt.Errorf("failed to sample memory: %w", err)
	}
	sample.MemoryUsedPercent = vm.UsedPercent

	du, err := disk.UsageWithContext(ctx, m.diskPath)
	if err != nil {
		return sample, fmt.Errorf("failed to sample disk %s: %w", m.diskPath, err)
	}
	sample.DiskUsedPercent = du.UsedPercent

	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return sample, fmt.Errorf("failed to sample load average: %w", err)
	}
	sample.Load1 = avg.Load1

	cores, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return sample, fmt.Errorf("failed to count cpu cores: %w", err)
	}
	sample.CPUCores = cores

	return sample, nil
}

// Run performs one sampling pass: sample, classify, log, update gauges.
// Sampling errors are logged and swallowed so the control loop is never
// disturbed by a transient /proc hiccup.
func (m *Monitor) Run(ctx context.Context) {
	sample, err := m.Sample(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("resource sampling failed")
		return
	}

	c := Classify(sample, m.thresholds)

	metrics.ResourceUsedPercent.WithLabelValues("memory").Set(sample.MemoryUsedPercent)
	metrics.ResourceUsedPercent.WithLabelValues("disk").Set(sample.DiskUsedPercent)
	metrics.LoadAverage1.Set(sample.Load1)

	m.logBand("memory", c.Memory, sample.MemoryUsedPercent, "%")
	m.logBand("disk", c.Disk, sample.DiskUsedPercent, "%")
	if c.Load == types.BandWarning {
		m.logger.Warn().
			Float64("load1", sample.Load1).
			Int("cores", sample.CPUCores).
			Msg("load average above threshold")
	}

	m.mu.Lock()
	if m.havePrev {
		m.logTransitions(m.prev, c)
	}
	m.prev = c
	m.havePrev = true
	m.last = sample
	m.haveLast = true
	m.mu.Unlock()
}

// Last returns the most recent sample, if any. The summary uses it so a
// summary tick does not force an extra sampling pass.
func (m *Monitor) Last() (types.ResourceSample, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, m.haveLast
}

func (m *Monitor) logBand(resource string, band types.ResourceBand, value float64, unit string) {
	switch band {
	case types.BandCritical:
		m.logger.Error().
			Str("resource", resource).
			Str("band", string(band)).
			Float64("used", value).
			Msgf("%s usage critical: %.1f%s", resource, value, unit)
	case types.BandWarning:
		m.logger.Warn().
			Str("resource", resource).
			Str("band", string(band)).
			Float64("used", value).
			Msgf("%s usage high: %.1f%s", resource, value, unit)
	}
}

// logTransitions records recoveries back to normal. Elevated bands are
// logged on every sample above; returning to normal is logged once.
func (m *Monitor) logTransitions(prev, cur Classification) {
	if prev.Memory != types.BandNormal && cur.Memory == types.BandNormal {
		m.logger.Info().Str("resource", "memory").Msg("memory usage back to normal")
	}
	if prev.Disk != types.BandNormal && cur.Disk == types.BandNormal {
		m.logger.Info().Str("resource", "disk").Msg("disk usage back to normal")
	}
	if prev.Load != types.BandNormal && cur.Load == types.BandNormal {
		m.logger.Info().Str("resource", "load").Msg("load average back to normal")
	}
}
