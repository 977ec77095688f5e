package config

import (
	"fmt"
	"os"
	"time"

	"github.com/fieldstack/warden/pkg/types"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "30s" parse directly.
type Duration time.Duration

// UnmarshalYAML implements custom unmarshaling for duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Service is one roster entry.
type Service struct {
	Name      string          `yaml:"name"`
	Container string          `yaml:"container,omitempty"` // defaults to Name
	Probe     types.ProbeKind `yaml:"probe,omitempty"`     // defaults to process presence
	Target    string          `yaml:"target,omitempty"`
}

// ResourceConfig holds resource monitor thresholds.
type ResourceConfig struct {
	DiskPath              string  `yaml:"disk_path"`
	MemoryWarningPercent  float64 `yaml:"memory_warning_percent"`
	MemoryCriticalPercent float64 `yaml:"memory_critical_percent"`
	DiskWarningPercent    float64 `yaml:"disk_warning_percent"`
	DiskCriticalPercent   float64 `yaml:"disk_critical_percent"`
	LoadWarningFactor     float64 `yaml:"load_warning_factor"`
}

// RuntimeConfig configures the container runtime watchdog.
type RuntimeConfig struct {
	Host           string   `yaml:"host,omitempty"` // empty means environment default
	StartCommand   []string `yaml:"start_command"`
	SettleDelay    Duration `yaml:"settle_delay"`
	CommandTimeout Duration `yaml:"command_timeout"`
}

// VPNConfig configures the overlay VPN client watchdog.
type VPNConfig struct {
	StatusCommand  []string `yaml:"status_command"`
	OnlineMarker   string   `yaml:"online_marker"`
	RestartCommand []string `yaml:"restart_command"`
	CommandTimeout Duration `yaml:"command_timeout"`
}

// Config is the full daemon configuration.
type Config struct {
	Services []Service `yaml:"services"`

	// Control loop cadences. Check interval is wall-clock; the rest are
	// tick-modulo schedules relative to it.
	CheckInterval      Duration `yaml:"check_interval"`
	ResourceEveryTicks int      `yaml:"resource_every_ticks"`
	VPNEveryTicks      int      `yaml:"vpn_every_ticks"`
	SummaryEveryTicks  int      `yaml:"summary_every_ticks"`

	// Recovery policy bounds.
	MaxRestartAttempts int      `yaml:"max_restart_attempts"`
	RestartCooldown    Duration `yaml:"restart_cooldown"`
	StabilizationDelay Duration `yaml:"stabilization_delay"`
	RestartTimeout     Duration `yaml:"restart_timeout"`

	ProbeTimeout Duration `yaml:"probe_timeout"`

	Resources ResourceConfig `yaml:"resources"`
	Runtime   RuntimeConfig  `yaml:"runtime"`
	VPN       VPNConfig      `yaml:"vpn"`

	PIDFile     string `yaml:"pid_file"`
	LogFile     string `yaml:"log_file"`
	LogLevel    string `yaml:"log_level"`
	LogJSON     bool   `yaml:"log_json"`
	MetricsAddr string `yaml:"metrics_addr,omitempty"`
}

// Default returns a Config with production defaults. Loading a file
// overlays onto these, so partial configs are valid.
func Default() *Config {
	return &Config{
		CheckInterval:      Duration(30 * time.Second),
		ResourceEveryTicks: 10,
		VPNEveryTicks:      5,
		SummaryEveryTicks:  120,
		MaxRestartAttempts: 3,
		RestartCooldown:    Duration(5 * time.Minute),
		StabilizationDelay: Duration(15 * time.Second),
		RestartTimeout:     Duration(30 * time.Second),
		ProbeTimeout:       Duration(5 * time.Second),
		Resources: ResourceConfig{
			DiskPath:              "/",
			MemoryWarningPercent:  85,
			MemoryCriticalPercent: 95,
			DiskWarningPercent:    85,
			DiskCriticalPercent:   95,
			LoadWarningFactor:     2,
		},
		Runtime: RuntimeConfig{
			StartCommand:   []string{"systemctl", "start", "docker"},
			SettleDelay:    Duration(10 * time.Second),
			CommandTimeout: Duration(30 * time.Second),
		},
		VPN: VPNConfig{
			StatusCommand:  []string{"zerotier-cli", "info"},
			OnlineMarker:   "ONLINE",
			RestartCommand: []string{"systemctl", "restart", "zerotier-one"},
			CommandTimeout: Duration(10 * time.Second),
		},
		PIDFile:  "/run/warden.pid",
		LogFile:  "/var/log/warden.log",
		LogLevel: "info",
	}
}

// Load reads a YAML config file over the defaults and validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults fills per-service defaults that depend on other fields.
func (c *Config) applyDefaults() {
	for i := range c.Services {
		if c.Services[i].Container == "" {
			c.Services[i].Container = c.Services[i].Name
		}
		if c.Services[i].Probe == "" {
			c.Services[i].Probe = types.ProbeProcess
		}
	}
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if len(c.Services) == 0 {
		return fmt.Errorf("config: at least one service is required")
	}

	seen := make(map[string]bool, len(c.Services))
	for _, svc := range c.Services {
		if svc.Name == "" {
			return fmt.Errorf("config: service with empty name")
		}
		if seen[svc.Name] {
			return fmt.Errorf("config: duplicate service name %q", svc.Name)
		}
		seen[svc.Name] = true

		switch svc.Probe {
		case types.ProbeProcess:
			// No target required.
		case types.ProbePostgres, types.ProbeRedis, types.ProbeHTTP, types.ProbeTCP:
			if svc.Target == "" {
				return fmt.Errorf("config: service %q: probe %q requires a target", svc.Name, svc.Probe)
			}
		default:
			return fmt.Errorf("config: service %q: unknown probe kind %q", svc.Name, svc.Probe)
		}
	}

	if c.CheckInterval <= 0 {
		return fmt.Errorf("config: check_interval must be positive")
	}
	if c.ResourceEveryTicks <= 0 || c.VPNEveryTicks <= 0 || c.SummaryEveryTicks <= 0 {
		return fmt.Errorf("config: tick-modulo schedules must be positive")
	}
	if c.MaxRestartAttempts <= 0 {
		return fmt.Errorf("config: max_restart_attempts must be positive")
	}
	if c.RestartCooldown < 0 || c.StabilizationDelay < 0 {
		return fmt.Errorf("config: cooldown and stabilization delay must not be negative")
	}
	if c.PIDFile == "" {
		return fmt.Errorf("config: pid_file is required")
	}

	return nil
}

// Roster converts the configured services into immutable descriptors in
// their configured (stable) order.
func (c *Config) Roster() []types.ServiceDescriptor {
	roster := make([]types.ServiceDescriptor, 0, len(c.Services))
	for _, svc := range c.Services {
		roster = append(roster, types.ServiceDescriptor{
			Name:      svc.Name,
			Container: svc.Container,
			Kind:      svc.Probe,
			Target:    svc.Target,
		})
	}
	return roster
}
