package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fieldstack/warden/pkg/config"
	"github.com/fieldstack/warden/pkg/daemon"
	"github.com/fieldstack/warden/pkg/log"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Warden - service health and automatic recovery daemon",
	Long: `Warden supervises the services of a field server: it probes each
service on a fixed cadence, restarts failures under a bounded,
cooled-down recovery policy, watches the container runtime and the
overlay VPN client, and escalates host resource exhaustion into
operator-visible warnings.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Warden version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "/etc/warden/warden.yaml", "Path to the warden configuration file")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(statusCmd)
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon",
	Long: `Start the health daemon. Refuses to start while a live instance
record exists; a stale record from a crashed instance is discarded
automatically.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		detach, _ := cmd.Flags().GetBool("detach")

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		mgr := daemon.NewManager(cfg, Version)

		if detach {
			pid, err := mgr.StartDetached(configPath)
			if err != nil {
				return err
			}
			fmt.Printf("✓ warden started (pid %d)\n", pid)
			return nil
		}

		if err := log.Init(log.Config{
			Level:      log.Level(cfg.LogLevel),
			JSONOutput: cfg.LogJSON,
			FilePath:   cfg.LogFile,
		}); err != nil {
			return err
		}

		return mgr.Run()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		if err := daemon.NewManager(cfg, Version).Stop(); err != nil {
			return err
		}
		fmt.Println("✓ warden stopped")
		return nil
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		mgr := daemon.NewManager(cfg, Version)

		if err := mgr.Stop(); err != nil && !errors.Is(err, daemon.ErrNotRunning) {
			return err
		}

		pid, err := mgr.StartDetached(configPath)
		if err != nil {
			return err
		}
		fmt.Printf("✓ warden restarted (pid %d)\n", pid)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report daemon status and recent log lines",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		if err := daemon.NewManager(cfg, Version).Status(os.Stdout); err != nil {
			if errors.Is(err, daemon.ErrNotRunning) {
				os.Exit(1)
			}
			return err
		}
		return nil
	},
}

func init() {
	startCmd.Flags().Bool("detach", false, "Run the daemon in the background")
}
