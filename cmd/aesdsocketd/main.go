// Command aesdsocketd runs the TCP append/replay service described in
// SPEC_FULL.md §6: a bounded record ring exposed over a stream socket,
// with a background Timer task appending periodic timestamp records.
//
// Grounded on sakateka-yanet2/coordinator/cmd/coordinator/main.go's
// rootCmd/run(cmd) shape: a cobra root command builds a zap logger, loads
// config, then runs the service and the signal wait under one
// errgroup.Group, returning cleanly on an Interrupted error.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aesdlogd/aesdlogd"
	"github.com/aesdlogd/aesdlogd/internal/server"
)

// cliFlags holds the command line arguments, mirroring the reference's
// single-flag CLI plus the runtime-config overrides SPEC_FULL.md §6 adds
// now that CAP/T/port are no longer compile-time constants.
type cliFlags struct {
	configPath    string
	addr          string
	ringCapacity  int
	timerInterval string
	backingFile   string
	devicePath    string
	daemonize     bool
}

var flags cliFlags

var rootCmd = &cobra.Command{
	Use:   "aesdsocketd",
	Short: "Bounded record log service with TCP and device front-ends",
	Run: func(_ *cobra.Command, _ []string) {
		if err := run(flags); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.Flags().StringVar(&flags.addr, "addr", "", "TCP listen address (overrides config)")
	rootCmd.Flags().IntVar(&flags.ringCapacity, "ring-capacity", 0, "number of records retained (overrides config, 0 = use config/default)")
	rootCmd.Flags().StringVar(&flags.timerInterval, "timer-interval", "", "timestamp record period, e.g. 10s (overrides config)")
	rootCmd.Flags().StringVar(&flags.backingFile, "backing-file", "", "switch to unbounded file-backed mode at this path (overrides config)")
	rootCmd.Flags().StringVar(&flags.devicePath, "device-path", "", "informational device-API path, logged at startup only")
	rootCmd.Flags().BoolVarP(&flags.daemonize, "daemonize", "d", false, "accepted for interface compatibility; logged as a no-op under a process supervisor")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(flags cliFlags) error {
	zapCfg := zap.NewDevelopmentConfig()
	zapCfg.Development = false
	zapCfg.Level.SetLevel(zap.InfoLevel)

	logger, err := zapCfg.Build()
	if err != nil {
		return fmt.Errorf("aesdsocketd: build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	log := logger.Sugar()

	cfg, err := aesdlogd.LoadConfig(flags.configPath)
	if err != nil {
		return fmt.Errorf("aesdsocketd: load config: %w", err)
	}
	applyFlagOverrides(cfg, flags)

	if flags.daemonize {
		log.Infow("daemonize requested; running in the foreground under the process supervisor instead")
	}
	if cfg.DevicePath != "" {
		log.Infow("device-API path configured", "device_path", cfg.DevicePath)
	}

	store, err := newStore(cfg)
	if err != nil {
		return fmt.Errorf("aesdsocketd: init store: %w", err)
	}

	srv := server.New(cfg, store, log)

	ctx := context.Background()
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return srv.Run(ctx)
	})
	group.Go(func() error {
		err := server.WaitInterrupted(ctx)
		log.Infow("shutdown signal observed", "cause", err)
		return err
	})

	err = group.Wait()

	var interrupted server.Interrupted
	if errors.As(err, &interrupted) {
		return nil
	}
	return err
}

// newStore picks the in-memory bounded Ring or the unbounded backing-file
// Store per cfg.BackingFile, matching SPEC_FULL.md §6's two storage modes.
func newStore(cfg *aesdlogd.Config) (*aesdlogd.Store, error) {
	if cfg.BackingFile != "" {
		return aesdlogd.NewFileStore(cfg.BackingFile)
	}
	return aesdlogd.NewStore(cfg.RingCapacity), nil
}

// applyFlagOverrides layers explicitly-set CLI flags on top of the loaded
// config, the same "flags win over file" precedence the reference CLI's
// single -d flag implies trivially and SPEC_FULL.md §6 generalizes.
func applyFlagOverrides(cfg *aesdlogd.Config, flags cliFlags) {
	if flags.addr != "" {
		cfg.Addr = flags.addr
	}
	if flags.ringCapacity > 0 {
		cfg.RingCapacity = flags.ringCapacity
	}
	if flags.timerInterval != "" {
		if d, err := aesdlogd.ParseDuration(flags.timerInterval); err == nil {
			cfg.TimerInterval = d
		}
	}
	if flags.backingFile != "" {
		cfg.BackingFile = flags.backingFile
	}
	if flags.devicePath != "" {
		cfg.DevicePath = flags.devicePath
	}
	cfg.Daemonize = flags.daemonize
}
