// lyra-notify routes safety alerts and live-tracking events to guardians and
// authorities as push notifications, and records one delivery log per event.
//
// Usage:
//
//	lyra-notify serve --store sql --sender http
//	lyra-notify dispatch --collection sos_alerts --id a1 -f alert.yaml -o json
//	lyra-notify version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lyraio/lyra/internal/config"
)

var (
	version    = "dev"
	configFile string
	outputFmt  string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lyra-notify",
		Short: "Route safety alerts to guardians and authorities",
		Long: `lyra-notify consumes sos_alerts and tracking_events records, resolves the
subject's guardians and the active authorities, and sends one push
notification per recipient group.

Configuration is read from lyra.yaml, LYRA_* environment variables and flags.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a configuration file (default: lyra.yaml lookup)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(dispatchCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

// loadConfig reads and validates the configuration for cmd.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(cmd, configFile)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger. Production output is JSON with
// ISO8601 timestamps.
func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	logConfig := zap.NewProductionConfig()
	if cfg.Development {
		logConfig = zap.NewDevelopmentConfig()
	}
	logConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logConfig.Level = zap.NewAtomicLevelAt(level)
	return logConfig.Build()
}
