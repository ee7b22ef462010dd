// Command syncdemo exercises each primitive in this module with a small,
// self-contained concurrent workload logged to stderr. It replaces the
// teacher service's gRPC entrypoint: there is no wire protocol here, so
// the driver is a CLI with one subcommand per primitive instead of a
// network-facing server.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nonblocking/syncprim/internal/config"
	"github.com/nonblocking/syncprim/internal/telemetry"
)

var (
	cfgPath  string
	logLevel string

	cfg *config.Config
	log *zap.Logger
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "syncdemo",
		Short: "Runs small concurrent workloads against this module's synchronization primitives",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				loaded.LogLevel = logLevel
			}
			cfg = loaded
			log = telemetry.New(cfg.LogLevel)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a demo config YAML file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newDispatcherCmd(),
		newRankingBarrierCmd(),
		newMpMcChannelCmd(),
		newLooperCmd(),
		newExchangerCmd(),
		newSynchronizerCmd(),
		newJoinerCmd(),
		newCountDownLatchCmd(),
		newAggregatorCmd(),
		newDelayedQueueCmd(),
		newDelayedExecutorCmd(),
		newTokenManagerCmd(),
		newCacheCmd(),
		newExecutionLimiterCmd(),
	)
	return root
}

func demoTimeout() time.Duration {
	if cfg == nil {
		return 30 * time.Second
	}
	return cfg.RunTimeout
}

func workerCount() int {
	if cfg == nil {
		return 4
	}
	return cfg.Workers
}
