package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/watchtower/controlplane/internal/config"
)

var dataDir string

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "controlplane",
		Short:         "Multi-agent uptime monitoring control plane",
		Long:          "controlplane schedules probes across external monitor agents, detects state changes, throttles alerts, and serves read-only status over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&dataDir, "data-dir", config.DefaultDataDir, "data directory path")

	root.AddCommand(
		newInitCmd(),
		newServeCmd(),
		newStatusCmd(),
		newUptimeCmd(),
		newHistoryCmd(),
		newDowntimeCmd(),
		newAgentsCmd(),
		newAlertsCmd(),
		newHealthCmd(),
		newLogsCmd(),
	)

	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
