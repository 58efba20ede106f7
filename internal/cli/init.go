package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/watchtower/controlplane/internal/config"
)

func newInitCmd() *cobra.Command {
	var listenAddr string
	var driver string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long:  "Initialize controlplane on this host by writing a default config.yaml to the data directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(dataDir); err == nil {
				return fmt.Errorf("already initialized (config exists at %s)", dataDir)
			}

			cfg := config.DefaultConfig()
			cfg.DataDir = dataDir
			cfg.ListenAddr = listenAddr
			if driver != "" {
				cfg.Database.Driver = driver
			}

			if err := cfg.Save(); err != nil {
				return fmt.Errorf("saving config: %w", err)
			}

			fmt.Println()
			fmt.Println("controlplane initialized successfully!")
			fmt.Printf("  Data Dir: %s\n", dataDir)
			fmt.Printf("  Listen:   %s\n", listenAddr)
			fmt.Printf("  Driver:   %s\n", cfg.Database.Driver)
			fmt.Println()
			fmt.Println("Next steps:")
			fmt.Println("  1. Edit config.yaml to set the agent bearer token and alert channels")
			fmt.Println("  2. Start the control plane:  controlplane serve")

			return nil
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", config.DefaultListenAddr, "listen address for the read API")
	cmd.Flags().StringVar(&driver, "driver", "sqlite", "storage backend: sqlite or postgres")

	return cmd
}
