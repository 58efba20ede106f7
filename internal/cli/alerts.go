package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/watchtower/controlplane/internal/alertdelivery"
	"github.com/watchtower/controlplane/internal/config"
)

func newAlertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Alert delivery drainer commands",
	}
	cmd.AddCommand(newAlertsDrainCmd())
	return cmd
}

func newAlertsDrainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drain",
		Short: "Run one pass of the alert delivery drainer and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(dataDir)
			if err != nil {
				return err
			}

			st, err := openStore(cfg)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer st.Close()

			d := alertdelivery.New(st, cfg.Alerts)
			if err := d.DrainOnce(); err != nil {
				return fmt.Errorf("drain pass completed with errors: %w", err)
			}

			fmt.Println("Drain pass complete.")
			return nil
		},
	}
}
