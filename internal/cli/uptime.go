package cli

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/watchtower/controlplane/internal/config"
	"github.com/watchtower/controlplane/internal/model"
)

func newUptimeCmd() *cobra.Command {
	var days float64

	cmd := &cobra.Command{
		Use:   "uptime <monitor-id>",
		Short: "Show rolling uptime percentage for a monitor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(dataDir)
			if err != nil {
				return err
			}

			url := fmt.Sprintf("http://%s/api/v1/monitors/%s/uptime?days=%g", cfg.ListenAddr, args[0], days)
			resp, err := http.Get(url)
			if err != nil {
				return fmt.Errorf("connecting to control plane: %w (is it running?)", err)
			}
			defer resp.Body.Close()

			var report model.UptimeReport
			if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
				return fmt.Errorf("decoding response: %w", err)
			}

			fmt.Printf("Monitor:  %s\n", report.MonitorID)
			fmt.Printf("Window:   %g days\n", report.Days)
			fmt.Printf("Uptime:   %.2f%%\n", report.UptimePct)

			return nil
		},
	}

	cmd.Flags().Float64Var(&days, "days", 7, "rolling window size in days")
	return cmd
}
