package cli

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/watchtower/controlplane/internal/config"
	"github.com/watchtower/controlplane/internal/model"
	"github.com/watchtower/controlplane/internal/output"
)

func newStatusCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show fleet-wide or per-user monitoring stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(dataDir)
			if err != nil {
				return err
			}

			url := fmt.Sprintf("http://%s/api/v1/status", cfg.ListenAddr)
			if user != "" {
				url += "?user=" + user
			}

			resp, err := http.Get(url)
			if err != nil {
				return fmt.Errorf("connecting to control plane: %w (is it running?)", err)
			}
			defer resp.Body.Close()

			var stats model.MonitoringStats
			if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
				return fmt.Errorf("decoding response: %w", err)
			}

			output.Stats(&stats)

			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "scope to a single user ID (default: fleet-wide)")
	return cmd
}
