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

func newDowntimeCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "downtime",
		Short: "Show the most recent downtime event",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(dataDir)
			if err != nil {
				return err
			}

			url := fmt.Sprintf("http://%s/api/v1/downtime/latest", cfg.ListenAddr)
			if user != "" {
				url += "?user=" + user
			}

			resp, err := http.Get(url)
			if err != nil {
				return fmt.Errorf("connecting to control plane: %w (is it running?)", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound {
				fmt.Println("No downtime recorded.")
				return nil
			}

			var e model.UptimeEvent
			if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
				return fmt.Errorf("decoding response: %w", err)
			}

			output.Downtime(&e)

			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "scope to a single user ID")
	return cmd
}
