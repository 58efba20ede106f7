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

func newHistoryCmd() *cobra.Command {
	var before int64

	cmd := &cobra.Command{
		Use:   "history <monitor-id>",
		Short: "Show a page of a monitor's uptime event history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(dataDir)
			if err != nil {
				return err
			}

			url := fmt.Sprintf("http://%s/api/v1/monitors/%s/history", cfg.ListenAddr, args[0])
			if before > 0 {
				url += fmt.Sprintf("?before=%d", before)
			}

			resp, err := http.Get(url)
			if err != nil {
				return fmt.Errorf("connecting to control plane: %w (is it running?)", err)
			}
			defer resp.Body.Close()

			var events []model.UptimeEvent
			if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
				return fmt.Errorf("decoding response: %w", err)
			}

			output.History(events)

			return nil
		},
	}

	cmd.Flags().Int64Var(&before, "before", 0, "page before this unix millis timestamp (default: latest)")
	return cmd
}
