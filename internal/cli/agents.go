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

func newAgentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List registered monitor agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(dataDir)
			if err != nil {
				return err
			}

			resp, err := http.Get(fmt.Sprintf("http://%s/api/v1/agents", cfg.ListenAddr))
			if err != nil {
				return fmt.Errorf("connecting to control plane: %w (is it running?)", err)
			}
			defer resp.Body.Close()

			var agents []model.MonitorAgent
			if err := json.NewDecoder(resp.Body).Decode(&agents); err != nil {
				return fmt.Errorf("decoding response: %w", err)
			}

			output.Agents(agents)

			return nil
		},
	}
}
