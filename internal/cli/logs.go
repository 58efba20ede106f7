package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/watchtower/controlplane/internal/config"
)

type logEntry struct {
	Time      time.Time `json:"time"`
	Component string    `json:"component,omitempty"`
	Message   string    `json:"message"`
}

func newLogsCmd() *cobra.Command {
	var lines int
	var component string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent control plane log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(dataDir)
			if err != nil {
				return err
			}

			url := fmt.Sprintf("http://%s/api/v1/logs?lines=%d", cfg.ListenAddr, lines)
			if component != "" {
				url += "&component=" + component
			}
			resp, err := http.Get(url)
			if err != nil {
				return fmt.Errorf("connecting to control plane: %w (is it running?)", err)
			}
			defer resp.Body.Close()

			var entries []logEntry
			if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
				return fmt.Errorf("decoding response: %w", err)
			}

			for _, e := range entries {
				if e.Component != "" {
					fmt.Printf("%s  [%s] %s\n", e.Time.Format("15:04:05.000"), e.Component, e.Message)
				} else {
					fmt.Printf("%s  %s\n", e.Time.Format("15:04:05.000"), e.Message)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 100, "number of log lines to show")
	cmd.Flags().StringVarP(&component, "component", "c", "", "filter to one component, e.g. scheduler, worker, api")
	return cmd
}
