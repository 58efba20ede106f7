package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/watchtower/controlplane/internal/config"
	"github.com/watchtower/controlplane/internal/engine"
	"github.com/watchtower/controlplane/internal/logbuf"
	"github.com/watchtower/controlplane/internal/store"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the control plane",
		Long:  "Start the scheduler, agent pool, alert drainer, and read API, and block until interrupted.",
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

			logBuf := logbuf.New()
			log.SetOutput(io.MultiWriter(os.Stdout, logBuf))

			eng, err := engine.New(cfg, st, logBuf)
			if err != nil {
				return fmt.Errorf("building engine: %w", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				sig := <-sigCh
				log.Printf("[serve] received signal %v, shutting down...", sig)
				cancel()
			}()

			return eng.Run(ctx)
		},
	}
}

// openStore constructs the configured storage backend.
func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.Database.Driver == "postgres" {
		return store.NewPostgresStore(cfg.DSN())
	}
	return store.NewSQLiteStore(cfg.DSN())
}
