package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"taskhive/internal/config"
	"taskhive/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and reminder scheduler",
		Long: `Start the taskhive server: the REST API, the sqlite store, and the
in-process reminder scheduler. Shuts down gracefully on SIGINT/SIGTERM.

Example:
  taskhive serve --config ./taskhive.yaml`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootOpts.ConfigPath)
			if err != nil {
				return err
			}

			store, err := server.OpenStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return server.New(cfg, store).Start(ctx)
		},
	}
}
