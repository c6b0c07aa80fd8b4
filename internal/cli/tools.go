package cli

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"taskhive/internal/config"
	"taskhive/internal/server"
	"taskhive/internal/tools"
)

// NewToolsCommand creates the tools command, a JSON-RPC 2.0 stdio server
// exposing the assistant tools for one user.
func NewToolsCommand(rootOpts *RootOptions) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Serve the assistant tools over stdio (JSON-RPC 2.0)",
		Long: `Serve the task tools (add_task, list_tasks, update_task, complete_task,
delete_task, set_reminder) over stdin/stdout for an MCP-compatible chat
client. The user is fixed server-side via --user; the wire protocol carries
no user identity.

Example:
  taskhive tools --config ./taskhive.yaml --user alice`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootOpts.ConfigPath)
			if err != nil {
				return err
			}
			if userID == "" {
				return fmt.Errorf("--user is required")
			}

			store, err := server.OpenStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			// Stdout carries the protocol; logs go to stderr.
			log.SetOutput(os.Stderr)
			log.Printf("[TOOLS] serving tools for user %s", userID)

			registry := tools.NewRegistry(store, time.Now)
			return tools.NewRPCServer(registry, userID).Serve(cmd.Context(), os.Stdin, os.Stdout)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id the tools act for (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
