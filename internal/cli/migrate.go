package cli

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"taskhive/internal/config"
	"taskhive/internal/storage"
)

// NewMigrateCommand creates the migrate command with up/down subcommands.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:          "up",
		Short:        "Apply all migrations",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(rootOpts, func(db *sql.DB) error {
				if err := storage.MigrateUp(db); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:          "down",
		Short:        "Roll back all migrations",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(rootOpts, func(db *sql.DB) error {
				if err := storage.MigrateDown(db); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations rolled back")
				return nil
			})
		},
	})

	return cmd
}

func withDB(rootOpts *RootOptions, fn func(*sql.DB) error) error {
	cfg, err := config.Load(rootOpts.ConfigPath)
	if err != nil {
		return err
	}
	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}
