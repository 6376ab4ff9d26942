package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pddlplanning/pddlplanning-go/store"
)

func newMigrateCmd(a *app) *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Plan history schema migrations",
		Long: `Apply or inspect the embedded goose migrations of the plan history
store.

Examples:
  # Run all pending migrations
  pddlc migrate up --dsn postgres://localhost/pddl?sslmode=disable

  # Check migration status
  pddlc migrate status`,
	}
	cmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Database connection string (default: $PDDL_DB_DSN)")

	resolve := func() (string, error) {
		if dsn != "" {
			return dsn, nil
		}
		if env := os.Getenv("PDDL_DB_DSN"); env != "" {
			return env, nil
		}
		cfg, err := a.loadConfig()
		if err != nil {
			return "", err
		}
		if cfg.Store.Postgres.DSN == "" {
			return "", fmt.Errorf("no database: pass --dsn or set PDDL_DB_DSN")
		}
		return cfg.Store.Postgres.DSN, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Run pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dsn, err := resolve()
			if err != nil {
				return err
			}
			if err := store.Migrate(cmd.Context(), dsn); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return err
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dsn, err := resolve()
			if err != nil {
				return err
			}
			return store.MigrationStatus(cmd.Context(), dsn)
		},
	})
	return cmd
}
