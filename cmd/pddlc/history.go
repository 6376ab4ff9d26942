package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pddlplanning/pddlplanning-go/internal/config"
	"github.com/pddlplanning/pddlplanning-go/store"
)

func newHistoryCmd(a *app) *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse and export recorded plan searches",
		Long: `Read the plan history kept in PostgreSQL by pddld or by pddlc plan
--store-dsn.

Examples:
  pddlc history list --dsn postgres://localhost/pddl --status planning_failed
  pddlc history export --dsn postgres://localhost/pddl --out plans.parquet`,
	}
	cmd.PersistentFlags().StringVar(&dsn, "dsn", "", "PostgreSQL DSN (default: $PDDL_DB_DSN or the configuration)")

	open := func(cmd *cobra.Command) (store.Store, error) {
		cfg, err := a.loadConfig()
		if err != nil {
			return nil, err
		}
		if dsn == "" {
			dsn = os.Getenv("PDDL_DB_DSN")
		}
		if dsn != "" {
			cfg.Store = config.StoreConfig{Driver: config.StorePostgres, Postgres: store.PostgresConfig{DSN: dsn}}
		}
		if cfg.Store.Driver != config.StorePostgres {
			return nil, fmt.Errorf("plan history needs a PostgreSQL store (--dsn)")
		}
		return config.OpenStore(cmd.Context(), cfg.Store)
	}

	var filter store.Filter
	var status string
	var since time.Duration
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent searches, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			filter.Status = store.Status(status)
			if since > 0 {
				filter.Since = time.Now().Add(-since)
			}
			records, err := s.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if a.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), records)
			}
			rows := make([]table.Row, 0, len(records))
			for _, r := range records {
				rows = append(rows, table.Row{
					r.ID, r.CreatedAt.Format(time.RFC3339), r.ProblemName, r.Status,
					len(r.Tasks), r.Duration.Round(time.Millisecond), r.Error,
				})
			}
			writeTable(cmd.OutOrStdout(), table.Row{"ID", "Created", "Problem", "Status", "Tasks", "Duration", "Error"}, rows)
			return nil
		},
	}
	list.Flags().StringVar(&filter.ProblemName, "problem", "", "Only this problem name")
	list.Flags().StringVar(&status, "status", "", "Only this status (succeeded, translation_failed, planning_failed, unavailable, failed)")
	list.Flags().DurationVar(&since, "since", 0, "Only searches newer than this")
	list.Flags().IntVar(&filter.Limit, "limit", store.DefaultListLimit, "Maximum number of records")

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Print one recorded search with its plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid record id %q: %w", args[0], err)
			}
			s, err := open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			r, err := s.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if a.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), r)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s/%s %s %s\n", r.ID, r.DomainName, r.ProblemName, r.Status, r.Duration)
			if r.Error != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "error: %s\n", r.Error)
			}
			for _, task := range r.Tasks {
				fmt.Fprintf(cmd.OutOrStdout(), "(%s)\n", task)
			}
			return nil
		},
	}

	var exportFilter store.Filter
	var out string
	export := &cobra.Command{
		Use:   "export",
		Short: "Export searches to a Parquet file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			records, err := s.List(cmd.Context(), exportFilter)
			if err != nil {
				return err
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			if err := store.ExportParquet(f, records); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "exported %d records to %s\n", len(records), out)
			return err
		},
	}
	export.Flags().StringVar(&out, "out", "plans.parquet", "Parquet file to write")
	export.Flags().StringVar(&exportFilter.ProblemName, "problem", "", "Only this problem name")
	export.Flags().IntVar(&exportFilter.Limit, "limit", 10000, "Maximum number of records")

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a recorded search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid record id %q: %w", args[0], err)
			}
			s, err := open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			return s.Delete(cmd.Context(), id)
		},
	}

	cmd.AddCommand(list, show, export, del)
	return cmd
}
