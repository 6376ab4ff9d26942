package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pddlplanning/pddlplanning-go/internal/config"
	"github.com/pddlplanning/pddlplanning-go/pddl"
	"github.com/pddlplanning/pddlplanning-go/templates"
)

func newTemplatesCmd(a *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List and show templates of a directory or S3 source",
		Long: `Browse the template source of the configuration, or the directory given
with --dir.

Examples:
  pddlc templates list --dir ./templates
  pddlc templates show greet --config pddl.yaml`,
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "Template directory (overrides the configuration)")

	open := func(cmd *cobra.Command) (templates.Source, error) {
		cfg, err := a.loadConfig()
		if err != nil {
			return nil, err
		}
		if dir != "" {
			cfg.Templates = config.TemplatesConfig{Dir: dir}
		}
		return config.OpenTemplates(cmd.Context(), cfg.Templates, a.logger)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List template names with their domain and problem names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, err := open(cmd)
			if err != nil {
				return err
			}
			names, err := src.List(cmd.Context())
			if err != nil {
				return err
			}
			if a.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), names)
			}
			rows := make([]table.Row, 0, len(names))
			for _, name := range names {
				t, err := src.Load(cmd.Context(), name)
				if err != nil {
					rows = append(rows, table.Row{name, "", "", err.Error()})
					continue
				}
				domain, _ := pddl.DefinitionName(t.Domain, "domain")
				problem, _ := pddl.DefinitionName(t.Problem, "problem")
				rows = append(rows, table.Row{name, domain, problem, ""})
			}
			writeTable(cmd.OutOrStdout(), table.Row{"Template", "Domain", "Problem", "Error"}, rows)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show NAME",
		Short: "Print both documents of a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := open(cmd)
			if err != nil {
				return err
			}
			t, err := src.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), t)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n%s", withNewline(t.Domain), withNewline(t.Problem))
			return err
		},
	})
	return cmd
}
