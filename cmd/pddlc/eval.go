package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newEvalCmd(a *app) *cobra.Command {
	var (
		ff    factsFlags
		exprs []string
		trace bool
	)

	cmd := &cobra.Command{
		Use:   "eval TEMPLATE",
		Short: "Evaluate goals or expressions against the initial state",
		Long: `Evaluate expressions under the closed-world assumption: a fact holds
exactly when it is in the initial state. Without --expr the goals are
evaluated.

Examples:
  pddlc eval greet.pddl
  pddlc eval greet.pddl --expr "(exists (?o - place) (can_see me ?o))" --trace`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := loadInput(args[0], &ff)
			if err != nil {
				return err
			}
			results, err := in.context.Evaluate(in.resolved, exprs, trace)
			if err != nil {
				return err
			}

			if a.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), results)
			}
			rows := make([]table.Row, 0, len(results))
			for _, r := range results {
				rows = append(rows, table.Row{r.Satisfied, r.Expression})
			}
			writeTable(cmd.OutOrStdout(), table.Row{"Holds", "Expression"}, rows)
			for _, r := range results {
				if len(r.Trace) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n%s\n", r.Expression, strings.Join(r.Trace, "\n"))
				}
			}
			return nil
		},
	}
	ff.register(cmd)
	cmd.Flags().StringArrayVarP(&exprs, "expr", "e", nil, "Expression to evaluate instead of the goals (repeatable)")
	cmd.Flags().BoolVar(&trace, "trace", false, "Print every evaluated node")
	return cmd
}
