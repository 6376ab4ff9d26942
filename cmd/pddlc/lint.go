package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pddlplanning/pddlplanning-go/lint"
)

var errLintFailed = errors.New("lint found errors")

func newLintCmd(a *app) *cobra.Command {
	var (
		ff     factsFlags
		strict bool
		check  bool
	)

	cmd := &cobra.Command{
		Use:   "lint TEMPLATE",
		Short: "Check a domain and problem for mistakes",
		Long: `Report undeclared predicates and objects, unreachable goals, arity
mismatches, unused predicates and duplicate objects. With --check only the
blocking checks run, and the first failure is reported.

Examples:
  pddlc lint greet.pddl
  pddlc lint greet.pddl --facts today.yaml --strict`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := loadInput(args[0], &ff)
			if err != nil {
				return err
			}
			lintInput := in.context.LintInput(in.resolved)

			if check {
				if err := lintInput.CheckErrors(); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return err
			}

			issues := lint.LintWithOptions(lintInput, lint.Options{Strict: strict})
			if a.output == outputJSON {
				if err := writeJSON(cmd.OutOrStdout(), issues); err != nil {
					return err
				}
			} else {
				rows := make([]table.Row, 0, len(issues))
				for _, issue := range issues {
					rows = append(rows, table.Row{issue.Severity, issue.Code, issue.Context, issue.Message, strings.Join(issue.Names, ", ")})
				}
				writeTable(cmd.OutOrStdout(), table.Row{"Severity", "Code", "Context", "Message", "Names"}, rows)
			}
			if lint.HasErrors(issues) {
				return errLintFailed
			}
			return nil
		},
	}
	ff.register(cmd)
	cmd.Flags().BoolVar(&strict, "strict", false, "Report warnings as errors")
	cmd.Flags().BoolVar(&check, "check", false, "Run only the blocking checks")
	return cmd
}
