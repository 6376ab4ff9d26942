package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pddlplanning/pddlplanning-go/pddl"
)

func newSplitCmd(a *app) *cobra.Command {
	var domainOut, problemOut string

	cmd := &cobra.Command{
		Use:   "split FILE",
		Short: "Split a combined document into its domain and problem",
		Long: `Split a buffer holding a domain followed by a problem at the second
"(define " marker.

Examples:
  pddlc split greet.pddl --domain-out domain.pddl --problem-out problem.pddl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			domain, problem := pddl.SplitDomainAndProblem(string(data))
			a.logger.Debug("split document")

			if a.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"domain": domain, "problem": problem})
			}
			if domainOut == "" && problemOut == "" {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\n;; ----\n%s", withNewline(domain), withNewline(problem))
				return err
			}
			if err := writeOutput(cmd.OutOrStdout(), domainOut, withNewline(domain)); err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), problemOut, withNewline(problem))
		},
	}
	cmd.Flags().StringVar(&domainOut, "domain-out", "", "Write the domain to this file")
	cmd.Flags().StringVar(&problemOut, "problem-out", "", "Write the problem to this file")
	return cmd
}
