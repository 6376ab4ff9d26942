package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pddlplanning/pddlplanning-go/pddl"
	"github.com/pddlplanning/pddlplanning-go/planning"
)

func newRenderCmd(a *app) *cobra.Command {
	var (
		ff          factsFlags
		domainName  string
		problemName string
	)

	cmd := &cobra.Command{
		Use:   "render TEMPLATE",
		Short: "Regenerate the domain and problem documents",
		Long: `Parse a template and generate both documents again in canonical form,
with the facts applied. Domain constants are left out of the objects.

Examples:
  pddlc render greet.pddl --problem-name today`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := loadInput(args[0], &ff)
			if err != nil {
				return err
			}

			r := pddl.DefaultRenderer()
			r.DomainName = in.context.Domain.Name
			r.ProblemName = in.context.Problem.Name
			if len(in.context.Domain.Requirements) > 0 {
				r.Requirements = in.context.Domain.Requirements
			}
			if domainName != "" {
				r.DomainName = domainName
			}
			if problemName != "" {
				r.ProblemName = problemName
			}

			onto, problem := in.context.Planning(in.resolved)
			domainText, problemText := planning.Render(onto, problem, r)
			if a.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"domain": domainText, "problem": problemText})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n%s\n", domainText, problemText)
			return err
		},
	}
	ff.register(cmd)
	cmd.Flags().StringVar(&domainName, "domain-name", "", "Domain name (default: the template's)")
	cmd.Flags().StringVar(&problemName, "problem-name", "", "Problem name (default: the template's)")
	return cmd
}
