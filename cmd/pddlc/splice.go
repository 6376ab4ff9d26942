package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSpliceCmd(a *app) *cobra.Command {
	var (
		ff  factsFlags
		out string
	)

	cmd := &cobra.Command{
		Use:   "splice TEMPLATE",
		Short: "Replace the objects, init and goal sections of a problem",
		Long: `Replace sections of the template problem with the given facts. Sections
the facts do not mention are copied unchanged, byte for byte.

Examples:
  pddlc splice greet.pddl --facts today.yaml
  pddlc splice greet/ --object "alice - human" --init "(can_see me alice)"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := loadInput(args[0], &ff)
			if err != nil {
				return err
			}
			problem, err := in.problem()
			if err != nil {
				return err
			}
			a.logger.Debug("spliced problem",
				zap.Bool("objects", in.resolved.HasObjects),
				zap.Bool("init", in.resolved.HasInit),
				zap.Bool("goals", in.resolved.HasGoals))
			return writeOutput(cmd.OutOrStdout(), out, withNewline(problem))
		},
	}
	ff.register(cmd)
	cmd.Flags().StringVar(&out, "out", "", "Write the problem to this file")
	return cmd
}
