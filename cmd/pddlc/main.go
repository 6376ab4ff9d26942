// Command pddlc works with PDDL domain and problem documents: it splits and
// splices them, evaluates goals, lints, renders and asks a solver for plans.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pddlplanning/pddlplanning-go/internal/config"
)

// Version is set at build time.
var Version = "dev"

type app struct {
	configPath string
	verbose    bool
	output     string

	logger *zap.Logger
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopmentConfig().Build()
}

// loadConfig returns the configuration file contents, or an empty
// configuration without --config.
func (a *app) loadConfig() (*config.Config, error) {
	if a.configPath == "" {
		return &config.Config{}, nil
	}
	return config.Load(a.configPath)
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "pddlc",
		Short: "PDDL document tooling",
		Long: `pddlc splits, splices, evaluates, lints and renders PDDL domain and
problem documents, and searches plans with an external solver.

A TEMPLATE argument is either a .pddl file holding the domain followed by the
problem, or a directory holding domain.pddl and problem.pddl.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(a.verbose)
			if err != nil {
				return fmt.Errorf("creating logger: %w", err)
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML/JSON config file (solver, store, templates)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log every step to stderr")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "text", "Output format (text, json)")
	_ = root.RegisterFlagCompletionFunc("output", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(
		newSplitCmd(a),
		newSpliceCmd(a),
		newEvalCmd(a),
		newLintCmd(a),
		newRenderCmd(a),
		newPlanCmd(a),
		newTemplatesCmd(a),
		newHistoryCmd(a),
		newMigrateCmd(a),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
