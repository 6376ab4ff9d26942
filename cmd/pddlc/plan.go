package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pddlplanning/pddlplanning-go/internal/config"
	"github.com/pddlplanning/pddlplanning-go/ontology"
	"github.com/pddlplanning/pddlplanning-go/planning"
	"github.com/pddlplanning/pddlplanning-go/solver/cache"
	"github.com/pddlplanning/pddlplanning-go/templates"
)

// solverFlags override the solver section of the configuration.
type solverFlags struct {
	kind      string
	url       string
	address   string
	amqpURL   string
	queue     string
	command   string
	args      []string
	timeout   time.Duration
	retries   uint64
	cacheAddr string
	storeDSN  string
}

func (f *solverFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.kind, "solver", "", "Solver client (http, grpc, amqp, exec)")
	cmd.Flags().StringVar(&f.url, "solver-url", "", "HTTP planner endpoint")
	cmd.Flags().StringVar(&f.address, "solver-address", "", "gRPC planner address")
	cmd.Flags().StringVar(&f.amqpURL, "amqp-url", "", "AMQP broker URL")
	cmd.Flags().StringVar(&f.queue, "queue", "", "AMQP request queue")
	cmd.Flags().StringVar(&f.command, "solver-command", "", "Planner binary")
	cmd.Flags().StringArrayVar(&f.args, "solver-arg", nil, "Planner argument; {domain}, {problem} and {plan} are replaced (repeatable)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "Bound on the whole search")
	cmd.Flags().Uint64Var(&f.retries, "retries", 0, "Attempts when the solver is unavailable")
	cmd.Flags().StringVar(&f.cacheAddr, "cache-addr", "", "Redis address caching plans")
	cmd.Flags().StringVar(&f.storeDSN, "store-dsn", "", "PostgreSQL DSN recording searches")
}

func (f *solverFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("solver") {
		cfg.Solver.Kind = f.kind
	}
	if changed("solver-url") {
		cfg.Solver.HTTP.URL = f.url
	}
	if changed("solver-address") {
		cfg.Solver.GRPC.Address = f.address
	}
	if changed("amqp-url") {
		cfg.Solver.AMQP.URL = f.amqpURL
	}
	if changed("queue") {
		cfg.Solver.AMQP.Queue = f.queue
	}
	if changed("solver-command") {
		cfg.Solver.Exec.Command = f.command
	}
	if changed("solver-arg") {
		cfg.Solver.Exec.Args = f.args
	}
	if changed("timeout") {
		cfg.Solver.Timeout = f.timeout
	}
	if changed("retries") {
		cfg.Solver.Retries = f.retries
	}
	if changed("cache-addr") {
		if cfg.Cache == nil {
			cfg.Cache = &cache.Config{}
		}
		cfg.Cache.Addr = f.cacheAddr
	}
	if changed("store-dsn") {
		cfg.Store.Driver = config.StorePostgres
		cfg.Store.Postgres.DSN = f.storeDSN
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = config.StoreNone
	}
}

type planResult struct {
	Template string          `json:"template"`
	Tasks    []ontology.Task `json:"tasks"`
	Filtered bool            `json:"filtered,omitempty"`
}

func newPlanCmd(a *app) *cobra.Command {
	var (
		ff       factsFlags
		sf       solverFlags
		template string
		where    string
		check    bool
	)

	cmd := &cobra.Command{
		Use:   "plan [TEMPLATE]",
		Short: "Search a plan with an external solver",
		Long: `Splice the facts into the template problem and hand both documents to
the configured solver. The solver is wrapped with the cache, retry, timeout
and recording decorators the configuration enables.

Examples:
  pddlc plan greet.pddl --solver http --solver-url http://localhost:8080/plan
  pddlc plan --config pddl.yaml --template greet --where 'action == "greet"'
  pddlc plan greet.pddl --solver exec --solver-command downward \
    --solver-arg --alias --solver-arg lama-first --solver-arg {domain} --solver-arg {problem}`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			sf.apply(cmd, cfg)

			ctx := cmd.Context()
			stack, err := config.Build(ctx, cfg, template != "", a.logger)
			if err != nil {
				return err
			}
			defer stack.Close()

			var t templates.Template
			switch {
			case template != "":
				t, err = stack.Templates.Load(ctx, template)
			case len(args) == 1:
				t, err = readTemplate(args[0])
			default:
				err = fmt.Errorf("a TEMPLATE argument or --template is required")
			}
			if err != nil {
				return err
			}

			in, err := resolveInput(t, &ff)
			if err != nil {
				return err
			}
			if check {
				if err := in.context.LintInput(in.resolved).CheckErrors(); err != nil {
					return err
				}
			}
			problem, err := in.problem()
			if err != nil {
				return err
			}

			tasks, err := search(ctx, stack.Solver, t.Domain, problem, a.logger)
			if err != nil {
				return err
			}
			result := planResult{Template: t.Name, Tasks: tasks}
			if where != "" {
				if result.Tasks, err = planning.FilterTasks(tasks, where); err != nil {
					return err
				}
				result.Filtered = true
			}

			if a.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			for _, task := range result.Tasks {
				fmt.Fprintf(cmd.OutOrStdout(), "(%s)\n", task)
			}
			return nil
		},
	}
	ff.register(cmd)
	sf.register(cmd)
	cmd.Flags().StringVarP(&template, "template", "t", "", "Template name in the configured source")
	cmd.Flags().StringVar(&where, "where", "", `Keep only tasks matching an expression over action, parameters and index`)
	cmd.Flags().BoolVar(&check, "check", false, "Run the blocking lint checks before searching")
	return cmd
}

func search(ctx context.Context, solver planning.Solver, domain, problem string, logger *zap.Logger) ([]ontology.Task, error) {
	start := time.Now()
	tasks, err := solver.SearchPlan(ctx, domain, problem)
	if err != nil {
		logger.Warn("plan search failed", zap.String("kind", planning.Kind(err)), zap.Error(err))
		return nil, err
	}
	logger.Info("found plan", zap.Int("tasks", len(tasks)), zap.Duration("took", time.Since(start)))
	return tasks, nil
}
