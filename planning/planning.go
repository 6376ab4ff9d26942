package planning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pddlplanning/pddlplanning-go/eval"
	"github.com/pddlplanning/pddlplanning-go/lint"
	"github.com/pddlplanning/pddlplanning-go/ontology"
	"github.com/pddlplanning/pddlplanning-go/pddl"
)

// Ontology is the static part of a planning domain.
type Ontology struct {
	Types      []*ontology.Type
	Constants  []ontology.Instance
	Predicates []ontology.Expression
	Actions    []ontology.Action
}

// Problem is the dynamic part: what exists, what holds, what is wanted.
type Problem struct {
	Objects []ontology.Instance
	Init    []ontology.Expression
	Goals   []ontology.Expression
}

type options struct {
	logger   *zap.Logger
	renderer pddl.Renderer
}

// Option configures the planning helpers.
type Option func(*options)

// WithLogger logs each step of the planning helpers. Without it they are
// silent and skip goal analysis.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRenderer sets the names and requirements of generated documents.
func WithRenderer(r pddl.Renderer) Option {
	return func(o *options) {
		o.renderer = r
	}
}

func newOptions(opts []Option) *options {
	o := &options{renderer: pddl.DefaultRenderer()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) log() *zap.Logger {
	if o.logger == nil {
		return zap.NewNop()
	}
	return o.logger
}

// AdaptProblemAndSearchPlan replaces the objects and the initial state of a
// problem document, then asks the solver for a plan.
func AdaptProblemAndSearchPlan(
	ctx context.Context,
	solver Solver,
	domain, problemBase string,
	objects []ontology.Instance,
	init []ontology.Expression,
	opts ...Option,
) ([]ontology.Task, error) {
	o := newOptions(opts)
	return adaptAndSearch(ctx, solver, domain, problemBase, objects, init, o)
}

// AdaptProblemAndSearchPlanWithGoals replaces the goal section first, then
// behaves like AdaptProblemAndSearchPlan.
func AdaptProblemAndSearchPlanWithGoals(
	ctx context.Context,
	solver Solver,
	domain, problemBase string,
	objects []ontology.Instance,
	init, goals []ontology.Expression,
	opts ...Option,
) ([]ontology.Task, error) {
	o := newOptions(opts)
	o.log().Debug("goals", zap.Strings("goals", ontology.Strings(goals)))
	problem, err := pddl.ReplaceGoal(problemBase, goals)
	if err != nil {
		return nil, fmt.Errorf("adapting goals: %w", err)
	}
	return adaptAndSearch(ctx, solver, domain, problem, objects, init, o)
}

func adaptAndSearch(
	ctx context.Context,
	solver Solver,
	domain, problem string,
	objects []ontology.Instance,
	init []ontology.Expression,
	o *options,
) ([]ontology.Task, error) {
	logger := o.log()

	logger.Debug("current objects", zap.Strings("objects", ontology.InstanceNames(objects)))
	problem, err := pddl.ReplaceObjects(problem, objects)
	if err != nil {
		return nil, fmt.Errorf("adapting objects: %w", err)
	}
	logger.Debug("initial state", zap.Strings("init", ontology.Strings(init)))
	problem, err = pddl.ReplaceInit(problem, init)
	if err != nil {
		return nil, fmt.Errorf("adapting initial state: %w", err)
	}

	return search(ctx, solver, domain, problem, logger)
}

func search(ctx context.Context, solver Solver, domain, problem string, logger *zap.Logger) ([]ontology.Task, error) {
	start := time.Now()
	plan, err := solver.SearchPlan(ctx, domain, problem)
	elapsed := time.Since(start)
	if err != nil {
		logger.Warn("plan search failed", zap.Duration("elapsed", elapsed), zap.String("kind", Kind(err)), zap.Error(err))
		return nil, err
	}
	logger.Info("found plan", zap.Duration("elapsed", elapsed), zap.Int("tasks", len(plan)),
		zap.String("plan", ontology.FormatPlan(plan)))
	return plan, nil
}

// SearchPlan renders the domain and the problem, then asks the solver for a
// plan. Constants are left out of the problem's objects since some planners
// reject names declared twice.
func SearchPlan(ctx context.Context, solver Solver, onto Ontology, problem Problem, opts ...Option) ([]ontology.Task, error) {
	o := newOptions(opts)
	domainText, problemText := Render(onto, problem, o.renderer)
	return search(ctx, solver, domainText, problemText, o.log())
}

// Render generates the domain and problem documents for onto and problem.
func Render(onto Ontology, problem Problem, r pddl.Renderer) (domain, problemText string) {
	domain = r.Domain(onto.Types, onto.Constants, onto.Predicates, onto.Actions)
	problemText = r.Problem(withoutConstants(problem.Objects, onto.Constants), problem.Init, problem.Goals)
	return domain, problemText
}

func withoutConstants(objects, constants []ontology.Instance) []ontology.Instance {
	names := make(map[string]struct{}, len(constants))
	for _, c := range constants {
		names[c.Name()] = struct{}{}
	}
	out := make([]ontology.Instance, 0, len(objects))
	for _, obj := range objects {
		if _, ok := names[obj.Name()]; !ok {
			out = append(out, obj)
		}
	}
	return out
}

// Check runs the blocking validation of a problem against its ontology.
func Check(onto Ontology, problem Problem) error {
	return lint.CheckErrors(onto.Types, onto.Constants, onto.Predicates, onto.Actions,
		problem.Objects, problem.Init, problem.Goals)
}

// CheckProblemAndSearchPlan analyzes the goals when a logger is set, checks
// the problem, then searches a plan.
func CheckProblemAndSearchPlan(ctx context.Context, solver Solver, onto Ontology, problem Problem, opts ...Option) ([]ontology.Task, error) {
	o := newOptions(opts)
	if o.logger != nil {
		if _, err := eval.AnalyzeGoals(problem.Objects, problem.Init, problem.Goals, o.logger); err != nil {
			return nil, fmt.Errorf("analyzing goals: %w", err)
		}
	}
	if err := Check(onto, problem); err != nil {
		return nil, err
	}
	domainText, problemText := Render(onto, problem, o.renderer)
	return search(ctx, solver, domainText, problemText, o.log())
}

// SearchPlanForInit replaces the initial state of a problem document and
// asks the solver for a plan.
func SearchPlanForInit(ctx context.Context, solver Solver, domain, problem string, init []ontology.Expression, opts ...Option) ([]ontology.Task, error) {
	o := newOptions(opts)
	logger := o.log()

	withInit, err := pddl.ReplaceInit(problem, init)
	if err != nil {
		return nil, fmt.Errorf("adapting initial state: %w", err)
	}
	logger.Debug("searching plan for init", zap.String("init", strings.Join(ontology.Strings(init), "\n")))
	return search(ctx, solver, domain, withInit, logger)
}
