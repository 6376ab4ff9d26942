package planning

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pddlplanning/pddlplanning-go/internal/testutils"
	"github.com/pddlplanning/pddlplanning-go/ontology"
	"github.com/pddlplanning/pddlplanning-go/pddl"
)

func greetPlan() []ontology.Task {
	return []ontology.Task{ontology.NewTask("greet", "world"), ontology.NewTask("greet", "alice")}
}

func greetSetup() (*testutils.GreetDomain, Ontology, Problem) {
	d := testutils.NewGreetDomain()
	onto := Ontology{Types: d.Types, Constants: d.Constants, Predicates: d.Predicates, Actions: d.Actions}
	problem := Problem{
		Objects: d.Objects,
		Init:    []ontology.Expression{ontology.Fact("can_see", d.Agent, d.World)},
		Goals:   []ontology.Expression{d.Goal},
	}
	return d, onto, problem
}

func TestAdaptProblemAndSearchPlan(t *testing.T) {
	d := testutils.NewGreetDomain()
	solver := &testutils.StubSolver{Plan: greetPlan()}
	init := []ontology.Expression{d.Greets(d.World)}

	plan, err := AdaptProblemAndSearchPlan(context.Background(), solver, "(define (domain d))",
		testutils.GreetProblem, d.Objects[1:], init)
	require.NoError(t, err)
	assert.Equal(t, greetPlan(), plan)

	calls := solver.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "(define (domain d))", calls[0].Domain)
	assert.Contains(t, calls[0].Problem, "(:objects\n  world - place\n  alice - human\n)")
	assert.Contains(t, calls[0].Problem, "(:init\n  (was_greeted world)\n)")
	assert.NotContains(t, calls[0].Problem, "can_see")
	assert.Contains(t, calls[0].Problem, "(forall (?o - entity) (was_greeted ?o))")
}

func TestAdaptProblemAndSearchPlanWithGoals(t *testing.T) {
	d := testutils.NewGreetDomain()
	solver := &testutils.StubSolver{Plan: greetPlan()}
	goals := []ontology.Expression{d.Greets(d.World)}

	_, err := AdaptProblemAndSearchPlanWithGoals(context.Background(), solver, "",
		testutils.GreetProblem, d.Objects, nil, goals)
	require.NoError(t, err)

	problem := solver.Calls()[0].Problem
	assert.Contains(t, problem, "(:goal\n    (was_greeted world)\n  )")
	assert.NotContains(t, problem, "forall")
}

func TestAdaptProblemMissingSection(t *testing.T) {
	solver := &testutils.StubSolver{}
	_, err := AdaptProblemAndSearchPlan(context.Background(), solver, "", "(define (problem p))", nil, nil)
	assert.ErrorIs(t, err, ontology.ErrMissingSection)
	assert.Empty(t, solver.Calls())

	var missing *ontology.MissingSectionError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, ":objects", missing.Section)
}

func TestSearchPlanLeavesConstantsOutOfObjects(t *testing.T) {
	_, onto, problem := greetSetup()
	solver := &testutils.StubSolver{Plan: greetPlan()}

	_, err := SearchPlan(context.Background(), solver, onto, problem)
	require.NoError(t, err)

	call := solver.Calls()[0]
	assert.Contains(t, call.Domain, "(:constants\n    me - agent\n)")
	assert.Contains(t, call.Problem, "(:objects\n  world - place\n  alice - human\n)")
	assert.NotContains(t, call.Problem, "me - agent")
}

func TestSearchPlanWithRenderer(t *testing.T) {
	_, onto, problem := greetSetup()
	solver := &testutils.StubSolver{}
	r := pddl.Renderer{DomainName: "greetings", ProblemName: "today", Requirements: []string{":adl"}}

	_, err := SearchPlan(context.Background(), solver, onto, problem, WithRenderer(r))
	require.NoError(t, err)

	call := solver.Calls()[0]
	assert.True(t, strings.HasPrefix(call.Domain, "(define (domain greetings)\n(:requirements :adl)"))
	assert.True(t, strings.HasPrefix(call.Problem, "(define (problem today)\n(:domain greetings)"))
}

func TestCheckProblemAndSearchPlan(t *testing.T) {
	_, onto, problem := greetSetup()
	solver := &testutils.StubSolver{Plan: greetPlan()}

	core, logs := observer.New(zapcore.DebugLevel)
	plan, err := CheckProblemAndSearchPlan(context.Background(), solver, onto, problem, WithLogger(zap.New(core)))
	require.NoError(t, err)
	assert.Equal(t, greetPlan(), plan)

	assert.Equal(t, 1, logs.FilterMessage("evaluated goals").Len())
	found := logs.FilterMessage("found plan").All()
	require.Len(t, found, 1)
	assert.Equal(t, int64(2), found[0].ContextMap()["tasks"])
}

func TestCheckProblemAndSearchPlanRejectsUndeclaredGoal(t *testing.T) {
	_, onto, problem := greetSetup()
	problem.Goals = append(problem.Goals, ontology.FactFromStrings("was_hugged", "alice"))
	solver := &testutils.StubSolver{}

	_, err := CheckProblemAndSearchPlan(context.Background(), solver, onto, problem)
	assert.ErrorIs(t, err, ontology.ErrIllegalUsage)
	assert.Empty(t, solver.Calls())
	assert.Equal(t, "translation", Kind(Classify(err)))
}

func TestSearchPlanForInit(t *testing.T) {
	d := testutils.NewGreetDomain()
	solver := &testutils.StubSolver{}
	init := []ontology.Expression{d.Greets(d.World), ontology.Fact("is_human", d.Objects[2])}

	_, err := SearchPlanForInit(context.Background(), solver, "dom", testutils.GreetProblem, init)
	require.NoError(t, err)
	assert.Contains(t, solver.Calls()[0].Problem, "(:init\n  (was_greeted world)\n  (is_human alice)\n)")
	assert.Contains(t, solver.Calls()[0].Problem, "(:objects\n  world - place\n)")
}

func TestSearchLogsFailures(t *testing.T) {
	_, onto, problem := greetSetup()
	solver := &testutils.StubSolver{Err: &PlanningError{Message: "no plan"}}

	core, logs := observer.New(zapcore.WarnLevel)
	_, err := SearchPlan(context.Background(), solver, onto, problem, WithLogger(zap.New(core)))
	assert.ErrorIs(t, err, ErrPlanning)

	failed := logs.FilterMessage("plan search failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "planning", failed[0].ContextMap()["kind"])
}

func TestCheck(t *testing.T) {
	_, onto, problem := greetSetup()
	assert.NoError(t, Check(onto, problem))

	problem.Goals = []ontology.Expression{ontology.Fact("is_human", problem.Objects[2])}
	err := Check(onto, problem)
	var illegal *ontology.IllegalUsageError
	require.True(t, errors.As(err, &illegal))
	assert.Equal(t, []string{"is_human"}, illegal.Names)
}
