package lint

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pddlplanning/pddlplanning-go/internal/testutils"
	"github.com/pddlplanning/pddlplanning-go/ontology"
)

func greetInput() (*testutils.GreetDomain, Input) {
	d := testutils.NewGreetDomain()
	return d, Input{
		Types:      d.Types,
		Constants:  d.Constants,
		Predicates: d.Predicates,
		Actions:    d.Actions,
		Objects:    []ontology.Instance{d.World},
		Goals:      []ontology.Expression{d.Goal},
	}
}

func hasIssue(issues []Issue, code string) bool {
	for _, issue := range issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}

func TestCheckErrorsPassesGreetScenario(t *testing.T) {
	_, in := greetInput()
	assert.NoError(t, CheckErrors(in.Types, in.Constants, in.Predicates, in.Actions, in.Objects, in.Init, in.Goals))
}

func TestCheckErrorsUndeclaredPredicateInGoal(t *testing.T) {
	_, in := greetInput()
	in.Goals = append(in.Goals, ontology.FactFromStrings("was_hugged", "world"))

	err := in.CheckErrors()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ontology.ErrIllegalUsage))

	var usage *ontology.IllegalUsageError
	require.True(t, errors.As(err, &usage))
	assert.Equal(t, "goals", usage.Context)
	assert.Equal(t, []string{"was_hugged"}, usage.Names)
	assert.Equal(t, "goals use undefined predicates [was_hugged]", err.Error())
}

func TestCheckErrorsUndeclaredPredicateInAction(t *testing.T) {
	d, in := greetInput()
	in.Actions = append(in.Actions, ontology.Action{
		Name:         "hug",
		Parameters:   d.Greet.Parameters,
		Precondition: ontology.Fact("is_friend", d.Greet.Parameters[0]),
		Effect:       ontology.Fact("was_greeted", d.Greet.Parameters[0]),
	})

	err := in.CheckErrors()
	var usage *ontology.IllegalUsageError
	require.True(t, errors.As(err, &usage))
	assert.Equal(t, "actions", usage.Context)
	assert.Equal(t, []string{"is_friend"}, usage.Names)
}

func TestUndeclaredPredicateExactlyWhenUndeclared(t *testing.T) {
	d, in := greetInput()
	for _, pred := range d.Predicates {
		in.Goals = []ontology.Expression{ontology.FactFromStrings(pred.Word, "world")}
		assert.False(t, hasIssue(in.undeclaredPredicates(), CodeUndeclaredPredicate), pred.Word)
	}

	in.Goals = []ontology.Expression{ontology.Not(ontology.FactFromStrings("nope"))}
	assert.True(t, hasIssue(in.undeclaredPredicates(), CodeUndeclaredPredicate))
	assert.True(t, hasName(in.CheckErrors(), "nope"))
}

func hasName(err error, name string) bool {
	var usage *ontology.IllegalUsageError
	if !errors.As(err, &usage) {
		return false
	}
	for _, n := range usage.Names {
		if n == name {
			return true
		}
	}
	return false
}

func TestCheckErrorsUnreachableGoal(t *testing.T) {
	d, in := greetInput()
	in.Predicates = append(in.Predicates, ontology.Fact("is_happy", d.World))
	in.Goals = append(in.Goals, ontology.FactFromStrings("is_happy", "world"))

	err := in.CheckErrors()
	require.Error(t, err)
	var usage *ontology.IllegalUsageError
	require.True(t, errors.As(err, &usage))
	assert.Equal(t, []string{"is_happy"}, usage.Names)
	assert.Contains(t, err.Error(), "is_happy")
}

func TestUnreachableGoalAlternatives(t *testing.T) {
	d, in := greetInput()
	in.Predicates = append(in.Predicates, ontology.Fact("is_happy", d.World))

	in.Goals = []ontology.Expression{ontology.Or(ontology.FactFromStrings("is_happy", "world"), d.Greets(d.World))}
	assert.NoError(t, in.CheckErrors())

	in.Goals = []ontology.Expression{ontology.Or(ontology.FactFromStrings("is_happy", "world"), ontology.FactFromStrings("is_human", "world"))}
	err := in.CheckErrors()
	require.Error(t, err)
	assert.True(t, hasName(err, "{is_happy, is_human}"))

	in.Goals = []ontology.Expression{ontology.Imply(ontology.FactFromStrings("is_happy", "world"), d.Greets(d.World))}
	assert.NoError(t, in.CheckErrors())

	in.Goals = []ontology.Expression{ontology.FactFromStrings("was_waved_at", "world")}
	assert.NoError(t, in.CheckErrors())
}

func TestExtractPredicates(t *testing.T) {
	d := testutils.NewGreetDomain()

	assert.Equal(t, []string{"was_greeted"}, ExtractPredicates(d.Greet.Effect))
	assert.Equal(t, []string{"is_human", "was_waved_at"}, ExtractPredicates(d.Wave.Effect))
	assert.Equal(t, []string{"was_greeted"}, ExtractPredicates(d.Goal))
	assert.Empty(t, ExtractPredicates(ontology.InitialCostIsZero()))
	assert.Empty(t, ExtractPredicates(ontology.Expression{}))
}

func TestExtractConsequentPredicates(t *testing.T) {
	d := testutils.NewGreetDomain()
	a, b, c := ontology.FactFromStrings("a"), ontology.FactFromStrings("b"), ontology.FactFromStrings("c")

	assert.Equal(t, []Alternatives{{"was_greeted"}}, ExtractConsequentPredicates(d.Greet.Effect))
	assert.Equal(t, []Alternatives{{"was_waved_at"}}, ExtractConsequentPredicates(d.Wave.Effect))
	assert.Equal(t, []Alternatives{{"a", "b"}, {"c"}}, ExtractConsequentPredicates(ontology.And(ontology.Or(b, ontology.Not(a)), c, c)))
	assert.Nil(t, ExtractConsequentPredicates(ontology.Or(ontology.IncreaseCost(1))))
	assert.Equal(t, "{a, b}", Alternatives{"a", "b"}.String())
}

func TestLintReportsWarnings(t *testing.T) {
	d, in := greetInput()
	in.Objects = []ontology.Instance{d.World, d.World, d.Agent}
	in.Init = []ontology.Expression{
		ontology.FactFromStrings("can_see", "me", "mars"),
		ontology.FactFromStrings("is_human", "world", "extra"),
	}

	issues := Lint(in)
	assert.False(t, HasErrors(issues))
	assert.True(t, hasIssue(issues, CodeUndeclaredObject))
	assert.True(t, hasIssue(issues, CodeDuplicateObject))
	assert.True(t, hasIssue(issues, CodeArityMismatch))
	assert.False(t, hasIssue(issues, CodeUnusedPredicate))

	var undeclared []string
	for _, issue := range issues {
		if issue.Code == CodeUndeclaredObject {
			undeclared = append(undeclared, issue.Names...)
		}
	}
	assert.Equal(t, []string{"mars", "extra"}, undeclared)

	strict := LintWithOptions(in, Options{Strict: true})
	assert.True(t, HasErrors(strict))
}

func TestLintBoundVariablesAreDeclared(t *testing.T) {
	_, in := greetInput()
	issues := Lint(in)
	assert.False(t, hasIssue(issues, CodeUndeclaredObject))
}

func TestLintUnusedPredicate(t *testing.T) {
	d, in := greetInput()
	in.Predicates = append(in.Predicates, ontology.Fact("is_sleeping", d.World))

	issues := Lint(in)
	require.True(t, hasIssue(issues, CodeUnusedPredicate))
	for _, issue := range issues {
		if issue.Code == CodeUnusedPredicate {
			assert.Equal(t, []string{"is_sleeping"}, issue.Names)
			assert.Equal(t, SeverityWarning, issue.Severity)
		}
	}
}

func TestLintCarriesBlockingChecks(t *testing.T) {
	_, in := greetInput()
	in.Goals = append(in.Goals, ontology.FactFromStrings("was_hugged", "world"))

	issues := Lint(in)
	assert.True(t, HasErrors(issues))
	assert.True(t, hasIssue(issues, CodeUndeclaredPredicate))
	assert.True(t, hasIssue(issues, CodeUnreachableGoal))
}
