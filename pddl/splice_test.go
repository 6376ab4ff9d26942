package pddl

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pddlplanning/pddlplanning-go/internal/testutils"
	"github.com/pddlplanning/pddlplanning-go/ontology"
)

const greetDomainText = `(define (domain generated_domain)
(:requirements :adl)
(:predicates (was_greeted ?o))
)
`

func TestSplitDomainAndProblem(t *testing.T) {
	buffer := greetDomainText + testutils.GreetProblem

	domain, problem := SplitDomainAndProblem(buffer)
	assert.Equal(t, greetDomainText, domain)
	assert.Equal(t, testutils.GreetProblem, problem)
	assert.True(t, strings.HasPrefix(problem, DefineMarker+"(problem"))
}

func TestSplitWithoutProblem(t *testing.T) {
	domain, problem := SplitDomainAndProblem("(:predicates)")
	assert.Equal(t, "(:predicates)", domain)
	assert.Empty(t, problem)
}

func TestReplaceInit(t *testing.T) {
	facts := []ontology.Expression{
		ontology.FactFromStrings("can_see", "me", "world"),
		ontology.FactFromStrings("was_greeted", "world"),
	}

	out, err := ReplaceInit(testutils.GreetProblem, facts)
	require.NoError(t, err)

	old := "(:init\n  (can_see me world)\n)"
	idx := strings.Index(testutils.GreetProblem, old)
	require.GreaterOrEqual(t, idx, 0)
	want := testutils.GreetProblem[:idx] +
		"(:init\n(can_see me world)\n  (was_greeted world))" +
		testutils.GreetProblem[idx+len(old):]
	assert.Equal(t, want, out)
}

func TestReplaceInitKeepsLatestWrite(t *testing.T) {
	a := []ontology.Expression{ontology.FactFromStrings("p", "a"), ontology.FactFromStrings("q")}
	b := []ontology.Expression{ontology.FactFromStrings("r", "b")}

	once, err := ReplaceInit(testutils.GreetProblem, b)
	require.NoError(t, err)
	first, err := ReplaceInit(testutils.GreetProblem, a)
	require.NoError(t, err)
	twice, err := ReplaceInit(first, b)
	require.NoError(t, err)

	assert.Equal(t, once, twice)

	empty, err := ReplaceInit(testutils.GreetProblem, nil)
	require.NoError(t, err)
	again, err := ReplaceInit(empty, b)
	require.NoError(t, err)
	assert.Equal(t, once, again)
}

func TestReplaceObjects(t *testing.T) {
	r := ontology.NewRegistry()
	r.MustDefineType("place", "")
	r.MustDefineType("human", "")
	objects := []ontology.Instance{r.MustInstance("world", "place"), r.MustInstance("alice", "human")}

	out, err := ReplaceObjects(testutils.GreetProblem, objects)
	require.NoError(t, err)
	assert.Contains(t, out, "(:objects\n    world - place\n    alice - human\n    )")
	assert.NotContains(t, out, "(:objects\n  world - place\n)")
	assert.Contains(t, out, "(:init\n  (can_see me world)\n)")
}

func TestReplaceGoal(t *testing.T) {
	g1 := ontology.FactFromStrings("was_greeted", "world")
	g2 := ontology.FactFromStrings("was_greeted", "alice")

	tests := []struct {
		name  string
		goals []ontology.Expression
		want  string
	}{
		{name: "none", want: "(:goal)"},
		{name: "one", goals: []ontology.Expression{g1}, want: "(:goal\n    (was_greeted world)\n    )"},
		{name: "several", goals: []ontology.Expression{g1, g2},
			want: "(:goal\n    (and\n    (was_greeted world)\n    (was_greeted alice)\n    ))"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ReplaceGoal(testutils.GreetProblem, tt.goals)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
			assert.NotContains(t, out, "forall")
			assert.True(t, strings.HasSuffix(out, "\n(:metric minimize (total-cost)))"))
		})
	}
}

func TestReplaceMissingSection(t *testing.T) {
	problem := "(define (problem p) (:domain d) (:objects a))"

	_, err := ReplaceInit(problem, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ontology.ErrMissingSection))
	assert.EqualError(t, err, "no init section found in PDDL problem")

	_, err = ReplaceGoal(problem, nil)
	assert.True(t, errors.Is(err, ontology.ErrMissingSection))

	_, err = ReplaceObjects("(define (problem p))", nil)
	assert.True(t, errors.Is(err, ontology.ErrMissingSection))

	_, err = ReplaceInit("(define (problem p) (:init", nil)
	assert.True(t, errors.Is(err, ontology.ErrMalformedInput))
}

func TestReplaceLeavesCommentsAlone(t *testing.T) {
	problem := "(define (problem p)\n; (:init (old))\n(:init (real)))"

	out, err := ReplaceInit(problem, []ontology.Expression{ontology.FactFromStrings("new")})
	require.NoError(t, err)
	assert.Equal(t, "(define (problem p)\n; (:init (old))\n(:init\n(new)))", out)
}

func TestDefinitionName(t *testing.T) {
	name, ok := DefinitionName(testutils.GreetProblem, "problem")
	require.True(t, ok)
	assert.Equal(t, "greet_everyone", name)

	name, ok = DefinitionName(greetDomainText, "domain")
	require.True(t, ok)
	assert.Equal(t, "generated_domain", name)

	_, ok = DefinitionName(testutils.GreetProblem, "domain")
	assert.False(t, ok)
	_, ok = DefinitionName("(define (domain))", "domain")
	assert.False(t, ok)
	_, ok = DefinitionName("(define", "domain")
	assert.False(t, ok)
}
