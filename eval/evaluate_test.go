package eval

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pddlplanning/pddlplanning-go/internal/testutils"
	"github.com/pddlplanning/pddlplanning-go/ontology"
)

func fact(pred string, args ...string) ontology.Expression {
	return ontology.FactFromStrings(pred, args...)
}

func mustEvaluate(t *testing.T, expr ontology.Expression, objects []ontology.Instance, facts ...ontology.Expression) bool {
	t.Helper()
	ok, err := Evaluate(expr, objects, facts)
	require.NoError(t, err)
	return ok
}

func TestEvaluateConnectives(t *testing.T) {
	p, q := fact("p"), fact("q", "a")
	state := []ontology.Expression{p}

	tests := []struct {
		name string
		expr ontology.Expression
		want bool
	}{
		{"member", p, true},
		{"non member", q, false},
		{"empty and", ontology.And(), true},
		{"empty or", ontology.Or(), false},
		{"and", ontology.And(p, q), false},
		{"or", ontology.Or(q, p), true},
		{"not", ontology.Not(q), true},
		{"double not", ontology.Not(ontology.Not(p)), true},
		{"imply false premise", ontology.Imply(q, q), true},
		{"imply true premise", ontology.Imply(p, q), false},
		{"when", ontology.When(p, p), true},
		{"when true premise", ontology.When(p, q), false},
		{"assignment is a fact", ontology.InitialCostIsZero(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mustEvaluate(t, tt.expr, nil, state...))
		})
	}
}

func TestEvaluateAndIsConjunctionOfParts(t *testing.T) {
	facts := []ontology.Expression{fact("a"), fact("c")}
	parts := []ontology.Expression{fact("a"), fact("b"), fact("c")}

	for mask := 0; mask < 1<<len(parts); mask++ {
		var chosen []ontology.Expression
		want := true
		for i, part := range parts {
			if mask&(1<<i) == 0 {
				continue
			}
			chosen = append(chosen, part)
			want = want && mustEvaluate(t, part, nil, facts...)
		}
		assert.Equal(t, want, mustEvaluate(t, ontology.And(chosen...), nil, facts...), "mask %b", mask)
	}
}

func TestEvaluateMatchesStructurally(t *testing.T) {
	d := testutils.NewGreetDomain()
	typed := d.Greets(d.World)

	assert.True(t, mustEvaluate(t, typed, nil, fact("was_greeted", "world")))
	assert.True(t, mustEvaluate(t, fact("was_greeted", "world"), nil, typed))
	assert.False(t, mustEvaluate(t, fact("was_greeted", "world", "twice"), nil, typed))
}

func TestEvaluateGreetScenario(t *testing.T) {
	d := testutils.NewGreetDomain()
	objects := []ontology.Instance{d.World}

	assert.False(t, mustEvaluate(t, d.Goal, objects))
	assert.True(t, mustEvaluate(t, d.Goal, objects, d.Greets(d.World)))
}

func TestForallFollowsSubtypes(t *testing.T) {
	d := testutils.NewGreetDomain()
	alice := d.Registry.MustInstance("alice", "human")

	goal := d.Goal
	assert.False(t, mustEvaluate(t, goal, d.Objects, d.Greets(d.World)))
	assert.True(t, mustEvaluate(t, goal, d.Objects, d.Greets(d.World), d.Greets(alice)))

	exists := ontology.Exists(d.Registry.MustInstance("?h", "human"), fact("was_greeted", "?h"))
	assert.False(t, mustEvaluate(t, exists, d.Objects, d.Greets(d.World)))
	assert.True(t, mustEvaluate(t, exists, d.Objects, d.Greets(alice)))
}

func TestQuantifiersOverEmptyType(t *testing.T) {
	r := ontology.NewRegistry()
	r.MustDefineType("ghost", "")
	g := r.MustInstance("?g", "ghost")
	body := ontology.Fact("haunts", g)

	assert.True(t, mustEvaluate(t, ontology.Forall(g, body), []ontology.Instance{ontology.Literal("world")}))
	assert.False(t, mustEvaluate(t, ontology.Exists(g, body), []ontology.Instance{ontology.Literal("world")}))
}

func TestNestedQuantifiers(t *testing.T) {
	r := ontology.NewRegistry()
	r.MustDefineType("node", "")
	a, b := r.MustInstance("a", "node"), r.MustInstance("b", "node")
	x, y := r.MustInstance("?x", "node"), r.MustInstance("?y", "node")

	connected := ontology.Forall(x, ontology.Exists(y, ontology.Fact("edge", x, y)))
	objects := []ontology.Instance{a, b}

	assert.False(t, mustEvaluate(t, connected, objects, fact("edge", "a", "b")))
	assert.True(t, mustEvaluate(t, connected, objects, fact("edge", "a", "b"), fact("edge", "b", "b")))
}

func TestEvaluateErrors(t *testing.T) {
	tests := []struct {
		name string
		expr ontology.Expression
	}{
		{"empty", ontology.Expression{}},
		{"empty inside and", ontology.And(fact("p"), ontology.Expression{})},
		{"not without argument", ontology.MustExpression("not")},
		{"imply with one argument", ontology.MustExpression("imply", fact("p"))},
		{"forall without body", ontology.MustExpression("forall", ontology.Expression{Word: "?x - object"})},
		{"forall with bad declaration", ontology.MustExpression("forall", ontology.Expression{Word: "?x - "}, fact("p"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(tt.expr, nil, []ontology.Expression{fact("p")})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ontology.ErrEvaluation), err.Error())
		})
	}

	_, err := Evaluate(ontology.Expression{}, nil, nil)
	assert.EqualError(t, err, "cannot evaluate empty expression")
}

func TestTraceIsObservational(t *testing.T) {
	d := testutils.NewGreetDomain()
	objects := []ontology.Instance{d.World}
	facts := []ontology.Expression{d.Greets(d.World)}

	var marks []Mark
	traced, err := Evaluate(d.Goal, objects, facts, WithTrace(func(m Mark) { marks = append(marks, m) }))
	require.NoError(t, err)
	plain, err := Evaluate(d.Goal, objects, facts)
	require.NoError(t, err)

	assert.Equal(t, plain, traced)
	require.Len(t, marks, 2)
	assert.Equal(t, "✓ (was_greeted world)", marks[0].String())
	assert.Equal(t, 1, marks[0].Depth)
	assert.Equal(t, "✓ (forall (?o - entity) (was_greeted ?o))", marks[1].String())
	assert.Equal(t, 0, marks[1].Depth)
}

func TestFactSet(t *testing.T) {
	s := NewFactSet(fact("a"), fact("b"), fact("a"))
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains(fact("b")))

	assert.False(t, s.Add(fact("b")))
	assert.True(t, s.Remove(fact("a")))
	assert.False(t, s.Remove(fact("a")))
	assert.False(t, s.Contains(fact("a")))
	assert.True(t, s.Contains(fact("b")))
	assert.Equal(t, []ontology.Expression{fact("b")}, s.Facts())

	var zero FactSet
	assert.True(t, zero.Add(fact("c")))
	assert.True(t, zero.Contains(fact("c")))

	var missing *FactSet
	assert.False(t, missing.Contains(fact("c")))
	assert.Zero(t, missing.Len())
}
