package facts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pddlplanning/pddlplanning-go/internal/testutils"
	"github.com/pddlplanning/pddlplanning-go/ontology"
)

func writeFacts(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYAMLAndJSON(t *testing.T) {
	yamlPath := writeFacts(t, "facts.yaml", `
objects:
  - alice - human
init:
  - (can_see me alice)
`)
	jsonPath := writeFacts(t, "facts.json", `{"objects":["alice - human"],"init":["(can_see me alice)"]}`)

	for _, path := range []string{yamlPath, jsonPath} {
		f, err := Load(path)
		require.NoError(t, err, path)
		assert.Equal(t, []string{"alice - human"}, f.Objects)
		assert.Equal(t, []string{"(can_see me alice)"}, f.Init)
		assert.Nil(t, f.Goals)
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Load(writeFacts(t, "bad.json", "{"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing facts json")
}

func TestResolveKeepsKnownTypes(t *testing.T) {
	ctx, err := NewContext(testutils.GreetDomainText, testutils.GreetProblem)
	require.NoError(t, err)

	r, err := ctx.Resolve(&File{
		Objects: []string{"alice - human", "world - place"},
		Init:    []string{"(can_see me alice)"},
	})
	require.NoError(t, err)

	require.Len(t, r.Objects, 2)
	assert.Equal(t, "alice - human", r.Objects[0].Declaration())
	require.Len(t, r.Init, 1)
	me, ok := r.Init[0].Args[0].AsInstance()
	require.True(t, ok)
	assert.Equal(t, "agent", me.Type().Name())

	assert.Equal(t, r.Objects, ctx.Objects(r))
	assert.Equal(t, r.Init, ctx.Init(r))
	assert.Equal(t, ctx.Problem.Goals(), ctx.Goals(r))
	assert.False(t, r.HasGoals)
}

func TestResolveRejectsBadInput(t *testing.T) {
	ctx, err := NewContext(testutils.GreetDomainText, testutils.GreetProblem)
	require.NoError(t, err)

	_, err = ctx.Resolve(&File{Objects: []string{"alice - robot"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "objects")

	_, err = ctx.Resolve(&File{Goals: []string{"(was_greeted alice"}})
	var malformed *ontology.MalformedInputError
	require.ErrorAs(t, err, &malformed)
}

func TestSpliceOnlyGivenSections(t *testing.T) {
	ctx, err := NewContext(testutils.GreetDomainText, testutils.GreetProblem)
	require.NoError(t, err)

	r, err := ctx.Resolve(&File{Init: []string{"(can_see me world)", "(was_greeted world)"}})
	require.NoError(t, err)

	out, err := Splice(testutils.GreetProblem, r)
	require.NoError(t, err)
	assert.Contains(t, out, "(was_greeted world)")
	assert.True(t, strings.Contains(out, "(:objects\n  world - place\n)"))
	assert.Contains(t, out, "(forall (?o - entity) (was_greeted ?o))")
}

func TestPlanningAndLintInput(t *testing.T) {
	ctx, err := NewContext(testutils.GreetDomainText, testutils.GreetProblem)
	require.NoError(t, err)
	r, err := ctx.Resolve(&File{Goals: []string{"(was_greeted world)"}})
	require.NoError(t, err)

	onto, problem := ctx.Planning(r)
	assert.Len(t, onto.Actions, 2)
	assert.Equal(t, ctx.Problem.Objects, problem.Objects)
	require.Len(t, problem.Goals, 1)
	assert.Equal(t, "(was_greeted world)", problem.Goals[0].String())

	in := ctx.LintInput(r)
	assert.NoError(t, in.CheckErrors())
}

func TestEvaluate(t *testing.T) {
	ctx, err := NewContext(testutils.GreetDomainText, testutils.GreetProblem)
	require.NoError(t, err)

	r, err := ctx.Resolve(&File{})
	require.NoError(t, err)
	results, err := ctx.Evaluate(r, nil, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Satisfied)
	assert.Empty(t, results[0].Trace)

	r, err = ctx.Resolve(&File{Init: []string{"(was_greeted world)"}})
	require.NoError(t, err)
	results, err = ctx.Evaluate(r, nil, true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Satisfied)
	assert.NotEmpty(t, results[0].Trace)

	results, err = ctx.Evaluate(r, []string{"(was_greeted world)", "(can_see me world)"}, false)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Satisfied)
	assert.False(t, results[1].Satisfied)

	_, err = ctx.Evaluate(r, []string{"world"}, false)
	require.Error(t, err)
}
