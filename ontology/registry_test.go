package ontology

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryStartsWithObject(t *testing.T) {
	r := NewRegistry()

	obj, ok := r.Type(ObjectTypeName)
	require.True(t, ok)
	assert.Same(t, ObjectType(), obj)
	assert.Empty(t, r.Types())
}

func TestDefineTypeIsIdempotent(t *testing.T) {
	r := NewRegistry()
	entity := r.MustDefineType("entity", "")
	human := r.MustDefineType("human", "entity")

	again, err := r.DefineType("human", "entity")
	require.NoError(t, err)
	assert.Same(t, human, again)
	assert.Same(t, entity, human.Parent())
	assert.Equal(t, []*Type{entity, human}, r.Types())
}

func TestDefineTypeRejectsConflicts(t *testing.T) {
	r := NewRegistry()
	r.MustDefineType("entity", "")
	r.MustDefineType("place", "")
	r.MustDefineType("human", "entity")

	_, err := r.DefineType("human", "place")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvariant))

	_, err = r.DefineType("robot", "machine")
	assert.Error(t, err)

	_, err = r.DefineType("", "")
	assert.True(t, errors.Is(err, ErrInvariant))
}

func TestDefineTypeConcurrentSingleWinner(t *testing.T) {
	r := NewRegistry()
	r.MustDefineType("a", "")
	r.MustDefineType("b", "")

	var wg sync.WaitGroup
	results := make([]*Type, 20)
	errs := make([]error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			parent := "a"
			if i%2 == 1 {
				parent = "b"
			}
			results[i], errs[i] = r.DefineType("child", parent)
		}(i)
	}
	wg.Wait()

	winner, ok := r.Type("child")
	require.True(t, ok)
	for i := range results {
		if errs[i] != nil {
			assert.True(t, errors.Is(errs[i], ErrInvariant))
			continue
		}
		assert.Same(t, winner, results[i])
	}
}

func TestNewInstanceKeepsIdentity(t *testing.T) {
	r := NewRegistry()
	r.MustDefineType("place", "")
	r.MustDefineType("human", "")

	world, err := r.NewInstance("world", "place")
	require.NoError(t, err)
	assert.Equal(t, "place", world.Type().Name())
	assert.Equal(t, "world - place", world.Declaration())

	_, err = r.NewInstance("world", "place")
	assert.NoError(t, err)

	_, err = r.NewInstance("world", "human")
	assert.True(t, errors.Is(err, ErrInvariant))

	_, err = r.NewInstance("bob", "robot")
	assert.Error(t, err)

	assert.Equal(t, map[string]string{"world": "place"}, r.Instances())
}

func TestUnknownTypesAreMalformedInput(t *testing.T) {
	r := NewRegistry()

	_, err := r.NewInstance("a", "unicorn")
	var unknown *UnknownTypeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "unicorn", unknown.Type)
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = r.DefineType("pony", "unicorn")
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.ErrorIs(t, err, ErrMalformedInput)
	assert.NotErrorIs(t, err, ErrInvariant)

	err = r.RegisterBuilder("unicorn", nil)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestVariablesAreNotRecorded(t *testing.T) {
	r := NewRegistry()
	r.MustDefineType("place", "")
	r.MustDefineType("human", "")

	_, err := r.NewInstance("?x", "place")
	require.NoError(t, err)
	_, err = r.NewInstance("?x", "human")
	require.NoError(t, err)
	assert.Empty(t, r.Instances())
}

type person struct{ nickname string }

func TestBuildersResolveToNearestAncestor(t *testing.T) {
	r := NewRegistry()
	r.MustDefineType("entity", "")
	r.MustDefineType("human", "entity")
	r.MustDefineType("child", "human")

	require.NoError(t, r.RegisterBuilder("human", func(name string, typ *Type) (Instance, error) {
		return Instance{name: name, typ: typ}.WithPayload(person{nickname: "little " + name}), nil
	}))
	assert.Equal(t, []string{"human"}, r.Builders())

	kid := r.MustInstance("tim", "child")
	assert.Equal(t, person{nickname: "little tim"}, kid.Payload())
	assert.Equal(t, "child", kid.Type().Name())

	thing := r.MustInstance("rock", "entity")
	assert.Nil(t, thing.Payload())

	assert.Error(t, r.RegisterBuilder("ghost", nil))
}

func TestBuilderMustKeepNameAndType(t *testing.T) {
	r := NewRegistry()
	r.MustDefineType("human", "")
	require.NoError(t, r.RegisterBuilder("human", func(name string, typ *Type) (Instance, error) {
		return Literal(name), nil
	}))

	_, err := r.NewInstance("alice", "human")
	assert.True(t, errors.Is(err, ErrInvariant))
}

func TestParseDeclaration(t *testing.T) {
	r := NewRegistry()
	r.MustDefineType("place", "")

	tests := []struct {
		decl     string
		name     string
		typeName string
		wantErr  bool
	}{
		{decl: "?p - place", name: "?p", typeName: "place"},
		{decl: "  kitchen  ", name: "kitchen", typeName: "object"},
		{decl: "a b", wantErr: true},
		{decl: "(x)", wantErr: true},
		{decl: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.decl, func(t *testing.T) {
			inst, err := r.ParseDeclaration(tt.decl)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrMalformedInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.name, inst.Name())
			assert.Equal(t, tt.typeName, inst.Type().Name())
		})
	}
}

func TestResetKeepsObjectOnly(t *testing.T) {
	r := NewRegistry()
	r.MustDefineType("place", "")
	r.MustInstance("world", "place")

	r.Reset()
	_, ok := r.Type("place")
	assert.False(t, ok)
	assert.Empty(t, r.Instances())
	_, ok = r.Type(ObjectTypeName)
	assert.True(t, ok)
}

func TestTypeIsA(t *testing.T) {
	r := NewRegistry()
	r.MustDefineType("entity", "")
	child := r.MustDefineType("child", r.MustDefineType("human", "entity").Name())

	assert.True(t, child.IsA("child"))
	assert.True(t, child.IsA("entity"))
	assert.False(t, child.IsA("object"))
	assert.Equal(t, "entity > human > child", child.String())
}

func TestInstanceEqualPanicsOnTypeConflict(t *testing.T) {
	r1 := NewRegistry()
	r2 := NewRegistry()
	a := r1.MustInstance("x", "object")
	r2.MustDefineType("place", "")
	b := r2.MustInstance("x", "place")

	assert.True(t, a.Equal(r1.MustInstance("x", "object")))
	assert.False(t, a.Equal(Literal("y")))
	assert.Panics(t, func() { a.Equal(b) })
}
