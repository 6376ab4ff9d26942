package planning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pddlplanning/pddlplanning-go/ontology"
)

func TestFilterTasks(t *testing.T) {
	plan := []ontology.Task{
		ontology.NewTask("greet", "world"),
		ontology.NewTask("wave", "alice"),
		ontology.NewTask("greet", "alice"),
		ontology.NewTask("rest"),
	}

	tests := []struct {
		name       string
		expression string
		want       []string
	}{
		{"empty keeps all", "", []string{"greet world", "wave alice", "greet alice", "rest"}},
		{"by action", `action == "greet"`, []string{"greet world", "greet alice"}},
		{"by parameter", `"alice" in parameters`, []string{"wave alice", "greet alice"}},
		{"by index", `index >= 2`, []string{"greet alice", "rest"}},
		{"no parameters", `len(parameters) == 0`, []string{"rest"}},
		{"none", `action == "hug"`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FilterTasks(plan, tt.expression)
			require.NoError(t, err)
			var strs []string
			for _, task := range got {
				strs = append(strs, task.String())
			}
			assert.Equal(t, tt.want, strs)
		})
	}
}

func TestCompileTaskFilterErrors(t *testing.T) {
	_, err := CompileTaskFilter(`action +`)
	assert.Error(t, err)

	_, err = CompileTaskFilter(`action`)
	assert.Error(t, err, "non boolean filters are rejected")

	_, err = CompileTaskFilter(`unknown == 1`)
	assert.Error(t, err)
}
