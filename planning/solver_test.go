package planning

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pddlplanning/pddlplanning-go/ontology"
)

func TestClassify(t *testing.T) {
	malformed := &ontology.MalformedInputError{Position: 3, Message: "expected '('"}
	illegal := &ontology.IllegalUsageError{Context: "goals", Message: "use undefined predicates", Names: []string{"p"}}
	evaluation := &ontology.EvaluationError{Message: "cannot evaluate empty expression"}
	planning := &PlanningError{Message: "no plan"}

	tests := []struct {
		name string
		err  error
		kind string
	}{
		{"nil", nil, "none"},
		{"malformed input", malformed, "translation"},
		{"wrapped illegal usage", fmt.Errorf("checking: %w", illegal), "translation"},
		{"missing section", &ontology.MissingSectionError{Section: ":init"}, "translation"},
		{"evaluation", evaluation, "planning"},
		{"already classified", planning, "planning"},
		{"unavailable", Unavailable(errors.New("refused")), "unavailable"},
		{"deadline", context.DeadlineExceeded, "timeout"},
		{"canceled", context.Canceled, "canceled"},
		{"other", errors.New("boom"), "planning"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, Kind(Classify(tt.err)))
		})
	}
}

func TestClassifyKeepsCause(t *testing.T) {
	malformed := &ontology.MalformedInputError{Position: 3, Message: "expected '('"}
	err := Classify(malformed)

	var translation *TranslationError
	assert.ErrorAs(t, err, &translation)
	assert.ErrorIs(t, err, ontology.ErrMalformedInput)
	assert.Same(t, err, Classify(err))
}

func TestUnavailable(t *testing.T) {
	assert.NoError(t, Unavailable(nil))

	cause := errors.New("refused")
	err := Unavailable(cause)
	assert.ErrorIs(t, err, ErrSolverUnavailable)
	assert.Equal(t, "solver unavailable: refused", err.Error())
	assert.Same(t, err, Unavailable(err))
}

func TestErrorMessages(t *testing.T) {
	cause := errors.New("exit status 1")
	assert.Equal(t, "translation error: bad domain", (&TranslationError{Message: "bad domain"}).Error())
	assert.Equal(t, "planning error: exit status 1", (&PlanningError{Err: cause}).Error())
	assert.Equal(t, "planning error: search: exit status 1", (&PlanningError{Message: "search", Err: cause}).Error())
	assert.ErrorIs(t, &PlanningError{Err: cause}, cause)
}

func TestKindUnknown(t *testing.T) {
	assert.Equal(t, "unknown", Kind(errors.New("boom")))
}
