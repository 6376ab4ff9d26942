package eval

import (
	"fmt"

	"github.com/pddlplanning/pddlplanning-go/ontology"
)

// Pass and fail marks used in traces and goal analyses.
const (
	PassMark = '✓'
	FailMark = '✗'
)

// Mark is the outcome of one evaluated node.
type Mark struct {
	Expression ontology.Expression
	Result     bool
	Depth      int
}

func (m Mark) String() string {
	mark := FailMark
	if m.Result {
		mark = PassMark
	}
	return fmt.Sprintf("%c %s", mark, m.Expression)
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithTrace reports every evaluated node to fn, innermost nodes first. It
// does not change results.
func WithTrace(fn func(Mark)) Option {
	return func(e *Evaluator) {
		e.trace = fn
	}
}

// Evaluator evaluates expressions over a fixed state.
type Evaluator struct {
	objects []ontology.Instance
	facts   *FactSet
	trace   func(Mark)
}

// New creates an evaluator over objects and facts.
func New(objects []ontology.Instance, facts *FactSet, opts ...Option) *Evaluator {
	if facts == nil {
		facts = NewFactSet()
	}
	e := &Evaluator{objects: objects, facts: facts}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate decides whether expr holds given objects and facts.
func Evaluate(expr ontology.Expression, objects []ontology.Instance, facts []ontology.Expression, opts ...Option) (bool, error) {
	return New(objects, NewFactSet(facts...), opts...).Evaluate(expr)
}

// Evaluate decides whether expr holds in the evaluator's state.
func (e *Evaluator) Evaluate(expr ontology.Expression) (bool, error) {
	return e.evaluate(expr, 0)
}

func arity(expr ontology.Expression, want int) error {
	if len(expr.Args) != want {
		return &ontology.EvaluationError{
			Expression: expr.String(),
			Message:    fmt.Sprintf("%q expects %d arguments, got %d", expr.Word, want, len(expr.Args)),
		}
	}
	return nil
}

func (e *Evaluator) evaluate(expr ontology.Expression, depth int) (bool, error) {
	var (
		result bool
		err    error
	)

	switch expr.Operator() {
	case ontology.OpEmpty:
		return false, &ontology.EvaluationError{Message: "cannot evaluate empty expression"}

	case ontology.OpAnd:
		result, err = e.all(expr.Args, depth)

	case ontology.OpOr:
		result, err = e.any(expr.Args, depth)

	case ontology.OpNot:
		if err = arity(expr, 1); err != nil {
			return false, err
		}
		result, err = e.evaluate(expr.Args[0], depth+1)
		result = !result

	case ontology.OpImply, ontology.OpWhen:
		if err = arity(expr, 2); err != nil {
			return false, err
		}
		var premise, conclusion bool
		if premise, err = e.evaluate(expr.Args[0], depth+1); err != nil {
			return false, err
		}
		if conclusion, err = e.evaluate(expr.Args[1], depth+1); err != nil {
			return false, err
		}
		result = !premise || conclusion

	case ontology.OpForall, ontology.OpExists:
		var expansions []ontology.Expression
		if expansions, err = Expand(expr, e.objects); err != nil {
			return false, err
		}
		if expr.Operator() == ontology.OpForall {
			result, err = e.all(expansions, depth)
		} else {
			result, err = e.any(expansions, depth)
		}

	case ontology.OpAtom, ontology.OpAssign, ontology.OpIncrease:
		result = e.facts.Contains(expr)

	default:
		return false, &ontology.EvaluationError{Expression: expr.String(), Message: fmt.Sprintf("unsupported operator %s", expr.Operator())}
	}

	if err != nil {
		return false, err
	}
	if e.trace != nil {
		e.trace(Mark{Expression: expr, Result: result, Depth: depth})
	}
	return result, nil
}

// all evaluates args in order and stops at the first false one.
func (e *Evaluator) all(args []ontology.Expression, depth int) (bool, error) {
	for _, arg := range args {
		ok, err := e.evaluate(arg, depth+1)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// any evaluates args in order and stops at the first true one.
func (e *Evaluator) any(args []ontology.Expression, depth int) (bool, error) {
	for _, arg := range args {
		ok, err := e.evaluate(arg, depth+1)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}
