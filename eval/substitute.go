package eval

import (
	"fmt"

	"github.com/pddlplanning/pddlplanning-go/ontology"
)

// ApplyParameters replaces parameters by their values, looked up by name.
// Connectives are rewritten recursively. For quantifiers only the body is
// rewritten, never the bound variable. For any other expression only its
// terminal arguments are replaced.
func ApplyParameters(expr ontology.Expression, params map[string]ontology.Instance) ontology.Expression {
	if len(expr.Args) == 0 {
		return expr
	}
	args := make([]ontology.Expression, len(expr.Args))

	switch expr.Operator() {
	case ontology.OpNot, ontology.OpAnd, ontology.OpOr, ontology.OpImply, ontology.OpWhen:
		for i, arg := range expr.Args {
			args[i] = ApplyParameters(arg, params)
		}

	case ontology.OpForall, ontology.OpExists:
		copy(args, expr.Args)
		if len(args) > 1 {
			args[1] = ApplyParameters(expr.Args[1], params)
		}

	default:
		for i, arg := range expr.Args {
			args[i] = arg
			if len(arg.Args) > 0 {
				continue
			}
			if value, ok := params[arg.Word]; ok {
				args[i] = value.Expression()
			}
		}
	}
	return ontology.Expression{Word: expr.Word, Args: args}
}

// ApplyActionParameters binds the parameters of an action to values, in order.
func ApplyActionParameters(action ontology.Action, values []ontology.Instance) (ontology.Action, error) {
	if len(values) != len(action.Parameters) {
		return ontology.Action{}, fmt.Errorf("action %q takes %d parameters, got %d", action.Name, len(action.Parameters), len(values))
	}
	params := make(map[string]ontology.Instance, len(values))
	for i, p := range action.Parameters {
		params[p.Name()] = values[i]
	}
	return ontology.Action{
		Name:         action.Name,
		Parameters:   append([]ontology.Instance(nil), values...),
		Precondition: ApplyParameters(action.Precondition, params),
		Effect:       ApplyParameters(action.Effect, params),
	}, nil
}

// Expand instantiates the body of a quantifier once per object whose type is,
// or descends from, the bound variable's type.
func Expand(quantifier ontology.Expression, objects []ontology.Instance) ([]ontology.Expression, error) {
	if err := arity(quantifier, 2); err != nil {
		return nil, err
	}
	name, typeName, err := ontology.SplitDeclaration(quantifier.Args[0].Word)
	if err != nil {
		return nil, &ontology.EvaluationError{Expression: quantifier.String(), Message: err.Error()}
	}
	var out []ontology.Expression
	for _, obj := range objects {
		if !obj.Type().IsA(typeName) {
			continue
		}
		out = append(out, ApplyParameters(quantifier.Args[1], map[string]ontology.Instance{name: obj}))
	}
	return out, nil
}
