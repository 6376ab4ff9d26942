package ontology

import (
	"fmt"
	"strconv"
)

// Reserved operator words.
const (
	NotOperator        = "not"
	AndOperator        = "and"
	OrOperator         = "or"
	ImplyOperator      = "imply"
	WhenOperator       = "when"
	ForallOperator     = "forall"
	ExistsOperator     = "exists"
	AssignmentOperator = "="
	IncreaseOperator   = "increase"
)

// Operator classifies an expression by its head word.
type Operator int

const (
	OpEmpty Operator = iota
	// OpAtom is any non-reserved word: a predicate or an unknown operator.
	OpAtom
	OpNot
	OpAnd
	OpOr
	OpImply
	OpWhen
	OpForall
	OpExists
	OpAssign
	OpIncrease
)

var operatorNames = map[Operator]string{
	OpEmpty:    "",
	OpAtom:     "atom",
	OpNot:      NotOperator,
	OpAnd:      AndOperator,
	OpOr:       OrOperator,
	OpImply:    ImplyOperator,
	OpWhen:     WhenOperator,
	OpForall:   ForallOperator,
	OpExists:   ExistsOperator,
	OpAssign:   AssignmentOperator,
	OpIncrease: IncreaseOperator,
}

func (o Operator) String() string {
	if name, ok := operatorNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Operator(%d)", int(o))
}

// Operator returns the operator the expression's word names.
func (e Expression) Operator() Operator {
	switch e.Word {
	case "":
		return OpEmpty
	case NotOperator:
		return OpNot
	case AndOperator:
		return OpAnd
	case OrOperator:
		return OpOr
	case ImplyOperator:
		return OpImply
	case WhenOperator:
		return OpWhen
	case ForallOperator:
		return OpForall
	case ExistsOperator:
		return OpExists
	case AssignmentOperator:
		return OpAssign
	case IncreaseOperator:
		return OpIncrease
	default:
		return OpAtom
	}
}

// IsReserved reports whether word names an operator rather than a predicate.
func IsReserved(word string) bool {
	op := Expression{Word: word}.Operator()
	return op != OpAtom && op != OpEmpty
}

func Not(arg Expression) Expression {
	return Expression{Word: NotOperator, Args: []Expression{arg}}
}

func And(args ...Expression) Expression {
	return Expression{Word: AndOperator, Args: copyArgs(args)}
}

func Or(args ...Expression) Expression {
	return Expression{Word: OrOperator, Args: copyArgs(args)}
}

func Imply(antecedent, consequent Expression) Expression {
	return Expression{Word: ImplyOperator, Args: []Expression{antecedent, consequent}}
}

// When builds a conditional effect.
func When(antecedent, consequent Expression) Expression {
	return Expression{Word: WhenOperator, Args: []Expression{antecedent, consequent}}
}

// Forall quantifies body over the instances of the variable's type. The
// variable is stored as its declaration and is not renamed: a body reusing an
// outer variable's name captures it.
func Forall(variable Instance, body Expression) Expression {
	return Expression{Word: ForallOperator, Args: []Expression{{Word: variable.Declaration()}, body}}
}

// Exists is the existential counterpart of Forall.
func Exists(variable Instance, body Expression) Expression {
	return Expression{Word: ExistsOperator, Args: []Expression{{Word: variable.Declaration()}, body}}
}

// TotalCost is the numeric fluent most planners minimize.
var TotalCost = Expression{Word: "total-cost"}

// Assign sets a numeric fluent in an initial state.
func Assign(fluent Expression, amount int) Expression {
	return Expression{Word: AssignmentOperator, Args: []Expression{fluent, Literal(strconv.Itoa(amount)).Expression()}}
}

// Increase raises a numeric fluent in an effect.
func Increase(fluent Expression, amount int) Expression {
	return Expression{Word: IncreaseOperator, Args: []Expression{fluent, Literal(strconv.Itoa(amount)).Expression()}}
}

// InitialCostIsZero is the init fact that pairs with IncreaseCost effects.
func InitialCostIsZero() Expression {
	return Assign(TotalCost, 0)
}

func IncreaseCost(amount int) Expression {
	return Increase(TotalCost, amount)
}

// IncreaseCostAmount reads the amount out of an increase expression.
func IncreaseCostAmount(e Expression) (int, error) {
	if len(e.Args) != 2 {
		return 0, &EvaluationError{Expression: e.String(), Message: "increase cost expression should have 2 arguments"}
	}
	amount, err := strconv.Atoi(e.Args[1].Word)
	if err != nil {
		return 0, &EvaluationError{Expression: e.String(), Message: fmt.Sprintf("invalid cost amount %q", e.Args[1].Word)}
	}
	return amount, nil
}
