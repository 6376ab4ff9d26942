package ontology

import (
	"strings"
)

// Expression is a node of the symbolic tree shared by facts, goals,
// preconditions and effects: a head word followed by ordered arguments.
// Operators are expressions whose word is reserved (see Operator).
//
// An expression with an empty word must have no arguments.
type Expression struct {
	Word string
	Args []Expression

	// leafType is set when the expression stands for an Instance.
	leafType *Type
}

// NewExpression builds an expression, rejecting an empty word with arguments.
func NewExpression(word string, args ...Expression) (Expression, error) {
	if word == "" && len(args) > 0 {
		return Expression{}, invariantf("empty expression cannot have %d arguments", len(args))
	}
	return Expression{Word: word, Args: copyArgs(args)}, nil
}

// MustExpression is NewExpression for statically well-formed input. It panics
// with an *InvariantError otherwise.
func MustExpression(word string, args ...Expression) Expression {
	e, err := NewExpression(word, args...)
	if err != nil {
		panic(err)
	}
	return e
}

func copyArgs(args []Expression) []Expression {
	if len(args) == 0 {
		return nil
	}
	out := make([]Expression, len(args))
	copy(out, args)
	return out
}

// IsEmpty reports whether the expression has no word.
func (e Expression) IsEmpty() bool {
	return e.Word == ""
}

// IsInstance reports whether the expression is an instance leaf.
func (e Expression) IsInstance() bool {
	return e.leafType != nil
}

// AsInstance recovers the instance an instance leaf stands for.
func (e Expression) AsInstance() (Instance, bool) {
	if e.leafType == nil {
		return Instance{}, false
	}
	return Instance{name: e.Word, typ: e.leafType}, true
}

// Equal compares expressions structurally: same word, same arguments in order.
func (e Expression) Equal(other Expression) bool {
	if e.Word != other.Word || len(e.Args) != len(other.Args) {
		return false
	}
	for i := range e.Args {
		if !e.Args[i].Equal(other.Args[i]) {
			return false
		}
	}
	return true
}

// Key returns a canonical string such that two expressions are Equal exactly
// when their keys are equal. It is meant for map indexing.
func (e Expression) Key() string {
	var b strings.Builder
	e.writeKey(&b)
	return b.String()
}

func (e Expression) writeKey(b *strings.Builder) {
	b.WriteString(e.Word)
	if len(e.Args) == 0 {
		return
	}
	b.WriteByte('\x02')
	for i, arg := range e.Args {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		arg.writeKey(b)
	}
	b.WriteByte('\x03')
}

// String renders the expression in PDDL syntax. Instance leaves render as
// their bare name.
func (e Expression) String() string {
	if e.leafType != nil {
		return e.Word
	}
	var b strings.Builder
	e.write(&b, false)
	return b.String()
}

// DeclarationString renders the expression like String, but instance leaves
// are followed by their type, as in predicate declarations.
func (e Expression) DeclarationString() string {
	if inst, ok := e.AsInstance(); ok {
		return inst.Declaration()
	}
	var b strings.Builder
	e.write(&b, true)
	return b.String()
}

func (e Expression) write(b *strings.Builder, declaration bool) {
	b.WriteByte('(')
	b.WriteString(e.Word)
	for _, arg := range e.Args {
		b.WriteByte(' ')
		switch {
		case declaration:
			b.WriteString(arg.DeclarationString())
		default:
			b.WriteString(arg.String())
		}
	}
	b.WriteByte(')')
}

// IsNegationOf reports whether e equals the negation of other.
func (e Expression) IsNegationOf(other Expression) bool {
	return e.Equal(NegationOf(other))
}

// NegationOf unwraps a negation, or wraps e into one. It cancels exactly one
// level of negation.
func NegationOf(e Expression) Expression {
	if e.Word == NotOperator && len(e.Args) == 1 {
		return e.Args[0]
	}
	return Not(e)
}

// ContainsInstance reports whether a fact involves the given instance.
func (e Expression) ContainsInstance(inst Instance) bool {
	return e.ContainsAnyOf([]Instance{inst})
}

// ContainsAnyOf reports whether a fact involves any of the instances. Negated
// facts are looked through.
func (e Expression) ContainsAnyOf(instances []Instance) bool {
	if e.Word == NotOperator && len(e.Args) == 1 {
		return e.Args[0].ContainsAnyOf(instances)
	}
	names := make(map[string]struct{}, len(instances))
	for _, inst := range instances {
		names[inst.name] = struct{}{}
	}
	for _, arg := range e.Args {
		if _, ok := names[arg.Word]; ok {
			return true
		}
	}
	return false
}

// FactFromStrings builds a ground fact from a predicate name and plain
// instance names, typed as object.
func FactFromStrings(predicate string, args ...string) Expression {
	out := make([]Expression, len(args))
	for i, arg := range args {
		out[i] = Literal(arg).Expression()
	}
	return Expression{Word: predicate, Args: out}
}

// Fact builds a predicate applied to instances.
func Fact(predicate string, args ...Instance) Expression {
	out := make([]Expression, len(args))
	for i, arg := range args {
		out[i] = arg.Expression()
	}
	return Expression{Word: predicate, Args: out}
}

// Strings renders each expression with String.
func Strings(exprs []Expression) []string {
	out := make([]string, len(exprs))
	for i, e := range exprs {
		out[i] = e.String()
	}
	return out
}
