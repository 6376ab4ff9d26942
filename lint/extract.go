package lint

import (
	"sort"
	"strings"

	"github.com/pddlplanning/pddlplanning-go/ontology"
)

// Alternatives is a set of predicate names of which any one satisfies a
// requirement. It comes from the branches of a disjunction.
type Alternatives []string

func newAlternatives(names map[string]struct{}) Alternatives {
	out := make(Alternatives, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Intersects reports whether the two sets share a name.
func (a Alternatives) Intersects(other Alternatives) bool {
	for _, x := range a {
		for _, y := range other {
			if x == y {
				return true
			}
		}
	}
	return false
}

func (a Alternatives) key() string { return strings.Join(a, "\x1f") }

func (a Alternatives) String() string {
	if len(a) == 1 {
		return a[0]
	}
	return "{" + strings.Join(a, ", ") + "}"
}

// ExtractPredicates lists, sorted, the predicate names an expression refers
// to. Quantifier declarations and numeric updates are not predicates.
func ExtractPredicates(expr ontology.Expression) []string {
	names := make(map[string]struct{})
	collectPredicates(expr, names)
	return sortedNames(names)
}

func collectPredicates(expr ontology.Expression, names map[string]struct{}) {
	switch expr.Operator() {
	case ontology.OpEmpty, ontology.OpAssign, ontology.OpIncrease:
	case ontology.OpNot, ontology.OpAnd, ontology.OpOr, ontology.OpImply, ontology.OpWhen:
		for _, arg := range expr.Args {
			collectPredicates(arg, names)
		}
	case ontology.OpForall, ontology.OpExists:
		if len(expr.Args) > 1 {
			collectPredicates(expr.Args[1], names)
		}
	default:
		names[expr.Word] = struct{}{}
	}
}

// ExtractConsequentPredicates lists the predicates an expression can make
// hold. Each disjunction contributes a single Alternatives holding all of its
// branches. Antecedents of implications and conditional effects are skipped.
func ExtractConsequentPredicates(expr ontology.Expression) []Alternatives {
	var out []Alternatives
	seen := make(map[string]struct{})
	for _, alt := range consequents(expr) {
		if _, ok := seen[alt.key()]; ok {
			continue
		}
		seen[alt.key()] = struct{}{}
		out = append(out, alt)
	}
	return out
}

func consequents(expr ontology.Expression) []Alternatives {
	switch expr.Operator() {
	case ontology.OpEmpty, ontology.OpAssign, ontology.OpIncrease:
		return nil
	case ontology.OpNot, ontology.OpAnd:
		var out []Alternatives
		for _, arg := range expr.Args {
			out = append(out, consequents(arg)...)
		}
		return out
	case ontology.OpOr:
		union := make(map[string]struct{})
		for _, arg := range expr.Args {
			for _, alt := range consequents(arg) {
				for _, name := range alt {
					union[name] = struct{}{}
				}
			}
		}
		if len(union) == 0 {
			return nil
		}
		return []Alternatives{newAlternatives(union)}
	case ontology.OpImply, ontology.OpWhen, ontology.OpForall, ontology.OpExists:
		if len(expr.Args) < 2 {
			return nil
		}
		return consequents(expr.Args[1])
	default:
		return []Alternatives{{expr.Word}}
	}
}

func sortedNames(names map[string]struct{}) []string {
	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
