// Package lint statically checks a planning problem against its domain.
package lint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pddlplanning/pddlplanning-go/ontology"
)

const (
	SeverityWarning = "warning"
	SeverityError   = "error"

	CodeUndeclaredPredicate = "undeclared-predicate"
	CodeUnreachableGoal     = "unreachable-goal"
	CodeUndeclaredObject    = "undeclared-object"
	CodeUnusedPredicate     = "unused-predicate"
	CodeDuplicateObject     = "duplicate-object"
	CodeArityMismatch       = "arity-mismatch"
)

// Input is a domain together with a problem.
type Input struct {
	Types      []*ontology.Type
	Constants  []ontology.Instance
	Predicates []ontology.Expression
	Actions    []ontology.Action
	Objects    []ontology.Instance
	Init       []ontology.Expression
	Goals      []ontology.Expression
}

// Options configures lint behavior.
type Options struct {
	// Strict reports warnings as errors.
	Strict bool
}

// Issue represents a linter finding.
type Issue struct {
	Severity string   `json:"severity"`
	Code     string   `json:"code"`
	Context  string   `json:"context"`
	Message  string   `json:"message"`
	Names    []string `json:"names,omitempty"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s [%s] %s", i.Severity, i.Code, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// CheckErrors fails when actions or goals use undeclared predicates, or when
// a goal needs a predicate that no action effect produces.
func CheckErrors(
	types []*ontology.Type,
	constants []ontology.Instance,
	predicates []ontology.Expression,
	actions []ontology.Action,
	objects []ontology.Instance,
	init []ontology.Expression,
	goals []ontology.Expression,
) error {
	return Input{
		Types:      types,
		Constants:  constants,
		Predicates: predicates,
		Actions:    actions,
		Objects:    objects,
		Init:       init,
		Goals:      goals,
	}.CheckErrors()
}

// CheckErrors runs the blocking checks and returns the first failure as an
// *ontology.IllegalUsageError.
func (in Input) CheckErrors() error {
	if issues := in.undeclaredPredicates(); len(issues) > 0 {
		return &ontology.IllegalUsageError{Context: issues[0].Context, Message: "use undefined predicates", Names: issues[0].Names}
	}
	if issues := in.unreachableGoals(); len(issues) > 0 {
		return &ontology.IllegalUsageError{Context: issues[0].Context, Message: "require predicates that no action effect produces", Names: issues[0].Names}
	}
	return nil
}

// Lint runs every check with default options.
func Lint(in Input) []Issue {
	return LintWithOptions(in, Options{})
}

// LintWithOptions runs every check.
func LintWithOptions(in Input, options Options) []Issue {
	issues := make([]Issue, 0)
	issues = append(issues, in.undeclaredPredicates()...)
	issues = append(issues, in.unreachableGoals()...)
	issues = append(issues, in.arityMismatches()...)
	issues = append(issues, in.undeclaredObjects()...)
	issues = append(issues, in.unusedPredicates()...)
	issues = append(issues, in.duplicateObjects()...)

	if options.Strict {
		for i := range issues {
			issues[i].Severity = SeverityError
		}
	}
	return issues
}

func (in Input) declaredPredicates() map[string]ontology.Expression {
	out := make(map[string]ontology.Expression, len(in.Predicates))
	for _, p := range in.Predicates {
		out[p.Word] = p
	}
	return out
}

func missing(used map[string]struct{}, declared map[string]ontology.Expression) []string {
	var out []string
	for name := range used {
		if _, ok := declared[name]; !ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (in Input) undeclaredPredicates() []Issue {
	declared := in.declaredPredicates()

	inActions := make(map[string]struct{})
	for _, a := range in.Actions {
		collectPredicates(a.Precondition, inActions)
		collectPredicates(a.Effect, inActions)
	}
	inGoals := make(map[string]struct{})
	for _, g := range in.Goals {
		collectPredicates(g, inGoals)
	}

	var issues []Issue
	for _, check := range []struct {
		context string
		used    map[string]struct{}
	}{{"actions", inActions}, {"goals", inGoals}} {
		names := missing(check.used, declared)
		if len(names) == 0 {
			continue
		}
		issues = append(issues, Issue{
			Severity: SeverityError,
			Code:     CodeUndeclaredPredicate,
			Context:  check.context,
			Message:  fmt.Sprintf("%s use undefined predicates [%s]", check.context, strings.Join(names, ", ")),
			Names:    names,
		})
	}
	return issues
}

func (in Input) unreachableGoals() []Issue {
	var produced []Alternatives
	for _, a := range in.Actions {
		produced = append(produced, ExtractConsequentPredicates(a.Effect)...)
	}

	seen := make(map[string]struct{})
	var unmanaged []string
	for _, g := range in.Goals {
		for _, required := range ExtractConsequentPredicates(g) {
			if _, ok := seen[required.key()]; ok {
				continue
			}
			seen[required.key()] = struct{}{}
			if !anyIntersects(required, produced) {
				unmanaged = append(unmanaged, required.String())
			}
		}
	}
	if len(unmanaged) == 0 {
		return nil
	}
	sort.Strings(unmanaged)
	return []Issue{{
		Severity: SeverityError,
		Code:     CodeUnreachableGoal,
		Context:  "goals",
		Message:  fmt.Sprintf("no action produces effect involving predicates required in goals [%s]", strings.Join(unmanaged, ", ")),
		Names:    unmanaged,
	}}
}

func anyIntersects(required Alternatives, produced []Alternatives) bool {
	for _, p := range produced {
		if required.Intersects(p) {
			return true
		}
	}
	return false
}

// atoms calls fn for every predicate application in expr, with the names of
// the variables bound around it.
func atoms(expr ontology.Expression, bound map[string]struct{}, fn func(atom ontology.Expression, bound map[string]struct{})) {
	switch expr.Operator() {
	case ontology.OpEmpty, ontology.OpAssign, ontology.OpIncrease:
	case ontology.OpNot, ontology.OpAnd, ontology.OpOr, ontology.OpImply, ontology.OpWhen:
		for _, arg := range expr.Args {
			atoms(arg, bound, fn)
		}
	case ontology.OpForall, ontology.OpExists:
		if len(expr.Args) < 2 {
			return
		}
		inner := make(map[string]struct{}, len(bound)+1)
		for k := range bound {
			inner[k] = struct{}{}
		}
		if name, _, err := ontology.SplitDeclaration(expr.Args[0].Word); err == nil {
			inner[name] = struct{}{}
		}
		atoms(expr.Args[1], inner, fn)
	default:
		fn(expr, bound)
	}
}

func (in Input) arityMismatches() []Issue {
	declared := in.declaredPredicates()
	var issues []Issue
	seen := make(map[string]struct{})
	check := func(context string) func(ontology.Expression, map[string]struct{}) {
		return func(atom ontology.Expression, _ map[string]struct{}) {
			decl, ok := declared[atom.Word]
			if !ok || len(decl.Args) == len(atom.Args) {
				return
			}
			key := context + "\x1f" + atom.Key()
			if _, dup := seen[key]; dup {
				return
			}
			seen[key] = struct{}{}
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Code:     CodeArityMismatch,
				Context:  context,
				Message:  fmt.Sprintf("%s: %s takes %d arguments, declared with %d", context, atom, len(atom.Args), len(decl.Args)),
				Names:    []string{atom.Word},
			})
		}
	}
	for _, a := range in.Actions {
		atoms(a.Precondition, nil, check("action "+a.Name))
		atoms(a.Effect, nil, check("action "+a.Name))
	}
	for _, f := range in.Init {
		atoms(f, nil, check("init"))
	}
	for _, g := range in.Goals {
		atoms(g, nil, check("goals"))
	}
	return issues
}

func (in Input) undeclaredObjects() []Issue {
	known := make(map[string]struct{}, len(in.Objects)+len(in.Constants))
	for _, o := range in.Objects {
		known[o.Name()] = struct{}{}
	}
	for _, c := range in.Constants {
		known[c.Name()] = struct{}{}
	}

	var issues []Issue
	report := func(context string) func(ontology.Expression, map[string]struct{}) {
		return func(atom ontology.Expression, bound map[string]struct{}) {
			var names []string
			for _, arg := range atom.Args {
				if len(arg.Args) > 0 {
					continue
				}
				if _, ok := known[arg.Word]; ok {
					continue
				}
				if _, ok := bound[arg.Word]; ok {
					continue
				}
				names = append(names, arg.Word)
			}
			if len(names) == 0 {
				return
			}
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Code:     CodeUndeclaredObject,
				Context:  context,
				Message:  fmt.Sprintf("%s: %s refers to undeclared objects [%s]", context, atom, strings.Join(names, ", ")),
				Names:    names,
			})
		}
	}
	for _, f := range in.Init {
		atoms(f, nil, report("init"))
	}
	for _, g := range in.Goals {
		atoms(g, nil, report("goals"))
	}
	return issues
}

func (in Input) unusedPredicates() []Issue {
	used := make(map[string]struct{})
	for _, a := range in.Actions {
		collectPredicates(a.Precondition, used)
		collectPredicates(a.Effect, used)
	}
	for _, f := range in.Init {
		collectPredicates(f, used)
	}
	for _, g := range in.Goals {
		collectPredicates(g, used)
	}

	var issues []Issue
	for _, p := range in.Predicates {
		if _, ok := used[p.Word]; ok {
			continue
		}
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Code:     CodeUnusedPredicate,
			Context:  "predicates",
			Message:  fmt.Sprintf("predicate %q is never used", p.Word),
			Names:    []string{p.Word},
		})
	}
	return issues
}

func (in Input) duplicateObjects() []Issue {
	constants := make(map[string]struct{}, len(in.Constants))
	for _, c := range in.Constants {
		constants[c.Name()] = struct{}{}
	}

	var issues []Issue
	seen := make(map[string]struct{}, len(in.Objects))
	for _, o := range in.Objects {
		name := o.Name()
		var message string
		if _, ok := seen[name]; ok {
			message = fmt.Sprintf("object %q is declared more than once", name)
		} else if _, ok := constants[name]; ok {
			message = fmt.Sprintf("object %q is also a domain constant", name)
		}
		seen[name] = struct{}{}
		if message == "" {
			continue
		}
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Code:     CodeDuplicateObject,
			Context:  "objects",
			Message:  message,
			Names:    []string{name},
		})
	}
	return issues
}
