package pddl

import (
	"strings"

	"github.com/pddlplanning/pddlplanning-go/ontology"
)

// Section head words. The splicer locates sections by these words, so the
// renderer must emit exactly the same tokens.
const (
	SectionObjects   = ":objects"
	SectionInit      = ":init"
	SectionGoal      = ":goal"
	SectionConstants = ":constants"
	SectionTypes     = ":types"

	// DefineMarker opens every domain and problem document.
	DefineMarker = "(define "
)

// Default names used by generated documents.
const (
	DefaultDomainName  = "generated_domain"
	DefaultProblemName = "sandbox_problem"
)

// DefaultRequirements are the requirements generated documents declare.
var DefaultRequirements = []string{":adl", ":negative-preconditions", ":universal-preconditions"}

// Renderer generates domain and problem documents.
type Renderer struct {
	DomainName   string
	ProblemName  string
	Requirements []string
}

// DefaultRenderer renders with the default names and requirements.
func DefaultRenderer() Renderer {
	return Renderer{
		DomainName:   DefaultDomainName,
		ProblemName:  DefaultProblemName,
		Requirements: DefaultRequirements,
	}
}

func (r Renderer) requirements() string {
	return "(:requirements " + strings.Join(r.Requirements, " ") + ")\n\n"
}

// Domain renders a complete domain document.
func (r Renderer) Domain(types []*ontology.Type, constants []ontology.Instance, predicates []ontology.Expression, actions []ontology.Action) string {
	var b strings.Builder
	b.WriteString("(define (domain " + r.DomainName + ")\n")
	b.WriteString(r.requirements())
	b.WriteString(RenderTypes(types) + "\n\n")
	b.WriteString(RenderConstants(constants) + "\n\n")
	b.WriteString(RenderPredicates(predicates) + "\n\n")
	b.WriteString("(:functions\n    " + ontology.TotalCost.String() + "\n    )\n\n")
	for _, action := range actions {
		b.WriteString(RenderAction(action) + "\n\n")
	}
	b.WriteString(")")
	return b.String()
}

// Problem renders a complete problem document.
func (r Renderer) Problem(objects []ontology.Instance, init []ontology.Expression, goals []ontology.Expression) string {
	var b strings.Builder
	b.WriteString("(define (problem " + r.ProblemName + ")\n")
	b.WriteString("(:domain " + r.DomainName + ")\n")
	b.WriteString(r.requirements())

	b.WriteString("(" + SectionObjects)
	decls := make([]string, len(objects))
	for i, o := range objects {
		decls[i] = o.Declaration()
	}
	b.WriteString(joinAround(decls, "\n  ", "\n  ", "\n"))
	b.WriteString(")\n\n")

	b.WriteString("(" + SectionInit)
	b.WriteString(joinAround(ontology.Strings(init), "\n  ", "\n  ", "\n"))
	b.WriteString(")\n\n")

	b.WriteString("(" + SectionGoal)
	switch {
	case len(goals) > 1:
		b.WriteString("\n  (and\n    " + strings.Join(ontology.Strings(goals), "\n    ") + "\n  )\n)")
	case len(goals) == 1:
		b.WriteString("\n    " + goals[0].String() + "\n  )")
	default:
		b.WriteString(")")
	}
	b.WriteString("\n(:metric minimize (total-cost)))")
	return b.String()
}

// CreateDomain renders a domain with the default renderer.
func CreateDomain(types []*ontology.Type, constants []ontology.Instance, predicates []ontology.Expression, actions []ontology.Action) string {
	return DefaultRenderer().Domain(types, constants, predicates, actions)
}

// CreateProblem renders a problem with the default renderer.
func CreateProblem(objects []ontology.Instance, init []ontology.Expression, goals []ontology.Expression) string {
	return DefaultRenderer().Problem(objects, init, goals)
}

func joinAround(items []string, sep, prefix, suffix string) string {
	return prefix + strings.Join(items, sep) + suffix
}

// RenderTypes renders the types block. Subtypes are grouped under their
// parent, in order of first appearance; root types come last.
func RenderTypes(types []*ontology.Type) string {
	var parents []string
	children := make(map[string][]string)
	var roots []string
	for _, t := range types {
		parent := t.Parent()
		if parent == nil {
			roots = append(roots, t.Name())
			continue
		}
		if _, seen := children[parent.Name()]; !seen {
			parents = append(parents, parent.Name())
		}
		children[parent.Name()] = append(children[parent.Name()], t.Name())
	}

	var b strings.Builder
	b.WriteString("(" + SectionTypes + "\n")
	for _, parent := range parents {
		b.WriteString("    " + strings.Join(children[parent], " ") + " - " + parent + "\n")
	}
	b.WriteString("    " + strings.Join(roots, " ") + "\n")
	b.WriteString(")")
	return b.String()
}

// RenderConstants renders the constants block, grouped by type in order of
// first appearance.
func RenderConstants(constants []ontology.Instance) string {
	var typeOrder []string
	byType := make(map[string][]string)
	for _, c := range constants {
		name := c.Type().Name()
		if _, seen := byType[name]; !seen {
			typeOrder = append(typeOrder, name)
		}
		byType[name] = append(byType[name], c.Name())
	}

	var b strings.Builder
	b.WriteString("(" + SectionConstants + "\n")
	for _, typeName := range typeOrder {
		b.WriteString("   ")
		for _, name := range byType[typeName] {
			b.WriteString(" " + name)
		}
		b.WriteString(" - " + typeName + "\n")
	}
	b.WriteString(")")
	return b.String()
}

// RenderPredicates renders predicate declarations with typed parameters.
func RenderPredicates(predicates []ontology.Expression) string {
	decls := make([]string, len(predicates))
	for i, p := range predicates {
		decls[i] = p.DeclarationString()
	}
	return "(:predicates" + joinAround(decls, "\n    ", "\n    ", "\n") + ")"
}

// RenderObjects renders an :objects section as the splicer writes it.
func RenderObjects(instances []ontology.Instance) string {
	var b strings.Builder
	b.WriteString("(" + SectionObjects + "\n    ")
	for _, inst := range instances {
		b.WriteString(inst.Declaration() + "\n    ")
	}
	b.WriteString(")")
	return b.String()
}

// RenderInit renders an :init section as the splicer writes it.
func RenderInit(facts []ontology.Expression) string {
	return "(" + SectionInit + "\n" + strings.Join(ontology.Strings(facts), "\n  ") + ")"
}

// RenderGoal renders a :goal section as the splicer writes it. Several goals
// are wrapped into a conjunction.
func RenderGoal(goals []ontology.Expression) string {
	rendered := ontology.Strings(goals)
	switch {
	case len(goals) > 1:
		return "(" + SectionGoal + "\n    (and\n    " + strings.Join(rendered, "\n    ") + "\n    ))"
	case len(goals) == 1:
		return "(" + SectionGoal + "\n    " + rendered[0] + "\n    )"
	default:
		return "(" + SectionGoal + ")"
	}
}

// RenderAction renders an action block as it appears in a domain.
func RenderAction(action ontology.Action) string {
	return action.String()
}
