package ontology

import "strings"

// Action is a PDDL action schema. Parameters act as typed variables in the
// precondition and effect.
type Action struct {
	Name         string
	Parameters   []Instance
	Precondition Expression
	Effect       Expression
}

// String renders the action as a PDDL domain entry.
func (a Action) String() string {
	decls := make([]string, len(a.Parameters))
	for i, p := range a.Parameters {
		decls[i] = p.Declaration()
	}
	var b strings.Builder
	b.WriteString("(:action " + a.Name + "\n")
	b.WriteString("    :parameters (" + strings.Join(decls, " ") + ")\n")
	b.WriteString("    :precondition " + a.Precondition.String() + "\n")
	b.WriteString("    :effect " + a.Effect.String() + "\n")
	b.WriteString(")")
	return b.String()
}
