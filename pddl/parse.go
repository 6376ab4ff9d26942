package pddl

import (
	"fmt"

	"github.com/pddlplanning/pddlplanning-go/ontology"
)

// Domain is the structured content of a domain document.
type Domain struct {
	Name         string
	Requirements []string
	Types        []*ontology.Type
	Constants    []ontology.Instance
	Predicates   []ontology.Expression
	Functions    []ontology.Expression
	Actions      []ontology.Action
}

// Problem is the structured content of a problem document.
type Problem struct {
	Name       string
	DomainName string
	Objects    []ontology.Instance
	Init       []ontology.Expression
	Goal       ontology.Expression
	Metric     ontology.Expression
}

// Goals returns the conjuncts of the goal, or nothing for an empty goal.
func (p *Problem) Goals() []ontology.Expression {
	switch {
	case p.Goal.IsEmpty():
		return nil
	case p.Goal.Operator() == ontology.OpAnd:
		return append([]ontology.Expression(nil), p.Goal.Args...)
	default:
		return []ontology.Expression{p.Goal}
	}
}

// String renders the domain with its own name and requirements.
func (d *Domain) String() string {
	r := DefaultRenderer()
	r.DomainName = d.Name
	if len(d.Requirements) > 0 {
		r.Requirements = d.Requirements
	}
	return r.Domain(d.Types, d.Constants, d.Predicates, d.Actions)
}

func parseError(n *Node, format string, args ...interface{}) error {
	pos := -1
	if n != nil {
		pos = n.Pos.Offset
	}
	return &ontology.MalformedInputError{Position: pos, Message: fmt.Sprintf(format, args...)}
}

// scope maps names to the instances they denote while reading expressions.
type scope map[string]ontology.Instance

func (s scope) with(instances ...ontology.Instance) scope {
	out := make(scope, len(s)+len(instances))
	for k, v := range s {
		out[k] = v
	}
	for _, inst := range instances {
		out[inst.Name()] = inst
	}
	return out
}

// reader converts s-expressions into ontology values.
type reader struct {
	registry *ontology.Registry
}

func definition(text, kind string) (*Node, string, error) {
	doc, err := ParseDocument(kind, text)
	if err != nil {
		return nil, "", err
	}
	if len(doc.Nodes) != 1 {
		return nil, "", parseError(nil, "expected exactly one %s definition, found %d expressions", kind, len(doc.Nodes))
	}
	root := doc.Nodes[0]
	if root.Head() != "define" || len(root.Items) < 2 {
		return nil, "", parseError(root, "expected (define (%s NAME) ...)", kind)
	}
	header := root.Items[1]
	if header.Head() != kind || len(header.Items) != 2 || !header.Items[1].IsAtom() {
		return nil, "", parseError(header, "expected (%s NAME)", kind)
	}
	return root, *header.Items[1].Atom, nil
}

// ParseDomain reads a domain document, declaring its types in registry.
func ParseDomain(registry *ontology.Registry, text string) (*Domain, error) {
	root, name, err := definition(text, "domain")
	if err != nil {
		return nil, err
	}
	rd := reader{registry: registry}
	domain := &Domain{Name: name}
	constants := scope{}

	for _, section := range root.Items[2:] {
		switch section.Head() {
		case ":requirements":
			domain.Requirements = atoms(section.Items[1:])
		case SectionTypes:
			types, err := rd.types(section)
			if err != nil {
				return nil, err
			}
			domain.Types = types
		case SectionConstants:
			insts, err := rd.typedList(section.Items[1:])
			if err != nil {
				return nil, err
			}
			domain.Constants = insts
			constants = constants.with(insts...)
		case ":predicates":
			for _, item := range section.Items[1:] {
				pred, err := rd.declaration(item)
				if err != nil {
					return nil, err
				}
				domain.Predicates = append(domain.Predicates, pred)
			}
		case ":functions":
			for _, item := range section.Items[1:] {
				if item.IsAtom() {
					// Typed function lists, e.g. "- number".
					continue
				}
				fn, err := rd.declaration(item)
				if err != nil {
					return nil, err
				}
				domain.Functions = append(domain.Functions, fn)
			}
		case ":action":
			action, err := rd.action(section, constants)
			if err != nil {
				return nil, err
			}
			domain.Actions = append(domain.Actions, action)
		default:
			return nil, parseError(section, "unsupported domain section %q", section.Head())
		}
	}
	return domain, nil
}

// ParseProblem reads a problem document. Objects are created in registry,
// which must already know the domain types. Constants of the domain may be
// passed so that facts refer to them with their declared types.
func ParseProblem(registry *ontology.Registry, text string, constants ...ontology.Instance) (*Problem, error) {
	root, name, err := definition(text, "problem")
	if err != nil {
		return nil, err
	}
	rd := reader{registry: registry}
	problem := &Problem{Name: name}
	known := scope{}.with(constants...)

	for _, section := range root.Items[2:] {
		switch section.Head() {
		case ":domain":
			if len(section.Items) != 2 || !section.Items[1].IsAtom() {
				return nil, parseError(section, "expected (:domain NAME)")
			}
			problem.DomainName = *section.Items[1].Atom
		case ":requirements":
		case SectionObjects:
			insts, err := rd.typedList(section.Items[1:])
			if err != nil {
				return nil, err
			}
			problem.Objects = insts
			known = known.with(insts...)
		case SectionInit:
			for _, item := range section.Items[1:] {
				fact, err := rd.expression(item, known)
				if err != nil {
					return nil, err
				}
				problem.Init = append(problem.Init, fact)
			}
		case SectionGoal:
			switch len(section.Items) {
			case 1:
			case 2:
				goal, err := rd.expression(section.Items[1], known)
				if err != nil {
					return nil, err
				}
				problem.Goal = goal
			default:
				return nil, parseError(section, "goal section must hold a single expression")
			}
		case ":metric":
			metric, err := rd.expression(section, known)
			if err != nil {
				return nil, err
			}
			problem.Metric = metric
		default:
			return nil, parseError(section, "unsupported problem section %q", section.Head())
		}
	}
	return problem, nil
}

// ParseFile reads a buffer holding a domain followed by a problem.
func ParseFile(registry *ontology.Registry, text string) (*Domain, *Problem, error) {
	domainText, problemText := SplitDomainAndProblem(text)
	domain, err := ParseDomain(registry, domainText)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing domain: %w", err)
	}
	problem, err := ParseProblem(registry, problemText, domain.Constants...)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing problem: %w", err)
	}
	return domain, problem, nil
}

func atoms(nodes []*Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n.IsAtom() {
			out = append(out, *n.Atom)
		}
	}
	return out
}

type typedName struct {
	name     string
	typeName string
	node     *Node
}

// splitTypedList reads "a b - t c" into names with their type; names with no
// type get an empty type name.
func splitTypedList(nodes []*Node) ([]typedName, error) {
	var out []typedName
	pending := 0
	for i := 0; i < len(nodes); i++ {
		n := nodes[i]
		if !n.IsAtom() {
			return nil, parseError(n, "expected a name in typed list")
		}
		if *n.Atom != "-" {
			out = append(out, typedName{name: *n.Atom, node: n})
			pending++
			continue
		}
		if i+1 >= len(nodes) || !nodes[i+1].IsAtom() {
			return nil, parseError(n, "expected a type name after \"-\"")
		}
		if pending == 0 {
			return nil, parseError(n, "type %q applies to no name", *nodes[i+1].Atom)
		}
		typeName := *nodes[i+1].Atom
		for j := len(out) - pending; j < len(out); j++ {
			out[j].typeName = typeName
		}
		pending = 0
		i++
	}
	return out, nil
}

func (rd reader) types(section *Node) ([]*ontology.Type, error) {
	entries, err := splitTypedList(section.Items[1:])
	if err != nil {
		return nil, err
	}
	parents := make(map[string]string, len(entries))
	for _, e := range entries {
		parents[e.name] = e.typeName
	}

	var out []*ontology.Type
	defined := make(map[string]bool)
	var define func(name string, seen map[string]bool) error
	define = func(name string, seen map[string]bool) error {
		if defined[name] || name == ontology.ObjectTypeName {
			return nil
		}
		if seen[name] {
			return parseError(section, "type %q is its own ancestor", name)
		}
		seen[name] = true
		parent := parents[name]
		if parent != "" {
			if err := define(parent, seen); err != nil {
				return err
			}
		}
		typ, err := rd.registry.DefineType(name, parent)
		if err != nil {
			return err
		}
		defined[name] = true
		out = append(out, typ)
		return nil
	}
	for _, e := range entries {
		if err := define(e.name, map[string]bool{}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (rd reader) typedList(nodes []*Node) ([]ontology.Instance, error) {
	entries, err := splitTypedList(nodes)
	if err != nil {
		return nil, err
	}
	out := make([]ontology.Instance, 0, len(entries))
	for _, e := range entries {
		inst, err := rd.registry.NewInstance(e.name, e.typeName)
		if err != nil {
			return nil, fmt.Errorf("declaring %q at %d: %w", e.name, e.node.Pos.Offset, err)
		}
		out = append(out, inst)
	}
	return out, nil
}

// declaration reads "(name ?a - t ?b)" into an expression with typed
// variable leaves.
func (rd reader) declaration(n *Node) (ontology.Expression, error) {
	if !n.List || n.Head() == "" {
		return ontology.Expression{}, parseError(n, "expected a declaration")
	}
	params, err := rd.typedList(n.Items[1:])
	if err != nil {
		return ontology.Expression{}, err
	}
	return ontology.Fact(n.Head(), params...), nil
}

func (rd reader) action(section *Node, constants scope) (ontology.Action, error) {
	items := section.Items[1:]
	if len(items) == 0 || !items[0].IsAtom() {
		return ontology.Action{}, parseError(section, "expected an action name")
	}
	action := ontology.Action{Name: *items[0].Atom}
	vars := constants
	for i := 1; i < len(items); i += 2 {
		key := items[i]
		if !key.IsAtom() || i+1 >= len(items) {
			return ontology.Action{}, parseError(key, "expected a keyword followed by a value in action %q", action.Name)
		}
		value := items[i+1]
		switch *key.Atom {
		case ":parameters":
			if !value.List {
				return ontology.Action{}, parseError(value, "parameters of action %q must be a list", action.Name)
			}
			params, err := rd.typedList(value.Items)
			if err != nil {
				return ontology.Action{}, err
			}
			action.Parameters = params
			vars = constants.with(params...)
		case ":precondition":
			pre, err := rd.expression(value, vars)
			if err != nil {
				return ontology.Action{}, err
			}
			action.Precondition = pre
		case ":effect":
			eff, err := rd.expression(value, vars)
			if err != nil {
				return ontology.Action{}, err
			}
			action.Effect = eff
		default:
			return ontology.Action{}, parseError(key, "unsupported action keyword %q", *key.Atom)
		}
	}
	return action, nil
}

// expression reads a node into an expression. Atoms that name a known
// instance or variable become instance leaves of that type; other atoms
// become object-typed leaves.
func (rd reader) expression(n *Node, known scope) (ontology.Expression, error) {
	if n.IsAtom() {
		if inst, ok := known[*n.Atom]; ok {
			return inst.Expression(), nil
		}
		return ontology.Literal(*n.Atom).Expression(), nil
	}
	if len(n.Items) == 0 {
		return ontology.Expression{}, nil
	}
	head := n.Head()
	if head == "" {
		return ontology.Expression{}, parseError(n, "expression must start with a word")
	}

	if head == ontology.ForallOperator || head == ontology.ExistsOperator {
		return rd.quantifier(n, head, known)
	}

	args := make([]ontology.Expression, 0, len(n.Items)-1)
	for _, item := range n.Items[1:] {
		arg, err := rd.expression(item, known)
		if err != nil {
			return ontology.Expression{}, err
		}
		args = append(args, arg)
	}
	return ontology.NewExpression(head, args...)
}

// quantifier reads (forall (?a - t ?b - u) body), nesting one quantifier per
// variable.
func (rd reader) quantifier(n *Node, head string, known scope) (ontology.Expression, error) {
	if len(n.Items) != 3 || !n.Items[1].List {
		return ontology.Expression{}, parseError(n, "expected (%s (VARIABLES) BODY)", head)
	}
	vars, err := rd.typedList(n.Items[1].Items)
	if err != nil {
		return ontology.Expression{}, err
	}
	if len(vars) == 0 {
		return ontology.Expression{}, parseError(n, "%s binds no variable", head)
	}
	body, err := rd.expression(n.Items[2], known.with(vars...))
	if err != nil {
		return ontology.Expression{}, err
	}
	for i := len(vars) - 1; i >= 0; i-- {
		if head == ontology.ForallOperator {
			body = ontology.Forall(vars[i], body)
		} else {
			body = ontology.Exists(vars[i], body)
		}
	}
	return body, nil
}

// ParseObjects reads a typed list such as "world - place alice - human" and
// declares each name in registry.
func ParseObjects(registry *ontology.Registry, text string) ([]ontology.Instance, error) {
	doc, err := ParseDocument("objects", text)
	if err != nil {
		return nil, err
	}
	return reader{registry: registry}.typedList(doc.Nodes)
}

// ParseExpressions reads a sequence of expressions, e.g. the facts of an
// initial state. Atoms naming one of known become leaves of its type.
func ParseExpressions(registry *ontology.Registry, text string, known ...ontology.Instance) ([]ontology.Expression, error) {
	doc, err := ParseDocument("expressions", text)
	if err != nil {
		return nil, err
	}
	rd := reader{registry: registry}
	scope := scope{}.with(known...)
	out := make([]ontology.Expression, 0, len(doc.Nodes))
	for _, n := range doc.Nodes {
		if n.IsAtom() {
			return nil, parseError(n, "expected an expression, found %q", *n.Atom)
		}
		expr, err := rd.expression(n, scope)
		if err != nil {
			return nil, err
		}
		out = append(out, expr)
	}
	return out, nil
}
