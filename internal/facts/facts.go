// Package facts reads the objects, initial state and goals that the CLI and
// the daemon splice into problem templates.
package facts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pddlplanning/pddlplanning-go/eval"
	"github.com/pddlplanning/pddlplanning-go/lint"
	"github.com/pddlplanning/pddlplanning-go/ontology"
	"github.com/pddlplanning/pddlplanning-go/pddl"
	"github.com/pddlplanning/pddlplanning-go/planning"
)

// File lists objects as "name - type" declarations and facts and goals as
// PDDL expressions. Nil sections are left untouched in the problem.
type File struct {
	Objects []string `json:"objects,omitempty" yaml:"objects,omitempty"`
	Init    []string `json:"init,omitempty" yaml:"init,omitempty"`
	Goals   []string `json:"goals,omitempty" yaml:"goals,omitempty"`
}

// Load reads a YAML or JSON facts file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading facts: %w", err)
	}
	f := &File{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, f); err != nil {
			return nil, fmt.Errorf("parsing facts json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, f); err != nil {
			return nil, fmt.Errorf("parsing facts yaml: %w", err)
		}
	}
	return f, nil
}

// Resolved holds the ontology values of a File.
type Resolved struct {
	Objects []ontology.Instance
	Init    []ontology.Expression
	Goals   []ontology.Expression

	HasObjects bool
	HasInit    bool
	HasGoals   bool
}

// Context is what facts are resolved against: the parsed template.
type Context struct {
	Registry *ontology.Registry
	Domain   *pddl.Domain
	Problem  *pddl.Problem
}

// NewContext parses a domain and a problem into a fresh registry.
func NewContext(domain, problem string) (*Context, error) {
	registry := ontology.NewRegistry()
	d, err := pddl.ParseDomain(registry, domain)
	if err != nil {
		return nil, fmt.Errorf("parsing domain: %w", err)
	}
	p, err := pddl.ParseProblem(registry, problem, d.Constants...)
	if err != nil {
		return nil, fmt.Errorf("parsing problem: %w", err)
	}
	return &Context{Registry: registry, Domain: d, Problem: p}, nil
}

// Resolve declares the objects of f and reads its expressions. Names known
// to the template, constants and objects alike, keep their types.
func (c *Context) Resolve(f *File) (*Resolved, error) {
	out := &Resolved{HasObjects: f.Objects != nil, HasInit: f.Init != nil, HasGoals: f.Goals != nil}

	objects, err := pddl.ParseObjects(c.Registry, strings.Join(f.Objects, "\n"))
	if err != nil {
		return nil, fmt.Errorf("objects: %w", err)
	}
	out.Objects = objects

	known := append(append([]ontology.Instance(nil), c.Domain.Constants...), c.Problem.Objects...)
	known = append(known, objects...)
	if out.Init, err = pddl.ParseExpressions(c.Registry, strings.Join(f.Init, "\n"), known...); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	if out.Goals, err = pddl.ParseExpressions(c.Registry, strings.Join(f.Goals, "\n"), known...); err != nil {
		return nil, fmt.Errorf("goals: %w", err)
	}
	return out, nil
}

// Objects returns the objects in effect: the resolved ones when given,
// otherwise those of the template problem.
func (c *Context) Objects(r *Resolved) []ontology.Instance {
	if r.HasObjects {
		return r.Objects
	}
	return c.Problem.Objects
}

// Init returns the initial state in effect.
func (c *Context) Init(r *Resolved) []ontology.Expression {
	if r.HasInit {
		return r.Init
	}
	return c.Problem.Init
}

// Goals returns the goals in effect.
func (c *Context) Goals(r *Resolved) []ontology.Expression {
	if r.HasGoals {
		return r.Goals
	}
	return c.Problem.Goals()
}

// Splice replaces the sections of problem that r provides.
func Splice(problem string, r *Resolved) (string, error) {
	var err error
	if r.HasObjects {
		if problem, err = pddl.ReplaceObjects(problem, r.Objects); err != nil {
			return "", err
		}
	}
	if r.HasInit {
		if problem, err = pddl.ReplaceInit(problem, r.Init); err != nil {
			return "", err
		}
	}
	if r.HasGoals {
		if problem, err = pddl.ReplaceGoal(problem, r.Goals); err != nil {
			return "", err
		}
	}
	return problem, nil
}

// Planning returns the domain and the problem in effect in the form the
// planning helpers take.
func (c *Context) Planning(r *Resolved) (planning.Ontology, planning.Problem) {
	onto := planning.Ontology{
		Types:      c.Domain.Types,
		Constants:  c.Domain.Constants,
		Predicates: c.Domain.Predicates,
		Actions:    c.Domain.Actions,
	}
	return onto, planning.Problem{Objects: c.Objects(r), Init: c.Init(r), Goals: c.Goals(r)}
}

// LintInput returns the domain and the problem in effect as linter input.
func (c *Context) LintInput(r *Resolved) lint.Input {
	onto, problem := c.Planning(r)
	return lint.Input{
		Types:      onto.Types,
		Constants:  onto.Constants,
		Predicates: onto.Predicates,
		Actions:    onto.Actions,
		Objects:    problem.Objects,
		Init:       problem.Init,
		Goals:      problem.Goals,
	}
}

// Evaluation is the truth of one expression in the initial state.
type Evaluation struct {
	Expression string   `json:"expression"`
	Satisfied  bool     `json:"satisfied"`
	Trace      []string `json:"trace,omitempty"`
}

// Evaluate decides each expression against the initial state in effect.
// Without expressions the goals are evaluated. With trace every evaluated
// node is reported, indented by depth.
func (c *Context) Evaluate(r *Resolved, expressions []string, trace bool) ([]Evaluation, error) {
	objects := c.Objects(r)
	targets := c.Goals(r)
	if len(expressions) > 0 {
		known := append(append([]ontology.Instance(nil), c.Domain.Constants...), objects...)
		var err error
		targets, err = pddl.ParseExpressions(c.Registry, strings.Join(expressions, "\n"), known...)
		if err != nil {
			return nil, fmt.Errorf("expressions: %w", err)
		}
	}

	state := eval.NewFactSet(c.Init(r)...)
	out := make([]Evaluation, 0, len(targets))
	for _, target := range targets {
		var marks []string
		var opts []eval.Option
		if trace {
			opts = append(opts, eval.WithTrace(func(m eval.Mark) {
				marks = append(marks, strings.Repeat("  ", m.Depth)+m.String())
			}))
		}
		ok, err := eval.New(objects, state, opts...).Evaluate(target)
		if err != nil {
			return out, err
		}
		out = append(out, Evaluation{Expression: target.String(), Satisfied: ok, Trace: marks})
	}
	return out, nil
}
