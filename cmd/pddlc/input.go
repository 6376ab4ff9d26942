package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pddlplanning/pddlplanning-go/internal/facts"
	"github.com/pddlplanning/pddlplanning-go/templates"
)

// readTemplate reads a combined .pddl file or a directory in the split
// layout.
func readTemplate(path string) (templates.Template, error) {
	info, err := os.Stat(path)
	if err != nil {
		return templates.Template{}, fmt.Errorf("reading template: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), templates.Extension)

	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return templates.Template{}, fmt.Errorf("reading template: %w", err)
		}
		return templates.FromCombined(name, string(data))
	}

	domain, err := os.ReadFile(filepath.Join(path, templates.DomainFile))
	if err != nil {
		return templates.Template{}, fmt.Errorf("reading template: %w", err)
	}
	problem, err := os.ReadFile(filepath.Join(path, templates.ProblemFile))
	if err != nil {
		return templates.Template{}, fmt.Errorf("reading template: %w", err)
	}
	t := templates.Template{Name: name, Domain: string(domain), Problem: string(problem)}
	return t, t.Validate()
}

// factsFlags collects facts from a file and from repeated flags. Flags
// extend the file's sections.
type factsFlags struct {
	path    string
	objects []string
	init    []string
	goals   []string
}

func (f *factsFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.path, "facts", "f", "", "YAML/JSON facts file with objects, init and goals")
	cmd.Flags().StringArrayVar(&f.objects, "object", nil, `Object declaration, e.g. "alice - human" (repeatable)`)
	cmd.Flags().StringArrayVar(&f.init, "init", nil, `Initial fact, e.g. "(can_see me alice)" (repeatable)`)
	cmd.Flags().StringArrayVar(&f.goals, "goal", nil, `Goal expression (repeatable)`)
}

func (f *factsFlags) load() (*facts.File, error) {
	file := &facts.File{}
	if f.path != "" {
		loaded, err := facts.Load(f.path)
		if err != nil {
			return nil, err
		}
		file = loaded
	}
	if len(f.objects) > 0 {
		file.Objects = append(file.Objects, f.objects...)
	}
	if len(f.init) > 0 {
		file.Init = append(file.Init, f.init...)
	}
	if len(f.goals) > 0 {
		file.Goals = append(file.Goals, f.goals...)
	}
	return file, nil
}

// input is a parsed template with the facts applied.
type input struct {
	template templates.Template
	context  *facts.Context
	resolved *facts.Resolved
}

func loadInput(path string, ff *factsFlags) (*input, error) {
	t, err := readTemplate(path)
	if err != nil {
		return nil, err
	}
	return resolveInput(t, ff)
}

func resolveInput(t templates.Template, ff *factsFlags) (*input, error) {
	ctx, err := facts.NewContext(t.Domain, t.Problem)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", t.Name, err)
	}
	file, err := ff.load()
	if err != nil {
		return nil, err
	}
	resolved, err := ctx.Resolve(file)
	if err != nil {
		return nil, err
	}
	return &input{template: t, context: ctx, resolved: resolved}, nil
}

// problem returns the template problem with the facts spliced in.
func (in *input) problem() (string, error) {
	return facts.Splice(in.template.Problem, in.resolved)
}
