// Package templates loads domain and problem documents that plan requests
// adapt before searching.
//
// A template named NAME is stored either as NAME.pddl holding the domain
// followed by the problem, or as NAME/domain.pddl and NAME/problem.pddl.
package templates

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/pddlplanning/pddlplanning-go/ontology"
	"github.com/pddlplanning/pddlplanning-go/pddl"
)

// File names of the split layout.
const (
	Extension   = ".pddl"
	DomainFile  = "domain" + Extension
	ProblemFile = "problem" + Extension
)

// ErrNotFound is returned when a template does not exist.
var ErrNotFound = errors.New("template not found")

// Template is a pair of documents.
type Template struct {
	Name    string `json:"name" yaml:"name"`
	Domain  string `json:"domain" yaml:"domain"`
	Problem string `json:"problem" yaml:"problem"`
}

// Source loads templates by name.
type Source interface {
	Load(ctx context.Context, name string) (Template, error)
	List(ctx context.Context) ([]string, error)
}

// FromCombined builds a template from a single document holding the domain
// followed by the problem.
func FromCombined(name, text string) (Template, error) {
	domain, problem := pddl.SplitDomainAndProblem(text)
	t := Template{Name: name, Domain: strings.TrimSpace(domain), Problem: strings.TrimSpace(problem)}
	return t, t.Validate()
}

// Validate checks that both documents carry a definition header.
func (t Template) Validate() error {
	if _, ok := pddl.DefinitionName(t.Domain, "domain"); !ok {
		return &ontology.MalformedInputError{Position: -1, Message: fmt.Sprintf("template %s has no domain definition", t.Name)}
	}
	if _, ok := pddl.DefinitionName(t.Problem, "problem"); !ok {
		return &ontology.MalformedInputError{Position: -1, Message: fmt.Sprintf("template %s has no problem definition", t.Name)}
	}
	return nil
}

// validName rejects names that could escape the source root.
func validName(name string) error {
	if name == "" || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid template name %q", name)
	}
	return nil
}

// templateName returns the template a stored file belongs to, relative to
// the source root, or false when the file is not part of a template.
func templateName(rel string) (string, bool) {
	rel = strings.TrimPrefix(path.Clean("/"+rel), "/")
	dir, file := path.Split(rel)
	dir = strings.TrimSuffix(dir, "/")
	switch {
	case dir == "" && strings.HasSuffix(file, Extension):
		return strings.TrimSuffix(file, Extension), true
	case dir != "" && !strings.Contains(dir, "/") && (file == DomainFile || file == ProblemFile):
		return dir, true
	}
	return "", false
}

func sortedNames(set map[string]struct{}) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
