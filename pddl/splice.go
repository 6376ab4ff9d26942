package pddl

import (
	"strings"

	"github.com/pddlplanning/pddlplanning-go/ontology"
)

// SplitDomainAndProblem splits a buffer holding a domain followed by a problem
// at the last definition marker. It assumes exactly one of each and no other
// occurrence of the marker. Without a marker, everything is domain.
func SplitDomainAndProblem(text string) (domain, problem string) {
	idx := strings.LastIndex(text, DefineMarker)
	if idx < 0 {
		return text, ""
	}
	return text[:idx], text[idx:]
}

// ReplaceSection replaces the first expression headed by section with
// replacement. The rest of the text is left untouched.
func ReplaceSection(problem, section, replacement string) (string, error) {
	r, ok, err := FindExpressionWithWord(problem, section)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &ontology.MissingSectionError{Section: section}
	}
	return problem[:r.Start] + replacement + problem[r.End+1:], nil
}

// ReplaceObjects replaces the :objects section with the given instances.
func ReplaceObjects(problem string, instances []ontology.Instance) (string, error) {
	return ReplaceSection(problem, SectionObjects, RenderObjects(instances))
}

// ReplaceInit replaces the :init section with the given facts.
func ReplaceInit(problem string, facts []ontology.Expression) (string, error) {
	return ReplaceSection(problem, SectionInit, RenderInit(facts))
}

// ReplaceGoal replaces the :goal section with the given goals.
func ReplaceGoal(problem string, goals []ontology.Expression) (string, error) {
	return ReplaceSection(problem, SectionGoal, RenderGoal(goals))
}

// DefinitionName returns NAME from the "(kind NAME)" header of a document,
// e.g. the problem name for kind "problem".
func DefinitionName(text, kind string) (string, bool) {
	r, ok, err := FindExpressionWithWord(text, kind)
	if err != nil || !ok {
		return "", false
	}
	fields := strings.Fields(strings.Trim(r.Of(text), "()"))
	if len(fields) != 2 {
		return "", false
	}
	return fields[1], true
}
