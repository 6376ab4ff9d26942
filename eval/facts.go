// Package eval evaluates logical expressions against a closed-world state.
//
// A state is a set of objects and a set of ground facts. A fact holds exactly
// when it is a member of the set; anything else is false.
package eval

import (
	"github.com/pddlplanning/pddlplanning-go/ontology"
)

// FactSet indexes ground facts by structure. The zero value is empty and
// ready to use.
type FactSet struct {
	index map[string]int
	facts []ontology.Expression
}

// NewFactSet builds a set from facts. Duplicates are kept once.
func NewFactSet(facts ...ontology.Expression) *FactSet {
	s := &FactSet{}
	for _, f := range facts {
		s.Add(f)
	}
	return s
}

// Add inserts a fact and reports whether it was new.
func (s *FactSet) Add(fact ontology.Expression) bool {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	key := fact.Key()
	if _, ok := s.index[key]; ok {
		return false
	}
	s.index[key] = len(s.facts)
	s.facts = append(s.facts, fact)
	return true
}

// Remove deletes a fact and reports whether it was present.
func (s *FactSet) Remove(fact ontology.Expression) bool {
	key := fact.Key()
	idx, ok := s.index[key]
	if !ok {
		return false
	}
	delete(s.index, key)
	last := len(s.facts) - 1
	if idx != last {
		moved := s.facts[last]
		s.facts[idx] = moved
		s.index[moved.Key()] = idx
	}
	s.facts = s.facts[:last]
	return true
}

// Contains reports whether a structurally equal fact is in the set.
func (s *FactSet) Contains(fact ontology.Expression) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[fact.Key()]
	return ok
}

// Len returns the number of facts.
func (s *FactSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.facts)
}

// Facts lists the facts. Order is insertion order until the first Remove.
func (s *FactSet) Facts() []ontology.Expression {
	if s == nil {
		return nil
	}
	return append([]ontology.Expression(nil), s.facts...)
}
