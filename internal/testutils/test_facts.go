package testutils

import (
	"context"
	"sync"

	"github.com/pddlplanning/pddlplanning-go/ontology"
)

// GreetDomain is a small domain where an agent greets every object.
type GreetDomain struct {
	Registry   *ontology.Registry
	Types      []*ontology.Type
	Constants  []ontology.Instance
	Predicates []ontology.Expression
	Actions    []ontology.Action
	Objects    []ontology.Instance

	Agent  ontology.Instance
	World  ontology.Instance
	Greet  ontology.Action
	Wave   ontology.Action
	Goal   ontology.Expression
	Greets func(ontology.Instance) ontology.Expression
}

// NewGreetDomain builds the greeting domain in a fresh registry. Objects are
// "world" (a place) and "alice" (a human); the agent "me" is a constant.
func NewGreetDomain() *GreetDomain {
	r := ontology.NewRegistry()
	entity := r.MustDefineType("entity", "")
	human := r.MustDefineType("human", "entity")
	place := r.MustDefineType("place", "entity")
	agentType := r.MustDefineType("agent", "")

	me := r.MustInstance("me", "agent")
	world := r.MustInstance("world", "place")
	alice := r.MustInstance("alice", "human")

	o := r.MustInstance("?o", "entity")
	wasGreeted := func(i ontology.Instance) ontology.Expression { return ontology.Fact("was_greeted", i) }
	greet := ontology.Action{
		Name:         "greet",
		Parameters:   []ontology.Instance{o},
		Precondition: ontology.Not(wasGreeted(o)),
		Effect:       ontology.And(wasGreeted(o), ontology.IncreaseCost(1)),
	}
	wave := ontology.Action{
		Name:         "wave",
		Parameters:   []ontology.Instance{o},
		Precondition: ontology.Fact("can_see", me, o),
		Effect:       ontology.When(ontology.Fact("is_human", o), ontology.Fact("was_waved_at", o)),
	}

	return &GreetDomain{
		Registry:  r,
		Types:     []*ontology.Type{entity, human, place, agentType},
		Constants: []ontology.Instance{me},
		Predicates: []ontology.Expression{
			wasGreeted(o),
			ontology.Fact("was_waved_at", o),
			ontology.Fact("is_human", o),
			ontology.Fact("can_see", r.MustInstance("?a", "agent"), o),
		},
		Actions: []ontology.Action{greet, wave},
		Objects: []ontology.Instance{me, world, alice},
		Agent:   me,
		World:   world,
		Greet:   greet,
		Wave:    wave,
		Goal:    ontology.Forall(o, wasGreeted(o)),
		Greets:  wasGreeted,
	}
}

// GreetProblem is a problem document for the greeting domain with every
// section present.
const GreetProblem = `(define (problem greet_everyone)
(:domain generated_domain)
(:requirements :adl :negative-preconditions :universal-preconditions)

(:objects
  world - place
)

(:init
  (can_see me world)
)

(:goal
    (forall (?o - entity) (was_greeted ?o))
  )
(:metric minimize (total-cost)))`

// SolverCall records one call to a StubSolver.
type SolverCall struct {
	Domain  string
	Problem string
}

// StubSolver returns a fixed plan or error and records its calls.
type StubSolver struct {
	Plan []ontology.Task
	Err  error

	mu    sync.Mutex
	calls []SolverCall
}

// SearchPlan records the call and returns the configured outcome.
func (s *StubSolver) SearchPlan(ctx context.Context, domain, problem string) ([]ontology.Task, error) {
	s.mu.Lock()
	s.calls = append(s.calls, SolverCall{Domain: domain, Problem: problem})
	s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]ontology.Task(nil), s.Plan...), nil
}

// Calls returns the recorded calls.
func (s *StubSolver) Calls() []SolverCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SolverCall(nil), s.calls...)
}

// GreetDomainText is the document form of GreetDomain.
const GreetDomainText = `(define (domain generated_domain)
(:requirements :adl :negative-preconditions :universal-preconditions)
(:types
  human place - entity
  agent
)
(:constants
  me - agent
)
(:predicates
  (was_greeted ?o - entity)
  (was_waved_at ?o - entity)
  (is_human ?o - entity)
  (can_see ?a - agent ?o - entity)
)
(:functions (total-cost))
(:action greet
  :parameters (?o - entity)
  :precondition (not (was_greeted ?o))
  :effect (and (was_greeted ?o) (increase (total-cost) 1))
)
(:action wave
  :parameters (?o - entity)
  :precondition (can_see me ?o)
  :effect (when (is_human ?o) (was_waved_at ?o))
)
)`
