// Package store keeps the history of plan searches.
package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pddlplanning/pddlplanning-go/ontology"
)

// Status is the outcome of a plan search.
type Status string

const (
	StatusSucceeded         Status = "succeeded"
	StatusTranslationFailed Status = "translation_failed"
	StatusPlanningFailed    Status = "planning_failed"
	StatusUnavailable       Status = "unavailable"
	StatusFailed            Status = "failed"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("plan record not found")

// Record is one plan search.
type Record struct {
	ID          uuid.UUID       `json:"id" yaml:"id"`
	DomainName  string          `json:"domain_name" yaml:"domain_name"`
	ProblemName string          `json:"problem_name" yaml:"problem_name"`
	Domain      string          `json:"domain,omitempty" yaml:"domain,omitempty"`
	Problem     string          `json:"problem,omitempty" yaml:"problem,omitempty"`
	Tasks       []ontology.Task `json:"tasks" yaml:"tasks"`
	Status      Status          `json:"status" yaml:"status"`
	Error       string          `json:"error,omitempty" yaml:"error,omitempty"`
	Duration    time.Duration   `json:"duration" yaml:"duration"`
	CreatedAt   time.Time       `json:"created_at" yaml:"created_at"`
}

// Filter selects records. Zero fields match everything.
type Filter struct {
	ProblemName string
	Status      Status
	Since       time.Time
	Limit       int
}

// DefaultListLimit bounds List when Filter.Limit is zero.
const DefaultListLimit = 50

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

func (f Filter) matches(r Record) bool {
	if f.ProblemName != "" && r.ProblemName != f.ProblemName {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if !f.Since.IsZero() && r.CreatedAt.Before(f.Since) {
		return false
	}
	return true
}

// Store persists plan records. Save fills a missing ID and creation time and
// returns the stored record. List returns the newest records first.
type Store interface {
	Save(ctx context.Context, record Record) (Record, error)
	Get(ctx context.Context, id uuid.UUID) (Record, error)
	List(ctx context.Context, filter Filter) ([]Record, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Close() error
}

// prepare fills the ID and creation time of a new record.
func prepare(r Record) Record {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	return r
}

func sortNewestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}
