// Package events publishes plan search outcomes to downstream consumers.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pddlplanning/pddlplanning-go/ontology"
)

// Type names an event.
type Type string

const (
	TypePlanFound  Type = "plan.found"
	TypePlanFailed Type = "plan.failed"
)

// Event describes one finished plan search.
type Event struct {
	ID          uuid.UUID       `json:"id"`
	Type        Type            `json:"type"`
	RecordID    uuid.UUID       `json:"record_id,omitempty"`
	DomainName  string          `json:"domain_name"`
	ProblemName string          `json:"problem_name"`
	Status      string          `json:"status"`
	Error       string          `json:"error,omitempty"`
	Tasks       []ontology.Task `json:"tasks,omitempty"`
	Duration    time.Duration   `json:"duration"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...Event) error { return nil }
func (NopPublisher) Close() error                            { return nil }

// MemoryPublisher collects events in memory.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

// Publish appends events.
func (m *MemoryPublisher) Publish(ctx context.Context, events ...Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

// Events returns a copy of the published events.
func (m *MemoryPublisher) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

func (m *MemoryPublisher) Close() error { return nil }

// prepare fills the ID and time of an event.
func prepare(e Event) Event {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	return e
}
