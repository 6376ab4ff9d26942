package planning

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pddlplanning/pddlplanning-go/events"
	"github.com/pddlplanning/pddlplanning-go/ontology"
	"github.com/pddlplanning/pddlplanning-go/pddl"
	"github.com/pddlplanning/pddlplanning-go/store"
)

// Recorder wraps a solver and records every search in a store and as an
// event. Recording failures are logged and never change the search result.
type Recorder struct {
	solver    Solver
	store     store.Store
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
	timeout   time.Duration
}

// RecordTimeout bounds saving and publishing one search outcome.
const RecordTimeout = 5 * time.Second

// NewRecorder creates a recording solver. A nil store or publisher disables
// that side.
func NewRecorder(solver Solver, s store.Store, p events.Publisher, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if p == nil {
		p = events.NopPublisher{}
	}
	return &Recorder{solver: solver, store: s, publisher: p, logger: logger, now: time.Now, timeout: RecordTimeout}
}

// Recording returns a decorator usable with Chain.
func Recording(s store.Store, p events.Publisher, logger *zap.Logger) func(Solver) Solver {
	return func(solver Solver) Solver {
		return NewRecorder(solver, s, p, logger)
	}
}

// StatusOf maps a search error to a record status.
func StatusOf(err error) store.Status {
	switch Kind(err) {
	case "none":
		return store.StatusSucceeded
	case "translation":
		return store.StatusTranslationFailed
	case "planning":
		return store.StatusPlanningFailed
	case "unavailable", "timeout":
		return store.StatusUnavailable
	default:
		return store.StatusFailed
	}
}

// SearchPlan delegates to the wrapped solver and records the outcome.
func (r *Recorder) SearchPlan(ctx context.Context, domain, problem string) ([]ontology.Task, error) {
	start := r.now()
	plan, err := r.solver.SearchPlan(ctx, domain, problem)

	record := store.Record{
		Domain:   domain,
		Problem:  problem,
		Tasks:    plan,
		Status:   StatusOf(err),
		Duration: r.now().Sub(start),
	}
	record.DomainName, _ = pddl.DefinitionName(domain, "domain")
	record.ProblemName, _ = pddl.DefinitionName(problem, "problem")
	if err != nil {
		record.Error = err.Error()
	}

	// The caller's context may be done already; recording still happens.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()
	if r.store != nil {
		saved, saveErr := r.store.Save(recordCtx, record)
		if saveErr != nil {
			r.logger.Warn("failed to record plan search", zap.String("problem", record.ProblemName), zap.Error(saveErr))
		} else {
			record = saved
		}
	}

	event := events.Event{
		Type:        events.TypePlanFound,
		RecordID:    record.ID,
		DomainName:  record.DomainName,
		ProblemName: record.ProblemName,
		Status:      string(record.Status),
		Error:       record.Error,
		Tasks:       plan,
		Duration:    record.Duration,
	}
	if err != nil {
		event.Type = events.TypePlanFailed
	}
	if pubErr := r.publisher.Publish(recordCtx, event); pubErr != nil {
		r.logger.Warn("failed to publish plan event", zap.String("problem", record.ProblemName), zap.Error(pubErr))
	}

	return plan, err
}
