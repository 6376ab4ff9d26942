// Package planning drives an external solver: it adapts problem documents,
// checks them, and wraps the solver boundary with timeouts, retries and
// recording.
package planning

import (
	"context"
	"errors"
	"fmt"

	"github.com/pddlplanning/pddlplanning-go/ontology"
)

// Solver searches a plan for a domain and a problem document. The solver is
// opaque: it may be a local binary, a remote service or a test stub.
type Solver interface {
	SearchPlan(ctx context.Context, domain, problem string) ([]ontology.Task, error)
}

// SolverFunc adapts a function to the Solver interface.
type SolverFunc func(ctx context.Context, domain, problem string) ([]ontology.Task, error)

// SearchPlan calls f.
func (f SolverFunc) SearchPlan(ctx context.Context, domain, problem string) ([]ontology.Task, error) {
	return f(ctx, domain, problem)
}

// Sentinel errors for the failure kinds at the solver boundary.
var (
	// ErrTranslation means the solver could not read the documents.
	ErrTranslation = errors.New("pddl translation failed")
	// ErrPlanning means the documents were read but no plan was found.
	ErrPlanning = errors.New("pddl planning failed")
	// ErrSolverUnavailable means the solver could not be reached. It is the
	// only failure worth retrying.
	ErrSolverUnavailable = errors.New("solver unavailable")
)

// TranslationError reports documents the solver rejected.
type TranslationError struct {
	Message string
	Err     error
}

func (e *TranslationError) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("translation error: %v", e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("translation error: %s: %v", e.Message, e.Err)
	}
	return "translation error: " + e.Message
}

func (e *TranslationError) Unwrap() error { return e.Err }

func (e *TranslationError) Is(target error) bool { return target == ErrTranslation }

// PlanningError reports a search that ended without a plan.
type PlanningError struct {
	Message string
	Err     error
}

func (e *PlanningError) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("planning error: %v", e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("planning error: %s: %v", e.Message, e.Err)
	}
	return "planning error: " + e.Message
}

func (e *PlanningError) Unwrap() error { return e.Err }

func (e *PlanningError) Is(target error) bool { return target == ErrPlanning }

// Unavailable wraps err so that it matches ErrSolverUnavailable.
func Unavailable(err error) error {
	if err == nil || errors.Is(err, ErrSolverUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrSolverUnavailable, err)
}

// Classify maps a failure raised while answering a plan request to a
// boundary error kind. Malformed input and illegal usage become translation
// errors, evaluation failures and unsupported operators become planning
// errors. Already classified errors are returned unchanged.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTranslation), errors.Is(err, ErrPlanning), errors.Is(err, ErrSolverUnavailable):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, ontology.ErrMalformedInput), errors.Is(err, ontology.ErrIllegalUsage),
		errors.Is(err, ontology.ErrMissingSection), errors.Is(err, ontology.ErrInvariant):
		return &TranslationError{Err: err}
	default:
		return &PlanningError{Err: err}
	}
}

// Kind names the failure kind of err, as used in records and events.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrTranslation):
		return "translation"
	case errors.Is(err, ErrPlanning):
		return "planning"
	case errors.Is(err, ErrSolverUnavailable):
		return "unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "unknown"
	}
}
