package planning

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/pddlplanning/pddlplanning-go/ontology"
)

// WithTimeout bounds every search with d. A zero duration leaves the solver
// unchanged.
func WithTimeout(s Solver, d time.Duration) Solver {
	if d <= 0 {
		return s
	}
	return SolverFunc(func(ctx context.Context, domain, problem string) ([]ontology.Task, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return s.SearchPlan(ctx, domain, problem)
	})
}

// WithRetry retries searches that failed with ErrSolverUnavailable, with an
// exponential backoff starting at base, for at most attempts tries in total.
// Translation and planning errors are returned at once.
func WithRetry(s Solver, attempts uint64, base time.Duration) Solver {
	if attempts <= 1 {
		return s
	}
	return SolverFunc(func(ctx context.Context, domain, problem string) ([]ontology.Task, error) {
		backoff := retry.WithMaxRetries(attempts-1, retry.NewExponential(base))

		var plan []ontology.Task
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			var err error
			plan, err = s.SearchPlan(ctx, domain, problem)
			if errors.Is(err, ErrSolverUnavailable) {
				return retry.RetryableError(err)
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		return plan, nil
	})
}

// Chain applies decorators in order: the first one wraps s directly.
func Chain(s Solver, decorators ...func(Solver) Solver) Solver {
	for _, d := range decorators {
		s = d(s)
	}
	return s
}
