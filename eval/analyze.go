package eval

import (
	"strings"

	"go.uber.org/zap"

	"github.com/pddlplanning/pddlplanning-go/ontology"
)

// GoalResult is the truth of one goal in a state.
type GoalResult struct {
	Goal      ontology.Expression
	Satisfied bool
}

func (r GoalResult) String() string {
	return Mark{Expression: r.Goal, Result: r.Satisfied}.String()
}

// AnalyzeGoals evaluates each goal against the initial state and logs which
// ones already hold. A nil logger disables logging.
func AnalyzeGoals(objects []ontology.Instance, init, goals []ontology.Expression, logger *zap.Logger) ([]GoalResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("goal analysis", zap.Strings("state", ontology.Strings(init)))

	evaluator := New(objects, NewFactSet(init...))
	results := make([]GoalResult, 0, len(goals))
	lines := make([]string, 0, len(goals))
	for _, goal := range goals {
		ok, err := evaluator.Evaluate(goal)
		if err != nil {
			return results, err
		}
		result := GoalResult{Goal: goal, Satisfied: ok}
		results = append(results, result)
		lines = append(lines, result.String())
	}

	logger.Info("evaluated goals",
		zap.Int("goals", len(goals)),
		zap.Int("satisfied", countSatisfied(results)),
		zap.String("marks", strings.Join(lines, "\n")))
	return results, nil
}

// Unsatisfied filters the goals that do not hold.
func Unsatisfied(results []GoalResult) []ontology.Expression {
	var out []ontology.Expression
	for _, r := range results {
		if !r.Satisfied {
			out = append(out, r.Goal)
		}
	}
	return out
}

func countSatisfied(results []GoalResult) int {
	n := 0
	for _, r := range results {
		if r.Satisfied {
			n++
		}
	}
	return n
}
