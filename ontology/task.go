package ontology

import (
	"fmt"
	"strings"
)

// Task is a fully grounded step of a plan: an action name plus the names of
// the instances it applies to. Tasks come from the solver and are only
// displayed or compared.
type Task struct {
	Action     string   `json:"action" yaml:"action"`
	Parameters []string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// NewTask builds a task from an action name followed by parameter names.
func NewTask(action string, parameters ...string) Task {
	return Task{Action: action, Parameters: append([]string(nil), parameters...)}
}

// ParseTask reads "action p1 p2" or "(action p1 p2)".
func ParseTask(text string) (Task, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "(") {
		if !strings.HasSuffix(trimmed, ")") {
			return Task{}, &MalformedInputError{Position: -1, Message: fmt.Sprintf("unbalanced task %q", text)}
		}
		trimmed = strings.TrimSpace(trimmed[1 : len(trimmed)-1])
	}
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return Task{}, &MalformedInputError{Position: -1, Message: "empty task"}
	}
	return NewTask(fields[0], fields[1:]...), nil
}

func (t Task) String() string {
	if len(t.Parameters) == 0 {
		return t.Action
	}
	return t.Action + " " + strings.Join(t.Parameters, " ")
}

// Equal compares action and parameters.
func (t Task) Equal(other Task) bool {
	if t.Action != other.Action || len(t.Parameters) != len(other.Parameters) {
		return false
	}
	for i := range t.Parameters {
		if t.Parameters[i] != other.Parameters[i] {
			return false
		}
	}
	return true
}

// Contains reports whether the instance is one of the task parameters.
func (t Task) Contains(inst Instance) bool {
	for _, p := range t.Parameters {
		if p == inst.name {
			return true
		}
	}
	return false
}

// FormatPlan renders tasks one per line, parenthesized.
func FormatPlan(tasks []Task) string {
	lines := make([]string, len(tasks))
	for i, t := range tasks {
		lines[i] = "(" + t.String() + ")"
	}
	return strings.Join(lines, "\n")
}
