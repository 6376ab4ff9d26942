package planning

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/pddlplanning/pddlplanning-go/ontology"
)

// TaskFilter selects tasks of a plan with an expression over "action",
// "parameters" and "index", e.g. `action == "greet" && "world" in parameters`.
type TaskFilter struct {
	source  string
	program *vm.Program
}

func taskEnv(index int, task ontology.Task) map[string]interface{} {
	params := task.Parameters
	if params == nil {
		params = []string{}
	}
	return map[string]interface{}{
		"action":     task.Action,
		"parameters": params,
		"index":      index,
	}
}

// CompileTaskFilter compiles a boolean task expression.
func CompileTaskFilter(expression string) (*TaskFilter, error) {
	program, err := expr.Compile(expression, expr.Env(taskEnv(0, ontology.Task{})), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compiling task filter %q: %w", expression, err)
	}
	return &TaskFilter{source: expression, program: program}, nil
}

// Match reports whether the task at index satisfies the filter.
func (f *TaskFilter) Match(index int, task ontology.Task) (bool, error) {
	result, err := expr.Run(f.program, taskEnv(index, task))
	if err != nil {
		return false, fmt.Errorf("evaluating task filter %q on %s: %w", f.source, task, err)
	}
	matched, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("task filter %q returned %T", f.source, result)
	}
	return matched, nil
}

// Filter keeps the tasks that satisfy the filter, in order.
func (f *TaskFilter) Filter(tasks []ontology.Task) ([]ontology.Task, error) {
	var out []ontology.Task
	for i, task := range tasks {
		ok, err := f.Match(i, task)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, task)
		}
	}
	return out, nil
}

// FilterTasks compiles expression and keeps the tasks that satisfy it. An
// empty expression keeps every task.
func FilterTasks(tasks []ontology.Task, expression string) ([]ontology.Task, error) {
	if expression == "" {
		return tasks, nil
	}
	f, err := CompileTaskFilter(expression)
	if err != nil {
		return nil, err
	}
	return f.Filter(tasks)
}
