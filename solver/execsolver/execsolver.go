// Package execsolver runs a local planner binary on temporary domain and
// problem files.
package execsolver

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pddlplanning/pddlplanning-go/ontology"
	"github.com/pddlplanning/pddlplanning-go/planning"
)

// Placeholders replaced in Config.Args.
const (
	DomainPlaceholder  = "{domain}"
	ProblemPlaceholder = "{problem}"
	PlanPlaceholder    = "{plan}"
)

// Config configures the planner invocation. Exit codes default to the
// Fast Downward driver conventions.
type Config struct {
	Command string   `json:"command" yaml:"command"`
	Args    []string `json:"args" yaml:"args"`
	// PlanFile is the plan file name inside the work directory. When empty
	// the plan is read from standard output.
	PlanFile             string   `json:"plan_file" yaml:"plan_file"`
	Env                  []string `json:"env" yaml:"env"`
	NoPlanExitCodes      []int    `json:"no_plan_exit_codes" yaml:"no_plan_exit_codes"`
	TranslationExitCodes []int    `json:"translation_exit_codes" yaml:"translation_exit_codes"`
}

// waitDelay bounds how long output is drained after the planner is killed.
const waitDelay = 2 * time.Second

// Solver is a planning.Solver running Config.Command.
type Solver struct {
	config *Config
	logger *zap.Logger
}

// New creates a solver.
func New(config *Config, logger *zap.Logger) (*Solver, error) {
	if config == nil || config.Command == "" {
		return nil, fmt.Errorf("command is required")
	}
	if len(config.Args) == 0 {
		config.Args = []string{DomainPlaceholder, ProblemPlaceholder}
	}
	if config.NoPlanExitCodes == nil {
		config.NoPlanExitCodes = []int{10, 11, 12}
	}
	if config.TranslationExitCodes == nil {
		config.TranslationExitCodes = []int{30, 31, 33}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Solver{config: config, logger: logger}, nil
}

// SearchPlan writes both documents to a temporary directory and runs the
// planner there.
func (s *Solver) SearchPlan(ctx context.Context, domain, problem string) ([]ontology.Task, error) {
	dir, err := os.MkdirTemp("", "pddl-")
	if err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(dir)

	domainPath := filepath.Join(dir, "domain.pddl")
	problemPath := filepath.Join(dir, "problem.pddl")
	planPath := filepath.Join(dir, "plan")
	if s.config.PlanFile != "" {
		planPath = filepath.Join(dir, s.config.PlanFile)
	}
	if err := os.WriteFile(domainPath, []byte(domain), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write domain: %w", err)
	}
	if err := os.WriteFile(problemPath, []byte(problem), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write problem: %w", err)
	}

	replacer := strings.NewReplacer(DomainPlaceholder, domainPath, ProblemPlaceholder, problemPath, PlanPlaceholder, planPath)
	args := make([]string, len(s.config.Args))
	for i, arg := range s.config.Args {
		args[i] = replacer.Replace(arg)
	}

	cmd := exec.CommandContext(ctx, s.config.Command, args...)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay
	cmd.Env = append(os.Environ(), s.config.Env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	s.logger.Debug("running planner", zap.String("command", s.config.Command), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, s.exitError(err, stderr.String())
	}

	output := stdout.Bytes()
	if s.config.PlanFile != "" {
		output, err = os.ReadFile(planPath)
		if errors.Is(err, os.ErrNotExist) {
			return nil, &planning.PlanningError{Message: "planner wrote no plan file"}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read plan: %w", err)
		}
	}
	return ParsePlan(output)
}

func (s *Solver) exitError(err error, stderr string) error {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return planning.Unavailable(err)
	}
	message := lastLine(stderr)
	code := exitErr.ExitCode()
	switch {
	case contains(s.config.TranslationExitCodes, code):
		return &planning.TranslationError{Message: message, Err: err}
	case contains(s.config.NoPlanExitCodes, code):
		return &planning.PlanningError{Message: "no plan found", Err: err}
	default:
		return &planning.PlanningError{Message: message, Err: err}
	}
}

// ParsePlan reads one "(action p1 p2)" task per line. Lines that do not
// start with a parenthesis, such as ";" cost annotations, are skipped.
func ParsePlan(output []byte) ([]ontology.Task, error) {
	var tasks []ontology.Task
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "(") {
			continue
		}
		task, err := ontology.ParseTask(line)
		if err != nil {
			return nil, &planning.PlanningError{Message: "unreadable plan", Err: err}
		}
		tasks = append(tasks, task)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	return tasks, nil
}

func lastLine(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func contains(codes []int, code int) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
