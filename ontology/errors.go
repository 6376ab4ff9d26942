package ontology

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for the error kinds of the planning core. Typed errors below
// match them through errors.Is.
var (
	ErrInvariant      = errors.New("invariant violation")
	ErrMalformedInput = errors.New("malformed input")
	ErrMissingSection = errors.New("missing section")
	ErrEvaluation     = errors.New("evaluation error")
	ErrIllegalUsage   = errors.New("illegal usage")
	ErrUnknownType    = errors.New("unknown type")
)

// InvariantError reports a broken structural invariant: a malformed expression
// or two conflicting definitions sharing a name. It is never recovered from.
type InvariantError struct {
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation: %s", e.Message)
}

func (e *InvariantError) Is(target error) bool { return target == ErrInvariant }

// MalformedInputError reports text that cannot be located or parsed, such as an
// unclosed parenthesis.
type MalformedInputError struct {
	Position int
	Message  string
}

func (e *MalformedInputError) Error() string {
	if e.Position < 0 {
		return fmt.Sprintf("malformed PDDL: %s", e.Message)
	}
	return fmt.Sprintf("malformed PDDL at %d: %s", e.Position, e.Message)
}

func (e *MalformedInputError) Is(target error) bool { return target == ErrMalformedInput }

// MissingSectionError reports that a section to splice is absent from a document.
type MissingSectionError struct {
	Section string
}

func (e *MissingSectionError) Error() string {
	return fmt.Sprintf("no %s section found in PDDL problem", strings.TrimPrefix(e.Section, ":"))
}

func (e *MissingSectionError) Is(target error) bool { return target == ErrMissingSection }

// EvaluationError reports an expression that cannot be evaluated.
type EvaluationError struct {
	Expression string
	Message    string
}

func (e *EvaluationError) Error() string {
	if e.Expression == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Expression)
}

func (e *EvaluationError) Is(target error) bool { return target == ErrEvaluation }

// IllegalUsageError reports identifiers used in a way the domain does not
// allow, e.g. undeclared predicates or goals no action can produce.
type IllegalUsageError struct {
	Context string
	Message string
	Names   []string
}

func (e *IllegalUsageError) Error() string {
	names := append([]string(nil), e.Names...)
	sort.Strings(names)
	return fmt.Sprintf("%s %s [%s]", e.Context, e.Message, strings.Join(names, ", "))
}

func (e *IllegalUsageError) Is(target error) bool { return target == ErrIllegalUsage }

// UnknownTypeError reports a reference to a type the registry does not know.
// It is malformed input as well.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("no such type %q", e.Type)
}

func (e *UnknownTypeError) Is(target error) bool {
	return target == ErrUnknownType || target == ErrMalformedInput
}

func invariantf(format string, args ...interface{}) *InvariantError {
	return &InvariantError{Message: fmt.Sprintf(format, args...)}
}
