package invgroups

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoDefaultGroup reports a group set without exactly one default group.
	ErrNoDefaultGroup = errors.New("invgroups: exactly one default group is required")
	// ErrDuplicateGroup reports two groups sharing a name.
	ErrDuplicateGroup = errors.New("invgroups: group names must be unique")
	// ErrWorldAssigned reports a world explicitly assigned to two groups.
	ErrWorldAssigned = errors.New("invgroups: world assigned to more than one group")
	// ErrSlotOverlap reports a slot index claimed by two shared-slot entries.
	ErrSlotOverlap = errors.New("invgroups: shared slot assigned more than once")
	// ErrSlotRange reports a shared-slot index outside 0-40.
	ErrSlotRange = errors.New("invgroups: shared slot index out of range")
	// ErrNoEvaluator reports an expression engine that is not available.
	ErrNoEvaluator = errors.New("invgroups: expression evaluator not configured")
)

// EvaluationError captures evaluator metadata alongside the originating error.
type EvaluationError struct {
	Engine string
	Expr   string
	Scope  string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("invgroups: %s evaluator %s scope=%s: %v", e.Engine, describeExpression(e.Expr), e.Scope, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}
	if strings.HasPrefix(err.Error(), "invgroups:") {
		return err
	}
	return fmt.Errorf("invgroups: %s evaluator: %w", engine, err)
}

func wrapEvaluationError(engine, expr, scope string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Scope == "" {
			evalErr.Scope = scope
		}
		return evalErr
	}
	return &EvaluationError{Engine: engine, Expr: expr, Scope: scope, Err: err}
}

// IssueSeverity grades a configuration issue.
type IssueSeverity string

const (
	// SeverityWarning marks an entry that is kept but never matches.
	SeverityWarning IssueSeverity = "warning"
	// SeverityError marks a configuration the loader rejected.
	SeverityError IssueSeverity = "error"
)

// ConfigIssue describes one problem found while loading or evaluating
// configuration.
type ConfigIssue struct {
	Severity IssueSeverity
	Group    string
	Field    string
	Value    string
	Err      error
}

func (i ConfigIssue) Error() string {
	var b strings.Builder
	b.WriteString("invgroups: ")
	b.WriteString(string(i.Severity))
	if i.Group != "" {
		fmt.Fprintf(&b, " group=%q", i.Group)
	}
	if i.Field != "" {
		fmt.Fprintf(&b, " field=%s", i.Field)
	}
	if i.Value != "" {
		fmt.Fprintf(&b, " value=%q", i.Value)
	}
	if i.Err != nil {
		fmt.Fprintf(&b, ": %v", i.Err)
	}
	return b.String()
}

func (i ConfigIssue) Unwrap() error {
	return i.Err
}
