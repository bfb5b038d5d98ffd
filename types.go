package invgroups

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Player is the snapshot of a player the resolver and predicates read from.
// Attributes carries pre-fetched values exposed to expression predicates.
type Player struct {
	ID         uuid.UUID
	Name       string
	World      string
	Attributes map[string]any
}

// PermissionChecker reports whether player currently holds node.
type PermissionChecker interface {
	HasPermission(player Player, node string) bool
}

// PermissionCheckerFunc adapts a function to PermissionChecker.
type PermissionCheckerFunc func(player Player, node string) bool

// HasPermission implements PermissionChecker.
func (f PermissionCheckerFunc) HasPermission(player Player, node string) bool {
	if f == nil {
		return false
	}
	return f(player, node)
}

// PlaceholderResolver returns the current value of placeholder for player.
// The boolean is false when the placeholder cannot be resolved.
type PlaceholderResolver interface {
	ResolvePlaceholder(player Player, placeholder string) (string, bool)
}

// PlaceholderResolverFunc adapts a function to PlaceholderResolver.
type PlaceholderResolverFunc func(player Player, placeholder string) (string, bool)

// ResolvePlaceholder implements PlaceholderResolver.
func (f PlaceholderResolverFunc) ResolvePlaceholder(player Player, placeholder string) (string, bool) {
	if f == nil {
		return "", false
	}
	return f(player, placeholder)
}

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time {
	if f == nil {
		return time.Now()
	}
	return f()
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Group is a named inventory partition.
type Group struct {
	Name       string
	Priority   int
	Worlds     []string
	Patterns   []string
	Default    bool
	Conditions *GroupConditions
}

func (g Group) clone() Group {
	out := g
	out.Worlds = append([]string(nil), g.Worlds...)
	out.Patterns = append([]string(nil), g.Patterns...)
	if g.Conditions != nil {
		c := g.Conditions.clone()
		out.Conditions = &c
	}
	return out
}

// GroupConditions is the predicate set guarding a group. RequireAll selects
// AND semantics across terms, otherwise any single term succeeding is enough.
type GroupConditions struct {
	RequireAll   bool
	Permission   string
	Schedule     []TimeRange
	Cron         string
	Placeholders []PlaceholderCondition
	Expression   string
}

// TimeRange is an inclusive instant window.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies within [Start, End].
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// PlaceholderCondition compares a resolved placeholder against Value.
type PlaceholderCondition struct {
	Placeholder string
	Operator    ComparisonOperator
	Value       string
}

// ComparisonOperator identifies a placeholder comparison.
type ComparisonOperator string

const (
	OpEQ       ComparisonOperator = "EQ"
	OpNEQ      ComparisonOperator = "NEQ"
	OpGT       ComparisonOperator = "GT"
	OpLT       ComparisonOperator = "LT"
	OpGTE      ComparisonOperator = "GTE"
	OpLTE      ComparisonOperator = "LTE"
	OpContains ComparisonOperator = "CONTAINS"
)

// ParseComparisonOperator accepts operator names and their symbolic forms.
func ParseComparisonOperator(value string) (ComparisonOperator, bool) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "EQ", "==", "=":
		return OpEQ, true
	case "NEQ", "!=":
		return OpNEQ, true
	case "GT", ">":
		return OpGT, true
	case "LT", "<":
		return OpLT, true
	case "GTE", ">=":
		return OpGTE, true
	case "LTE", "<=":
		return OpLTE, true
	case "CONTAINS":
		return OpContains, true
	default:
		return "", false
	}
}

// Terms returns the ordered predicate terms present on c. A nil receiver has
// no terms.
func (c *GroupConditions) Terms() []Predicate {
	if c == nil {
		return nil
	}
	terms := make([]Predicate, 0, 4+len(c.Placeholders))
	if c.Permission != "" {
		terms = append(terms, PermissionPredicate{Node: c.Permission})
	}
	if len(c.Schedule) > 0 {
		terms = append(terms, SchedulePredicate{Ranges: append([]TimeRange(nil), c.Schedule...)})
	}
	if strings.TrimSpace(c.Cron) != "" {
		terms = append(terms, CronPredicate{Expression: c.Cron})
	}
	for _, ph := range c.Placeholders {
		terms = append(terms, PlaceholderPredicate{Condition: ph})
	}
	if strings.TrimSpace(c.Expression) != "" {
		terms = append(terms, ExpressionPredicate{Expression: c.Expression})
	}
	return terms
}

// IsEmpty reports whether c carries no predicate terms.
func (c *GroupConditions) IsEmpty() bool {
	return len(c.Terms()) == 0
}

func (c GroupConditions) clone() GroupConditions {
	out := c
	out.Schedule = append([]TimeRange(nil), c.Schedule...)
	out.Placeholders = append([]PlaceholderCondition(nil), c.Placeholders...)
	return out
}
