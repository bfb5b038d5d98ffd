package invgroups

import (
	"fmt"
	"strings"
)

// PredicateKind names a predicate term family.
type PredicateKind string

const (
	PredicatePermission  PredicateKind = "permission"
	PredicateSchedule    PredicateKind = "schedule"
	PredicateCron        PredicateKind = "cron"
	PredicatePlaceholder PredicateKind = "placeholder"
	PredicateExpression  PredicateKind = "expression"
)

// Predicate is one atomic condition term. The set of implementations is
// closed: every term is dispatched through PredicateVisitor, so a new kind
// does not compile until each visitor handles it.
type Predicate interface {
	Kind() PredicateKind
	Label() string
	accept(v PredicateVisitor) bool
}

// PredicateVisitor handles every predicate kind.
type PredicateVisitor interface {
	VisitPermission(PermissionPredicate) bool
	VisitSchedule(SchedulePredicate) bool
	VisitCron(CronPredicate) bool
	VisitPlaceholder(PlaceholderPredicate) bool
	VisitExpression(ExpressionPredicate) bool
}

// PermissionPredicate holds when the player has Node.
type PermissionPredicate struct {
	Node string
}

func (PermissionPredicate) Kind() PredicateKind { return PredicatePermission }

func (p PermissionPredicate) Label() string { return "permission:" + p.Node }

func (p PermissionPredicate) accept(v PredicateVisitor) bool { return v.VisitPermission(p) }

// SchedulePredicate holds when now falls in any of Ranges.
type SchedulePredicate struct {
	Ranges []TimeRange
}

func (SchedulePredicate) Kind() PredicateKind { return PredicateSchedule }

func (p SchedulePredicate) Label() string { return fmt.Sprintf("schedule:%d ranges", len(p.Ranges)) }

func (p SchedulePredicate) accept(v PredicateVisitor) bool { return v.VisitSchedule(p) }

// CronPredicate holds when now matches Expression.
type CronPredicate struct {
	Expression string
}

func (CronPredicate) Kind() PredicateKind { return PredicateCron }

func (p CronPredicate) Label() string { return "cron:" + strings.TrimSpace(p.Expression) }

func (p CronPredicate) accept(v PredicateVisitor) bool { return v.VisitCron(p) }

// PlaceholderPredicate compares a resolved placeholder.
type PlaceholderPredicate struct {
	Condition PlaceholderCondition
}

func (PlaceholderPredicate) Kind() PredicateKind { return PredicatePlaceholder }

func (p PlaceholderPredicate) Label() string {
	return fmt.Sprintf("placeholder:%s %s %s", p.Condition.Placeholder, p.Condition.Operator, p.Condition.Value)
}

func (p PlaceholderPredicate) accept(v PredicateVisitor) bool { return v.VisitPlaceholder(p) }

// ExpressionPredicate holds when Expression evaluates to true.
type ExpressionPredicate struct {
	Expression string
}

func (ExpressionPredicate) Kind() PredicateKind { return PredicateExpression }

func (p ExpressionPredicate) Label() string { return "expression:" + p.Expression }

func (p ExpressionPredicate) accept(v PredicateVisitor) bool { return v.VisitExpression(p) }
