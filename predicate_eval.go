package invgroups

import (
	"fmt"
	"time"
)

// PredicateEvaluator evaluates single predicate terms. Lookup failures and
// malformed terms evaluate to false; nothing is returned as an error.
type PredicateEvaluator struct {
	permissions  PermissionChecker
	placeholders PlaceholderResolver
	location     *time.Location
	evaluator    Evaluator
	logger       EvaluatorLogger
	issues       IssueReporter
	crons        *cronCache
}

// NewPredicateEvaluator builds an evaluator from opts.
func NewPredicateEvaluator(opts ...Option) *PredicateEvaluator {
	return newPredicateEvaluator(applyOptions(opts))
}

func newPredicateEvaluator(cfg coreConfig) *PredicateEvaluator {
	return &PredicateEvaluator{
		permissions:  cfg.permissions,
		placeholders: cfg.placeholders,
		location:     cfg.location,
		evaluator:    cfg.expressionEvaluator(),
		logger:       cfg.evaluatorLogger(),
		issues:       cfg.issueReporter(),
		crons:        &cronCache{},
	}
}

// Evaluate reports whether p holds for player at now.
func (e *PredicateEvaluator) Evaluate(p Predicate, player Player, now time.Time) bool {
	return e.evaluateFor(p, player, "", now)
}

func (e *PredicateEvaluator) evaluateFor(p Predicate, player Player, group string, now time.Time) bool {
	if p == nil {
		return false
	}
	return p.accept(predicateRun{evaluator: e, player: player, group: group, now: now})
}

// CheckCron parses expression through the shared cache and returns the
// parse error, if any, without reporting it.
func (e *PredicateEvaluator) CheckCron(expression string) error {
	entry, _ := e.crons.lookup(expression)
	return entry.err
}

// ResetCaches drops memoized cron schedules. Expression programs live in the
// program cache and are keyed by source text, so they stay valid.
func (e *PredicateEvaluator) ResetCaches() {
	e.crons.clear()
}

// predicateRun binds one evaluation's inputs to the visitor.
type predicateRun struct {
	evaluator *PredicateEvaluator
	player    Player
	group     string
	now       time.Time
}

func (r predicateRun) VisitPermission(p PermissionPredicate) bool {
	if r.evaluator.permissions == nil || p.Node == "" {
		return false
	}
	return r.evaluator.permissions.HasPermission(r.player, p.Node)
}

func (r predicateRun) VisitSchedule(p SchedulePredicate) bool {
	for _, window := range p.Ranges {
		if window.Contains(r.now) {
			return true
		}
	}
	return false
}

func (r predicateRun) VisitCron(p CronPredicate) bool {
	entry, first := r.evaluator.crons.lookup(p.Expression)
	if entry.err != nil {
		if first {
			r.evaluator.issues.ReportIssue(ConfigIssue{
				Severity: SeverityWarning,
				Group:    r.group,
				Field:    "conditions.cron",
				Value:    p.Expression,
				Err:      entry.err,
			})
		}
		return false
	}
	now := r.now
	if r.evaluator.location != nil {
		now = now.In(r.evaluator.location)
	}
	return entry.schedule.Matches(now)
}

func (r predicateRun) VisitPlaceholder(p PlaceholderPredicate) bool {
	if r.evaluator.placeholders == nil {
		return false
	}
	value, ok := r.evaluator.placeholders.ResolvePlaceholder(r.player, p.Condition.Placeholder)
	if !ok {
		return false
	}
	return Compare(p.Condition.Operator, value, p.Condition.Value)
}

func (r predicateRun) VisitExpression(p ExpressionPredicate) bool {
	e := r.evaluator
	if e.evaluator == nil {
		return false
	}
	now := r.now
	ctx := RuleContext{
		Player:       r.player,
		Group:        r.group,
		Now:          &now,
		Permissions:  e.permissions,
		Placeholders: e.placeholders,
	}
	start := time.Now()
	value, err := e.evaluator.Evaluate(ctx, p.Expression)
	result := false
	if err == nil {
		matched, ok := value.(bool)
		if !ok {
			err = wrapEvaluationError(evaluatorEngineName(e.evaluator), p.Expression, ctx.scopeLabel(),
				fmt.Errorf("expression returned %T, want bool", value))
		}
		result = matched
	}
	e.logger.LogEvaluation(EvaluatorLogEvent{
		Engine:   evaluatorEngineName(e.evaluator),
		Expr:     p.Expression,
		Scope:    ctx.scopeLabel(),
		Player:   r.player.ID.String(),
		Result:   result,
		Duration: time.Since(start),
		Err:      err,
	})
	return result
}
