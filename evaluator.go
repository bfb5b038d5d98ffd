package invgroups

import (
	"time"
)

// Evaluator executes expression predicates against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// RuleContext carries inputs needed when evaluating an expression predicate.
type RuleContext struct {
	Player       Player
	Group        string
	Now          *time.Time
	Permissions  PermissionChecker
	Placeholders PlaceholderResolver
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) scopeLabel() string {
	if ctx.Group != "" {
		return "group:" + ctx.Group
	}
	return "unknown"
}

// variables returns the data bindings shared by every engine.
func (ctx RuleContext) variables() map[string]any {
	attributes := make(map[string]any, len(ctx.Player.Attributes))
	for key, value := range ctx.Player.Attributes {
		attributes[key] = value
	}
	return map[string]any{
		"now":   ctx.timestamp(),
		"group": ctx.Group,
		"player": map[string]any{
			"id":    ctx.Player.ID.String(),
			"name":  ctx.Player.Name,
			"world": ctx.Player.World,
		},
		"attributes": attributes,
	}
}

// lookups returns the player-bound accessor functions exposed to engines that
// accept per-run functions.
func (ctx RuleContext) lookups() map[string]func(string) any {
	return map[string]func(string) any{
		"placeholder": func(name string) any {
			if ctx.Placeholders == nil {
				return ""
			}
			value, ok := ctx.Placeholders.ResolvePlaceholder(ctx.Player, name)
			if !ok {
				return ""
			}
			return value
		},
		"hasPermission": func(node string) any {
			if ctx.Permissions == nil {
				return false
			}
			return ctx.Permissions.HasPermission(ctx.Player, node)
		},
	}
}

// ExpressionEngine names a supported expression engine.
type ExpressionEngine string

const (
	EngineExpr ExpressionEngine = "expr"
	EngineCEL  ExpressionEngine = "cel"
	EngineJS   ExpressionEngine = "js"
)

// NewEvaluatorFor builds the evaluator for engine. JS returns nil unless the
// module is built with the js_eval tag.
func NewEvaluatorFor(engine ExpressionEngine, cache ProgramCache, registry *FunctionRegistry) Evaluator {
	switch engine {
	case EngineCEL:
		return NewCELEvaluator(WithEngineCache(cache), WithEngineFunctions(registry))
	case EngineJS:
		return NewJSEvaluator(WithEngineCache(cache), WithEngineFunctions(registry))
	default:
		return NewExprEvaluator(WithEngineCache(cache), WithEngineFunctions(registry))
	}
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	if named, ok := e.(interface{ Engine() ExpressionEngine }); ok {
		return string(named.Engine())
	}
	return "custom"
}
