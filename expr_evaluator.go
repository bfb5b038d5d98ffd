package invgroups

import (
	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// NewExprEvaluator returns the default engine, backed by expr-lang/expr.
// Registered functions are callable by name or through call("name", ...);
// placeholder() and hasPermission() resolve against the player under test.
func NewExprEvaluator(opts ...EngineOption) Evaluator {
	cfg := applyEngineOptions(opts)
	return &cachedEvaluator[*exprvm.Program]{
		backend: exprBackend{registry: cfg.registry},
		cache:   cfg.cache,
	}
}

type exprBackend struct {
	registry *FunctionRegistry
}

func (exprBackend) engine() ExpressionEngine { return EngineExpr }

func (b exprBackend) compile(expression string) (*exprvm.Program, error) {
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	for _, name := range b.registry.Names() {
		options = append(options, exprlang.Function(name, b.registry.bound(name)))
	}
	return exprlang.Compile(expression, options...)
}

func (b exprBackend) run(ctx RuleContext, program *exprvm.Program) (any, error) {
	env := ctx.variables()
	for name, fn := range ctx.lookups() {
		env[name] = fn
	}
	if b.registry != nil {
		env["call"] = b.registry.Call
	}
	return exprlang.Run(program, env)
}
