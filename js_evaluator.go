//go:build js_eval

package invgroups

import (
	"fmt"

	"github.com/dop251/goja"
)

// NewJSEvaluator returns an engine backed by goja. The expression is the
// body of a return statement.
func NewJSEvaluator(opts ...EngineOption) Evaluator {
	cfg := applyEngineOptions(opts)
	return &cachedEvaluator[*goja.Program]{
		backend: jsBackend{registry: cfg.registry},
		cache:   cfg.cache,
	}
}

type jsBackend struct {
	registry *FunctionRegistry
}

func (jsBackend) engine() ExpressionEngine { return EngineJS }

func (jsBackend) compile(expression string) (*goja.Program, error) {
	return goja.Compile("", fmt.Sprintf("(function(){ return (%s); })()", expression), false)
}

// run uses a fresh runtime per evaluation; goja runtimes are not safe for
// concurrent use.
func (b jsBackend) run(ctx RuleContext, program *goja.Program) (any, error) {
	vm := goja.New()
	for key, value := range ctx.variables() {
		if err := vm.Set(key, value); err != nil {
			return nil, err
		}
	}
	for name, fn := range ctx.lookups() {
		if err := vm.Set(name, fn); err != nil {
			return nil, err
		}
	}
	if b.registry != nil {
		_ = vm.Set("call", b.registry.Call)
		for _, name := range b.registry.Names() {
			_ = vm.Set(name, b.registry.bound(name))
		}
	}
	value, err := vm.RunProgram(program)
	if err != nil {
		return nil, err
	}
	return value.Export(), nil
}
