package invgroups

import (
	"errors"
	"strings"
	"sync"
)

// ProgramCache stores compiled expression programs. Keys are
// "<engine>:<source>" so one cache can serve every engine.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// MemoryProgramCache is a concurrency-safe ProgramCache.
type MemoryProgramCache struct {
	programs sync.Map
}

func NewMemoryProgramCache() *MemoryProgramCache {
	return &MemoryProgramCache{}
}

func (c *MemoryProgramCache) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	return c.programs.Load(key)
}

func (c *MemoryProgramCache) Set(key string, value any) {
	if c == nil {
		return
	}
	c.programs.Store(key, value)
}

// Reset drops every cached program.
func (c *MemoryProgramCache) Reset() {
	if c == nil {
		return
	}
	c.programs.Clear()
}

// backend is the engine specific half of an Evaluator.
type backend[P any] interface {
	engine() ExpressionEngine
	compile(expression string) (P, error)
	run(ctx RuleContext, program P) (any, error)
}

// cachedEvaluator turns a backend into an Evaluator that compiles each
// source once per cache.
type cachedEvaluator[P any] struct {
	backend backend[P]
	cache   ProgramCache
}

// Engine names the backend; predicate logs carry it.
func (e *cachedEvaluator[P]) Engine() ExpressionEngine {
	return e.backend.engine()
}

func (e *cachedEvaluator[P]) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *cachedEvaluator[P]) Compile(expression string) (CompiledRule, error) {
	name := string(e.backend.engine())
	if strings.TrimSpace(expression) == "" {
		return nil, wrapEvaluatorError(name, errors.New("expression must not be empty"))
	}
	key := name + ":" + expression
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(P); ok {
				return compiledRule[P]{backend: e.backend, program: program, expression: expression}, nil
			}
		}
	}
	program, err := e.backend.compile(expression)
	if err != nil {
		return nil, wrapEvaluationError(name, expression, "", err)
	}
	if e.cache != nil {
		e.cache.Set(key, program)
	}
	return compiledRule[P]{backend: e.backend, program: program, expression: expression}, nil
}

type compiledRule[P any] struct {
	backend    backend[P]
	program    P
	expression string
}

func (r compiledRule[P]) Evaluate(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaultNow()
	out, err := r.backend.run(ctx, r.program)
	if err != nil {
		return nil, wrapEvaluationError(string(r.backend.engine()), r.expression, ctx.scopeLabel(), err)
	}
	return out, nil
}
