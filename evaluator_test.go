package invgroups

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

type countingCache struct {
	*MemoryProgramCache
	mu   sync.Mutex
	sets int
}

func (c *countingCache) Set(key string, value any) {
	c.mu.Lock()
	c.sets++
	c.mu.Unlock()
	c.MemoryProgramCache.Set(key, value)
}

func doubleRegistry(t *testing.T) *FunctionRegistry {
	t.Helper()
	registry := NewFunctionRegistry()
	err := registry.Register("Double", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("double takes one argument")
		}
		switch v := args[0].(type) {
		case int:
			return int64(v) * 2, nil
		case int64:
			return v * 2, nil
		case float64:
			return int64(v) * 2, nil
		}
		return nil, fmt.Errorf("double: unsupported %T", args[0])
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return registry
}

func TestEnginesEvaluateAgainstPlayer(t *testing.T) {
	now := time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC)
	player := testPlayer("alex")
	player.Attributes = map[string]any{"level": 12}
	ctx := RuleContext{Player: player, Group: "survival", Now: &now}

	cases := []struct {
		name   string
		eval   Evaluator
		source string
	}{
		{"expr variables", NewExprEvaluator(), `player.name == "alex" && group == "survival"`},
		{"expr registry by name", NewExprEvaluator(WithEngineFunctions(doubleRegistry(t))), `double(attributes.level) == 24`},
		{"expr registry via call", NewExprEvaluator(WithEngineFunctions(doubleRegistry(t))), `call("double", 4) == 8`},
		{"cel variables", NewCELEvaluator(), `player.name == "alex" && attributes.level >= 10`},
		{"cel registry via call", NewCELEvaluator(WithEngineFunctions(doubleRegistry(t))), `call("double", [21]) == 42`},
		{"cel now", NewCELEvaluator(), `now.getHours() == 18`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := tc.eval.Evaluate(ctx, tc.source)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if out != true {
				t.Fatalf("expected true, got %v (%T)", out, out)
			}
		})
	}
}

func TestExprLookupsBindToPlayer(t *testing.T) {
	ctx := RuleContext{
		Player:       testPlayer("alex"),
		Permissions:  permissionSet("inv.vip"),
		Placeholders: placeholderValues(map[string]string{"%rank%": "gold"}),
	}
	out, err := NewExprEvaluator().Evaluate(ctx, `hasPermission("inv.vip") && placeholder("%rank%") == "gold" && placeholder("%none%") == ""`)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if out != true {
		t.Fatalf("expected lookups to resolve, got %v", out)
	}

	out, err = NewExprEvaluator().Evaluate(RuleContext{Player: testPlayer("sam")}, `hasPermission("inv.vip")`)
	if err != nil || out != false {
		t.Fatalf("expected false without a checker, got %v err=%v", out, err)
	}
}

func TestEnginesCacheCompiledPrograms(t *testing.T) {
	for _, engine := range []ExpressionEngine{EngineExpr, EngineCEL} {
		t.Run(string(engine), func(t *testing.T) {
			cache := &countingCache{MemoryProgramCache: NewMemoryProgramCache()}
			eval := NewEvaluatorFor(engine, cache, nil)
			ctx := RuleContext{Player: testPlayer("alex")}
			for i := 0; i < 3; i++ {
				if _, err := eval.Evaluate(ctx, `group == ""`); err != nil {
					t.Fatalf("evaluate: %v", err)
				}
			}
			rule, err := eval.Compile(`group == ""`)
			if err != nil {
				t.Fatalf("compile: %v", err)
			}
			if out, err := rule.Evaluate(ctx); err != nil || out != true {
				t.Fatalf("compiled rule: %v err=%v", out, err)
			}
			if cache.sets != 1 {
				t.Fatalf("expected one compile, got %d", cache.sets)
			}
			if _, ok := cache.Get(string(engine) + `:group == ""`); !ok {
				t.Fatalf("expected program keyed by engine")
			}
			cache.Reset()
			if _, ok := cache.Get(string(engine) + `:group == ""`); ok {
				t.Fatalf("expected reset to drop programs")
			}
		})
	}
}

func TestEnginesReportErrors(t *testing.T) {
	for _, engine := range []ExpressionEngine{EngineExpr, EngineCEL} {
		t.Run(string(engine), func(t *testing.T) {
			eval := NewEvaluatorFor(engine, nil, nil)

			_, err := eval.Evaluate(RuleContext{}, "  ")
			if err == nil || !strings.Contains(err.Error(), "expression must not be empty") {
				t.Fatalf("expected empty expression error, got %v", err)
			}

			_, err = eval.Compile(`player.name ==`)
			var evalErr *EvaluationError
			if !errors.As(err, &evalErr) {
				t.Fatalf("expected EvaluationError for syntax error, got %v", err)
			}
			if evalErr.Engine != string(engine) || evalErr.Expr != `player.name ==` {
				t.Fatalf("unexpected error metadata: %+v", evalErr)
			}
		})
	}
}

func TestEngineRunErrorCarriesScope(t *testing.T) {
	eval := NewExprEvaluator(WithEngineFunctions(doubleRegistry(t)))
	_, err := eval.Evaluate(RuleContext{Group: "creative"}, `double("x")`)
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %v", err)
	}
	if evalErr.Scope != "group:creative" {
		t.Fatalf("expected group scope, got %q", evalErr.Scope)
	}
}

func TestEvaluatorEngineName(t *testing.T) {
	cases := []struct {
		eval Evaluator
		want string
	}{
		{nil, "unknown"},
		{NewExprEvaluator(), "expr"},
		{NewCELEvaluator(), "cel"},
		{&funcEvaluator{}, "custom"},
	}
	for _, tc := range cases {
		if got := evaluatorEngineName(tc.eval); got != tc.want {
			t.Fatalf("expected %q, got %q", tc.want, got)
		}
	}
}

type funcEvaluator struct{}

func (funcEvaluator) Evaluate(RuleContext, string) (any, error) { return true, nil }
func (funcEvaluator) Compile(string) (CompiledRule, error)      { return nil, nil }

func TestFunctionRegistry(t *testing.T) {
	registry := doubleRegistry(t)
	noop := func(...any) (any, error) { return nil, nil }

	for _, name := range []string{"hasPermission", "PLACEHOLDER", "call", " ", "double"} {
		if err := registry.Register(name, noop); err == nil {
			t.Fatalf("expected %q to be rejected", name)
		}
	}
	if err := registry.Register("nil", nil); err == nil {
		t.Fatalf("expected nil function to be rejected")
	}

	clone := registry.Clone()
	if err := registry.Register("later", noop); err != nil {
		t.Fatalf("register: %v", err)
	}
	if names := clone.Names(); len(names) != 1 || names[0] != "double" {
		t.Fatalf("expected clone isolated from later registrations, got %v", names)
	}
	if out, err := registry.Call("DOUBLE", 5); err != nil || out != int64(10) {
		t.Fatalf("expected case-insensitive call, got %v err=%v", out, err)
	}
	if _, err := registry.Call("missing"); err == nil {
		t.Fatalf("expected unknown function error")
	}
	var empty *FunctionRegistry
	if empty.Names() != nil || empty.Clone() != nil {
		t.Fatalf("expected nil registry to be inert")
	}
}
