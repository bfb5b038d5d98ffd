package invgroups

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	functions "github.com/google/cel-go/common/functions"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

// NewCELEvaluator returns an engine backed by cel-go. The environment is
// fixed (player, attributes, group, now) so a program compiles once per
// expression. Player-bound lookups are not available in CEL; hosts expose
// such values through Player.Attributes instead.
func NewCELEvaluator(opts ...EngineOption) Evaluator {
	cfg := applyEngineOptions(opts)
	return &cachedEvaluator[celgo.Program]{
		backend: celBackend{registry: cfg.registry},
		cache:   cfg.cache,
	}
}

type celBackend struct {
	registry *FunctionRegistry
}

func (celBackend) engine() ExpressionEngine { return EngineCEL }

func (b celBackend) compile(expression string) (celgo.Program, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("group", celgo.StringType),
		celgo.Variable("player", celgo.MapType(celgo.StringType, celgo.StringType)),
		celgo.Variable("attributes", celgo.MapType(celgo.StringType, celgo.DynType)),
	}
	if b.registry != nil {
		opts = append(opts, celgo.Function("call", celgo.Overload(
			"call_string_list_dyn",
			[]*celgo.Type{celgo.StringType, celgo.ListType(celgo.DynType)},
			celgo.DynType,
			celgo.FunctionBinding(functions.FunctionOp(b.call)),
		)))
	}
	env, err := celgo.NewEnv(opts...)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	return env.Program(ast)
}

func (celBackend) run(ctx RuleContext, program celgo.Program) (any, error) {
	vars := ctx.variables()
	player := vars["player"].(map[string]any)
	flat := make(map[string]string, len(player))
	for key, value := range player {
		flat[key] = fmt.Sprint(value)
	}
	vars["player"] = flat
	out, _, err := program.Eval(vars)
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}

// call backs call(name, [args]).
func (b celBackend) call(values ...ref.Val) ref.Val {
	if len(values) != 2 {
		return types.NewErr("invgroups: call requires a name and an argument list")
	}
	name, ok := values[0].Value().(string)
	if !ok {
		return types.NewErr("invgroups: call name must be string")
	}
	var args []any
	if list, ok := values[1].(traits.Lister); ok {
		size, _ := list.Size().Value().(int64)
		for i := int64(0); i < size; i++ {
			args = append(args, list.Get(types.Int(i)).Value())
		}
	}
	result, err := b.registry.Call(name, args...)
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}
