//go:build !js_eval

package invgroups

// NewJSEvaluator returns nil: the goja engine is only compiled in with the
// js_eval build tag. WithExpressionEngine(EngineJS) then falls back to expr
// and reports ErrNoEvaluator.
func NewJSEvaluator(...EngineOption) Evaluator {
	return nil
}
