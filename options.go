package invgroups

import (
	"time"

	"github.com/goliatone/go-invgroups/pkg/activity"
)

// DefaultConditionCacheTTL bounds how long a memoized condition result is
// reused when callers opt into caching.
const DefaultConditionCacheTTL = 5 * time.Second

// Option configures the core components.
type Option func(*coreConfig)

type coreConfig struct {
	permissions       PermissionChecker
	placeholders      PlaceholderResolver
	clock             Clock
	location          *time.Location
	evaluator         Evaluator
	engine            ExpressionEngine
	programCache      ProgramCache
	functions         *FunctionRegistry
	logger            EvaluatorLogger
	issues            IssueReporter
	conditionCacheTTL time.Duration
	resolutionCache   bool
	materials         MaterialCatalog
	pendingMaxAge     time.Duration
	activityHooks     activity.Hooks
	activityChannel   string
}

func applyOptions(opts []Option) coreConfig {
	cfg := coreConfig{
		clock:             systemClock{},
		engine:            EngineExpr,
		conditionCacheTTL: DefaultConditionCacheTTL,
		resolutionCache:   true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func (cfg coreConfig) evaluatorLogger() EvaluatorLogger {
	if cfg.logger != nil {
		return cfg.logger
	}
	return noopEvaluatorLogger{}
}

func (cfg coreConfig) issueReporter() IssueReporter {
	if cfg.issues != nil {
		return cfg.issues
	}
	return noopIssueReporter{}
}

func (cfg coreConfig) materialCatalog() MaterialCatalog {
	if cfg.materials != nil {
		return cfg.materials
	}
	return DefaultMaterials()
}

// expressionEvaluator returns the configured evaluator, building one for the
// configured engine when none was supplied. Unavailable engines fall back to
// expr and are reported.
func (cfg coreConfig) expressionEvaluator() Evaluator {
	if cfg.evaluator != nil {
		return cfg.evaluator
	}
	cache := cfg.programCache
	if cache == nil {
		cache = NewMemoryProgramCache()
	}
	if evaluator := NewEvaluatorFor(cfg.engine, cache, cfg.functions); evaluator != nil {
		return evaluator
	}
	cfg.issueReporter().ReportIssue(ConfigIssue{
		Severity: SeverityWarning,
		Field:    "expression_engine",
		Value:    string(cfg.engine),
		Err:      ErrNoEvaluator,
	})
	return NewEvaluatorFor(EngineExpr, cache, cfg.functions)
}

// WithPermissionChecker sets the permission accessor. Without one every
// permission term fails.
func WithPermissionChecker(checker PermissionChecker) Option {
	return func(cfg *coreConfig) {
		cfg.permissions = checker
	}
}

// WithPlaceholderResolver sets the placeholder accessor. Without one every
// placeholder term fails.
func WithPlaceholderResolver(resolver PlaceholderResolver) Option {
	return func(cfg *coreConfig) {
		cfg.placeholders = resolver
	}
}

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(cfg *coreConfig) {
		if clock == nil {
			clock = systemClock{}
		}
		cfg.clock = clock
	}
}

// WithLocation evaluates cron expressions in loc instead of the instant's
// own location.
func WithLocation(loc *time.Location) Option {
	return func(cfg *coreConfig) {
		cfg.location = loc
	}
}

// WithEvaluator supplies the expression evaluator directly.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *coreConfig) {
		cfg.evaluator = e
	}
}

// WithExpressionEngine selects the engine used for expression terms.
func WithExpressionEngine(engine ExpressionEngine) Option {
	return func(cfg *coreConfig) {
		if engine != "" {
			cfg.engine = engine
		}
	}
}

// WithProgramCache registers the cache used for compiled expressions.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *coreConfig) {
		cfg.programCache = cache
	}
}

// WithFunctionRegistry exposes custom functions to expression terms.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *coreConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for expression terms.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *coreConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

// WithEvaluatorLogger attaches an expression evaluation logger.
func WithEvaluatorLogger(logger EvaluatorLogger) Option {
	return func(cfg *coreConfig) {
		cfg.logger = logger
	}
}

// WithIssueReporter attaches a configuration issue reporter.
func WithIssueReporter(reporter IssueReporter) Option {
	return func(cfg *coreConfig) {
		cfg.issues = reporter
	}
}

// WithSlogLogger routes both evaluation logs and issues to a SlogLogger.
func WithSlogLogger(logger *SlogLogger) Option {
	return func(cfg *coreConfig) {
		if logger == nil {
			return
		}
		cfg.logger = logger
		cfg.issues = logger
	}
}

// WithConditionCacheTTL sets the condition cache window. Zero disables it.
func WithConditionCacheTTL(ttl time.Duration) Option {
	return func(cfg *coreConfig) {
		if ttl < 0 {
			ttl = 0
		}
		cfg.conditionCacheTTL = ttl
	}
}

// WithResolutionCache toggles the per (player, world) resolution cache.
func WithResolutionCache(enabled bool) Option {
	return func(cfg *coreConfig) {
		cfg.resolutionCache = enabled
	}
}

// WithMaterials sets the catalog used for maximum stack sizes.
func WithMaterials(catalog MaterialCatalog) Option {
	return func(cfg *coreConfig) {
		cfg.materials = catalog
	}
}

// WithPendingMaxAge makes MergeEngine.Sweep discard pending merges older than
// age. Zero keeps them until confirmed or cancelled.
func WithPendingMaxAge(age time.Duration) Option {
	return func(cfg *coreConfig) {
		cfg.pendingMaxAge = age
	}
}

// WithActivityHooks attaches hooks notified about merge lifecycle events.
// Nil entries are dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := make(activity.Hooks, 0, len(hooks))
	for _, hook := range hooks {
		if hook != nil {
			normalized = append(normalized, hook)
		}
	}
	return func(cfg *coreConfig) {
		if len(normalized) == 0 {
			cfg.activityHooks = nil
			return
		}
		cfg.activityHooks = normalized
	}
}

// WithActivityChannel overrides the channel stamped on activity events.
func WithActivityChannel(channel string) Option {
	return func(cfg *coreConfig) {
		cfg.activityChannel = channel
	}
}
