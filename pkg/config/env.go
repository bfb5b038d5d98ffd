package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	invgroups "github.com/goliatone/go-invgroups"
)

// Settings are runtime knobs read from the environment.
type Settings struct {
	ConfigPath        string        `env:"INVGROUPS_CONFIG"              envDefault:"inventory-groups.yaml"`
	StorePath         string        `env:"INVGROUPS_STORE_PATH"          envDefault:"inventories.sqlite"`
	ExpressionEngine  string        `env:"INVGROUPS_EXPRESSION_ENGINE"   envDefault:"expr"`
	ConditionCacheTTL time.Duration `env:"INVGROUPS_CONDITION_CACHE_TTL" envDefault:"5s"`
	ResolutionCache   bool          `env:"INVGROUPS_RESOLUTION_CACHE"    envDefault:"true"`
	Timezone          string        `env:"INVGROUPS_TIMEZONE"`
	LogLevel          string        `env:"INVGROUPS_LOG_LEVEL"           envDefault:"info"`
}

// LoadSettings parses Settings from the process environment.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	return s, nil
}

// ParseSettings parses Settings from environ instead of the process
// environment.
func ParseSettings(environ map[string]string) (Settings, error) {
	var s Settings
	if err := env.ParseWithOptions(&s, env.Options{Environment: environ}); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	return s, nil
}

// Options converts the settings to core options.
func (s Settings) Options() ([]invgroups.Option, error) {
	engine := invgroups.ExpressionEngine(strings.ToLower(strings.TrimSpace(s.ExpressionEngine)))
	switch engine {
	case invgroups.EngineExpr, invgroups.EngineCEL, invgroups.EngineJS:
	default:
		return nil, fmt.Errorf("INVGROUPS_EXPRESSION_ENGINE: unknown engine %q", s.ExpressionEngine)
	}
	opts := []invgroups.Option{
		invgroups.WithExpressionEngine(engine),
		invgroups.WithConditionCacheTTL(s.ConditionCacheTTL),
		invgroups.WithResolutionCache(s.ResolutionCache),
	}
	if tz := strings.TrimSpace(s.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("INVGROUPS_TIMEZONE: %w", err)
		}
		opts = append(opts, invgroups.WithLocation(loc))
	}
	return opts, nil
}

// SlogLevel maps LogLevel onto slog levels; unknown values mean info.
func (s Settings) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(s.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
