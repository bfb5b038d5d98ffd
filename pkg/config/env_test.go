package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestParseSettingsDefaults(t *testing.T) {
	s, err := ParseSettings(map[string]string{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.ConfigPath != "inventory-groups.yaml" || s.ExpressionEngine != "expr" {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if s.ConditionCacheTTL != 5*time.Second || !s.ResolutionCache {
		t.Fatalf("unexpected cache defaults: %+v", s)
	}
	if s.SlogLevel() != slog.LevelInfo {
		t.Fatalf("expected info level, got %v", s.SlogLevel())
	}
	opts, err := s.Options()
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if len(opts) != 3 {
		t.Fatalf("expected three options, got %d", len(opts))
	}
}

func TestParseSettingsOverrides(t *testing.T) {
	s, err := ParseSettings(map[string]string{
		"INVGROUPS_EXPRESSION_ENGINE":   "CEL",
		"INVGROUPS_CONDITION_CACHE_TTL": "30s",
		"INVGROUPS_RESOLUTION_CACHE":    "false",
		"INVGROUPS_TIMEZONE":            "UTC",
		"INVGROUPS_LOG_LEVEL":           "debug",
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.ConditionCacheTTL != 30*time.Second || s.ResolutionCache {
		t.Fatalf("unexpected overrides: %+v", s)
	}
	if s.SlogLevel() != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", s.SlogLevel())
	}
	opts, err := s.Options()
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if len(opts) != 4 {
		t.Fatalf("expected timezone option, got %d options", len(opts))
	}
}

func TestSettingsOptionsRejectsUnknownEngine(t *testing.T) {
	s := Settings{ExpressionEngine: "lua"}
	if _, err := s.Options(); err == nil {
		t.Fatalf("expected unknown engine error")
	}
}

func TestParseSettingsRejectsBadDuration(t *testing.T) {
	if _, err := ParseSettings(map[string]string{"INVGROUPS_CONDITION_CACHE_TTL": "soon"}); err == nil {
		t.Fatalf("expected duration parse error")
	}
}

func TestLoadSettingsFromProcessEnv(t *testing.T) {
	t.Setenv("INVGROUPS_STORE_PATH", "/tmp/inv.sqlite")
	s, err := LoadSettings()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.StorePath != "/tmp/inv.sqlite" {
		t.Fatalf("expected store path from env, got %q", s.StorePath)
	}
}
