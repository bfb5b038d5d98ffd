package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	invgroups "github.com/goliatone/go-invgroups"
)

func TestLoadFixture(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "inventory-groups.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	groups, err := cfg.GroupDefinitions()
	if err != nil {
		t.Fatalf("groups: %v", err)
	}
	if len(groups) != 3 || groups[0].Name != "creative" || groups[1].Name != "events" || groups[2].Name != "survival" {
		t.Fatalf("unexpected groups: %+v", groups)
	}
	creative := groups[0]
	if creative.Conditions == nil || !creative.Conditions.RequireAll || creative.Conditions.Permission != "inventory.creative" {
		t.Fatalf("unexpected creative conditions: %+v", creative.Conditions)
	}
	if len(creative.Conditions.Placeholders) != 1 || creative.Conditions.Placeholders[0].Operator != invgroups.OpGTE {
		t.Fatalf("expected GTE placeholder, got %+v", creative.Conditions.Placeholders)
	}
	events := groups[1]
	if len(events.Conditions.Schedule) != 1 || events.Conditions.Schedule[0].Start.Year() != 2024 {
		t.Fatalf("unexpected schedule: %+v", events.Conditions.Schedule)
	}

	slots := cfg.SharedSlotsConfig()
	if !slots.Enabled || len(slots.Slots) != 2 || slots.Slots[0].Mode != invgroups.ModePreserve {
		t.Fatalf("unexpected shared slots: %+v", slots)
	}
	if got := cfg.MaterialTable().MaxStackSize("ARROW"); got != 32 {
		t.Fatalf("expected arrow override 32, got %d", got)
	}
	if got := cfg.MaterialTable().MaxStackSize("ENDER_PEARL"); got != 16 {
		t.Fatalf("expected built-in ender pearl size, got %d", got)
	}
	if cfg.MergeStrategy() != invgroups.StrategyCombine {
		t.Fatalf("expected combine strategy, got %s", cfg.MergeStrategy())
	}
	if cfg.Merge.PendingMaxAge != 15*time.Minute {
		t.Fatalf("expected 15m max age, got %s", cfg.Merge.PendingMaxAge)
	}

	core, issues, err := invgroups.New(groups, slots, cfg.Options()...)
	if err != nil {
		t.Fatalf("core: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected no config issues, got %v", issues)
	}
	if !core.IsSharedSlot(40) {
		t.Fatalf("expected offhand shared")
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	groups, err := cfg.GroupDefinitions()
	if err != nil {
		t.Fatalf("groups: %v", err)
	}
	if len(groups) != 1 || !groups[0].Default {
		t.Fatalf("expected single default group, got %+v", groups)
	}
	if cfg.MergeStrategy() != invgroups.StrategyManual {
		t.Fatalf("expected manual default strategy, got %s", cfg.MergeStrategy())
	}
}

func TestParseRejectsInvalidFiles(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "no default",
			yaml: "groups:\n  a: {}\n  b: {}\n",
			want: "exactly one default group",
		},
		{
			name: "two defaults",
			yaml: "groups:\n  a: {default: true}\n  b: {default: true}\n",
			want: "found 2",
		},
		{
			name: "unknown key",
			yaml: "groups:\n  a: {default: true, colour: red}\n",
			want: "colour",
		},
		{
			name: "bad operator",
			yaml: "groups:\n  a:\n    default: true\n    conditions:\n      placeholders:\n        - {placeholder: \"%x%\", operator: \"~\", value: \"1\"}\n",
			want: "unknown operator",
		},
		{
			name: "bad schedule",
			yaml: "groups:\n  a:\n    default: true\n    conditions:\n      schedule:\n        - {start: \"tomorrow\", end: \"2025-01-01T00:00:00Z\"}\n",
			want: "schedule[0].start",
		},
		{
			name: "overlapping slots",
			yaml: "groups:\n  a: {default: true}\nshared_slots:\n  enabled: true\n  slots:\n    - {slots: [1], mode: LOCK}\n    - {slots: [1], mode: SYNC}\n",
			want: "assigned more than once",
		},
		{
			name: "unknown strategy",
			yaml: "groups:\n  a: {default: true}\nmerge:\n  strategy: SHUFFLE\n",
			want: "merge.strategy",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if err == nil {
				t.Fatalf("expected error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
