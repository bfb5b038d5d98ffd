// Package config loads inventory-group definitions from YAML files, runtime
// settings from the environment and admin edits from loose payloads.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	invgroups "github.com/goliatone/go-invgroups"
)

// File mirrors inventory-groups.yaml.
type File struct {
	Groups      map[string]GroupSpec `yaml:"groups"`
	SharedSlots SharedSlotsSpec      `yaml:"shared_slots"`
	Materials   MaterialsSpec        `yaml:"materials"`
	Merge       MergeSpec            `yaml:"merge"`
}

type GroupSpec struct {
	Priority   int             `yaml:"priority" json:"priority"`
	Default    bool            `yaml:"default" json:"default"`
	Worlds     []string        `yaml:"worlds,omitempty" json:"worlds,omitempty"`
	Patterns   []string        `yaml:"patterns,omitempty" json:"patterns,omitempty"`
	Conditions *ConditionsSpec `yaml:"conditions,omitempty" json:"conditions,omitempty"`
}

type ConditionsSpec struct {
	RequireAll   bool              `yaml:"require_all" json:"require_all"`
	Permission   string            `yaml:"permission,omitempty" json:"permission,omitempty"`
	Schedule     []TimeRangeSpec   `yaml:"schedule,omitempty" json:"schedule,omitempty"`
	Cron         string            `yaml:"cron,omitempty" json:"cron,omitempty"`
	Placeholders []PlaceholderSpec `yaml:"placeholders,omitempty" json:"placeholders,omitempty"`
	Expression   string            `yaml:"expression,omitempty" json:"expression,omitempty"`
}

// TimeRangeSpec bounds are RFC 3339 timestamps.
type TimeRangeSpec struct {
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

type PlaceholderSpec struct {
	Placeholder string `yaml:"placeholder" json:"placeholder"`
	Operator    string `yaml:"operator" json:"operator"`
	Value       string `yaml:"value" json:"value"`
}

type SharedSlotsSpec struct {
	Enabled bool            `yaml:"enabled"`
	Slots   []SlotEntrySpec `yaml:"slots,omitempty"`
}

type SlotEntrySpec struct {
	Slots []int  `yaml:"slots"`
	Mode  string `yaml:"mode"`
}

type MaterialsSpec struct {
	Default   int            `yaml:"default"`
	Overrides map[string]int `yaml:"overrides,omitempty"`
}

type MergeSpec struct {
	Strategy      string        `yaml:"strategy"`
	PendingMaxAge time.Duration `yaml:"pending_max_age"`
}

// Load reads path. An empty path yields the defaults: a single default
// group named "default".
func Load(path string) (File, error) {
	if strings.TrimSpace(path) == "" {
		cfg := defaults()
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return defaults(), err
	}
	return Parse(b)
}

// Parse decodes YAML bytes, normalizes and validates them. Unknown keys are
// rejected.
func Parse(b []byte) (File, error) {
	cfg := File{Materials: MaterialsSpec{Default: invgroups.DefaultMaxStack}}
	dec := yaml.NewDecoder(strings.NewReader(string(b)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("inventory-groups.yaml: %w", err)
	}
	if len(cfg.Groups) == 0 {
		cfg.Groups = defaults().Groups
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("inventory-groups.yaml: %w", err)
	}
	return cfg, nil
}

func defaults() File {
	return File{
		Groups:    map[string]GroupSpec{"default": {Default: true}},
		Materials: MaterialsSpec{Default: invgroups.DefaultMaxStack},
		Merge:     MergeSpec{Strategy: string(invgroups.StrategyManual)},
	}
}

// Normalize trims names and upper-cases enum values.
func (f *File) Normalize() {
	groups := make(map[string]GroupSpec, len(f.Groups))
	for name, spec := range f.Groups {
		groups[strings.TrimSpace(name)] = spec.normalized()
	}
	f.Groups = groups
	for i := range f.SharedSlots.Slots {
		f.SharedSlots.Slots[i].Mode = strings.ToUpper(strings.TrimSpace(f.SharedSlots.Slots[i].Mode))
	}
	if f.Materials.Default <= 0 {
		f.Materials.Default = invgroups.DefaultMaxStack
	}
	f.Merge.Strategy = strings.ToUpper(strings.TrimSpace(f.Merge.Strategy))
	if f.Merge.Strategy == "" {
		f.Merge.Strategy = string(invgroups.StrategyManual)
	}
}

func (g GroupSpec) normalized() GroupSpec {
	g.Worlds = trimAll(g.Worlds)
	g.Patterns = trimAll(g.Patterns)
	if g.Conditions != nil {
		c := *g.Conditions
		c.Permission = strings.TrimSpace(c.Permission)
		c.Cron = strings.TrimSpace(c.Cron)
		c.Expression = strings.TrimSpace(c.Expression)
		g.Conditions = &c
	}
	return g
}

// Validate checks what can be checked without building the group set:
// group names, defaults, operators, schedules and enum values. Regex and
// cron problems surface later as warnings from invgroups.NewGroupSet.
func (f File) Validate() error {
	var errs []error
	defaults := 0
	for _, name := range f.groupNames() {
		spec := f.Groups[name]
		if name == "" {
			errs = append(errs, fmt.Errorf("group name must not be empty"))
		}
		if spec.Default {
			defaults++
		}
		if _, err := spec.Group(name); err != nil {
			errs = append(errs, err)
		}
	}
	if defaults != 1 {
		errs = append(errs, fmt.Errorf("exactly one default group required, found %d", defaults))
	}
	if err := f.SharedSlotsConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, ok := invgroups.ParseMergeStrategy(f.Merge.Strategy); !ok {
		errs = append(errs, fmt.Errorf("merge.strategy: unknown %q", f.Merge.Strategy))
	}
	if f.Merge.PendingMaxAge < 0 {
		errs = append(errs, fmt.Errorf("merge.pending_max_age must not be negative"))
	}
	return errors.Join(errs...)
}

// GroupDefinitions converts the group map to definitions ordered by name.
func (f File) GroupDefinitions() ([]invgroups.Group, error) {
	out := make([]invgroups.Group, 0, len(f.Groups))
	for _, name := range f.groupNames() {
		group, err := f.Groups[name].Group(name)
		if err != nil {
			return nil, err
		}
		out = append(out, group)
	}
	return out, nil
}

// SharedSlotsConfig converts the shared-slot section.
func (f File) SharedSlotsConfig() invgroups.SharedSlotsConfig {
	out := invgroups.SharedSlotsConfig{Enabled: f.SharedSlots.Enabled}
	for _, entry := range f.SharedSlots.Slots {
		out.Slots = append(out.Slots, invgroups.SharedSlotEntry{
			Slots: append([]int(nil), entry.Slots...),
			Mode:  invgroups.SlotMode(entry.Mode),
		})
	}
	return out
}

// MaterialTable converts the materials section.
func (f File) MaterialTable() invgroups.MaterialTable {
	base := invgroups.DefaultMaterials()
	overrides := make(map[string]int, len(base.Overrides)+len(f.Materials.Overrides))
	for name, size := range base.Overrides {
		overrides[name] = size
	}
	for name, size := range f.Materials.Overrides {
		overrides[strings.ToUpper(name)] = size
	}
	return invgroups.NewMaterialTable(f.Materials.Default, overrides)
}

// MergeStrategy returns the configured default merge strategy.
func (f File) MergeStrategy() invgroups.MergeStrategy {
	strategy, ok := invgroups.ParseMergeStrategy(f.Merge.Strategy)
	if !ok {
		return invgroups.StrategyManual
	}
	return strategy
}

// Options returns the core options implied by the file.
func (f File) Options() []invgroups.Option {
	opts := []invgroups.Option{invgroups.WithMaterials(f.MaterialTable())}
	if f.Merge.PendingMaxAge > 0 {
		opts = append(opts, invgroups.WithPendingMaxAge(f.Merge.PendingMaxAge))
	}
	return opts
}

// Group converts one group entry to a definition.
func (g GroupSpec) Group(name string) (invgroups.Group, error) {
	group := invgroups.Group{
		Name:     name,
		Priority: g.Priority,
		Default:  g.Default,
		Worlds:   append([]string(nil), g.Worlds...),
		Patterns: append([]string(nil), g.Patterns...),
	}
	if g.Conditions == nil {
		return group, nil
	}
	c := g.Conditions
	conditions := &invgroups.GroupConditions{
		RequireAll: c.RequireAll,
		Permission: c.Permission,
		Cron:       c.Cron,
		Expression: c.Expression,
	}
	for i, r := range c.Schedule {
		start, err := time.Parse(time.RFC3339, strings.TrimSpace(r.Start))
		if err != nil {
			return group, fmt.Errorf("group %s: schedule[%d].start: %w", name, i, err)
		}
		end, err := time.Parse(time.RFC3339, strings.TrimSpace(r.End))
		if err != nil {
			return group, fmt.Errorf("group %s: schedule[%d].end: %w", name, i, err)
		}
		if end.Before(start) {
			return group, fmt.Errorf("group %s: schedule[%d] ends before it starts", name, i)
		}
		conditions.Schedule = append(conditions.Schedule, invgroups.TimeRange{Start: start, End: end})
	}
	for i, p := range c.Placeholders {
		op, ok := invgroups.ParseComparisonOperator(p.Operator)
		if !ok {
			return group, fmt.Errorf("group %s: placeholders[%d]: unknown operator %q", name, i, p.Operator)
		}
		if strings.TrimSpace(p.Placeholder) == "" {
			return group, fmt.Errorf("group %s: placeholders[%d]: placeholder is required", name, i)
		}
		conditions.Placeholders = append(conditions.Placeholders, invgroups.PlaceholderCondition{
			Placeholder: strings.TrimSpace(p.Placeholder),
			Operator:    op,
			Value:       p.Value,
		})
	}
	group.Conditions = conditions
	return group, nil
}

func (f File) groupNames() []string {
	names := make([]string, 0, len(f.Groups))
	for name := range f.Groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func trimAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
