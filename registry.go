package invgroups

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dlclark/regexp2"
)

// patternMatchTimeout bounds a single world-pattern match.
const patternMatchTimeout = 100 * time.Millisecond

type compiledPattern struct {
	source string
	re     *regexp2.Regexp
}

// fullMatch reports whether the whole world name matches. Timeouts count as
// no match.
func (p compiledPattern) fullMatch(world string) bool {
	if p.re == nil {
		return false
	}
	ok, err := p.re.MatchString(world)
	return err == nil && ok
}

func compilePattern(source string) (compiledPattern, error) {
	re, err := regexp2.Compile(`\A(?:`+source+`)\z`, regexp2.None)
	if err != nil {
		return compiledPattern{source: source}, err
	}
	re.MatchTimeout = patternMatchTimeout
	return compiledPattern{source: source, re: re}, nil
}

type groupEntry struct {
	group    Group
	patterns []compiledPattern
}

// GroupSet is an immutable, validated snapshot of group definitions.
type GroupSet struct {
	version  uint64
	groups   map[string]*groupEntry
	ordered  []*groupEntry
	explicit map[string]string
	fallback string
}

// NewGroupSet validates groups and compiles their patterns. Structural
// problems (missing or multiple defaults, duplicate names, a world assigned
// twice) fail the whole set. Entry-level problems such as a malformed pattern
// or cron expression are returned as warnings and the entry never matches.
func NewGroupSet(groups []Group) (*GroupSet, []ConfigIssue, error) {
	set := &GroupSet{
		groups:   make(map[string]*groupEntry, len(groups)),
		explicit: make(map[string]string),
	}
	var (
		issues []ConfigIssue
		errs   []error
	)
	defaults := 0
	for _, g := range groups {
		if g.Name == "" {
			errs = append(errs, fmt.Errorf("invgroups: group name must not be empty"))
			continue
		}
		if _, exists := set.groups[g.Name]; exists {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateGroup, g.Name))
			continue
		}
		entry := &groupEntry{group: g.clone()}
		for _, source := range g.Patterns {
			pattern, err := compilePattern(source)
			if err != nil {
				issues = append(issues, ConfigIssue{
					Severity: SeverityWarning,
					Group:    g.Name,
					Field:    "patterns",
					Value:    source,
					Err:      err,
				})
			}
			entry.patterns = append(entry.patterns, pattern)
		}
		if g.Conditions != nil && g.Conditions.Cron != "" {
			if _, err := ParseCron(g.Conditions.Cron); err != nil {
				issues = append(issues, ConfigIssue{
					Severity: SeverityWarning,
					Group:    g.Name,
					Field:    "conditions.cron",
					Value:    g.Conditions.Cron,
					Err:      err,
				})
			}
		}
		for _, world := range g.Worlds {
			if owner, taken := set.explicit[world]; taken {
				errs = append(errs, fmt.Errorf("%w: %q claimed by %s and %s", ErrWorldAssigned, world, owner, g.Name))
				continue
			}
			set.explicit[world] = g.Name
		}
		if g.Default {
			defaults++
			set.fallback = g.Name
		}
		set.groups[g.Name] = entry
		set.ordered = append(set.ordered, entry)
	}
	if defaults != 1 {
		errs = append(errs, fmt.Errorf("%w: found %d", ErrNoDefaultGroup, defaults))
	}
	if len(errs) > 0 {
		return nil, issues, errors.Join(errs...)
	}
	sort.Slice(set.ordered, func(i, j int) bool {
		return set.ordered[i].group.Name < set.ordered[j].group.Name
	})
	return set, issues, nil
}

// Version identifies the registry generation the set was installed as.
func (s *GroupSet) Version() uint64 {
	if s == nil {
		return 0
	}
	return s.version
}

// Group returns a copy of the named group.
func (s *GroupSet) Group(name string) (Group, bool) {
	if s == nil {
		return Group{}, false
	}
	entry, ok := s.groups[name]
	if !ok {
		return Group{}, false
	}
	return entry.group.clone(), true
}

// Groups returns copies of every group ordered by name.
func (s *GroupSet) Groups() []Group {
	if s == nil {
		return nil
	}
	out := make([]Group, 0, len(s.ordered))
	for _, entry := range s.ordered {
		out = append(out, entry.group.clone())
	}
	return out
}

// Default returns the default group.
func (s *GroupSet) Default() (Group, bool) {
	if s == nil {
		return Group{}, false
	}
	return s.Group(s.fallback)
}

// AssignedGroup returns the group explicitly assigned to world.
func (s *GroupSet) AssignedGroup(world string) (string, bool) {
	if s == nil {
		return "", false
	}
	name, ok := s.explicit[world]
	return name, ok
}

// Matching returns the names of groups whose patterns fully match world,
// ordered by name.
func (s *GroupSet) Matching(world string) []string {
	if s == nil {
		return nil
	}
	var names []string
	for _, entry := range s.ordered {
		for _, pattern := range entry.patterns {
			if pattern.fullMatch(world) {
				names = append(names, entry.group.Name)
				break
			}
		}
	}
	return names
}

// ReloadListener is notified after a new group set is installed.
type ReloadListener func(set *GroupSet)

// GroupRegistry holds the active GroupSet behind an atomic pointer so
// readers never observe a half-applied reload.
type GroupRegistry struct {
	current atomic.Pointer[GroupSet]
	version atomic.Uint64
	issues  IssueReporter

	mu        sync.Mutex
	listeners []ReloadListener
}

// NewGroupRegistry creates an empty registry; Load must succeed before
// resolution can run.
func NewGroupRegistry(opts ...Option) *GroupRegistry {
	cfg := applyOptions(opts)
	return &GroupRegistry{issues: cfg.issueReporter()}
}

// Load validates groups and atomically replaces the active set. On error
// the previous set stays active. Warnings are reported and returned.
func (r *GroupRegistry) Load(groups []Group) ([]ConfigIssue, error) {
	set, issues, err := NewGroupSet(groups)
	for _, issue := range issues {
		r.issues.ReportIssue(issue)
	}
	if err != nil {
		r.issues.ReportIssue(ConfigIssue{Severity: SeverityError, Field: "groups", Err: err})
		return issues, err
	}
	set.version = r.version.Add(1)
	r.current.Store(set)

	r.mu.Lock()
	listeners := append([]ReloadListener(nil), r.listeners...)
	r.mu.Unlock()
	for _, listener := range listeners {
		listener(set)
	}
	return issues, nil
}

// Update replaces a single group definition, keeping the others.
func (r *GroupRegistry) Update(group Group) ([]ConfigIssue, error) {
	current := r.Snapshot()
	groups := current.Groups()
	replaced := false
	for i := range groups {
		if groups[i].Name == group.Name {
			groups[i] = group
			replaced = true
		}
	}
	if !replaced {
		groups = append(groups, group)
	}
	return r.Load(groups)
}

// Remove deletes a group definition.
func (r *GroupRegistry) Remove(name string) ([]ConfigIssue, error) {
	current := r.Snapshot()
	groups := current.Groups()
	kept := groups[:0]
	for _, g := range groups {
		if g.Name != name {
			kept = append(kept, g)
		}
	}
	return r.Load(kept)
}

// Snapshot returns the active set, nil before the first successful Load.
func (r *GroupRegistry) Snapshot() *GroupSet {
	return r.current.Load()
}

// OnReload registers listener for future reloads.
func (r *GroupRegistry) OnReload(listener ReloadListener) {
	if listener == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, listener)
	r.mu.Unlock()
}
