package invgroups

import (
	"errors"
	"testing"
)

func TestNewGroupSetStructuralErrors(t *testing.T) {
	cases := []struct {
		name   string
		groups []Group
		want   error
	}{
		{
			name:   "no default",
			groups: []Group{{Name: "survival"}},
			want:   ErrNoDefaultGroup,
		},
		{
			name:   "two defaults",
			groups: []Group{{Name: "survival", Default: true}, {Name: "creative", Default: true}},
			want:   ErrNoDefaultGroup,
		},
		{
			name:   "duplicate name",
			groups: []Group{{Name: "survival", Default: true}, {Name: "survival"}},
			want:   ErrDuplicateGroup,
		},
		{
			name: "world assigned twice",
			groups: []Group{
				{Name: "survival", Default: true, Worlds: []string{"world"}},
				{Name: "creative", Worlds: []string{"world"}},
			},
			want: ErrWorldAssigned,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			set, _, err := NewGroupSet(tc.groups)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if set != nil {
				t.Fatalf("expected no set on error")
			}
		})
	}
}

func TestNewGroupSetBadPatternIsWarning(t *testing.T) {
	set, issues, err := NewGroupSet([]Group{
		{Name: "survival", Default: true},
		{Name: "broken", Patterns: []string{"world_(", "arena_.*"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(issues) != 1 || issues[0].Field != "patterns" || issues[0].Severity != SeverityWarning {
		t.Fatalf("expected one pattern warning, got %+v", issues)
	}
	if got := set.Matching("world_("); len(got) != 0 {
		t.Fatalf("expected malformed pattern never to match, got %v", got)
	}
	if got := set.Matching("arena_1"); len(got) != 1 || got[0] != "broken" {
		t.Fatalf("expected remaining pattern to match, got %v", got)
	}
}

func TestNewGroupSetBadCronIsWarning(t *testing.T) {
	_, issues, err := NewGroupSet([]Group{
		{Name: "survival", Default: true},
		{Name: "nightly", Conditions: &GroupConditions{Cron: "* * *"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(issues) != 1 || issues[0].Field != "conditions.cron" || issues[0].Group != "nightly" {
		t.Fatalf("expected cron warning, got %+v", issues)
	}
}

func TestGroupSetPatternsRequireFullMatch(t *testing.T) {
	set, _, err := NewGroupSet([]Group{
		{Name: "survival", Default: true},
		{Name: "minigames", Patterns: []string{"game_[0-9]+"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cases := map[string]bool{
		"game_12":       true,
		"game_12_extra": false,
		"my_game_12":    false,
	}
	for world, want := range cases {
		if got := len(set.Matching(world)) == 1; got != want {
			t.Fatalf("world %q: expected match=%v", world, want)
		}
	}
}

func TestGroupRegistryLoadKeepsPreviousOnError(t *testing.T) {
	var reported []ConfigIssue
	registry := NewGroupRegistry(WithIssueReporter(IssueReporterFunc(func(issue ConfigIssue) {
		reported = append(reported, issue)
	})))
	if registry.Snapshot() != nil {
		t.Fatalf("expected no snapshot before first load")
	}
	if _, err := registry.Load([]Group{{Name: "survival", Default: true}}); err != nil {
		t.Fatalf("load: %v", err)
	}
	first := registry.Snapshot()

	if _, err := registry.Load([]Group{{Name: "creative"}}); err == nil {
		t.Fatalf("expected load without default to fail")
	}
	if registry.Snapshot() != first {
		t.Fatalf("expected previous snapshot to stay active")
	}
	if len(reported) != 1 || reported[0].Severity != SeverityError {
		t.Fatalf("expected the failed load to be reported, got %+v", reported)
	}
}

func TestGroupRegistryUpdateRemoveAndListeners(t *testing.T) {
	registry := NewGroupRegistry()
	var versions []uint64
	registry.OnReload(func(set *GroupSet) { versions = append(versions, set.Version()) })

	if _, err := registry.Load([]Group{{Name: "survival", Default: true}}); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := registry.Update(Group{Name: "creative", Worlds: []string{"creative"}, Priority: 5}); err != nil {
		t.Fatalf("update add: %v", err)
	}
	if _, err := registry.Update(Group{Name: "creative", Worlds: []string{"build"}, Priority: 7}); err != nil {
		t.Fatalf("update replace: %v", err)
	}
	set := registry.Snapshot()
	group, ok := set.Group("creative")
	if !ok || group.Priority != 7 || group.Worlds[0] != "build" {
		t.Fatalf("expected replaced definition, got %+v", group)
	}
	if _, assigned := set.AssignedGroup("creative"); assigned {
		t.Fatalf("expected old world assignment dropped")
	}

	if _, err := registry.Remove("creative"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := registry.Snapshot().Group("creative"); ok {
		t.Fatalf("expected group removed")
	}
	if _, err := registry.Remove("survival"); err == nil {
		t.Fatalf("expected removing the default to fail")
	}

	if len(versions) != 4 {
		t.Fatalf("expected four reload notifications, got %v", versions)
	}
	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Fatalf("expected increasing versions, got %v", versions)
		}
	}
}

func TestGroupSetReturnsCopies(t *testing.T) {
	set, _, err := NewGroupSet([]Group{{Name: "survival", Default: true, Worlds: []string{"world"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	group, _ := set.Group("survival")
	group.Worlds[0] = "mutated"
	again, _ := set.Group("survival")
	if again.Worlds[0] != "world" {
		t.Fatalf("expected snapshot isolation, got %v", again.Worlds)
	}
}
