package invgroups

import (
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ResolutionReason explains how a group was selected.
type ResolutionReason string

const (
	// ReasonExplicit means the world is assigned to the group.
	ReasonExplicit ResolutionReason = "explicit"
	// ReasonPattern means the group won among pattern and default candidates.
	ReasonPattern ResolutionReason = "pattern"
	// ReasonFallback means no candidate passed its conditions and the
	// default group was used regardless of its own conditions.
	ReasonFallback ResolutionReason = "fallback"
)

// CandidateTrace records one candidate's condition outcome.
type CandidateTrace struct {
	Group    string
	Priority int
	Result   ConditionResult
}

// Resolution is a resolved group plus the evidence behind it.
type Resolution struct {
	Group      Group
	World      string
	Reason     ResolutionReason
	Candidates []CandidateTrace
	Version    uint64
	Cached     bool
}

type resolutionKey struct {
	player uuid.UUID
	world  string
}

type resolutionEntry struct {
	group      string
	reason     ResolutionReason
	candidates []CandidateTrace
	version    uint64
}

// Resolver selects the group applying to a player in a world.
type Resolver struct {
	registry   *GroupRegistry
	conditions *ConditionEvaluator
	caching    bool

	mu    sync.RWMutex
	cache map[resolutionKey]resolutionEntry
}

// NewResolver builds a resolver over registry. A nil conditions evaluator is
// built from opts. Group reloads clear both the resolution and condition
// caches.
func NewResolver(registry *GroupRegistry, conditions *ConditionEvaluator, opts ...Option) *Resolver {
	cfg := applyOptions(opts)
	if conditions == nil {
		conditions = newConditionEvaluator(newPredicateEvaluator(cfg), cfg)
	}
	r := &Resolver{
		registry:   registry,
		conditions: conditions,
		caching:    cfg.resolutionCache,
		cache:      make(map[resolutionKey]resolutionEntry),
	}
	registry.OnReload(func(*GroupSet) {
		r.conditions.Clear()
		r.InvalidateAll()
	})
	return r
}

// Resolve returns the group for player in world.
func (r *Resolver) Resolve(player Player, world string) (Group, error) {
	resolution, err := r.ResolveWithTrace(player, world)
	if err != nil {
		return Group{}, err
	}
	return resolution.Group, nil
}

// ResolveWithTrace returns the selected group with its candidates and the
// reason it was chosen.
func (r *Resolver) ResolveWithTrace(player Player, world string) (Resolution, error) {
	set := r.registry.Snapshot()
	if set == nil {
		return Resolution{}, ErrNoDefaultGroup
	}
	key := resolutionKey{player: player.ID, world: world}
	if r.caching {
		r.mu.RLock()
		entry, ok := r.cache[key]
		r.mu.RUnlock()
		if ok && entry.version == set.Version() {
			if group, found := set.Group(entry.group); found {
				return Resolution{
					Group:      group,
					World:      world,
					Reason:     entry.reason,
					Candidates: cloneCandidates(entry.candidates),
					Version:    entry.version,
					Cached:     true,
				}, nil
			}
		}
	}

	resolution, err := r.resolve(set, player, world)
	if err != nil {
		return Resolution{}, err
	}
	if r.caching {
		r.mu.Lock()
		r.cache[key] = resolutionEntry{
			group:      resolution.Group.Name,
			reason:     resolution.Reason,
			candidates: cloneCandidates(resolution.Candidates),
			version:    set.Version(),
		}
		r.mu.Unlock()
	}
	return resolution, nil
}

func (r *Resolver) resolve(set *GroupSet, player Player, world string) (Resolution, error) {
	fallback, ok := set.Default()
	if !ok {
		return Resolution{}, ErrNoDefaultGroup
	}

	var names []string
	reason := ReasonPattern
	if assigned, ok := set.AssignedGroup(world); ok {
		names = []string{assigned}
		reason = ReasonExplicit
	} else {
		names = set.Matching(world)
		if !slices.Contains(names, fallback.Name) {
			names = append(names, fallback.Name)
		}
	}

	var (
		candidates []CandidateTrace
		survivors  []Group
	)
	for _, name := range names {
		group, ok := set.Group(name)
		if !ok {
			continue
		}
		result := r.conditions.Evaluate(player, group, true)
		candidates = append(candidates, CandidateTrace{Group: group.Name, Priority: group.Priority, Result: result})
		if result.Matches {
			survivors = append(survivors, group)
		}
	}

	resolution := Resolution{World: world, Candidates: candidates, Version: set.Version()}
	if len(survivors) == 0 {
		resolution.Group = fallback
		resolution.Reason = ReasonFallback
		return resolution, nil
	}
	sort.Slice(survivors, func(i, j int) bool {
		if survivors[i].Priority != survivors[j].Priority {
			return survivors[i].Priority > survivors[j].Priority
		}
		return survivors[i].Name < survivors[j].Name
	})
	resolution.Group = survivors[0]
	resolution.Reason = reason
	return resolution, nil
}

// InvalidatePlayer drops cached resolutions and condition results for
// player, typically on a world change.
func (r *Resolver) InvalidatePlayer(player uuid.UUID) {
	r.mu.Lock()
	for key := range r.cache {
		if key.player == player {
			delete(r.cache, key)
		}
	}
	r.mu.Unlock()
	r.conditions.InvalidatePlayer(player)
}

// InvalidateAll drops every cached resolution, for example after a
// condition-relevant clock tick.
func (r *Resolver) InvalidateAll() {
	r.mu.Lock()
	r.cache = make(map[resolutionKey]resolutionEntry)
	r.mu.Unlock()
}

// InvalidateConditions drops cached resolutions and condition results.
func (r *Resolver) InvalidateConditions() {
	r.InvalidateAll()
	r.conditions.Clear()
}

// Conditions exposes the condition evaluator used by the resolver.
func (r *Resolver) Conditions() *ConditionEvaluator {
	return r.conditions
}

func cloneCandidates(in []CandidateTrace) []CandidateTrace {
	if in == nil {
		return nil
	}
	out := make([]CandidateTrace, len(in))
	for i, c := range in {
		out[i] = CandidateTrace{Group: c.Group, Priority: c.Priority, Result: c.Result.clone()}
	}
	return out
}
